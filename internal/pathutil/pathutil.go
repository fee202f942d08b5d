// Package pathutil нормализует логические пути виртуального дерева.
package pathutil

import (
	"errors"
	"fmt"
	"strings"
)

// Normalize приводит путь каталога к каноничному абсолютному виду:
// ведущий слеш, без завершающего слеша (кроме корня), без пустых
// сегментов; регистр сохраняется.
func Normalize(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return "/"
	}
	parts := Split(p)
	if len(parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(parts, "/")
}

// Split возвращает непустые сегменты пути.
func Split(path string) []string {
	raw := strings.Split(path, "/")
	parts := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

// Depth — число сегментов нормализованного пути (0 для корня).
func Depth(path string) int {
	return len(Split(path))
}

// Join присоединяет имя к нормализованному пути каталога.
func Join(dir, name string) string {
	dir = Normalize(dir)
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

// Parent возвращает путь родительского каталога.
func Parent(path string) string {
	parts := Split(path)
	if len(parts) <= 1 {
		return "/"
	}
	return "/" + strings.Join(parts[:len(parts)-1], "/")
}

// ValidateName проверяет имя узла: непустое и без разделителя пути.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name is required")
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("invalid name %q: must not contain '/'", name)
	}
	return nil
}
