package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Таксономия ошибок ядра. Хендлеры отображают их в HTTP-статусы,
// не зная деталей нижних слоёв.
var (
	// ErrNotFound — узел или канал отсутствует либо не принадлежит вызывающему.
	ErrNotFound = errors.New("not found")
	// ErrValidation — некорректный путь/имя/идентификатор или пустая нагрузка.
	ErrValidation = errors.New("validation failed")
	// ErrConflict — место назначения занято другим содержимым
	// либо дубликат привязки канала.
	ErrConflict = errors.New("conflict")
	// ErrStorage — сбой загрузки/выгрузки после исчерпания всех адресов.
	ErrStorage = errors.New("storage failure")
	// ErrAuth — сбой логина/подтверждения в бэкенде.
	ErrAuth = errors.New("authentication failed")
)

// fromDB транслирует ошибки персистентного слоя в таксономию сервиса.
func fromDB(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	default:
		return err
	}
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
