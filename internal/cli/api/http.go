package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	fsrepo "TgDrive/internal/cli/repo/fs"
)

// withAuth добавляет токен как auth cookie.
func withAuth(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Cookie", "auth_token="+token)
	}
}

// PostJSON sends a JSON POST request. If token is non-empty, it is passed as auth cookie.
func PostJSON(url string, payload any, token string) (*http.Response, []byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	withAuth(req, token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	body, _ := io.ReadAll(resp.Body)
	return resp, body, nil
}

// GetJSON выполняет GET с auth cookie и возвращает тело ответа.
func GetJSON(url string, token string) (*http.Response, []byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	withAuth(req, token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	body, _ := io.ReadAll(resp.Body)
	return resp, body, nil
}

// Delete выполняет DELETE с auth cookie.
func Delete(url string, token string) (*http.Response, []byte, error) {
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		return nil, nil, err
	}
	withAuth(req, token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	body, _ := io.ReadAll(resp.Body)
	return resp, body, nil
}

// UploadFile отправляет локальный файл multipart-формой: поле path —
// каталог назначения, поле file — содержимое.
func UploadFile(url, localPath, remoteDir, token string) (*http.Response, []byte, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("path", remoteDir); err != nil {
		return nil, nil, err
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return nil, nil, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	withAuth(req, token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	body, _ := io.ReadAll(resp.Body)
	return resp, body, nil
}

// DownloadToFile скачивает ответ сервера в локальный файл.
func DownloadToFile(url, localPath, token string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	withAuth(req, token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return resp, fmt.Errorf("server returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	out, err := os.Create(localPath)
	if err != nil {
		return resp, err
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return resp, err
	}
	return resp, nil
}

// PersistAuthFromResponse извлекает auth cookie из ответа и сохраняет его через файловое хранилище.
func PersistAuthFromResponse(resp *http.Response) error {
	store := fsrepo.AuthFSStore{}
	for _, c := range resp.Cookies() {
		if c.Name == "auth_token" && c.Value != "" {
			return store.Save(c.Value)
		}
	}
	return fmt.Errorf("no auth cookie in response")
}

// LoadToken читает сохранённый токен; пустая строка — токена нет.
func LoadToken() string {
	store := fsrepo.AuthFSStore{}
	token, err := store.Load()
	if err != nil {
		return ""
	}
	return token
}
