package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"TgDrive/internal/config"
	"TgDrive/internal/handlers"
	"TgDrive/internal/middleware"
	"TgDrive/internal/model"
	"TgDrive/internal/repo"
	"TgDrive/internal/service"
	"TgDrive/internal/telegram"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// stubTransport хранит блобы в памяти, выдавая монотонные message id.
type stubTransport struct {
	next  int64
	blobs map[int64][]byte
	err   error
}

func newStubTransport() *stubTransport {
	return &stubTransport{next: 1000, blobs: map[int64][]byte{}}
}

func (s *stubTransport) Upload(ctx context.Context, target telegram.ChannelTarget, payload []byte, filename, mimeType, caption string) (telegram.MessageRef, telegram.Identity, error) {
	if s.err != nil {
		return telegram.MessageRef{}, "", s.err
	}
	s.next++
	s.blobs[s.next] = payload
	return telegram.MessageRef{ChannelID: target.ID, MessageID: s.next}, telegram.IdentityBot, nil
}

func (s *stubTransport) Download(ctx context.Context, target telegram.ChannelTarget, messageID int64, sizeHint int64) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	b, ok := s.blobs[messageID]
	if !ok {
		return nil, telegram.ErrExhausted
	}
	return b, nil
}

var _ service.BlobTransport = (*stubTransport)(nil)

func newFilesTestRouter(t *testing.T) (http.Handler, *config.Config, *stubTransport) {
	t.Helper()
	dsn := fmt.Sprintf("file:h_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(db))

	logger := zap.NewNop().Sugar()
	cfg := &config.Config{AuthSecret: "test-secret"}

	nodes := repo.NewNodeRepository(db)
	channels := repo.NewChannelRepository(db)
	users := repo.NewUserRepository(db)
	sessions := repo.NewSessionRepository(db)

	// канал уже привязан: хендлеры не ходят в бэкенд
	_, err = channels.Create(context.Background(), &model.ChannelBinding{
		UserID: 1, ChannelID: -100100, Username: "@store",
	})
	require.NoError(t, err)

	failFactory := func(identity telegram.Identity, opts telegram.Options) (telegram.Client, error) {
		return nil, fmt.Errorf("backend unavailable in test")
	}
	manager := telegram.NewManager(failFactory, telegram.Options{}, staticSessions{err: telegram.ErrNoSession})

	tree := service.NewTreeService(nodes, logger)
	chSvc := service.NewChannelService(channels, manager, service.ChannelConfig{}, logger)
	transport := newStubTransport()
	files := service.NewFileService(nodes, tree, chSvc, transport, logger)
	auth := service.NewAuthService(users, sessions, telegram.NewPendingLogins(), failFactory, telegram.Options{}, make([]byte, 32), logger)

	h := handlers.NewHandler(tree, files, chSvc, auth, logger, cfg)
	return h.Router, cfg, transport
}

type staticSessions struct {
	s   string
	err error
}

func (s staticSessions) SessionString(ctx context.Context) (string, error) {
	return s.s, s.err
}

func addAuthCookie(t *testing.T, req *http.Request, userID int64, secret string) {
	t.Helper()
	rr := httptest.NewRecorder()
	require.NoError(t, middleware.SetLoginCookie(rr, userID, secret))
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
}

func multipartUpload(t *testing.T, path, filename string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("path", path))
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func doUpload(t *testing.T, router http.Handler, secret, dir, filename string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartUpload(t, dir, filename, payload)
	req := httptest.NewRequest(http.MethodPost, "/api/files", body)
	req.Header.Set("Content-Type", contentType)
	addAuthCookie(t, req, 1, secret)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestFiles_Unauthorized(t *testing.T) {
	router, _, _ := newFilesTestRouter(t)

	for _, tc := range []struct{ method, url string }{
		{http.MethodGet, "/api/files"},
		{http.MethodPost, "/api/files"},
		{http.MethodGet, "/api/files/xxx/download"},
		{http.MethodDelete, "/api/files/xxx"},
		{http.MethodGet, "/api/channels"},
	} {
		req := httptest.NewRequest(tc.method, tc.url, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "%s %s", tc.method, tc.url)
	}
}

func TestFiles_UploadListDownload(t *testing.T) {
	router, cfg, _ := newFilesTestRouter(t)
	payload := []byte("file body here")

	rr := doUpload(t, router, cfg.AuthSecret, "/docs", "report.txt", payload)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var uploadResp struct {
		Node struct {
			ID   string `json:"id"`
			Path string `json:"path"`
		} `json:"node"`
		Via string `json:"via"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &uploadResp))
	assert.Equal(t, "bot", uploadResp.Via)
	assert.Equal(t, "/docs/report.txt", uploadResp.Node.Path)

	// листинг корня показывает созданный каталог
	req := httptest.NewRequest(http.MethodGet, "/api/files?path=/", nil)
	addAuthCookie(t, req, 1, cfg.AuthSecret)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var listing service.Listing
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listing))
	require.Len(t, listing.Directories, 1)
	assert.Equal(t, "docs", listing.Directories[0].Name)

	// выгрузка возвращает исходные байты с заголовками вложения
	req = httptest.NewRequest(http.MethodGet, "/api/files/"+uploadResp.Node.ID+"/download", nil)
	addAuthCookie(t, req, 1, cfg.AuthSecret)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, payload, rr.Body.Bytes())
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "report.txt")
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
}

func TestFiles_UploadStatuses(t *testing.T) {
	router, cfg, _ := newFilesTestRouter(t)
	payload := []byte("dedup me")

	rr := doUpload(t, router, cfg.AuthSecret, "/", "a.bin", payload)
	require.Equal(t, http.StatusCreated, rr.Code)

	// повтор того же содержимого по тому же пути — 200 exists
	rr = doUpload(t, router, cfg.AuthSecret, "/", "a.bin", payload)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"via":"exists"`)

	// иное содержимое по тому же пути — 409
	rr = doUpload(t, router, cfg.AuthSecret, "/", "a.bin", []byte("different"))
	assert.Equal(t, http.StatusConflict, rr.Code)

	// то же содержимое по другому пути — 201 instant
	rr = doUpload(t, router, cfg.AuthSecret, "/copies", "b.bin", payload)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"via":"instant"`)
}

func TestFiles_Move(t *testing.T) {
	router, cfg, _ := newFilesTestRouter(t)

	rr := doUpload(t, router, cfg.AuthSecret, "/", "old.txt", []byte("x"))
	require.Equal(t, http.StatusCreated, rr.Code)
	var uploadResp struct {
		Node struct {
			ID string `json:"id"`
		} `json:"node"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &uploadResp))

	body := strings.NewReader(`{"new_name":"new.txt","new_dir":"/archive"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/files/"+uploadResp.Node.ID+"/move", body)
	addAuthCookie(t, req, 1, cfg.AuthSecret)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"path":"/archive/new.txt"`)

	// пустой запрос — 400
	req = httptest.NewRequest(http.MethodPost, "/api/files/"+uploadResp.Node.ID+"/move", strings.NewReader(`{}`))
	addAuthCookie(t, req, 1, cfg.AuthSecret)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestFiles_DeleteRestore(t *testing.T) {
	router, cfg, _ := newFilesTestRouter(t)

	rr := doUpload(t, router, cfg.AuthSecret, "/", "trash.txt", []byte("x"))
	require.Equal(t, http.StatusCreated, rr.Code)
	var uploadResp struct {
		Node struct {
			ID string `json:"id"`
		} `json:"node"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &uploadResp))
	id := uploadResp.Node.ID

	req := httptest.NewRequest(http.MethodDelete, "/api/files/"+id, nil)
	addAuthCookie(t, req, 1, cfg.AuthSecret)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)

	// удалённый узел не скачивается
	req = httptest.NewRequest(http.MethodGet, "/api/files/"+id+"/download", nil)
	addAuthCookie(t, req, 1, cfg.AuthSecret)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/files/"+id+"/restore", nil)
	addAuthCookie(t, req, 1, cfg.AuthSecret)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"name":"trash.txt"`)

	// неизвестный id — 404
	req = httptest.NewRequest(http.MethodDelete, "/api/files/00000000-0000-0000-0000-000000000000", nil)
	addAuthCookie(t, req, 1, cfg.AuthSecret)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestFiles_StorageFailureMapsToBadGateway(t *testing.T) {
	router, cfg, transport := newFilesTestRouter(t)
	transport.err = telegram.ErrExhausted

	rr := doUpload(t, router, cfg.AuthSecret, "/", "fail.bin", []byte("x"))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestChannels_AddAndList(t *testing.T) {
	router, cfg, _ := newFilesTestRouter(t)

	body := strings.NewReader(`{"identifier":"-100777","title":"Backup"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/channels", body)
	addAuthCookie(t, req, 1, cfg.AuthSecret)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/channels", nil)
	addAuthCookie(t, req, 1, cfg.AuthSecret)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"channel_id":-100777`)
	assert.Contains(t, rr.Body.String(), `"channel_id":-100100`)
}

func TestChannels_Remove(t *testing.T) {
	router, cfg, _ := newFilesTestRouter(t)

	body := strings.NewReader(`{"identifier":"-100777","title":"Backup"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/channels", body)
	addAuthCookie(t, req, 1, cfg.AuthSecret)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	req = httptest.NewRequest(http.MethodDelete, "/api/channels/-100777", nil)
	addAuthCookie(t, req, 1, cfg.AuthSecret)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/channels", nil)
	addAuthCookie(t, req, 1, cfg.AuthSecret)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), `"channel_id":-100777`)

	// повторное снятие — 404, кривой id — 400
	req = httptest.NewRequest(http.MethodDelete, "/api/channels/-100777", nil)
	addAuthCookie(t, req, 1, cfg.AuthSecret)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/channels/backup", nil)
	addAuthCookie(t, req, 1, cfg.AuthSecret)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuth_BadRequests(t *testing.T) {
	router, _, _ := newFilesTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/telegram/send_code", strings.NewReader("not json"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// verify без предшествующего send_code — 400
	req = httptest.NewRequest(http.MethodPost, "/api/auth/telegram/verify",
		strings.NewReader(`{"phone":"+7000","code":"12345"}`))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
