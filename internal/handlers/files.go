package handlers

import (
	"TgDrive/internal/config"
	"TgDrive/internal/model"
	"TgDrive/internal/service"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxUploadBytes — предел тела запроса загрузки: порог передачи бэкенда
// плюс запас на остальные части multipart-формы.
const maxUploadBytes = 2<<30 + 1<<20

// FileHandler обрабатывает дерево файлов: листинги, загрузку, выгрузку,
// перенос и удаление.
type FileHandler struct {
	Tree   *service.TreeService
	Files  *service.FileService
	Logger *zap.SugaredLogger
	Config *config.Config
}

// NewFileHandler создаёт хендлер файлов
func NewFileHandler(tree *service.TreeService, files *service.FileService, logger *zap.SugaredLogger, cfg *config.Config) *FileHandler {
	return &FileHandler{Tree: tree, Files: files, Logger: logger, Config: cfg}
}

// nodeDTO — представление узла в ответах.
type nodeDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mime_type,omitempty"`
	Checksum  string `json:"checksum,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toNodeDTO(n *model.Node) nodeDTO {
	d := nodeDTO{
		ID: n.ID, Name: n.Name, Kind: n.Kind, Path: n.Path,
		Size:      n.SizeBytes,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
	}
	if n.MimeType != nil {
		d.MimeType = *n.MimeType
	}
	if n.Checksum != nil {
		d.Checksum = *n.Checksum
	}
	return d
}

// List отдаёт содержимое каталога ?path= (по умолчанию корня).
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		path = "/"
	}
	listing, err := h.Tree.ListDirectory(r.Context(), userID, path)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// Upload принимает multipart-форму: поле path (каталог назначения) и
// файл file. Отвечает 201 с узлом и исходом (bot/user/instant/exists).
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.Logger.Warnw("Upload: invalid multipart form", "error", err)
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	dirPath := r.FormValue("path")
	if dirPath == "" {
		dirPath = "/"
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.Logger.Warnw("Upload: missing file part", "error", err)
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		h.Logger.Warnw("Upload: failed to read file part", "error", err)
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}

	res, err := h.Files.Upload(r.Context(), userID, dirPath, header.Filename, payload, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	status := http.StatusCreated
	if res.Via == service.ViaExists {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"node": toNodeDTO(res.Node),
		"via":  res.Via,
	})
}

// Download отдаёт байты файла с Content-Disposition: attachment.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	data, node, err := h.Files.Download(r.Context(), userID, id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	contentType := "application/octet-stream"
	if node.MimeType != nil && *node.MimeType != "" {
		contentType = *node.MimeType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": node.Name}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// MoveRequest — параметры переноса/переименования.
type MoveRequest struct {
	NewName *string `json:"new_name,omitempty"`
	NewDir  *string `json:"new_dir,omitempty"`
}

// Move переносит и/или переименовывает узел.
func (h *FileHandler) Move(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warnw("Move: invalid request body", "error", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.NewName == nil && req.NewDir == nil {
		http.Error(w, "new_name or new_dir is required", http.StatusBadRequest)
		return
	}

	node, err := h.Tree.MoveRename(r.Context(), userID, chi.URLParam(r, "id"), req.NewName, req.NewDir)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toNodeDTO(node))
}

// Delete помечает узел удалённым; с ?hard=true удаляет запись физически.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	var err error
	if r.URL.Query().Get("hard") == "true" {
		err = h.Tree.HardDelete(r.Context(), userID, id)
	} else {
		err = h.Tree.SoftDelete(r.Context(), userID, id)
	}
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Restore снимает пометку удаления.
func (h *FileHandler) Restore(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.Tree.Restore(r.Context(), userID, id); err != nil {
		writeError(w, h.Logger, err)
		return
	}

	node, err := h.Tree.GetByID(r.Context(), userID, id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toNodeDTO(node))
}
