package handlers

import (
	"TgDrive/internal/config"
	"TgDrive/internal/middleware"
	"TgDrive/internal/service"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	treeService *service.TreeService,
	fileService *service.FileService,
	channelService *service.ChannelService,
	authService *service.AuthService,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithAuth(config.AuthSecret))

	// Handlers
	fileHandler := NewFileHandler(treeService, fileService, logger, config)
	channelHandler := NewChannelHandler(channelService, logger)
	authHandler := NewAuthHandler(authService, logger, config)

	// Auth routes (открыты без токена)
	r.Post("/api/auth/telegram/send_code", authHandler.SendCode)
	r.Post("/api/auth/telegram/verify", authHandler.Verify)

	// File routes
	r.Get("/api/files", fileHandler.List)
	r.Post("/api/files", fileHandler.Upload)
	r.Get("/api/files/{id}/download", fileHandler.Download)
	r.Post("/api/files/{id}/move", fileHandler.Move)
	r.Post("/api/files/{id}/restore", fileHandler.Restore)
	r.Delete("/api/files/{id}", fileHandler.Delete)

	// Channel routes
	r.Get("/api/channels", channelHandler.List)
	r.Post("/api/channels", channelHandler.Add)
	r.Delete("/api/channels/{id}", channelHandler.Remove)

	return &Handler{Router: r}
}

// requireUser возвращает user_id из контекста либо отвечает 401.
func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	uid, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return uid, ok
}

// writeError отображает таксономию ошибок сервисов в HTTP-статусы.
func writeError(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrAuth):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrStorage):
		logger.Errorw("storage backend failure", "error", err)
		http.Error(w, "storage backend failure", http.StatusBadGateway)
	default:
		logger.Errorw("internal error", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// writeJSON сериализует ответ с заданным статусом.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
