package handlers

import (
	"TgDrive/internal/model"
	"TgDrive/internal/service"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ChannelHandler управляет привязками каналов-хранилищ.
type ChannelHandler struct {
	Channels *service.ChannelService
	Logger   *zap.SugaredLogger
}

// NewChannelHandler создаёт хендлер каналов
func NewChannelHandler(channels *service.ChannelService, logger *zap.SugaredLogger) *ChannelHandler {
	return &ChannelHandler{Channels: channels, Logger: logger}
}

type channelDTO struct {
	ChannelID int64  `json:"channel_id"`
	Username  string `json:"username,omitempty"`
	Title     string `json:"title,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toChannelDTO(b model.ChannelBinding) channelDTO {
	return channelDTO{
		ChannelID: b.ChannelID,
		Username:  b.Username,
		Title:     b.Title,
		CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// List отдаёт привязки владельца.
func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	bindings, err := h.Channels.List(r.Context(), userID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	out := make([]channelDTO, 0, len(bindings))
	for _, b := range bindings {
		out = append(out, toChannelDTO(b))
	}
	writeJSON(w, http.StatusOK, out)
}

// AddChannelRequest — явная регистрация канала.
type AddChannelRequest struct {
	Identifier string `json:"identifier"` // численный id либо алиас
	Title      string `json:"title,omitempty"`
}

// Add регистрирует канал по id или алиасу. Повторная регистрация той же
// пары (владелец, канал) возвращает существующую привязку.
func (h *ChannelHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req AddChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warnw("AddChannel: invalid request body", "error", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	b, err := h.Channels.AddChannel(r.Context(), userID, req.Identifier, req.Title)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toChannelDTO(*b))
}

// Remove снимает привязку канала. Содержимое канала в бэкенде не трогается.
func (h *ChannelHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	channelID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid channel id", http.StatusBadRequest)
		return
	}

	if err := h.Channels.RemoveChannel(r.Context(), userID, channelID); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
