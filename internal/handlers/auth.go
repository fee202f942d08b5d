package handlers

import (
	"TgDrive/internal/config"
	"TgDrive/internal/middleware"
	"TgDrive/internal/service"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// AuthHandler ведёт логин привилегированной идентичности Telegram.
type AuthHandler struct {
	Auth   *service.AuthService
	Logger *zap.SugaredLogger
	Config *config.Config
}

// NewAuthHandler создаёт хендлер логина
func NewAuthHandler(auth *service.AuthService, logger *zap.SugaredLogger, cfg *config.Config) *AuthHandler {
	return &AuthHandler{Auth: auth, Logger: logger, Config: cfg}
}

// SendCodeRequest — запрос кода подтверждения.
type SendCodeRequest struct {
	Phone string `json:"phone"`
}

// SendCode запрашивает код подтверждения на телефон.
func (h *AuthHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req SendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warnw("SendCode: invalid request body", "error", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	hash, err := h.Auth.SendCode(r.Context(), req.Phone)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"phone_code_hash": hash})
}

// VerifyRequest — подтверждение кода (и пароля двухэтапной проверки).
type VerifyRequest struct {
	Phone    string `json:"phone"`
	Code     string `json:"code"`
	Password string `json:"password,omitempty"`
}

// Verify завершает логин: сохраняет сессию, ставит cookie и возвращает
// токен для заголовка Authorization.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warnw("Verify: invalid request body", "error", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.Auth.Verify(r.Context(), req.Phone, req.Code, req.Password)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	if err := middleware.SetLoginCookie(w, user.ID, h.Config.AuthSecret); err != nil {
		h.Logger.Errorw("Verify: failed to set login cookie", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	token, err := middleware.BuildToken(user.ID, h.Config.AuthSecret)
	if err != nil {
		h.Logger.Errorw("Verify: failed to build token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"token":    token,
		"username": user.Username,
	})
}
