// internal/handler/auth.handler.go
package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/clivon254/TEO-KICKS-sub002/internal/session"
	"github.com/clivon254/TEO-KICKS-sub002/pkg/response"
)

// AuthHandler fronts the session store: login, logout, current session.
type AuthHandler struct {
	sessions *session.Store
	logger   *zap.Logger
}

func NewAuthHandler(sessions *session.Store, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, logger: logger}
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid login payload")
		return
	}
	if req.Email == "" || req.Password == "" {
		response.Error(w, http.StatusBadRequest, "email and password required")
		return
	}

	sess, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Warn("login failed", zap.String("email", req.Email), zap.Error(err))
		response.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sess.ID,
		"user":       sess.User,
		"expires_at": sess.ExpiresAt,
	})
}

func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context()); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "could not clear session")
		return
	}
	response.Message(w, http.StatusOK, "logged out", nil)
}

func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Current()
	if sess == nil {
		response.Error(w, http.StatusUnauthorized, "no active session")
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sess.ID,
		"user":       sess.User,
		"expires_at": sess.ExpiresAt,
	})
}
