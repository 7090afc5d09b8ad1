package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/user/record-api/internal/adapter/api/middleware"
	"github.com/user/record-api/internal/domain"
	"github.com/user/record-api/internal/usecase"
)

// AuthHandler serves login and logout.
type AuthHandler struct {
	service *usecase.AuthService
	logger  *slog.Logger
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(service *usecase.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: logger}
}

type loginRequest struct {
	Site     string `json:"site"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges site/email/password for a signed token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, domain.ErrValidation)
		return
	}
	if req.Site == "" || req.Email == "" || req.Password == "" {
		writeError(w, h.logger, domain.ErrValidation)
		return
	}

	token, err := h.service.Login(r.Context(), req.Site, req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Logout revokes the presented token for its remaining lifetime. It sits
// behind the auth middleware, so the token has already been validated.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r.Context())
	if claims == nil {
		writeError(w, h.logger, domain.ErrUnauthorized)
		return
	}

	h.service.Logout(r.Context(), claims)
	w.WriteHeader(http.StatusNoContent)
}
