package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/record-api/internal/adapter/api/middleware"
	"github.com/user/record-api/internal/domain"
	"github.com/user/record-api/internal/usecase"
)

// UserHandler serves the user CRUD endpoints for the caller's site.
type UserHandler struct {
	service *usecase.UserService
	logger  *slog.Logger
}

// NewUserHandler creates the user handler.
func NewUserHandler(service *usecase.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: service, logger: logger}
}

// Routes mounts the handler on a chi router.
func (h *UserHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type createUserRequest struct {
	Email    string          `json:"email"`
	Name     string          `json:"name"`
	Password string          `json:"password"`
	Role     domain.UserRole `json:"role"`
}

func (h *UserHandler) get(w http.ResponseWriter, r *http.Request) {
	tc, ok := middleware.TenantFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthorized)
		return
	}

	id, err := pathID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	u, err := h.service.Get(r.Context(), tc, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) list(w http.ResponseWriter, r *http.Request) {
	tc, ok := middleware.TenantFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthorized)
		return
	}

	page := parsePage(r)
	var filters []domain.Filter
	if v := r.URL.Query().Get("role"); v != "" {
		filters = append(filters, domain.Filter{Field: "role", Op: domain.OpEquals, Value: v})
	}

	users, total, err := h.service.List(r.Context(), tc, filters, parseSort(r), page)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if users == nil {
		users = []*domain.User{}
	}
	writeJSON(w, http.StatusOK, listResponse{Items: users, Total: total, Page: page.Number, Size: page.Size})
}

func (h *UserHandler) create(w http.ResponseWriter, r *http.Request) {
	tc, ok := middleware.TenantFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthorized)
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, domain.ErrValidation)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, h.logger, domain.ErrValidation)
		return
	}

	u := &domain.User{Email: req.Email, Name: req.Name, Role: req.Role}
	if err := h.service.Create(r.Context(), tc, u, req.Password); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, u)
}

func (h *UserHandler) update(w http.ResponseWriter, r *http.Request) {
	tc, ok := middleware.TenantFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthorized)
		return
	}

	id, err := pathID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var patch domain.UserPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, h.logger, domain.ErrValidation)
		return
	}

	u, err := h.service.Update(r.Context(), tc, id, patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) delete(w http.ResponseWriter, r *http.Request) {
	tc, ok := middleware.TenantFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthorized)
		return
	}

	id, err := pathID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	deleted, err := h.service.Delete(r.Context(), tc, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}
