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

// SiteHandler serves site administration. Reads sit on the tenant-discovery
// path and are not scoped by a TenantContext; mutations are reserved for
// callers authenticated against the default site.
type SiteHandler struct {
	service *usecase.SiteService
	logger  *slog.Logger
}

// NewSiteHandler creates the site handler.
func NewSiteHandler(service *usecase.SiteService, logger *slog.Logger) *SiteHandler {
	return &SiteHandler{service: service, logger: logger}
}

// Routes mounts the handler on a chi router.
func (h *SiteHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
}

func (h *SiteHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	site, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, site)
}

func (h *SiteHandler) list(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r)
	sites, total, err := h.service.List(r.Context(), page)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if sites == nil {
		sites = []*domain.Site{}
	}
	writeJSON(w, http.StatusOK, listResponse{Items: sites, Total: total, Page: page.Number, Size: page.Size})
}

func (h *SiteHandler) create(w http.ResponseWriter, r *http.Request) {
	if tc, ok := middleware.TenantFrom(r.Context()); !ok || !tc.IsDefaultSite {
		writeError(w, h.logger, domain.ErrUnauthorized)
		return
	}

	var site domain.Site
	if err := json.NewDecoder(r.Body).Decode(&site); err != nil {
		writeError(w, h.logger, domain.ErrValidation)
		return
	}
	if site.Name == "" || site.Slug == "" {
		writeError(w, h.logger, domain.ErrValidation)
		return
	}

	if err := h.service.Create(r.Context(), &site); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, site)
}

func (h *SiteHandler) update(w http.ResponseWriter, r *http.Request) {
	if tc, ok := middleware.TenantFrom(r.Context()); !ok || !tc.IsDefaultSite {
		writeError(w, h.logger, domain.ErrUnauthorized)
		return
	}

	id, err := pathID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	site, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req struct {
		Name *string `json:"name"`
		Slug *string `json:"slug"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, domain.ErrValidation)
		return
	}
	if req.Name != nil {
		site.Name = *req.Name
	}
	if req.Slug != nil {
		site.Slug = *req.Slug
	}

	if err := h.service.Update(r.Context(), site); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, site)
}
