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

// InteractionHandler serves the interaction CRUD and note sub-resource
// endpoints. Every call extracts the TenantContext placed by the auth
// middleware and passes it down explicitly.
type InteractionHandler struct {
	service *usecase.InteractionService
	logger  *slog.Logger
}

// NewInteractionHandler creates the interaction handler.
func NewInteractionHandler(service *usecase.InteractionService, logger *slog.Logger) *InteractionHandler {
	return &InteractionHandler{service: service, logger: logger}
}

// Routes mounts the handler on a chi router.
func (h *InteractionHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/notes", h.listNotes)
	r.Post("/{id}/notes", h.addNote)
	r.Delete("/{id}/notes/{noteID}", h.deleteNote)
}

func (h *InteractionHandler) get(w http.ResponseWriter, r *http.Request) {
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

	in, err := h.service.Get(r.Context(), tc, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, in)
}

func (h *InteractionHandler) list(w http.ResponseWriter, r *http.Request) {
	tc, ok := middleware.TenantFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthorized)
		return
	}

	page := parsePage(r)
	sort := parseSort(r)
	filters := parseInteractionFilters(r)
	query := r.URL.Query().Get("q")

	var (
		items []*domain.Interaction
		total int
		err   error
	)
	if query != "" {
		items, total, err = h.service.Search(r.Context(), tc, query, filters, sort, page)
	} else {
		items, total, err = h.service.List(r.Context(), tc, filters, sort, page)
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if items == nil {
		items = []*domain.Interaction{}
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, Total: total, Page: page.Number, Size: page.Size})
}

func (h *InteractionHandler) create(w http.ResponseWriter, r *http.Request) {
	tc, ok := middleware.TenantFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthorized)
		return
	}

	var in domain.Interaction
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, h.logger, domain.ErrValidation)
		return
	}
	if in.Title == "" {
		writeError(w, h.logger, domain.ErrValidation)
		return
	}

	if err := h.service.Create(r.Context(), tc, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, in)
}

func (h *InteractionHandler) update(w http.ResponseWriter, r *http.Request) {
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

	var patch domain.InteractionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, h.logger, domain.ErrValidation)
		return
	}

	in, err := h.service.Update(r.Context(), tc, id, patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, in)
}

func (h *InteractionHandler) delete(w http.ResponseWriter, r *http.Request) {
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

func (h *InteractionHandler) listNotes(w http.ResponseWriter, r *http.Request) {
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

	page := parsePage(r)
	notes, total, err := h.service.ListNotes(r.Context(), tc, id, page)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if notes == nil {
		notes = []*domain.Note{}
	}
	writeJSON(w, http.StatusOK, listResponse{Items: notes, Total: total, Page: page.Number, Size: page.Size})
}

func (h *InteractionHandler) addNote(w http.ResponseWriter, r *http.Request) {
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

	var note domain.Note
	if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
		writeError(w, h.logger, domain.ErrValidation)
		return
	}
	if note.Body == "" {
		writeError(w, h.logger, domain.ErrValidation)
		return
	}

	note.InteractionID = id
	note.AuthorID = tc.UserID

	if err := h.service.AddNote(r.Context(), tc, &note); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, note)
}

func (h *InteractionHandler) deleteNote(w http.ResponseWriter, r *http.Request) {
	tc, ok := middleware.TenantFrom(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthorized)
		return
	}

	noteID, err := pathID(chi.URLParam(r, "noteID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	deleted, err := h.service.DeleteNote(r.Context(), tc, noteID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

// parseInteractionFilters maps the supported query parameters onto the
// closed filter algebra. Unknown parameters are ignored here; unknown fields
// or malformed operators are rejected deeper down.
func parseInteractionFilters(r *http.Request) []domain.Filter {
	var filters []domain.Filter
	qs := r.URL.Query()

	if v := qs.Get("status"); v != "" {
		filters = append(filters, domain.Filter{Field: "status", Op: domain.OpEquals, Value: v})
	}
	if v := qs.Get("channel"); v != "" {
		filters = append(filters, domain.Filter{Field: "channel", Op: domain.OpEquals, Value: v})
	}
	if v := qs.Get("contact"); v != "" {
		filters = append(filters, domain.Filter{Field: "contact", Op: domain.OpContains, Value: v})
	}
	if lo, hi := qs.Get("occurred_from"), qs.Get("occurred_to"); lo != "" && hi != "" {
		filters = append(filters, domain.Filter{Field: "occurred_at", Op: domain.OpBetween, Lo: lo, Hi: hi})
	} else if lo != "" {
		filters = append(filters, domain.Filter{Field: "occurred_at", Op: domain.OpGTE, Value: lo})
	} else if hi != "" {
		filters = append(filters, domain.Filter{Field: "occurred_at", Op: domain.OpLTE, Value: hi})
	}

	return filters
}
