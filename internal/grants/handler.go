package grants

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/helmdeck/helmdeck/internal/authz"
	"github.com/helmdeck/helmdeck/internal/platform/httpx"
)

// Handler manages grant endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: mw, validator: validator.New()}
}

// MountRoutes registers grant routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.authz.RequireAuthenticated)
	r.Get("/", h.listForUser)
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAdmin)
		r.Post("/", h.create)
		r.Delete("/{id}", h.delete)
	})
}

// MountMenuRoutes registers the per-menu grant routes under /menus/{id}.
func (h *Handler) MountMenuRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAuthenticated, h.authz.RequireAdmin)
		r.Get("/{id}/grants", h.listForMenu)
		r.Put("/{id}/grants", h.replaceForMenu)
	})
}

type createGrantRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	MenuID string `json:"menu_id" validate:"required,uuid"`
}

type replaceGrantsRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,dive,uuid"`
}

// listForUser serves ?user_id=; with no parameter the caller's own grants.
func (h *Handler) listForUser(w http.ResponseWriter, r *http.Request) {
	principal, _ := authz.PrincipalFromContext(r.Context())
	userID := principal.ID
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		userID = parsed
	}
	result, err := h.service.ListForUser(r.Context(), principal, userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if result == nil {
		result = []Grant{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grants": result})
}

func (h *Handler) listForMenu(w http.ResponseWriter, r *http.Request) {
	menuID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	result, err := h.service.ListForMenu(r.Context(), menuID)
	if err != nil {
		h.logger.Error("list menu grants", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if result == nil {
		result = []Grant{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grants": result})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createGrantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal, _ := authz.PrincipalFromContext(r.Context())
	created, err := h.service.Create(r.Context(), principal.ID, uuid.MustParse(req.UserID), uuid.MustParse(req.MenuID))
	if err != nil {
		h.logger.Error("create grant", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	principal, _ := authz.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), principal.ID, id); err != nil {
		h.logger.Error("delete grant", slog.Any("error", err), slog.String("id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) replaceForMenu(w http.ResponseWriter, r *http.Request) {
	menuID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req replaceGrantsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	userIDs := make([]uuid.UUID, len(req.UserIDs))
	for i, raw := range req.UserIDs {
		userIDs[i] = uuid.MustParse(raw)
	}
	principal, _ := authz.PrincipalFromContext(r.Context())
	result, err := h.service.ReplaceForMenu(r.Context(), principal.ID, menuID, userIDs)
	if err != nil {
		h.logger.Error("replace menu grants", slog.Any("error", err), slog.String("menu_id", menuID.String()))
		httpx.RespondError(w, err)
		return
	}
	if result == nil {
		result = []Grant{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grants": result})
}
