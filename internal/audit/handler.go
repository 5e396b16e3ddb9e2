package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/helmdeck/helmdeck/internal/authz"
	"github.com/helmdeck/helmdeck/internal/platform/httpx"
)

// Handler manages audit trail endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	exporter  *Exporter
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		exporter:  NewExporter(service),
		authz:     mw,
		validator: validator.New(),
	}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.authz.RequireAuthenticated)
	r.Get("/", h.list)
	r.Get("/export.csv", h.exportCSV)
	r.Post("/", h.record)
}

type recordRequest struct {
	Action   string         `json:"action" validate:"required"`
	Entity   string         `json:"entity" validate:"required"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta"`
}

func filtersFromQuery(r *http.Request) Filters {
	filters := Filters{
		Entity: r.URL.Query().Get("entity"),
		Action: r.URL.Query().Get("action"),
	}
	if raw := r.URL.Query().Get("actor_id"); raw != "" {
		if actor, err := uuid.Parse(raw); err == nil {
			filters.Actor = &actor
		}
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.From = t
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.To = t
		}
	}
	filters.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filters.PageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	return filters
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal, _ := authz.PrincipalFromContext(r.Context())
	filters := filtersFromQuery(r)

	result, err := h.service.List(r.Context(), principal, filters)
	if err != nil {
		h.logger.Error("list audit entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	principal, _ := authz.PrincipalFromContext(r.Context())
	data, err := h.exporter.ExportCSV(r.Context(), principal, filtersFromQuery(r))
	if err != nil {
		h.logger.Error("export audit entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit_log.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal, _ := authz.PrincipalFromContext(r.Context())
	err := h.service.Record(r.Context(), principal, Entry{
		Action:   req.Action,
		Entity:   req.Entity,
		EntityID: req.EntityID,
		Meta:     req.Meta,
		IP:       r.RemoteAddr,
	})
	if err != nil {
		h.logger.Error("record audit entry", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}
