package identity

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/helmdeck/helmdeck/internal/audit"
	"github.com/helmdeck/helmdeck/internal/authz"
	"github.com/helmdeck/helmdeck/internal/platform/httpx"
	"github.com/helmdeck/helmdeck/internal/profiles"
	"github.com/helmdeck/helmdeck/internal/shared"
)

// Handler wires the identity-provider boundary: the signup webhook and the
// session lifecycle.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	profiles  *profiles.Service
	resolver  *authz.Service
	sessions  *shared.SessionManager
	csrf      *shared.CSRFManager
	recorder  audit.RecorderPort
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, profileService *profiles.Service, resolver *authz.Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, recorder audit.RecorderPort) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		profiles:  profileService,
		resolver:  resolver,
		sessions:  sessions,
		csrf:      csrf,
		recorder:  recorder,
		validator: validator.New(),
	}
}

// MountWebhookRoutes registers the provider-to-server routes. These are
// authenticated by bearer token, not by session.
func (h *Handler) MountWebhookRoutes(r chi.Router) {
	r.Post("/signups", h.handleSignup)
}

// MountSessionRoutes registers the session lifecycle routes.
func (h *Handler) MountSessionRoutes(r chi.Router) {
	r.Get("/csrf", h.handleCSRF)
	r.Post("/sessions", h.handleLogin)
	r.Delete("/sessions/current", h.handleLogout)
}

type signupRequest struct {
	ID       string          `json:"id" validate:"required,uuid"`
	Email    string          `json:"email" validate:"required,email"`
	Metadata *signupMetadata `json:"metadata"`
}

type signupMetadata struct {
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type loginRequest struct {
	UserID    string `json:"user_id" validate:"required,uuid"`
	Signature string `json:"signature" validate:"required,hexadecimal"`
}

// handleSignup consumes one provisioning event from the identity provider
// and synthesizes the profile row. Retries of the same identity fail loudly
// with 409 rather than double-creating.
func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if err := h.service.VerifyWebhookToken(token); err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	var req signupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	meta := profiles.SignupMetadata{}
	if req.Metadata != nil {
		meta.FullName = req.Metadata.FullName
		meta.Role = profiles.Role(req.Metadata.Role)
	}
	created, err := h.profiles.Provision(r.Context(), uuid.MustParse(req.ID), req.Email, meta)
	if err != nil {
		h.logger.Error("provision identity", slog.Any("error", err), slog.String("id", req.ID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) handleCSRF(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	token, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

// handleLogin maps a provider-signed assertion to a cookie session. Unknown
// and deactivated identities are rejected identically.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	userID := uuid.MustParse(req.UserID)
	if err := h.service.VerifyAssertion(userID, req.Signature); err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	principal, err := h.resolver.Resolve(r.Context(), userID)
	if err != nil {
		if errors.Is(err, authz.ErrNoPrincipal) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}
		h.logger.Error("resolve login principal", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(principal.ID.String())

	expiresAt := time.Now().Add(h.sessions.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, principal.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	if h.recorder != nil {
		actor := principal.ID
		_ = h.recorder.Record(r.Context(), audit.Entry{
			ActorID: &actor,
			Action:  "session.login",
			Entity:  "session",
			IP:      r.RemoteAddr,
		})
	}

	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"user_id":    principal.ID,
		"role":       principal.Role,
		"csrf_token": csrfToken,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		if principal, ok := authz.PrincipalFromContext(r.Context()); ok && h.recorder != nil {
			actor := principal.ID
			_ = h.recorder.Record(r.Context(), audit.Entry{
				ActorID: &actor,
				Action:  "session.logout",
				Entity:  "session",
				IP:      r.RemoteAddr,
			})
		}
		h.sessions.Destroy(sess)
	}
	httpx.NoContent(w)
}
