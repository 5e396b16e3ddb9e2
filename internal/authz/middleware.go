package authz

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/helmdeck/helmdeck/internal/platform/httpx"
	"github.com/helmdeck/helmdeck/internal/shared"
)

// Middleware wires principal resolution into the HTTP stack.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// LoadPrincipal resolves the session identity to a principal and stores it in
// the request context. Requests without a resolvable principal pass through
// unauthenticated; route guards decide what that means.
func (m Middleware) LoadPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := uuid.Parse(sess.User())
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		principal, err := m.Service.Resolve(r.Context(), id)
		if err != nil {
			if !errors.Is(err, ErrNoPrincipal) {
				if m.Logger != nil {
					m.Logger.Error("resolve principal", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

// RequireAuthenticated rejects requests without an active principal.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests from non-admin principals. Denials respond
// with 404 so a guarded resource is indistinguishable from a missing one.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}
		if !principal.IsAdmin() {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
