package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/helmdeck/helmdeck/internal/rbac"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestWithPrincipal(p Principal) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/profiles", nil)
	return req.WithContext(ContextWithPrincipal(req.Context(), p))
}

func TestRequireAuthenticatedRejectsAnonymous(t *testing.T) {
	mw := Middleware{}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/profiles", nil)

	mw.RequireAuthenticated(okHandler()).ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireAuthenticatedPassesPrincipal(t *testing.T) {
	mw := Middleware{}
	rr := httptest.NewRecorder()
	req := requestWithPrincipal(Principal{ID: uuid.New(), Role: rbac.RoleUser, IsActive: true})

	mw.RequireAuthenticated(okHandler()).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRequireAdminDeniesWithNotFound(t *testing.T) {
	mw := Middleware{}
	rr := httptest.NewRecorder()
	req := requestWithPrincipal(Principal{ID: uuid.New(), Role: rbac.RoleUser, IsActive: true})

	mw.RequireAdmin(okHandler()).ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRequireAdminDeniesInactiveAdmin(t *testing.T) {
	mw := Middleware{}
	rr := httptest.NewRecorder()
	req := requestWithPrincipal(Principal{ID: uuid.New(), Role: rbac.RoleAdmin, IsActive: false})

	mw.RequireAdmin(okHandler()).ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	mw := Middleware{}
	rr := httptest.NewRecorder()
	req := requestWithPrincipal(Principal{ID: uuid.New(), Role: rbac.RoleAdmin, IsActive: true})

	mw.RequireAdmin(okHandler()).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}
