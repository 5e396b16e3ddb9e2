package identity

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/helmdeck/helmdeck/internal/platform/httpx"
	"github.com/helmdeck/helmdeck/internal/profiles"
	_ "github.com/helmdeck/helmdeck/testing"
)

type memoryProfileRepo struct {
	rows map[uuid.UUID]profiles.Profile
}

func newMemoryProfileRepo() *memoryProfileRepo {
	return &memoryProfileRepo{rows: make(map[uuid.UUID]profiles.Profile)}
}

func (r *memoryProfileRepo) List(ctx context.Context) ([]profiles.Profile, error) {
	out := make([]profiles.Profile, 0, len(r.rows))
	for _, p := range r.rows {
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryProfileRepo) Get(ctx context.Context, id uuid.UUID) (profiles.Profile, error) {
	p, ok := r.rows[id]
	if !ok {
		return profiles.Profile{}, httpx.ErrNotFound
	}
	return p, nil
}

func (r *memoryProfileRepo) Insert(ctx context.Context, p profiles.Profile) (profiles.Profile, error) {
	if _, exists := r.rows[p.ID]; exists {
		return profiles.Profile{}, httpx.ErrDuplicate
	}
	r.rows[p.ID] = p
	return p, nil
}

func (r *memoryProfileRepo) UpdateSelf(ctx context.Context, id uuid.UUID, email, fullName string) (profiles.Profile, error) {
	p, ok := r.rows[id]
	if !ok {
		return profiles.Profile{}, httpx.ErrNotFound
	}
	p.Email = email
	p.FullName = fullName
	r.rows[id] = p
	return p, nil
}

func (r *memoryProfileRepo) Update(ctx context.Context, p profiles.Profile) (profiles.Profile, error) {
	if _, ok := r.rows[p.ID]; !ok {
		return profiles.Profile{}, httpx.ErrNotFound
	}
	r.rows[p.ID] = p
	return p, nil
}

func (r *memoryProfileRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	p, ok := r.rows[id]
	if !ok {
		return httpx.ErrNotFound
	}
	p.IsActive = active
	r.rows[id] = p
	return nil
}

func newWebhookRouter(t *testing.T, repo *memoryProfileRepo) http.Handler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("webhook-token"), bcrypt.MinCost)
	require.NoError(t, err)

	svc := NewService(newMemorySessionRepo(), "assertion-secret", string(hash))
	profileService := profiles.NewService(repo, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc, profileService, nil, nil, nil, nil)

	r := chi.NewRouter()
	r.Route("/identity", handler.MountWebhookRoutes)
	return r
}

func postSignup(router http.Handler, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/identity/signups", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestSignupWebhookRejectsBadToken(t *testing.T) {
	router := newWebhookRouter(t, newMemoryProfileRepo())

	rr := postSignup(router, "", `{}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = postSignup(router, "wrong", `{}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSignupWebhookProvisionsProfile(t *testing.T) {
	repo := newMemoryProfileRepo()
	router := newWebhookRouter(t, repo)

	id := uuid.New()
	body := `{"id":"` + id.String() + `","email":"Alice@Example.com","metadata":{"full_name":"alice liddell"}}`
	rr := postSignup(router, "webhook-token", body)
	require.Equal(t, http.StatusCreated, rr.Code)

	stored, ok := repo.rows[id]
	require.True(t, ok)
	require.Equal(t, "alice@example.com", stored.Email)
	require.Equal(t, "Alice Liddell", stored.FullName)
	require.Equal(t, profiles.RoleUser, stored.Role)
	require.True(t, stored.IsActive)
}

func TestSignupWebhookRetryConflicts(t *testing.T) {
	repo := newMemoryProfileRepo()
	router := newWebhookRouter(t, repo)

	id := uuid.New()
	body := `{"id":"` + id.String() + `","email":"bob@example.com"}`
	require.Equal(t, http.StatusCreated, postSignup(router, "webhook-token", body).Code)
	require.Equal(t, http.StatusConflict, postSignup(router, "webhook-token", body).Code)
}

func TestSignupWebhookValidatesPayload(t *testing.T) {
	router := newWebhookRouter(t, newMemoryProfileRepo())

	rr := postSignup(router, "webhook-token", `{"id":"not-a-uuid","email":"x@example.com"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
