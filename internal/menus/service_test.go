package menus

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/helmdeck/helmdeck/internal/audit"
	"github.com/helmdeck/helmdeck/internal/authz"
	"github.com/helmdeck/helmdeck/internal/platform/httpx"
	"github.com/helmdeck/helmdeck/internal/profiles"
)

type grantKey struct {
	userID uuid.UUID
	menuID uuid.UUID
}

type memoryMenuRepo struct {
	entries map[uuid.UUID]MenuEntry
	grants  map[grantKey]bool
}

func newMemoryMenuRepo() *memoryMenuRepo {
	return &memoryMenuRepo{
		entries: make(map[uuid.UUID]MenuEntry),
		grants:  make(map[grantKey]bool),
	}
}

func (r *memoryMenuRepo) ListAll(ctx context.Context) ([]MenuEntry, error) {
	out := make([]MenuEntry, 0, len(r.entries))
	for _, m := range r.entries {
		out = append(out, m)
	}
	return out, nil
}

func (r *memoryMenuRepo) ListGranted(ctx context.Context, userID uuid.UUID) ([]MenuEntry, error) {
	var out []MenuEntry
	for _, m := range r.entries {
		if m.IsActive && r.grants[grantKey{userID: userID, menuID: m.ID}] {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memoryMenuRepo) Get(ctx context.Context, id uuid.UUID) (MenuEntry, error) {
	m, ok := r.entries[id]
	if !ok {
		return MenuEntry{}, httpx.ErrNotFound
	}
	return m, nil
}

func (r *memoryMenuRepo) GetGranted(ctx context.Context, id, userID uuid.UUID) (MenuEntry, error) {
	m, ok := r.entries[id]
	if !ok || !m.IsActive || !r.grants[grantKey{userID: userID, menuID: id}] {
		return MenuEntry{}, httpx.ErrNotFound
	}
	return m, nil
}

func (r *memoryMenuRepo) Insert(ctx context.Context, m MenuEntry) (MenuEntry, error) {
	r.entries[m.ID] = m
	return m, nil
}

func (r *memoryMenuRepo) Update(ctx context.Context, m MenuEntry) (MenuEntry, error) {
	if _, ok := r.entries[m.ID]; !ok {
		return MenuEntry{}, httpx.ErrNotFound
	}
	r.entries[m.ID] = m
	return m, nil
}

func (r *memoryMenuRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.entries[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(r.entries, id)
	for key := range r.grants {
		if key.menuID == id {
			delete(r.grants, key)
		}
	}
	return nil
}

type recorderStub struct {
	entries []audit.Entry
}

func (r *recorderStub) Record(ctx context.Context, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func adminPrincipal() authz.Principal {
	return authz.Principal{ID: uuid.New(), Role: profiles.RoleAdmin, IsActive: true}
}

func TestListNonAdminSeesGrantedActiveOnly(t *testing.T) {
	repo := newMemoryMenuRepo()
	svc := NewService(repo, nil)

	userID := uuid.New()
	granted := MenuEntry{ID: uuid.New(), Name: "Reports", Route: "/reports", IsActive: true}
	inactive := MenuEntry{ID: uuid.New(), Name: "Archive", Route: "/archive", IsActive: false}
	ungranted := MenuEntry{ID: uuid.New(), Name: "Settings", Route: "/settings", IsActive: true}
	for _, m := range []MenuEntry{granted, inactive, ungranted} {
		repo.entries[m.ID] = m
	}
	repo.grants[grantKey{userID: userID, menuID: granted.ID}] = true
	repo.grants[grantKey{userID: userID, menuID: inactive.ID}] = true

	caller := authz.Principal{ID: userID, Role: profiles.RoleUser, IsActive: true}
	entries, err := svc.List(context.Background(), caller)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, granted.ID, entries[0].ID)
}

func TestListAdminSeesEverything(t *testing.T) {
	repo := newMemoryMenuRepo()
	svc := NewService(repo, nil)

	active := uuid.New()
	repo.entries[active] = MenuEntry{ID: active, Name: "A", Route: "/a", IsActive: true}
	inactive := uuid.New()
	repo.entries[inactive] = MenuEntry{ID: inactive, Name: "B", Route: "/b", IsActive: false}

	entries, err := svc.List(context.Background(), adminPrincipal())
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestGetUngrantedAnswersNotFound(t *testing.T) {
	repo := newMemoryMenuRepo()
	svc := NewService(repo, nil)

	id := uuid.New()
	repo.entries[id] = MenuEntry{ID: id, Name: "Hidden", Route: "/hidden", IsActive: true}

	caller := authz.Principal{ID: uuid.New(), Role: profiles.RoleUser, IsActive: true}
	_, err := svc.Get(context.Background(), caller, id)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestCreateValidatesRoute(t *testing.T) {
	repo := newMemoryMenuRepo()
	svc := NewService(repo, nil)

	actor := uuid.New()
	_, err := svc.Create(context.Background(), actor, MenuEntry{Name: "Bad", Route: "reports"})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(context.Background(), actor, MenuEntry{Name: "  ", Route: "/ok"})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateStampsCreator(t *testing.T) {
	repo := newMemoryMenuRepo()
	recorder := &recorderStub{}
	svc := NewService(repo, recorder)

	actor := uuid.New()
	created, err := svc.Create(context.Background(), actor, MenuEntry{Name: "Reports", Route: "/reports", IsActive: true})
	require.NoError(t, err)
	require.NotNil(t, created.CreatedBy)
	require.Equal(t, actor, *created.CreatedBy)
	require.Len(t, recorder.entries, 1)
	require.Equal(t, "menu.create", recorder.entries[0].Action)
}

func TestDeleteRemovesGrants(t *testing.T) {
	repo := newMemoryMenuRepo()
	svc := NewService(repo, nil)

	id := uuid.New()
	userID := uuid.New()
	repo.entries[id] = MenuEntry{ID: id, Name: "Doomed", Route: "/doomed", IsActive: true}
	repo.grants[grantKey{userID: userID, menuID: id}] = true

	require.NoError(t, svc.Delete(context.Background(), uuid.New(), id))
	require.Empty(t, repo.grants)
}
