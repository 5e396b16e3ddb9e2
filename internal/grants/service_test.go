package grants

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/helmdeck/helmdeck/internal/audit"
	"github.com/helmdeck/helmdeck/internal/authz"
	"github.com/helmdeck/helmdeck/internal/platform/httpx"
	"github.com/helmdeck/helmdeck/internal/profiles"
)

type memoryGrantRepo struct {
	rows map[uuid.UUID]Grant
}

func newMemoryGrantRepo() *memoryGrantRepo {
	return &memoryGrantRepo{rows: make(map[uuid.UUID]Grant)}
}

func (r *memoryGrantRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]Grant, error) {
	var out []Grant
	for _, g := range r.rows {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *memoryGrantRepo) ListForMenu(ctx context.Context, menuID uuid.UUID) ([]Grant, error) {
	var out []Grant
	for _, g := range r.rows {
		if g.MenuID == menuID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *memoryGrantRepo) Insert(ctx context.Context, g Grant) (Grant, error) {
	for _, other := range r.rows {
		if other.UserID == g.UserID && other.MenuID == g.MenuID {
			return Grant{}, httpx.ErrDuplicate
		}
	}
	if g.GrantedAt.IsZero() {
		g.GrantedAt = time.Now().UTC()
	}
	r.rows[g.ID] = g
	return g, nil
}

func (r *memoryGrantRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.rows[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memoryGrantRepo) ReplaceForMenu(ctx context.Context, menuID uuid.UUID, userIDs []uuid.UUID, grantedBy uuid.UUID) (int, int, error) {
	desired := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		desired[id] = true
	}
	removed := 0
	for id, g := range r.rows {
		if g.MenuID != menuID {
			continue
		}
		if desired[g.UserID] {
			delete(desired, g.UserID)
			continue
		}
		delete(r.rows, id)
		removed++
	}
	added := 0
	for userID := range desired {
		g := Grant{ID: uuid.New(), UserID: userID, MenuID: menuID, GrantedBy: &grantedBy, GrantedAt: time.Now().UTC()}
		r.rows[g.ID] = g
		added++
	}
	return added, removed, nil
}

type recorderStub struct {
	entries []audit.Entry
}

func (r *recorderStub) Record(ctx context.Context, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func TestListForUserDeniesOtherUsers(t *testing.T) {
	repo := newMemoryGrantRepo()
	svc := NewService(repo, nil)

	caller := authz.Principal{ID: uuid.New(), Role: profiles.RoleUser, IsActive: true}
	_, err := svc.ListForUser(context.Background(), caller, uuid.New())
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestListForUserAllowsSelfAndAdmin(t *testing.T) {
	repo := newMemoryGrantRepo()
	svc := NewService(repo, nil)

	userID := uuid.New()
	menuID := uuid.New()
	g := Grant{ID: uuid.New(), UserID: userID, MenuID: menuID}
	repo.rows[g.ID] = g

	self := authz.Principal{ID: userID, Role: profiles.RoleUser, IsActive: true}
	own, err := svc.ListForUser(context.Background(), self, userID)
	require.NoError(t, err)
	require.Len(t, own, 1)

	admin := authz.Principal{ID: uuid.New(), Role: profiles.RoleAdmin, IsActive: true}
	others, err := svc.ListForUser(context.Background(), admin, userID)
	require.NoError(t, err)
	require.Len(t, others, 1)
}

func TestCreateRejectsDuplicatePair(t *testing.T) {
	repo := newMemoryGrantRepo()
	svc := NewService(repo, &recorderStub{})

	admin := uuid.New()
	userID := uuid.New()
	menuID := uuid.New()

	_, err := svc.Create(context.Background(), admin, userID, menuID)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), admin, userID, menuID)
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestCreateStampsGranter(t *testing.T) {
	repo := newMemoryGrantRepo()
	recorder := &recorderStub{}
	svc := NewService(repo, recorder)

	admin := uuid.New()
	created, err := svc.Create(context.Background(), admin, uuid.New(), uuid.New())
	require.NoError(t, err)
	require.NotNil(t, created.GrantedBy)
	require.Equal(t, admin, *created.GrantedBy)
	require.Len(t, recorder.entries, 1)
	require.Equal(t, "grant.create", recorder.entries[0].Action)
}

func TestReplaceForMenuReconciles(t *testing.T) {
	repo := newMemoryGrantRepo()
	recorder := &recorderStub{}
	svc := NewService(repo, recorder)

	admin := uuid.New()
	menuID := uuid.New()
	keep := uuid.New()
	drop := uuid.New()
	add := uuid.New()

	_, err := svc.Create(context.Background(), admin, keep, menuID)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), admin, drop, menuID)
	require.NoError(t, err)

	result, err := svc.ReplaceForMenu(context.Background(), admin, menuID, []uuid.UUID{keep, add})
	require.NoError(t, err)
	require.Len(t, result, 2)

	holders := map[uuid.UUID]bool{}
	for _, g := range result {
		holders[g.UserID] = true
	}
	require.True(t, holders[keep])
	require.True(t, holders[add])
	require.False(t, holders[drop])

	last := recorder.entries[len(recorder.entries)-1]
	require.Equal(t, "grant.replace_for_menu", last.Action)
	require.Equal(t, 1, last.Meta["added"])
	require.Equal(t, 1, last.Meta["removed"])
}

func TestReplaceForMenuEmptyDesiredRevokesAll(t *testing.T) {
	repo := newMemoryGrantRepo()
	svc := NewService(repo, nil)

	admin := uuid.New()
	menuID := uuid.New()
	_, err := svc.Create(context.Background(), admin, uuid.New(), menuID)
	require.NoError(t, err)

	result, err := svc.ReplaceForMenu(context.Background(), admin, menuID, nil)
	require.NoError(t, err)
	require.Empty(t, result)
}
