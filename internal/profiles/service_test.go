package profiles

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/helmdeck/helmdeck/internal/audit"
	"github.com/helmdeck/helmdeck/internal/platform/httpx"
)

type memoryProfileRepo struct {
	rows map[uuid.UUID]Profile
}

func newMemoryProfileRepo() *memoryProfileRepo {
	return &memoryProfileRepo{rows: make(map[uuid.UUID]Profile)}
}

func (r *memoryProfileRepo) List(ctx context.Context) ([]Profile, error) {
	out := make([]Profile, 0, len(r.rows))
	for _, p := range r.rows {
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryProfileRepo) Get(ctx context.Context, id uuid.UUID) (Profile, error) {
	p, ok := r.rows[id]
	if !ok {
		return Profile{}, httpx.ErrNotFound
	}
	return p, nil
}

func (r *memoryProfileRepo) Insert(ctx context.Context, p Profile) (Profile, error) {
	if _, exists := r.rows[p.ID]; exists {
		return Profile{}, httpx.ErrDuplicate
	}
	for _, other := range r.rows {
		if other.Email == p.Email {
			return Profile{}, httpx.ErrDuplicate
		}
	}
	r.rows[p.ID] = p
	return p, nil
}

func (r *memoryProfileRepo) UpdateSelf(ctx context.Context, id uuid.UUID, email, fullName string) (Profile, error) {
	p, ok := r.rows[id]
	if !ok {
		return Profile{}, httpx.ErrNotFound
	}
	p.Email = email
	p.FullName = fullName
	r.rows[id] = p
	return p, nil
}

func (r *memoryProfileRepo) Update(ctx context.Context, p Profile) (Profile, error) {
	stored, ok := r.rows[p.ID]
	if !ok {
		return Profile{}, httpx.ErrNotFound
	}
	stored.Email = p.Email
	stored.FullName = p.FullName
	stored.Role = p.Role
	stored.IsActive = p.IsActive
	r.rows[p.ID] = stored
	return stored, nil
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

type recorderStub struct {
	entries []audit.Entry
}

func (r *recorderStub) Record(ctx context.Context, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func TestProvisionAppliesDefaults(t *testing.T) {
	repo := newMemoryProfileRepo()
	recorder := &recorderStub{}
	svc := NewService(repo, recorder)

	id := uuid.New()
	created, err := svc.Provision(context.Background(), id, "Alice@Example.COM", SignupMetadata{})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", created.Email)
	require.Equal(t, DefaultFullName, created.FullName)
	require.Equal(t, RoleUser, created.Role)
	require.True(t, created.IsActive)
	require.Len(t, recorder.entries, 1)
	require.Equal(t, "profile.provision", recorder.entries[0].Action)
}

func TestProvisionTitleCasesLowercaseName(t *testing.T) {
	repo := newMemoryProfileRepo()
	svc := NewService(repo, nil)

	created, err := svc.Provision(context.Background(), uuid.New(), "jane@example.com", SignupMetadata{FullName: "jane doe"})
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", created.FullName)
}

func TestProvisionKeepsMixedCaseName(t *testing.T) {
	repo := newMemoryProfileRepo()
	svc := NewService(repo, nil)

	created, err := svc.Provision(context.Background(), uuid.New(), "mc@example.com", SignupMetadata{FullName: "Angus McTavish"})
	require.NoError(t, err)
	require.Equal(t, "Angus McTavish", created.FullName)
}

func TestProvisionRejectsRetry(t *testing.T) {
	repo := newMemoryProfileRepo()
	svc := NewService(repo, nil)

	id := uuid.New()
	_, err := svc.Provision(context.Background(), id, "bob@example.com", SignupMetadata{})
	require.NoError(t, err)

	_, err = svc.Provision(context.Background(), id, "bob@example.com", SignupMetadata{})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestProvisionRejectsUnknownRole(t *testing.T) {
	repo := newMemoryProfileRepo()
	svc := NewService(repo, nil)

	_, err := svc.Provision(context.Background(), uuid.New(), "eve@example.com", SignupMetadata{Role: "superuser"})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateSelfPreservesRoleAndActivation(t *testing.T) {
	repo := newMemoryProfileRepo()
	recorder := &recorderStub{}
	svc := NewService(repo, recorder)

	id := uuid.New()
	repo.rows[id] = Profile{ID: id, Email: "old@example.com", FullName: "Old Name", Role: RoleEmployee, IsActive: true}

	updated, err := svc.UpdateSelf(context.Background(), id, "new@example.com", "New Name")
	require.NoError(t, err)
	require.Equal(t, "new@example.com", updated.Email)
	require.Equal(t, "New Name", updated.FullName)
	require.Equal(t, RoleEmployee, updated.Role)
	require.True(t, updated.IsActive)

	stored := repo.rows[id]
	require.Equal(t, RoleEmployee, stored.Role)
	require.True(t, stored.IsActive)
}

func TestUpdateSelfRequiresFields(t *testing.T) {
	svc := NewService(newMemoryProfileRepo(), nil)

	_, err := svc.UpdateSelf(context.Background(), uuid.New(), "", "Name")
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.UpdateSelf(context.Background(), uuid.New(), "a@example.com", "   ")
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestDeactivateKeepsRow(t *testing.T) {
	repo := newMemoryProfileRepo()
	recorder := &recorderStub{}
	svc := NewService(repo, recorder)

	admin := uuid.New()
	id := uuid.New()
	repo.rows[id] = Profile{ID: id, Email: "gone@example.com", Role: RoleUser, IsActive: true}

	require.NoError(t, svc.Deactivate(context.Background(), admin, id))

	stored, ok := repo.rows[id]
	require.True(t, ok)
	require.False(t, stored.IsActive)
	require.Len(t, recorder.entries, 1)
	require.Equal(t, "profile.deactivate", recorder.entries[0].Action)
	require.Equal(t, admin, *recorder.entries[0].ActorID)
}
