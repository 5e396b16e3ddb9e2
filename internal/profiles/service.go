package profiles

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/helmdeck/helmdeck/internal/audit"
	"github.com/helmdeck/helmdeck/internal/platform/httpx"
)

// DefaultFullName is used when the identity provider supplies no name.
const DefaultFullName = "User"

// RepositoryPort defines data access methods for profiles.
type RepositoryPort interface {
	List(ctx context.Context) ([]Profile, error)
	Get(ctx context.Context, id uuid.UUID) (Profile, error)
	Insert(ctx context.Context, p Profile) (Profile, error)
	UpdateSelf(ctx context.Context, id uuid.UUID, email, fullName string) (Profile, error)
	Update(ctx context.Context, p Profile) (Profile, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// Service handles profile business logic.
type Service struct {
	repo     RepositoryPort
	recorder audit.RecorderPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, recorder audit.RecorderPort) *Service {
	return &Service{repo: repo, recorder: recorder}
}

// List returns all profiles. Route guards restrict this to admins.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	return s.repo.List(ctx)
}

// Get fetches one profile.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Profile, error) {
	return s.repo.Get(ctx, id)
}

// Provision creates the profile for a newly provisioned identity. Exactly one
// row per identity: a retry with the same ID fails loudly with ErrDuplicate
// instead of double-creating.
func (s *Service) Provision(ctx context.Context, id uuid.UUID, email string, meta SignupMetadata) (Profile, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if id == uuid.Nil || email == "" {
		return Profile{}, fmt.Errorf("%w: identity id and email required", httpx.ErrValidation)
	}
	role := RoleUser
	if meta.Role != "" {
		if !meta.Role.Valid() {
			return Profile{}, fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, meta.Role)
		}
		role = meta.Role
	}
	created, err := s.repo.Insert(ctx, Profile{
		ID:       id,
		Email:    email,
		FullName: displayName(meta.FullName),
		Role:     role,
		IsActive: true,
	})
	if err != nil {
		return Profile{}, err
	}
	s.record(ctx, nil, "profile.provision", created.ID, map[string]any{"email": created.Email, "role": string(created.Role)})
	return created, nil
}

// Create inserts a profile on behalf of an administrator.
func (s *Service) Create(ctx context.Context, actor uuid.UUID, p Profile) (Profile, error) {
	if !p.Role.Valid() {
		return Profile{}, fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, p.Role)
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Email = strings.TrimSpace(strings.ToLower(p.Email))
	created, err := s.repo.Insert(ctx, p)
	if err != nil {
		return Profile{}, err
	}
	s.record(ctx, &actor, "profile.create", created.ID, map[string]any{"email": created.Email, "role": string(created.Role)})
	return created, nil
}

// UpdateSelf lets a caller change its own email and full name. Role and
// activation flag always keep their stored values, whatever the payload said.
func (s *Service) UpdateSelf(ctx context.Context, caller uuid.UUID, email, fullName string) (Profile, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	fullName = strings.TrimSpace(fullName)
	if email == "" || fullName == "" {
		return Profile{}, fmt.Errorf("%w: email and full name required", httpx.ErrValidation)
	}
	updated, err := s.repo.UpdateSelf(ctx, caller, email, fullName)
	if err != nil {
		return Profile{}, err
	}
	s.record(ctx, &caller, "profile.update_self", caller, nil)
	return updated, nil
}

// Update applies an administrator edit, including role and activation changes.
func (s *Service) Update(ctx context.Context, actor uuid.UUID, p Profile) (Profile, error) {
	if !p.Role.Valid() {
		return Profile{}, fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, p.Role)
	}
	p.Email = strings.TrimSpace(strings.ToLower(p.Email))
	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return Profile{}, err
	}
	s.record(ctx, &actor, "profile.update", updated.ID, map[string]any{"role": string(updated.Role), "is_active": updated.IsActive})
	return updated, nil
}

// Deactivate flips the activation flag off. Profiles are never hard-deleted.
func (s *Service) Deactivate(ctx context.Context, actor uuid.UUID, id uuid.UUID) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.record(ctx, &actor, "profile.deactivate", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, actor *uuid.UUID, action string, entity uuid.UUID, meta map[string]any) {
	if s.recorder == nil {
		return
	}
	_ = s.recorder.Record(ctx, audit.Entry{
		ActorID:  actor,
		Action:   action,
		Entity:   "profile",
		EntityID: entity.String(),
		Meta:     meta,
	})
}

// displayName normalizes the identity provider's optional full name.
func displayName(raw string) string {
	name := strings.Join(strings.Fields(raw), " ")
	if name == "" {
		return DefaultFullName
	}
	if name == strings.ToLower(name) {
		return cases.Title(language.English).String(name)
	}
	return name
}
