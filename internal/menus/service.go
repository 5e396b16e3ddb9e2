package menus

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/helmdeck/helmdeck/internal/audit"
	"github.com/helmdeck/helmdeck/internal/authz"
	"github.com/helmdeck/helmdeck/internal/platform/httpx"
)

// RepositoryPort defines data access methods for menu entries.
type RepositoryPort interface {
	ListAll(ctx context.Context) ([]MenuEntry, error)
	ListGranted(ctx context.Context, userID uuid.UUID) ([]MenuEntry, error)
	Get(ctx context.Context, id uuid.UUID) (MenuEntry, error)
	GetGranted(ctx context.Context, id, userID uuid.UUID) (MenuEntry, error)
	Insert(ctx context.Context, m MenuEntry) (MenuEntry, error)
	Update(ctx context.Context, m MenuEntry) (MenuEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service handles menu catalog business logic.
type Service struct {
	repo     RepositoryPort
	recorder audit.RecorderPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, recorder audit.RecorderPort) *Service {
	return &Service{repo: repo, recorder: recorder}
}

// List returns the catalog as the caller is allowed to see it: admins get
// everything, everyone else gets exactly the active entries they hold a
// grant for.
func (s *Service) List(ctx context.Context, caller authz.Principal) ([]MenuEntry, error) {
	if caller.IsAdmin() {
		return s.repo.ListAll(ctx)
	}
	return s.repo.ListGranted(ctx, caller.ID)
}

// Get fetches one entry under the same visibility rule as List.
func (s *Service) Get(ctx context.Context, caller authz.Principal, id uuid.UUID) (MenuEntry, error) {
	if caller.IsAdmin() {
		return s.repo.Get(ctx, id)
	}
	return s.repo.GetGranted(ctx, id, caller.ID)
}

// Create inserts a catalog entry, recording the creator.
func (s *Service) Create(ctx context.Context, actor uuid.UUID, m MenuEntry) (MenuEntry, error) {
	if err := validate(m); err != nil {
		return MenuEntry{}, err
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedBy = &actor
	created, err := s.repo.Insert(ctx, m)
	if err != nil {
		return MenuEntry{}, err
	}
	s.record(ctx, actor, "menu.create", created.ID, map[string]any{"name": created.Name, "route": created.Route})
	return created, nil
}

// Update rewrites a catalog entry.
func (s *Service) Update(ctx context.Context, actor uuid.UUID, m MenuEntry) (MenuEntry, error) {
	if err := validate(m); err != nil {
		return MenuEntry{}, err
	}
	updated, err := s.repo.Update(ctx, m)
	if err != nil {
		return MenuEntry{}, err
	}
	s.record(ctx, actor, "menu.update", updated.ID, map[string]any{"name": updated.Name, "is_active": updated.IsActive})
	return updated, nil
}

// Delete removes a catalog entry together with its grants.
func (s *Service) Delete(ctx context.Context, actor uuid.UUID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "menu.delete", id, nil)
	return nil
}

func validate(m MenuEntry) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: menu name required", httpx.ErrValidation)
	}
	if !strings.HasPrefix(m.Route, "/") {
		return fmt.Errorf("%w: route must start with /", httpx.ErrValidation)
	}
	return nil
}

func (s *Service) record(ctx context.Context, actor uuid.UUID, action string, entity uuid.UUID, meta map[string]any) {
	if s.recorder == nil {
		return
	}
	_ = s.recorder.Record(ctx, audit.Entry{
		ActorID:  &actor,
		Action:   action,
		Entity:   "menu_entry",
		EntityID: entity.String(),
		Meta:     meta,
	})
}
