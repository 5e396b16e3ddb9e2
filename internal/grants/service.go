package grants

import (
	"context"

	"github.com/google/uuid"

	"github.com/helmdeck/helmdeck/internal/audit"
	"github.com/helmdeck/helmdeck/internal/authz"
	"github.com/helmdeck/helmdeck/internal/platform/httpx"
)

// RepositoryPort defines data access methods for grants.
type RepositoryPort interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Grant, error)
	ListForMenu(ctx context.Context, menuID uuid.UUID) ([]Grant, error)
	Insert(ctx context.Context, g Grant) (Grant, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ReplaceForMenu(ctx context.Context, menuID uuid.UUID, userIDs []uuid.UUID, grantedBy uuid.UUID) (added, removed int, err error)
}

// Service handles grant business logic.
type Service struct {
	repo     RepositoryPort
	recorder audit.RecorderPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, recorder audit.RecorderPort) *Service {
	return &Service{repo: repo, recorder: recorder}
}

// ListForUser returns a user's grants. Non-admin callers only see their own;
// asking for someone else's answers the same as asking for nothing.
func (s *Service) ListForUser(ctx context.Context, caller authz.Principal, userID uuid.UUID) ([]Grant, error) {
	if userID != caller.ID && !caller.IsAdmin() {
		return nil, httpx.ErrNotFound
	}
	return s.repo.ListForUser(ctx, userID)
}

// ListForMenu returns all grants on a menu entry. Admin only by routing.
func (s *Service) ListForMenu(ctx context.Context, menuID uuid.UUID) ([]Grant, error) {
	return s.repo.ListForMenu(ctx, menuID)
}

// Create hands out one grant, recording the granter.
func (s *Service) Create(ctx context.Context, actor uuid.UUID, userID, menuID uuid.UUID) (Grant, error) {
	created, err := s.repo.Insert(ctx, Grant{
		ID:        uuid.New(),
		UserID:    userID,
		MenuID:    menuID,
		GrantedBy: &actor,
	})
	if err != nil {
		return Grant{}, err
	}
	s.record(ctx, actor, "grant.create", created.ID, map[string]any{
		"user_id": userID.String(),
		"menu_id": menuID.String(),
	})
	return created, nil
}

// Delete revokes one grant.
func (s *Service) Delete(ctx context.Context, actor uuid.UUID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "grant.delete", id, nil)
	return nil
}

// ReplaceForMenu swaps the full grant set of a menu for the desired user
// list in one atomic reconciliation.
func (s *Service) ReplaceForMenu(ctx context.Context, actor uuid.UUID, menuID uuid.UUID, userIDs []uuid.UUID) ([]Grant, error) {
	added, removed, err := s.repo.ReplaceForMenu(ctx, menuID, userIDs, actor)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, "grant.replace_for_menu", menuID, map[string]any{
		"added":   added,
		"removed": removed,
		"desired": len(userIDs),
	})
	return s.repo.ListForMenu(ctx, menuID)
}

func (s *Service) record(ctx context.Context, actor uuid.UUID, action string, entity uuid.UUID, meta map[string]any) {
	if s.recorder == nil {
		return
	}
	_ = s.recorder.Record(ctx, audit.Entry{
		ActorID:  &actor,
		Action:   action,
		Entity:   "menu_grant",
		EntityID: entity.String(),
		Meta:     meta,
	})
}
