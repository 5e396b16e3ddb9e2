package authz

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/helmdeck/helmdeck/internal/platform/httpx"
	"github.com/helmdeck/helmdeck/internal/rbac"
)

// ErrNoPrincipal is returned when no active profile backs the identity.
// A missing profile, an inactive one, and an unknown identity are all the
// same condition from the caller's point of view.
var ErrNoPrincipal = errors.New("authz: no principal")

// SubjectLoader fetches the authorization view of a profile by identity ID.
type SubjectLoader interface {
	Subject(ctx context.Context, id uuid.UUID) (rbac.Subject, error)
}

// Service resolves identities to principals.
type Service struct {
	loader SubjectLoader
	group  singleflight.Group
}

// NewService constructs a Service.
func NewService(loader SubjectLoader) *Service {
	return &Service{loader: loader}
}

// Resolve loads the principal for an identity ID. Concurrent lookups for the
// same identity are collapsed into a single profile query. Inactive accounts
// resolve to ErrNoPrincipal: lockout applies at this boundary on every
// request, not only at the data layer.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID) (Principal, error) {
	v, err, _ := s.group.Do(id.String(), func() (any, error) {
		subject, err := s.loader.Subject(ctx, id)
		if err != nil {
			if errors.Is(err, httpx.ErrNotFound) {
				return Principal{}, ErrNoPrincipal
			}
			return Principal{}, err
		}
		if !subject.IsActive {
			return Principal{}, ErrNoPrincipal
		}
		return Principal{ID: subject.ID, Role: subject.Role, IsActive: subject.IsActive}, nil
	})
	if err != nil {
		return Principal{}, err
	}
	return v.(Principal), nil
}
