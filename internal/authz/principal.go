// Package authz is the authorization layer. Every row-level rule the
// dashboard enforces reduces to one question answered here: who is the
// caller, what is their role, and are they still active. The answer is
// loaded once per request and threaded through the context.
package authz

import (
	"context"

	"github.com/google/uuid"

	"github.com/helmdeck/helmdeck/internal/rbac"
)

// Principal describes the authenticated actor for the current request.
type Principal struct {
	ID       uuid.UUID
	Role     rbac.Role
	IsActive bool
}

// IsAdmin reports whether the principal may perform administrator-gated
// operations. An inactive admin is not an admin.
func (p Principal) IsAdmin() bool {
	return p.Role == rbac.RoleAdmin && p.IsActive
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context. The second
// return value is false when the request is unauthenticated.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
