package profiles

import (
	"time"

	"github.com/google/uuid"

	"github.com/helmdeck/helmdeck/internal/rbac"
)

// Role is the privilege level stored on a profile.
type Role = rbac.Role

// Roles understood by the authorization layer.
const (
	RoleAdmin    = rbac.RoleAdmin
	RoleUser     = rbac.RoleUser
	RoleEmployee = rbac.RoleEmployee
)

// Profile represents one identity known to the dashboard. The ID is shared
// with the external identity provider.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SignupMetadata carries optional overrides supplied by the identity
// provider at signup time.
type SignupMetadata struct {
	FullName string
	Role     Role
}
