// Package rbac holds the role model shared by the profile store and the
// authorization layer. It sits below both so neither has to import the other.
package rbac

import "github.com/google/uuid"

// Role is the privilege level stored on a profile.
type Role string

// Roles understood by the authorization layer.
const (
	RoleAdmin    Role = "admin"
	RoleUser     Role = "user"
	RoleEmployee Role = "employee"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleEmployee:
		return true
	}
	return false
}

// Subject is the slice of a profile that authorization decisions need.
type Subject struct {
	ID       uuid.UUID
	Role     Role
	IsActive bool
}
