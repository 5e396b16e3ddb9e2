// Package identity is the boundary with the external identity provider.
// The provider authenticates credentials and signs assertions; this side
// only ever sees a verified, stable identity ID. Raw credentials never
// cross into the dashboard.
package identity

import (
	"time"

	"github.com/google/uuid"
)

// SignupEvent is the payload the provider posts when a new identity is
// provisioned. Metadata may override the profile defaults.
type SignupEvent struct {
	ID       uuid.UUID
	Email    string
	FullName string
	Role     string
}

// SessionRecord is the server-side registry row kept alongside the Redis
// session, so sweeps can revoke sessions that outlive their account.
type SessionRecord struct {
	ID        string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
	IP        string
	UA        string
}
