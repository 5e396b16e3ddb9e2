package grants

import (
	"time"

	"github.com/google/uuid"
)

// Grant gives one identity visibility into one menu entry. The (UserID,
// MenuID) pair is unique; GrantedBy records who handed out the access.
type Grant struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	MenuID    uuid.UUID  `json:"menu_id"`
	GrantedBy *uuid.UUID `json:"granted_by,omitempty"`
	GrantedAt time.Time  `json:"granted_at"`
}
