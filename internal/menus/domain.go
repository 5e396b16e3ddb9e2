package menus

import (
	"time"

	"github.com/google/uuid"
)

// MenuEntry is one administrator-managed navigable section. SortOrder defines
// display order; inactive entries are hidden from non-admin listings.
type MenuEntry struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Icon        string     `json:"icon"`
	Route       string     `json:"route"`
	SortOrder   int        `json:"sort_order"`
	IsActive    bool       `json:"is_active"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
