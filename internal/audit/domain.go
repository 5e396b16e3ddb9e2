package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one append-only audit record. ActorID is nullable because the
// acting profile may be removed after the fact.
type Entry struct {
	ID        int64          `json:"id"`
	ActorID   *uuid.UUID     `json:"actor_id,omitempty"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entity_id,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	IP        string         `json:"ip,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Filters narrows audit listings.
type Filters struct {
	From     time.Time
	To       time.Time
	Actor    *uuid.UUID
	Entity   string
	Action   string
	Page     int
	PageSize int
}

// PagingInfo describes the window returned by a listing.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result bundles listing rows with paging metadata.
type Result struct {
	Rows   []Entry    `json:"rows"`
	Paging PagingInfo `json:"paging"`
}
