package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RecorderPort is the write-side contract other modules depend on.
type RecorderPort interface {
	Record(ctx context.Context, entry Entry) error
}

// Recorder writes records into audit_logs.
type Recorder struct {
	pool *pgxpool.Pool
}

// NewRecorder returns a new Recorder.
func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

// Record persists the entry. Entries are write-once; there is no update or
// delete path anywhere in this package.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if r == nil {
		return errors.New("audit recorder not initialised")
	}
	if entry.Action == "" || entry.Entity == "" {
		return errors.New("audit entry requires action and entity")
	}
	var meta []byte
	if entry.Meta != nil {
		data, err := json.Marshal(entry.Meta)
		if err != nil {
			return err
		}
		meta = data
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, ip, created_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7)`,
		entry.ActorID, entry.Action, entry.Entity, entry.EntityID, meta, entry.IP, entry.CreatedAt)
	return err
}

var _ RecorderPort = (*Recorder)(nil)
