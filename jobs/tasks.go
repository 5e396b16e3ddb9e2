package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/helmdeck/helmdeck/internal/jobs"
	"github.com/helmdeck/helmdeck/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionsPurge removes session registry rows past their expiry.
	TaskSessionsPurge = "sessions:purge"
	// TaskSessionsRevokeInactive revokes live sessions whose account has
	// been deactivated since login.
	TaskSessionsRevokeInactive = "sessions:revoke_inactive"
)

// SessionsPurgePayload bounds a purge run.
type SessionsPurgePayload struct {
	Limit int `json:"limit"`
}

// NewSessionsPurgeTask constructs the purge task.
func NewSessionsPurgeTask(payload SessionsPurgePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionsPurge, data), nil
}

// NewSessionsRevokeInactiveTask constructs the revocation sweep task.
func NewSessionsRevokeInactiveTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskSessionsRevokeInactive, nil), nil
}

// NewSessionsPurgeHandler deletes expired session rows and their Redis
// counterparts.
func NewSessionsPurgeHandler(pool *pgxpool.Pool, sessions *shared.SessionManager, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskSessionsPurge)
		var payload SessionsPurgePayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return tracker.End(asynq.SkipRetry)
			}
		}
		if payload.Limit <= 0 {
			payload.Limit = 500
		}

		rows, err := pool.Query(ctx,
			`SELECT id FROM sessions WHERE expires_at < now() ORDER BY expires_at LIMIT $1`,
			payload.Limit)
		if err != nil {
			return tracker.End(err)
		}
		ids, err := collectIDs(rows)
		if err != nil {
			return tracker.End(err)
		}
		for _, id := range ids {
			if err := sessions.Revoke(ctx, id); err != nil {
				logger.Warn("revoke expired session", slog.Any("error", err))
			}
		}
		if len(ids) > 0 {
			if _, err := pool.Exec(ctx, `DELETE FROM sessions WHERE id = ANY($1)`, ids); err != nil {
				return tracker.End(err)
			}
		}
		metrics.AddRevoked("expired", len(ids))
		logger.Info("sessions purged", slog.Int("count", len(ids)))
		return tracker.End(nil)
	}
}

// NewSessionsRevokeInactiveHandler terminates sessions that belong to
// deactivated profiles. Deactivation takes effect here at the latest; the
// request boundary already refuses inactive principals.
func NewSessionsRevokeInactiveHandler(pool *pgxpool.Pool, sessions *shared.SessionManager, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskSessionsRevokeInactive)
		rows, err := pool.Query(ctx,
			`SELECT s.id
			   FROM sessions s
			   JOIN profiles p ON p.id = s.user_id
			  WHERE NOT p.is_active`)
		if err != nil {
			return tracker.End(err)
		}
		ids, err := collectIDs(rows)
		if err != nil {
			return tracker.End(err)
		}
		for _, id := range ids {
			if err := sessions.Revoke(ctx, id); err != nil {
				logger.Warn("revoke inactive session", slog.Any("error", err))
			}
		}
		if len(ids) > 0 {
			if _, err := pool.Exec(ctx, `DELETE FROM sessions WHERE id = ANY($1)`, ids); err != nil {
				return tracker.End(err)
			}
		}
		metrics.AddRevoked("deactivated", len(ids))
		logger.Info("inactive sessions revoked", slog.Int("count", len(ids)))
		return tracker.End(nil)
	}
}

func collectIDs(rows pgx.Rows) ([]string, error) {
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
