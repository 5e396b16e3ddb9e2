package audit

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads audit_logs windows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Window returns at most limit entries matching the filters, newest first.
// Offset/limit implement the probe-one-extra paging scheme in the service.
func (r *Repository) Window(ctx context.Context, filters Filters, offset, limit int) ([]Entry, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if !filters.From.IsZero() {
		conds = append(conds, "created_at >= "+arg(filters.From))
	}
	if !filters.To.IsZero() {
		conds = append(conds, "created_at <= "+arg(filters.To))
	}
	if filters.Actor != nil {
		conds = append(conds, "actor_id = "+arg(*filters.Actor))
	}
	if entity := strings.TrimSpace(filters.Entity); entity != "" {
		conds = append(conds, "entity = "+arg(entity))
	}
	if action := strings.TrimSpace(filters.Action); action != "" {
		conds = append(conds, "action = "+arg(action))
	}

	query := `SELECT id, actor_id, action, entity, COALESCE(entity_id, ''), meta, COALESCE(ip, ''), created_at FROM audit_logs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	query += " OFFSET " + arg(offset) + " LIMIT " + arg(limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &e.Meta, &e.IP, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
