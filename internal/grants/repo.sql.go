package grants

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helmdeck/helmdeck/internal/platform/db"
	"github.com/helmdeck/helmdeck/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const grantColumns = `id, user_id, menu_id, granted_by, granted_at`

// ListForUser returns a user's grants ordered by grant time.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]Grant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+grantColumns+` FROM menu_grants WHERE user_id = $1 ORDER BY granted_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// ListForMenu returns all grants on a menu entry.
func (r *Repository) ListForMenu(ctx context.Context, menuID uuid.UUID) ([]Grant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+grantColumns+` FROM menu_grants WHERE menu_id = $1 ORDER BY granted_at, id`, menuID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// Insert creates one grant. A duplicate (user, menu) pair surfaces as
// httpx.ErrDuplicate, a missing profile or menu as httpx.ErrValidation.
func (r *Repository) Insert(ctx context.Context, g Grant) (Grant, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO menu_grants (id, user_id, menu_id, granted_by)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+grantColumns,
		g.ID, g.UserID, g.MenuID, g.GrantedBy).
		Scan(&g.ID, &g.UserID, &g.MenuID, &g.GrantedBy, &g.GrantedAt)
	if err != nil {
		return Grant{}, httpx.MapPgError(err)
	}
	return g, nil
}

// Delete removes one grant by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menu_grants WHERE id = $1`, id)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// ReplaceForMenu reconciles the grant set of a menu against the desired user
// list inside one transaction: missing grants are inserted, surplus ones
// deleted, matching ones left untouched. A crash can no longer leave the
// menu with zero grants halfway through.
func (r *Repository) ReplaceForMenu(ctx context.Context, menuID uuid.UUID, userIDs []uuid.UUID, grantedBy uuid.UUID) (added, removed int, err error) {
	desired := make(map[uuid.UUID]struct{}, len(userIDs))
	for _, id := range userIDs {
		desired[id] = struct{}{}
	}

	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT user_id FROM menu_grants WHERE menu_id = $1`, menuID)
		if err != nil {
			return err
		}
		existing := make(map[uuid.UUID]struct{})
		for rows.Next() {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			existing[id] = struct{}{}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		var surplus []uuid.UUID
		for id := range existing {
			if _, ok := desired[id]; !ok {
				surplus = append(surplus, id)
			}
		}
		if len(surplus) > 0 {
			tag, err := tx.Exec(ctx,
				`DELETE FROM menu_grants WHERE menu_id = $1 AND user_id = ANY($2)`, menuID, surplus)
			if err != nil {
				return err
			}
			removed = int(tag.RowsAffected())
		}

		for id := range desired {
			if _, ok := existing[id]; ok {
				continue
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO menu_grants (id, user_id, menu_id, granted_by) VALUES ($1, $2, $3, $4)`,
				uuid.New(), id, menuID, grantedBy); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, 0, httpx.MapPgError(err)
	}
	return added, removed, nil
}

func collect(rows pgx.Rows) ([]Grant, error) {
	var result []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.ID, &g.UserID, &g.MenuID, &g.GrantedBy, &g.GrantedAt); err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}
