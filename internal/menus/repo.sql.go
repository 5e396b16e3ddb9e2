package menus

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

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

const menuColumns = `id, name, COALESCE(description, ''), icon, route, sort_order, is_active, created_by, created_at, updated_at`

func scanMenu(row interface{ Scan(dest ...any) error }) (MenuEntry, error) {
	var m MenuEntry
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Icon, &m.Route, &m.SortOrder, &m.IsActive, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// ListAll returns every entry in display order, active or not.
func (r *Repository) ListAll(ctx context.Context) ([]MenuEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+menuColumns+` FROM menu_entries ORDER BY sort_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []MenuEntry
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// ListGranted returns exactly the active entries granted to the user, in
// display order. No grant or no active flag means no row.
func (r *Repository) ListGranted(ctx context.Context, userID uuid.UUID) ([]MenuEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+menuColumns+`
		 FROM menu_entries m
		 WHERE m.is_active
		   AND EXISTS (SELECT 1 FROM menu_grants g WHERE g.menu_id = m.id AND g.user_id = $1)
		 ORDER BY m.sort_order, m.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []MenuEntry
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// Get fetches one entry by ID regardless of grants.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (MenuEntry, error) {
	m, err := scanMenu(r.pool.QueryRow(ctx,
		`SELECT `+menuColumns+` FROM menu_entries WHERE id = $1`, id))
	if err != nil {
		return MenuEntry{}, httpx.MapPgError(err)
	}
	return m, nil
}

// GetGranted fetches one entry only if it is active and granted to the user.
func (r *Repository) GetGranted(ctx context.Context, id, userID uuid.UUID) (MenuEntry, error) {
	m, err := scanMenu(r.pool.QueryRow(ctx,
		`SELECT `+menuColumns+`
		 FROM menu_entries m
		 WHERE m.id = $1
		   AND m.is_active
		   AND EXISTS (SELECT 1 FROM menu_grants g WHERE g.menu_id = m.id AND g.user_id = $2)`,
		id, userID))
	if err != nil {
		return MenuEntry{}, httpx.MapPgError(err)
	}
	return m, nil
}

// Insert creates an entry.
func (r *Repository) Insert(ctx context.Context, m MenuEntry) (MenuEntry, error) {
	created, err := scanMenu(r.pool.QueryRow(ctx,
		`INSERT INTO menu_entries (id, name, description, icon, route, sort_order, is_active, created_by)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
		 RETURNING `+menuColumns,
		m.ID, m.Name, m.Description, m.Icon, m.Route, m.SortOrder, m.IsActive, m.CreatedBy))
	if err != nil {
		return MenuEntry{}, httpx.MapPgError(err)
	}
	return created, nil
}

// Update rewrites an entry's mutable columns.
func (r *Repository) Update(ctx context.Context, m MenuEntry) (MenuEntry, error) {
	updated, err := scanMenu(r.pool.QueryRow(ctx,
		`UPDATE menu_entries
		 SET name = $2, description = NULLIF($3, ''), icon = $4, route = $5, sort_order = $6, is_active = $7, updated_at = now()
		 WHERE id = $1
		 RETURNING `+menuColumns,
		m.ID, m.Name, m.Description, m.Icon, m.Route, m.SortOrder, m.IsActive))
	if err != nil {
		return MenuEntry{}, httpx.MapPgError(err)
	}
	return updated, nil
}

// Delete removes an entry. Dependent grants go with it via the cascade
// foreign key, nothing else does.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menu_entries WHERE id = $1`, id)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
