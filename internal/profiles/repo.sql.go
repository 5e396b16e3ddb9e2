package profiles

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helmdeck/helmdeck/internal/platform/httpx"
	"github.com/helmdeck/helmdeck/internal/rbac"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const profileColumns = `id, email, full_name, role, is_active, created_at, updated_at`

// List returns all profiles ordered by creation time.
func (r *Repository) List(ctx context.Context) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// Get fetches a single profile by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Profile, error) {
	var p Profile
	err := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id).
		Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Profile{}, httpx.MapPgError(err)
	}
	return p, nil
}

// Subject returns the authorization view of a profile. The authorization
// layer calls this on every request, so only the three columns it evaluates
// are read.
func (r *Repository) Subject(ctx context.Context, id uuid.UUID) (rbac.Subject, error) {
	var s rbac.Subject
	err := r.pool.QueryRow(ctx,
		`SELECT id, role, is_active FROM profiles WHERE id = $1`, id).
		Scan(&s.ID, &s.Role, &s.IsActive)
	if err != nil {
		return rbac.Subject{}, httpx.MapPgError(err)
	}
	return s, nil
}

// Insert creates a profile row. A duplicate identity ID or email surfaces as
// httpx.ErrDuplicate; an unknown role as httpx.ErrValidation.
func (r *Repository) Insert(ctx context.Context, p Profile) (Profile, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO profiles (id, email, full_name, role, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+profileColumns,
		p.ID, p.Email, p.FullName, p.Role, p.IsActive).
		Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Profile{}, httpx.MapPgError(err)
	}
	return p, nil
}

// UpdateSelf rewrites only the identity-owned columns. Role and is_active are
// carried over from the stored row inside the same statement, so a caller can
// never escalate through this path.
func (r *Repository) UpdateSelf(ctx context.Context, id uuid.UUID, email, fullName string) (Profile, error) {
	var p Profile
	err := r.pool.QueryRow(ctx,
		`UPDATE profiles
		 SET email = $2, full_name = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING `+profileColumns,
		id, email, fullName).
		Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Profile{}, httpx.MapPgError(err)
	}
	return p, nil
}

// Update rewrites all mutable columns, including role and is_active.
func (r *Repository) Update(ctx context.Context, p Profile) (Profile, error) {
	err := r.pool.QueryRow(ctx,
		`UPDATE profiles
		 SET email = $2, full_name = $3, role = $4, is_active = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING `+profileColumns,
		p.ID, p.Email, p.FullName, p.Role, p.IsActive).
		Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Profile{}, httpx.MapPgError(err)
	}
	return p, nil
}

// SetActive flips the activation flag. Profiles are never hard-deleted;
// deactivation is the deletion surrogate.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
