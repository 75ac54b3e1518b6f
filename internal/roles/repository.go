package roles

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fasm-labs/fasm/internal/permission"
	"github.com/fasm-labs/fasm/internal/shared"
)

// Repository provides PostgreSQL backed persistence for roles.
type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, now: time.Now}
}

const roleColumns = `id, name, description, permissions, created_at, updated_at`

// Create inserts a new role. A duplicate name fails with CodeRoleConflict.
func (r *Repository) Create(ctx context.Context, name, desc string, perms permission.Set) (Role, error) {
	now := r.now().Unix()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO roles (id, name, description, permissions, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 RETURNING `+roleColumns,
		uuid.New(), name, desc, int64(perms), now)
	role, err := scanRole(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Role{}, shared.NewError(shared.CodeRoleConflict)
		}
		return Role{}, err
	}
	return role, nil
}

// Update applies a partial update. Untouched fields keep their values.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, patch RoleUpdate) (Role, error) {
	var perms *int64
	if patch.Permissions != nil {
		v := int64(*patch.Permissions)
		perms = &v
	}
	row := r.pool.QueryRow(ctx,
		`UPDATE roles SET
		   name = COALESCE($2, name),
		   description = COALESCE($3, description),
		   permissions = COALESCE($4, permissions),
		   updated_at = $5
		 WHERE id = $1 AND deleted_at IS NULL
		 RETURNING `+roleColumns,
		id, patch.Name, patch.Desc, perms, r.now().Unix())
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.NewError(shared.CodeRoleNotFound)
		}
		if isUniqueViolation(err) {
			return Role{}, shared.NewError(shared.CodeRoleConflict)
		}
		return Role{}, err
	}
	return role, nil
}

// FindByID fetches a live role.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (Role, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = $1 AND deleted_at IS NULL`, id)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.NewError(shared.CodeRoleNotFound)
		}
		return Role{}, err
	}
	return role, nil
}

// FindByName fetches a live role by its unique name.
func (r *Repository) FindByName(ctx context.Context, name string) (Role, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE name = $1 AND deleted_at IS NULL`, name)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.NewError(shared.CodeRoleNotFound)
		}
		return Role{}, err
	}
	return role, nil
}

// List returns a page of roles matching the query against name or
// description, most recently updated first.
func (r *Repository) List(ctx context.Context, req shared.PageRequest) ([]Role, int, error) {
	pattern := "%" + req.Query + "%"

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM roles
		 WHERE deleted_at IS NULL AND (name ILIKE $1 OR description ILIKE $1)`,
		pattern).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+roleColumns+` FROM roles
		 WHERE deleted_at IS NULL AND (name ILIKE $1 OR description ILIKE $1)
		 ORDER BY updated_at DESC
		 LIMIT $2 OFFSET $3`,
		pattern, req.Size, req.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, role)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// SoftDelete stamps the role deleted without removing the row.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	now := r.now().Unix()
	tag, err := r.pool.Exec(ctx,
		`UPDATE roles SET deleted_at = $2, updated_at = $2
		 WHERE id = $1 AND deleted_at IS NULL`, id, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NewError(shared.CodeRoleNotFound)
	}
	return nil
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	var perms int64
	if err := row.Scan(&role.ID, &role.Name, &role.Desc, &perms, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return Role{}, err
	}
	role.Permissions = permission.Set(perms)
	return role, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
