package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fasm-labs/fasm/internal/permission"
	"github.com/fasm-labs/fasm/internal/platform/db"
	"github.com/fasm-labs/fasm/internal/roles"
	"github.com/fasm-labs/fasm/internal/shared"
)

// Repository provides PostgreSQL backed persistence for users and their
// role memberships.
type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, now: time.Now}
}

const userColumns = `id, name, pwd_hash, is_active, is_admin, profile, created_at, updated_at`

// Create inserts a new active user. A duplicate name fails with
// CodeUserConflict.
func (r *Repository) Create(ctx context.Context, name, passwordHash string) (*User, error) {
	now := r.now().Unix()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, name, pwd_hash, is_active, is_admin, profile, created_at, updated_at)
		 VALUES ($1, $2, $3, TRUE, FALSE, '{}'::jsonb, $4, $4)
		 RETURNING `+userColumns,
		uuid.New(), name, passwordHash, now)
	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, shared.NewError(shared.CodeUserConflict)
		}
		return nil, err
	}
	return user, nil
}

// Update applies a partial update. Untouched fields keep their values.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, patch UserUpdate) (*User, error) {
	var profile any
	if patch.Profile != nil {
		encoded, err := json.Marshal(patch.Profile)
		if err != nil {
			return nil, fmt.Errorf("users: encode profile: %w", err)
		}
		profile = string(encoded)
	}
	row := r.pool.QueryRow(ctx,
		`UPDATE users SET
		   name = COALESCE($2, name),
		   profile = COALESCE($3::jsonb, profile),
		   is_active = COALESCE($4, is_active),
		   updated_at = $5
		 WHERE id = $1 AND deleted_at IS NULL
		 RETURNING `+userColumns,
		id, patch.Name, profile, patch.IsActive, r.now().Unix())
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NewError(shared.CodeUserNotFound)
		}
		if isUniqueViolation(err) {
			return nil, shared.NewError(shared.CodeUserConflict)
		}
		return nil, err
	}
	return user, nil
}

// FindByID fetches a live user and eagerly resolves role memberships, so
// the caller can aggregate permissions without further reads.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NewError(shared.CodeUserNotFound)
		}
		return nil, err
	}
	if user.Roles, err = r.loadRoles(ctx, id); err != nil {
		return nil, err
	}
	return user, nil
}

// FindByName fetches a live user by its unique name. Roles are not
// resolved; the login path has no permission check.
func (r *Repository) FindByName(ctx context.Context, name string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE name = $1 AND deleted_at IS NULL`, name)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NewError(shared.CodeUserNotFound)
		}
		return nil, err
	}
	return user, nil
}

// List returns a page of users matching the query against the name, most
// recently updated first.
func (r *Repository) List(ctx context.Context, req shared.PageRequest) ([]User, int, error) {
	pattern := "%" + req.Query + "%"

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM users WHERE deleted_at IS NULL AND name ILIKE $1`,
		pattern).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE deleted_at IS NULL AND name ILIKE $1
		 ORDER BY updated_at DESC
		 LIMIT $2 OFFSET $3`,
		pattern, req.Size, req.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// SetRoles replaces the user's role memberships with the given set.
func (r *Repository) SetRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND deleted_at IS NULL)`,
			userID).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			return shared.NewError(shared.CodeUserNotFound)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
			return err
		}
		now := r.now().Unix()
		for _, roleID := range roleIDs {
			_, err := tx.Exec(ctx,
				`INSERT INTO user_roles (user_id, role_id, created_at) VALUES ($1, $2, $3)`,
				userID, roleID, now)
			if err != nil {
				if isForeignKeyViolation(err) {
					return shared.NewError(shared.CodeRoleNotFound)
				}
				return err
			}
		}
		return nil
	})
}

// SoftDelete stamps the user deleted without removing the row.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	now := r.now().Unix()
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET deleted_at = $2, updated_at = $2
		 WHERE id = $1 AND deleted_at IS NULL`, id, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NewError(shared.CodeUserNotFound)
	}
	return nil
}

func (r *Repository) loadRoles(ctx context.Context, userID uuid.UUID) ([]roles.Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.name, r.description, r.permissions, r.created_at, r.updated_at
		 FROM roles r
		 JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id = $1 AND r.deleted_at IS NULL
		 ORDER BY r.name`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []roles.Role
	for rows.Next() {
		var role roles.Role
		var perms int64
		if err := rows.Scan(&role.ID, &role.Name, &role.Desc, &perms, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		role.Permissions = permission.Set(perms)
		out = append(out, role)
	}
	return out, rows.Err()
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	var profile []byte
	err := row.Scan(&user.ID, &user.Name, &user.PasswordHash, &user.IsActive,
		&user.IsAdmin, &profile, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.Profile = map[string]any{}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &user.Profile); err != nil {
			return nil, fmt.Errorf("users: decode profile: %w", err)
		}
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
