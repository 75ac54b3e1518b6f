// Package bootstrap seeds the records the service cannot run without: the
// admin superuser and the Default role. Seeding is idempotent and safe to
// run from many replicas at once.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/fasm-labs/fasm/internal/permission"
	"github.com/fasm-labs/fasm/internal/platform/db"
	"github.com/fasm-labs/fasm/internal/roles"
	"github.com/fasm-labs/fasm/internal/users"
)

// seedLockKey serializes concurrent replicas racing to seed the same rows.
const seedLockKey int64 = 0x6661736d

// Run ensures the admin user and Default role exist. Existing rows are
// left untouched, so a changed admin password only applies to fresh
// databases.
func Run(ctx context.Context, logger *slog.Logger, pool *pgxpool.Pool, adminPassword string) error {
	return db.WithAdvisoryLock(ctx, pool, seedLockKey, func(tx pgx.Tx) error {
		if err := seedAdmin(ctx, logger, tx, adminPassword); err != nil {
			return err
		}
		return seedDefaultRole(ctx, logger, tx)
	})
}

func seedAdmin(ctx context.Context, logger *slog.Logger, tx pgx.Tx, password string) error {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE name = $1 AND deleted_at IS NULL)`,
		users.AdminUserName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("bootstrap: check admin user: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("bootstrap: hash admin password: %w", err)
	}
	now := time.Now().Unix()
	_, err = tx.Exec(ctx,
		`INSERT INTO users (id, name, pwd_hash, is_active, is_admin, profile, created_at, updated_at)
		 VALUES ($1, $2, $3, TRUE, TRUE, '{}'::jsonb, $4, $4)`,
		uuid.New(), users.AdminUserName, string(hash), now)
	if err != nil {
		return fmt.Errorf("bootstrap: create admin user: %w", err)
	}

	logger.Info("seeded admin user", slog.String("name", users.AdminUserName))
	return nil
}

func seedDefaultRole(ctx context.Context, logger *slog.Logger, tx pgx.Tx) error {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1 AND deleted_at IS NULL)`,
		roles.DefaultRoleName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("bootstrap: check default role: %w", err)
	}
	if exists {
		return nil
	}

	now := time.Now().Unix()
	_, err = tx.Exec(ctx,
		`INSERT INTO roles (id, name, description, permissions, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)`,
		uuid.New(), roles.DefaultRoleName, "Assigned to new members", int64(permission.None), now)
	if err != nil {
		return fmt.Errorf("bootstrap: create default role: %w", err)
	}

	logger.Info("seeded default role", slog.String("name", roles.DefaultRoleName))
	return nil
}
