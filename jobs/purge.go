package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/fasm-labs/fasm/internal/jobs"
)

// Purger permanently removes rows whose soft-delete stamp is older than the
// retention window. Role memberships of purged users go with them through
// the cascading foreign keys.
type Purger struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewPurger constructs a Purger.
func NewPurger(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *Purger {
	return &Purger{pool: pool, logger: logger, metrics: metrics}
}

// HandlePurgeDeletedTask processes TaskPurgeDeleted tasks.
func (p *Purger) HandlePurgeDeletedTask(ctx context.Context, t *asynq.Task) error {
	var payload PurgeDeletedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := p.metrics.Track(TaskPurgeDeleted)
	return tracker.End(p.purge(ctx, payload.Retention()))
}

func (p *Purger) purge(ctx context.Context, retention time.Duration) error {
	cutoff := time.Now().Add(-retention).Unix()

	usersTag, err := p.pool.Exec(ctx,
		`DELETE FROM users WHERE deleted_at IS NOT NULL AND deleted_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("jobs: purge users: %w", err)
	}
	rolesTag, err := p.pool.Exec(ctx,
		`DELETE FROM roles WHERE deleted_at IS NOT NULL AND deleted_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("jobs: purge roles: %w", err)
	}

	p.metrics.AddPurged("users", usersTag.RowsAffected())
	p.metrics.AddPurged("roles", rolesTag.RowsAffected())
	p.logger.Info("purged soft-deleted records",
		slog.Int64("users", usersTag.RowsAffected()),
		slog.Int64("roles", rolesTag.RowsAffected()),
		slog.Int64("cutoff", cutoff))
	return nil
}
