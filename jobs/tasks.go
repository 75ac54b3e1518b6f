package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPurgeDeleted is the task type for purging soft-deleted records.
	TaskPurgeDeleted = "records:purge"
)

// PurgeDeletedPayload bounds which soft-deleted records a purge run removes.
type PurgeDeletedPayload struct {
	RetentionSeconds int64 `json:"retention_seconds"`
}

// Retention converts the payload window back to a duration.
func (p PurgeDeletedPayload) Retention() time.Duration {
	return time.Duration(p.RetentionSeconds) * time.Second
}

// NewPurgeDeletedTask constructs an Asynq task removing records that have
// been soft-deleted for longer than retention.
func NewPurgeDeletedTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(PurgeDeletedPayload{RetentionSeconds: int64(retention.Seconds())})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPurgeDeleted, data), nil
}
