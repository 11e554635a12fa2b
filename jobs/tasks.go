package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGrantCacheWarm refills the grant cache after the grant matrix changed.
	TaskGrantCacheWarm = "authz:grants.warm"
)

// GrantCacheWarmPayload describes why a warm was requested.
type GrantCacheWarmPayload struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewGrantCacheWarmTask constructs an Asynq task.
func NewGrantCacheWarmTask(payload GrantCacheWarmPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGrantCacheWarm, data), nil
}
