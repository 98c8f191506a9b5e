package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeMediaCleanup        = "media:cleanup"
	TaskTypeConversationCleanup = "conversations:cleanup"
	TaskTypeKeySweep            = "keys:sweep"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Queues is the weighted queue set the worker consumes.
var Queues = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
	QueueLow:      1,
}

type MediaCleanupPayload struct {
	MaxAge time.Duration `json:"max_age"`
}

func NewMediaCleanupTask(maxAge time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(MediaCleanupPayload{MaxAge: maxAge})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeMediaCleanup, payload, asynq.Queue(QueueLow), asynq.MaxRetry(3)), nil
}

func NewConversationCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeConversationCleanup, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(3))
}

func NewKeySweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeKeySweep, nil, asynq.Queue(QueueLow), asynq.MaxRetry(1))
}
