package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Manager enqueues maintenance work outside the cron schedule.
type Manager interface {
	// EnqueueMediaCleanup queues a payment-proof sweep. Repeated calls within
	// window collapse into one task.
	EnqueueMediaCleanup(ctx context.Context, maxAge, window time.Duration) error
	Close() error
}

type manager struct {
	client *asynq.Client
	log    *slog.Logger
}

// NewManager builds a Manager backed by an asynq client.
func NewManager(redisOpt asynq.RedisConnOpt, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		client: asynq.NewClient(redisOpt),
		log:    log,
	}
}

func (m *manager) EnqueueMediaCleanup(ctx context.Context, maxAge, window time.Duration) error {
	task, err := NewMediaCleanupTask(maxAge)
	if err != nil {
		return err
	}

	info, err := m.client.EnqueueContext(ctx, task, asynq.Unique(window))
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			m.log.DebugContext(ctx, "media cleanup already queued")
			return nil
		}
		return err
	}

	m.log.InfoContext(ctx, "media cleanup queued", slog.String("task_id", info.ID), slog.String("queue", info.Queue))
	return nil
}

func (m *manager) Close() error {
	return m.client.Close()
}
