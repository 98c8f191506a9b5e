package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Worker runs maintenance task handlers.
type Worker interface {
	RegisterHandler(taskType string, handler asynq.Handler)
	Start() error
	Shutdown()
}

type worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *slog.Logger
}

var _ Worker = (*worker)(nil)

// NewWorker builds a Worker over the weighted queues. Maintenance tasks are
// idempotent sweeps, so a failed run is logged and retried with asynq's backoff.
func NewWorker(redisOpt asynq.RedisConnOpt, queues map[string]int, concurrency int, log *slog.Logger) Worker {
	if log == nil {
		log = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = 2
	}

	w := &worker{mux: asynq.NewServeMux(), log: log}
	w.mux.Use(w.timed)

	w.server = asynq.NewServer(redisOpt, asynq.Config{
		Queues:          queues,
		Concurrency:     concurrency,
		LogLevel:        asynq.WarnLevel,
		ShutdownTimeout: 10 * time.Second,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			log.ErrorContext(ctx, "maintenance task failed",
				slog.String("task", task.Type()),
				slog.Int("retry", retried),
				slog.Int("max_retry", maxRetry),
				slog.Any("error", err),
			)
		}),
	})

	return w
}

func (w *worker) RegisterHandler(taskType string, handler asynq.Handler) {
	w.mux.Handle(taskType, handler)
}

// timed logs how long each task ran.
func (w *worker) timed(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		start := time.Now()
		err := next.ProcessTask(ctx, task)
		w.log.DebugContext(ctx, "maintenance task finished",
			slog.String("task", task.Type()),
			slog.Duration("duration", time.Since(start)),
			slog.Bool("ok", err == nil),
		)
		return err
	})
}

// Start launches processing in the background. The caller owns signal
// handling and stops the worker through Shutdown.
func (w *worker) Start() error {
	w.log.Info("jobs worker starting")
	return w.server.Start(w.mux)
}

func (w *worker) Shutdown() {
	w.log.Info("jobs worker shutting down")
	w.server.Shutdown()
}
