package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Schedule holds the cron specs for periodic maintenance.
type Schedule struct {
	MediaCleanup        string
	MediaMaxAge         time.Duration
	ConversationCleanup string
	KeySweep            string
}

type Scheduler interface {
	RegisterTasks(schedule Schedule) error
	Run()
	Shutdown()
}

type scheduler struct {
	asynqScheduler *asynq.Scheduler
	log            *slog.Logger
}

func NewScheduler(redisOpt asynq.RedisConnOpt, log *slog.Logger) Scheduler {
	if log == nil {
		log = slog.Default()
	}

	return &scheduler{
		asynqScheduler: asynq.NewScheduler(redisOpt, nil),
		log:            log,
	}
}

func (s *scheduler) RegisterTasks(schedule Schedule) error {
	mediaTask, err := NewMediaCleanupTask(schedule.MediaMaxAge)
	if err != nil {
		return err
	}

	entries := []struct {
		spec string
		task *asynq.Task
	}{
		{schedule.MediaCleanup, mediaTask},
		{schedule.ConversationCleanup, NewConversationCleanupTask()},
		{schedule.KeySweep, NewKeySweepTask()},
	}

	for _, e := range entries {
		if e.spec == "" {
			continue
		}
		if _, err := s.asynqScheduler.Register(e.spec, e.task); err != nil {
			return fmt.Errorf("register %s: %w", e.task.Type(), err)
		}
		s.log.InfoContext(context.Background(), "scheduler: registered task", slog.String("task", e.task.Type()), slog.String("cron", e.spec))
	}

	return nil
}

func (s *scheduler) Run() {
	s.log.InfoContext(context.Background(), "scheduler: starting")

	go func() {
		if err := s.asynqScheduler.Run(); err != nil {
			s.log.ErrorContext(context.Background(), "scheduler: run failed", "error", err)
		}
	}()
}

func (s *scheduler) Shutdown() {
	s.log.InfoContext(context.Background(), "scheduler: shutting down")
	s.asynqScheduler.Shutdown()
}
