package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/bazaar-bot/internal/health"
)

func TestShutdownRunsPhasesInOrder(t *testing.T) {
	s := NewShutdown(nil)

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	s.Register(PhaseClients, "redis", record("redis"))
	s.Register(PhaseIngress, "http", record("http"))
	s.Register(PhaseWorkers, "jobs", record("jobs"))
	s.Register(PhaseIngress, "nil", nil)

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"http", "jobs", "redis"}, order)
}

func TestShutdownJoinsErrors(t *testing.T) {
	s := NewShutdown(nil)
	boom := errors.New("boom")

	s.Register(PhaseIngress, "a", func(context.Context) error { return boom })
	s.Register(PhaseClients, "b", func(context.Context) error { return errors.New("closed") })

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "a: boom")
	assert.Contains(t, err.Error(), "b: closed")
}

func TestProbes(t *testing.T) {
	checker := health.NewChecker(nil, time.Second)
	healthy := true
	checker.AddCheck("dep", health.CheckFunc(func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("down")
	}))

	p := NewProbes(nil, checker)
	ctx := context.Background()

	assert.NoError(t, p.Liveness(ctx))
	assert.NoError(t, p.Readiness(ctx))

	healthy = false
	assert.Error(t, p.Readiness(ctx))

	healthy = true
	p.Drain()
	assert.ErrorIs(t, p.Readiness(ctx), ErrDraining)
	assert.NoError(t, p.Liveness(ctx))
}
