package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandler_Handle(t *testing.T) {
	cause := errors.New("connection reset")

	testCases := []struct {
		name          string
		err           error
		wantKey       string
		wantRetryable bool
		wantCode      string
	}{
		{"validation", NewValidationError("bad phone"), MessageInvalid, false, "E100"},
		{"extraction", NewExtractionError("phone", cause), MessageInvalid, false, "E110"},
		{"database", NewDatabaseError(cause), MessageGeneric, true, "E200"},
		{"dependency", NewDependencyError("redis", cause), MessageGeneric, true, "E210"},
		{"external api", NewExternalAPIError("whapi", cause), MessageGeneric, true, "E300"},
		{"transcription", NewTranscriptionError(cause), MessageGeneric, true, "E310"},
		{"state", NewStateError("bad transition"), MessageGeneric, false, "E400"},
		{"rate limit", NewRateLimitError(30), MessageRateLimited, false, "E500"},
		{"wrapped", fmt.Errorf("turn: %w", NewDatabaseError(cause)), MessageGeneric, true, "E200"},
		{"plain error", cause, MessageGeneric, false, "unknown"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			var observed string
			h := NewHandler(testLogger(), false)
			h.OnHandled(func(code string, _ Severity) { observed = code })

			key, retryable := h.Handle(context.Background(), tc.err)
			assert.Equal(t, tc.wantKey, key)
			assert.Equal(t, tc.wantRetryable, retryable)
			assert.Equal(t, tc.wantCode, observed)
		})
	}
}

func TestHandler_NilError(t *testing.T) {
	key, retryable := NewHandler(nil, false).Handle(context.Background(), nil)
	assert.Empty(t, key)
	assert.False(t, retryable)
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := NewExternalAPIError("groq", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "External API error: groq: timeout", err.Error())
	assert.Equal(t, "E300", CodeOf(fmt.Errorf("wrapped: %w", err)))
	assert.Empty(t, CodeOf(cause))
}

func TestWithRetry(t *testing.T) {
	t.Run("retries transient failures", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			if calls < 2 {
				return NewDependencyError("redis", errors.New("refused"))
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("stops on permanent failures", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return NewStateError("nope")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, WithRetry(ctx, func() error { return nil }), context.Canceled)
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		policy := RetryPolicy{Attempts: 3, Initial: time.Millisecond, Max: 2 * time.Millisecond}
		calls := 0
		err := policy.Do(context.Background(), func() error {
			calls++
			return NewDatabaseError(errors.New("refused"))
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})
}

func TestRetryPolicy_Wait(t *testing.T) {
	p := RetryPolicy{Initial: 100 * time.Millisecond, Max: time.Second}
	assert.Equal(t, 100*time.Millisecond, p.wait(1))
	assert.Equal(t, 400*time.Millisecond, p.wait(3))
	assert.Equal(t, time.Second, p.wait(10))
}

func TestCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreakerWithSettings(BreakerSettings{
		ErrorThreshold:      0.5,
		MinRequests:         2,
		OpenTimeout:         20 * time.Millisecond,
		HalfOpenMaxRequests: 1,
	})
	boom := errors.New("boom")

	assert.ErrorIs(t, cb.Call(func() error { return boom }), boom)
	assert.ErrorIs(t, cb.Call(func() error { return boom }), boom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	assert.ErrorIs(t, cb.Call(func() error { called = true; return nil }), ErrCircuitOpen)
	assert.False(t, called)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}
