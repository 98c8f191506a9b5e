package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/bazaar-bot/internal/state"
)

type fakeLister struct {
	convs []*state.Conversation
	err   error
}

func (f fakeLister) GetAll(context.Context) ([]*state.Conversation, error) {
	return f.convs, f.err
}

func TestCollect_SetsGauges(t *testing.T) {
	c := NewStateCollector(fakeLister{convs: []*state.Conversation{
		{Identity: "a", State: state.StateAskingName},
		{Identity: "b", State: state.StateAskingName},
		{Identity: "c", State: state.StateShowingProduct},
		nil,
		{Identity: "d", State: state.State("LEGACY")},
	}})

	require.NoError(t, c.collect(context.Background()))

	assert.Equal(t, 5.0, testutil.ToFloat64(activeConversations))
	assert.Equal(t, 2.0, testutil.ToFloat64(conversationsByState.WithLabelValues(string(state.StateAskingName))))
	assert.Equal(t, 1.0, testutil.ToFloat64(conversationsByState.WithLabelValues(string(state.StateShowingProduct))))
	assert.Equal(t, 0.0, testutil.ToFloat64(conversationsByState.WithLabelValues(string(state.StateAskingPhone))))
	assert.Equal(t, 1.0, testutil.ToFloat64(conversationsByState.WithLabelValues("LEGACY")))
}

func TestCollect_StoreError(t *testing.T) {
	boom := errors.New("redis down")
	c := NewStateCollector(fakeLister{err: boom})
	assert.ErrorIs(t, c.collect(context.Background()), boom)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		NewStateCollector(fakeLister{}).Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestRecorders_EmptyLabelsBecomeUnknown(t *testing.T) {
	before := testutil.ToFloat64(errorsTotal.WithLabelValues("unknown", "unknown"))
	RecordError("", "")
	assert.Equal(t, before+1, testutil.ToFloat64(errorsTotal.WithLabelValues("unknown", "unknown")))

	sends := testutil.ToFloat64(channelSendsTotal.WithLabelValues("text", "error"))
	RecordChannelSend("text", false)
	assert.Equal(t, sends+1, testutil.ToFloat64(channelSendsTotal.WithLabelValues("text", "error")))

	transitions := testutil.ToFloat64(stateTransitionsTotal.WithLabelValues("unknown", string(state.StateAskingName)))
	RecordStateTransition("", string(state.StateAskingName))
	assert.Equal(t, transitions+1, testutil.ToFloat64(stateTransitionsTotal.WithLabelValues("unknown", string(state.StateAskingName))))
}
