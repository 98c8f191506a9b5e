package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Proton-105/bazaar-bot/internal/state"
)

var (
	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_events_total",
			Help: "Total number of inbound events labeled by state, modality and status",
		},
		[]string{"state", "modality", "status"},
	)
	eventDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "event_duration_seconds",
			Help:    "Duration of a full conversation turn in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"state"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of conversation state transitions",
		},
		[]string{"from", "to"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by code and severity",
		},
		[]string{"type", "severity"},
	)
	fieldResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "field_resolutions_total",
			Help: "Field resolution outcomes labeled by field kind and the strategy that produced the value",
		},
		[]string{"kind", "source"},
	)
	languageCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "language_calls_total",
			Help: "Calls to the language service labeled by operation and status",
		},
		[]string{"op", "status"},
	)
	languageCallDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "language_call_duration_seconds",
			Help:    "Language service call latency in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2, 4, 8, 16},
		},
		[]string{"op"},
	)
	channelSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_sends_total",
			Help: "Outbound channel messages labeled by kind and status",
		},
		[]string{"kind", "status"},
	)
	ordersCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders persisted labeled by payment method",
		},
		[]string{"payment_method"},
	)
	activeConversations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_conversations",
			Help: "Current number of stored conversations",
		},
	)
	conversationsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "conversations_by_state",
			Help: "Number of conversations per state",
		},
		[]string{"state"},
	)
)

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

// RecordEvent increments turn counters and records duration.
func RecordEvent(st, modality, status string, duration time.Duration) {
	st = orUnknown(st)

	eventsTotal.WithLabelValues(st, orUnknown(modality), orUnknown(status)).Inc()
	eventDurationSeconds.WithLabelValues(st).Observe(duration.Seconds())
}

// RecordStateTransition tracks FSM transitions.
func RecordStateTransition(from, to string) {
	stateTransitionsTotal.WithLabelValues(orUnknown(from), orUnknown(to)).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	errorsTotal.WithLabelValues(orUnknown(errType), orUnknown(severity)).Inc()
}

// RecordFieldResolution counts which strategy resolved a field, "none" when nothing did.
func RecordFieldResolution(kind, source string) {
	fieldResolutionsTotal.WithLabelValues(orUnknown(kind), orUnknown(source)).Inc()
}

func RecordLanguageCall(op string, ok bool, duration time.Duration) {
	op = orUnknown(op)

	languageCallsTotal.WithLabelValues(op, status(ok)).Inc()
	languageCallDurationSeconds.WithLabelValues(op).Observe(duration.Seconds())
}

func RecordChannelSend(kind string, ok bool) {
	channelSendsTotal.WithLabelValues(orUnknown(kind), status(ok)).Inc()
}

func RecordOrderCreated(paymentMethod string) {
	ordersCreatedTotal.WithLabelValues(orUnknown(paymentMethod)).Inc()
}

// SetActiveConversations updates the gauge for stored conversations.
func SetActiveConversations(count int) {
	activeConversations.Set(float64(count))
}

// SetConversationsByState updates the gauge for the given state.
func SetConversationsByState(st string, count int) {
	conversationsByState.WithLabelValues(orUnknown(st)).Set(float64(count))
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// ConversationLister is the part of the conversation store the collector needs.
type ConversationLister interface {
	GetAll(ctx context.Context) ([]*state.Conversation, error)
}

// StateCollector periodically gathers conversation state counts and emits gauge metrics.
type StateCollector struct {
	store    ConversationLister
	interval time.Duration
}

// NewStateCollector builds a metrics collector bound to the provided store.
func NewStateCollector(store ConversationLister) *StateCollector {
	return &StateCollector{store: store, interval: 10 * time.Second}
}

// Run polls the store every interval, updating gauges until ctx is cancelled.
func (c *StateCollector) Run(ctx context.Context) {
	if c == nil || c.store == nil {
		return
	}

	for {
		_ = c.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.interval):
		}
	}
}

func (c *StateCollector) collect(ctx context.Context) error {
	conversations, err := c.store.GetAll(ctx)
	if err != nil {
		return err
	}

	SetActiveConversations(len(conversations))

	counts := make(map[string]int, len(state.All))
	for _, conv := range conversations {
		if conv == nil {
			continue
		}
		counts[string(conv.State)]++
	}

	conversationsByState.Reset()

	for _, tracked := range state.All {
		label := string(tracked)
		SetConversationsByState(label, counts[label])
		delete(counts, label)
	}

	for label, count := range counts {
		SetConversationsByState(label, count)
	}

	return nil
}
