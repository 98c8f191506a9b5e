package bot

import (
	"context"
	"log/slog"

	"github.com/Proton-105/bazaar-bot/internal/bot/handlers"
	"github.com/Proton-105/bazaar-bot/internal/state"
)

// Dispatcher routes a loaded turn to the handler of the conversation's state.
type Dispatcher struct {
	flow *handlers.Flow
	log  *slog.Logger
}

// NewDispatcher creates a Dispatcher over flow.
func NewDispatcher(flow *handlers.Flow, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{flow: flow, log: log}
}

// Dispatch runs the state handler. An unknown state falls back to language selection.
func (d *Dispatcher) Dispatch(ctx context.Context, t *handlers.Turn) error {
	handler, ok := d.handlerFor(t.State())
	if !ok {
		d.log.WarnContext(ctx, "no handler for conversation state, falling back to language selection",
			slog.String("state", string(t.State())),
			slog.String("identity", t.Event.Identity),
		)
		handler = d.flow.LanguageSelection
	}

	return handler(ctx, t)
}

func (d *Dispatcher) handlerFor(s state.State) (handlers.Handler, bool) {
	switch s {
	case state.StateLanguageSelection:
		return d.flow.LanguageSelection, true
	case state.StateShowingProduct:
		return d.flow.ShowingProduct, true
	case state.StateAskingQuantity:
		return d.flow.AskingQuantity, true
	case state.StateAskingName:
		return d.flow.AskingName, true
	case state.StateAskingPhone:
		return d.flow.AskingPhone, true
	case state.StateAskingAddress:
		return d.flow.AskingAddress, true
	case state.StateAskingPaymentMethod:
		return d.flow.AskingPaymentMethod, true
	case state.StateWaitingPaymentProof:
		return d.flow.WaitingPaymentProof, true
	case state.StateWaitingForAgent:
		return d.flow.WaitingForAgent, true
	default:
		return nil, false
	}
}
