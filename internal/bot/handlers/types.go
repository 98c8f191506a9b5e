package handlers

import (
	"context"

	"github.com/Proton-105/bazaar-bot/internal/channel"
	"github.com/Proton-105/bazaar-bot/internal/state"
)

// Turn is one inbound event together with the sender's conversation. Conv is
// nil until the engine has loaded it; handlers replace it after every save.
type Turn struct {
	Event channel.Event
	Conv  *state.Conversation
}

// State returns the conversation state, or "" before the conversation is loaded.
func (t *Turn) State() state.State {
	if t == nil || t.Conv == nil {
		return ""
	}
	return t.Conv.State
}

// Handler processes a turn.
type Handler func(ctx context.Context, t *Turn) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler
