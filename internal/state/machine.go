package state

import (
	"fmt"

	"github.com/Proton-105/bazaar-bot/internal/domain"
)

// Advance returns a copy of conv moved to state to, with update applied to the
// copied context. The original is never modified, so a rejected transition leaves
// nothing half-written.
func Advance(conv *Conversation, to State, update func(*Context)) (*Conversation, error) {
	if conv == nil {
		return nil, fmt.Errorf("advance: nil conversation")
	}
	if !IsTransitionAllowed(conv.State, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, conv.State, to)
	}

	next := conv.Clone()
	if update != nil {
		update(&next.Context)
	}
	next.State = to

	if err := CheckContext(next.State, next.Context); err != nil {
		return nil, err
	}

	if conv.State != to {
		transitionRecorder(string(conv.State), string(to))
	}

	return next, nil
}

// WithLanguage returns a copy of conv with the language set.
func WithLanguage(conv *Conversation, lang domain.Language) *Conversation {
	next := conv.Clone()
	next.Language = lang
	return next
}

// Restart clears language and context and returns to language selection.
func Restart(conv *Conversation) *Conversation {
	next := conv.Clone()
	if next.State != StateLanguageSelection {
		transitionRecorder(string(next.State), string(StateLanguageSelection))
	}
	next.Language = ""
	next.State = StateLanguageSelection
	next.Context = Context{}
	return next
}

// CompleteOrder clears the context after an order and returns to product browsing.
func CompleteOrder(conv *Conversation) (*Conversation, error) {
	if err := ReadyForOrder(conv.Context); err != nil {
		return nil, err
	}

	return Advance(conv, StateShowingProduct, func(c *Context) { *c = Context{} })
}
