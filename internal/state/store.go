package state

import (
	"context"
	"errors"
)

var (
	// ErrVersionConflict indicates that the conversation changed since it was loaded.
	ErrVersionConflict = errors.New("conversation was modified concurrently")
	// ErrStateLocked indicates that another turn for the same identity holds the lock.
	ErrStateLocked = errors.New("conversation is locked, try again later")
)

// Store persists conversations keyed by identity.
type Store interface {
	// GetOrCreate returns the stored conversation, creating and saving a new one for unknown identities.
	GetOrCreate(ctx context.Context, identity string) (*Conversation, error)
	// Save writes conv if its Version still matches the stored one, then bumps Version.
	Save(ctx context.Context, conv *Conversation) error
	// Clear removes the conversation for identity.
	Clear(ctx context.Context, identity string) error
	// GetAll returns every stored conversation.
	GetAll(ctx context.Context) ([]*Conversation, error)
}
