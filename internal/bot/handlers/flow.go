// Package handlers implements the per-state conversation steps.
//
// Every step that changes the conversation saves it before sending anything that
// depends on the new value, so a crash between the two leaves a state the next
// inbound message can resume from.
package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/Proton-105/bazaar-bot/internal/channel"
	"github.com/Proton-105/bazaar-bot/internal/domain"
	apperrors "github.com/Proton-105/bazaar-bot/internal/errors"
	"github.com/Proton-105/bazaar-bot/internal/events"
	"github.com/Proton-105/bazaar-bot/internal/i18n"
	"github.com/Proton-105/bazaar-bot/internal/state"
	"github.com/Proton-105/bazaar-bot/internal/validate"
)

// Catalog looks up products in display order.
type Catalog interface {
	Current(ctx context.Context, sku string) (*domain.Product, error)
	Next(ctx context.Context, sku string) (*domain.Product, error)
	Product(ctx context.Context, sku string) (*domain.Product, error)
}

// Orders persists orders and forwards agent requests.
type Orders interface {
	Place(ctx context.Context, order *domain.Order) error
	RequestAgent(ctx context.Context, req events.AgentRequested)
}

// FieldResolver turns raw input into a validated field value.
type FieldResolver interface {
	Resolve(ctx context.Context, raw string, kind validate.Kind, lang domain.Language) (string, bool)
}

// ProofStore keeps payment screenshots and returns where they were written.
type ProofStore interface {
	Save(ctx context.Context, identity string, data []byte) (string, error)
}

// EasyPaisa holds the account shown in payment instructions.
type EasyPaisa struct {
	AccountName   string
	AccountNumber string
	QRImageURL    string
}

// Settings are the business values the prompts are filled with.
type Settings struct {
	BusinessName          string
	BaseURL               string
	ConfirmationWaitHours string
	EasyPaisa             EasyPaisa
}

// Deps bundles what a Flow needs.
type Deps struct {
	Channel  channel.Channel
	Store    state.Store
	Catalog  Catalog
	Orders   Orders
	Resolver FieldResolver
	Messages *i18n.Manager
	Proofs   ProofStore
	Settings Settings
	Log      *slog.Logger
}

// Flow holds one handler per conversation state.
type Flow struct {
	ch       channel.Channel
	store    state.Store
	catalog  Catalog
	orders   Orders
	resolver FieldResolver
	msgs     *i18n.Manager
	proofs   ProofStore
	settings Settings
	log      *slog.Logger
	now      func() time.Time
}

func NewFlow(deps Deps) *Flow {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	settings := deps.Settings
	if settings.ConfirmationWaitHours == "" {
		settings.ConfirmationWaitHours = "1-3"
	}

	return &Flow{
		ch:       deps.Channel,
		store:    deps.Store,
		catalog:  deps.Catalog,
		orders:   deps.Orders,
		resolver: deps.Resolver,
		msgs:     deps.Messages,
		proofs:   deps.Proofs,
		settings: settings,
		log:      log,
		now:      time.Now,
	}
}

// advance applies a transition and persists it before anything is sent.
func (f *Flow) advance(ctx context.Context, t *Turn, to state.State, update func(*state.Context)) error {
	next, err := state.Advance(t.Conv, to, update)
	if err != nil {
		return apperrors.NewStateError(err.Error())
	}

	return f.save(ctx, t, next)
}

func (f *Flow) save(ctx context.Context, t *Turn, next *state.Conversation) error {
	if err := f.store.Save(ctx, next); err != nil {
		return apperrors.NewDependencyError("conversation store", err)
	}

	t.Conv = next
	return nil
}
