// Package bot runs one conversation turn per inbound event: it serializes turns
// per identity, transcribes voice notes, applies the greeting restart and
// dispatches to the handler of the current state.
package bot

import (
	"context"
	"log/slog"

	"github.com/Proton-105/bazaar-bot/internal/bot/handlers"
	"github.com/Proton-105/bazaar-bot/internal/channel"
	"github.com/Proton-105/bazaar-bot/internal/domain"
	errors "github.com/Proton-105/bazaar-bot/internal/errors"
	"github.com/Proton-105/bazaar-bot/internal/idempotency"
	"github.com/Proton-105/bazaar-bot/internal/middleware"
	"github.com/Proton-105/bazaar-bot/internal/state"
	"github.com/Proton-105/bazaar-bot/internal/validate"
)

// Locker serializes turns for one identity.
type Locker interface {
	Acquire(ctx context.Context, identity string) (func(), error)
}

// Transcriber turns a voice note into text for the field being asked.
type Transcriber interface {
	Reconcile(ctx context.Context, audio []byte, kind validate.Kind, lang domain.Language) (string, error)
}

// Deps bundles what the bot needs.
type Deps struct {
	Channel     channel.Channel
	Store       state.Store
	Locker      Locker
	Transcriber Transcriber
	Flow        *handlers.Flow
	Greetings   *Greetings
	ErrHandler  *errors.Handler
	Idempotency idempotency.Manager
	RateLimit   *middleware.RateLimitMiddleware
	Log         *slog.Logger
}

// Bot is the conversation engine behind every channel adapter.
type Bot struct {
	ch          channel.Channel
	store       state.Store
	locker      Locker
	transcriber Transcriber
	flow        *handlers.Flow
	greetings   *Greetings
	dispatcher  *Dispatcher
	router      *Router
	log         *slog.Logger
}

// New wires the engine and its middleware chain.
func New(deps Deps) *Bot {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	greetings := deps.Greetings
	if greetings == nil {
		greetings = NewGreetings(nil)
	}

	b := &Bot{
		ch:          deps.Channel,
		store:       deps.Store,
		locker:      deps.Locker,
		transcriber: deps.Transcriber,
		flow:        deps.Flow,
		greetings:   greetings,
		dispatcher:  NewDispatcher(deps.Flow, log),
		log:         log,
	}

	b.router = NewRouter(b.process)
	b.router.Use(RecoveryMiddleware(log, deps.ErrHandler, deps.Flow))
	b.router.Use(LoggingMiddleware(log))
	b.router.Use(ErrorHandlingMiddleware(deps.ErrHandler, deps.Flow, log))
	b.router.Use(middleware.Metrics)
	if deps.RateLimit != nil {
		b.router.Use(deps.RateLimit.Handle)
	}
	b.router.Use(middleware.Idempotency(deps.Idempotency, log))

	return b
}

// Handle processes one inbound event. It satisfies channel.EventHandler.
func (b *Bot) Handle(ctx context.Context, ev channel.Event) error {
	return b.router.Route(ctx, ev)
}

// Greetings exposes the greeting phrases so configuration reloads can replace them.
func (b *Bot) Greetings() *Greetings {
	return b.greetings
}

func (b *Bot) process(ctx context.Context, t *handlers.Turn) error {
	identity := t.Event.Identity

	release, err := b.locker.Acquire(ctx, identity)
	if err != nil {
		return errors.NewDependencyError("conversation lock", err)
	}
	defer release()

	conv, err := b.store.GetOrCreate(ctx, identity)
	if err != nil {
		return errors.NewDependencyError("conversation store", err)
	}
	t.Conv = conv

	if t.Event.Modality == channel.ModalityVoice {
		ev, err := b.transcribe(ctx, t)
		if err != nil {
			return err
		}
		t.Event = ev
	}

	if t.Event.Modality == channel.ModalityText && b.greetings.Match(t.Event.Text) && !state.IsOrderInProgress(conv.State) {
		b.log.InfoContext(ctx, "greeting received, restarting conversation",
			slog.String("identity", identity),
			slog.String("from", string(conv.State)),
		)
		return b.flow.Greet(ctx, t)
	}

	return b.dispatcher.Dispatch(ctx, t)
}

// transcribe replaces a voice event with the text it carries, cleaned up for the field the state asks for.
func (b *Bot) transcribe(ctx context.Context, t *handlers.Turn) (channel.Event, error) {
	audio, err := b.ch.FetchMedia(ctx, t.Event.MediaRef)
	if err != nil {
		return channel.Event{}, err
	}

	kind, _ := state.FieldKind(t.Conv.State)
	text, err := b.transcriber.Reconcile(ctx, audio, kind, t.Conv.Language)
	if err != nil {
		return channel.Event{}, err
	}

	b.log.DebugContext(ctx, "voice note transcribed",
		slog.String("identity", t.Event.Identity),
		slog.String("kind", string(kind)),
	)

	ev := t.Event
	ev.Modality = channel.ModalityText
	ev.Text = text
	ev.MediaRef = ""
	return ev, nil
}
