package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Proton-105/bazaar-bot/internal/catalog"
	"github.com/Proton-105/bazaar-bot/internal/domain"
	apperrors "github.com/Proton-105/bazaar-bot/internal/errors"
	"github.com/Proton-105/bazaar-bot/internal/events"
	"github.com/Proton-105/bazaar-bot/internal/i18n"
	"github.com/Proton-105/bazaar-bot/internal/state"
	"github.com/Proton-105/bazaar-bot/internal/validate"
)

// Greet restarts the conversation at language selection and sends the welcome.
func (f *Flow) Greet(ctx context.Context, t *Turn) error {
	if err := f.save(ctx, t, state.Restart(t.Conv)); err != nil {
		return err
	}

	return f.Welcome(ctx, t.Event.Identity)
}

// LanguageSelection handles the language buttons. Anything that is not a button is ignored.
func (f *Flow) LanguageSelection(ctx context.Context, t *Turn) error {
	if !state.Accepts(state.StateLanguageSelection, t.Event.Modality) {
		return nil
	}

	var lang domain.Language
	switch t.Event.Selection() {
	case i18n.ButtonEnglish:
		lang = domain.LanguageEnglish
	case i18n.ButtonUrdu:
		lang = domain.LanguageUrdu
	default:
		return f.Welcome(ctx, t.Event.Identity)
	}

	next, err := state.Advance(state.WithLanguage(t.Conv, lang), state.StateShowingProduct, nil)
	if err != nil {
		return apperrors.NewStateError(err.Error())
	}
	if err := f.save(ctx, t, next); err != nil {
		return err
	}

	return f.showProduct(ctx, t, f.catalog.Current)
}

// ShowingProduct handles the product action buttons. Anything that is not a button is ignored.
func (f *Flow) ShowingProduct(ctx context.Context, t *Turn) error {
	if !state.Accepts(state.StateShowingProduct, t.Event.Modality) {
		return nil
	}

	switch t.Event.Selection() {
	case i18n.ButtonBuy:
		if t.Conv.Context.ProductSKU == "" {
			return f.showProduct(ctx, t, f.catalog.Current)
		}
		if err := f.advance(ctx, t, state.StateAskingQuantity, nil); err != nil {
			return err
		}
		return f.askQuantity(ctx, t)

	case i18n.ButtonNext:
		return f.showProduct(ctx, t, f.catalog.Next)

	case i18n.ButtonAgent:
		if err := f.advance(ctx, t, state.StateWaitingForAgent, nil); err != nil {
			return err
		}
		return f.say(ctx, t.Event.Identity, i18n.TalkToAgent, nil)

	default:
		return f.showProduct(ctx, t, f.catalog.Current)
	}
}

// WaitingForAgent collects a callback number and hands the request to the back office.
func (f *Flow) WaitingForAgent(ctx context.Context, t *Turn) error {
	if !state.Accepts(state.StateWaitingForAgent, t.Event.Modality) {
		return f.rejectAndAsk(ctx, t, f.ask(i18n.TalkToAgent))
	}

	phone, ok := f.resolver.Resolve(ctx, t.Event.Text, validate.KindPhone, t.Conv.Language)
	if !ok {
		return f.rejectAndAsk(ctx, t, f.ask(i18n.TalkToAgent))
	}

	sku := t.Conv.Context.ProductSKU
	if err := f.advance(ctx, t, state.StateShowingProduct, nil); err != nil {
		return err
	}

	f.orders.RequestAgent(ctx, events.AgentRequested{
		Identity:    t.Event.Identity,
		Phone:       phone,
		ProductSKU:  sku,
		Language:    string(t.Conv.Language),
		RequestedAt: f.now().UTC(),
	})

	return f.say(ctx, t.Event.Identity, i18n.ThankYouAgent, nil)
}

// showProduct records the product picked by lookup in the context, saves, then sends its card.
func (f *Flow) showProduct(ctx context.Context, t *Turn, lookup func(context.Context, string) (*domain.Product, error)) error {
	p, err := lookup(ctx, t.Conv.Context.ProductSKU)
	switch {
	case errors.Is(err, catalog.ErrNoProducts):
		f.log.InfoContext(ctx, "no products to show", slog.String("identity", t.Event.Identity))
		return f.say(ctx, t.Event.Identity, i18n.NoProducts, nil)
	case err != nil:
		return apperrors.NewDatabaseError(err)
	}

	if p.SKU != t.Conv.Context.ProductSKU {
		if err := f.advance(ctx, t, t.Conv.State, func(c *state.Context) { c.ProductSKU = p.SKU }); err != nil {
			return err
		}
	}

	return f.sendProduct(ctx, t, p)
}
