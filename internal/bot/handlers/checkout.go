package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Proton-105/bazaar-bot/internal/catalog"
	"github.com/Proton-105/bazaar-bot/internal/channel"
	"github.com/Proton-105/bazaar-bot/internal/domain"
	apperrors "github.com/Proton-105/bazaar-bot/internal/errors"
	"github.com/Proton-105/bazaar-bot/internal/i18n"
	"github.com/Proton-105/bazaar-bot/internal/state"
	"github.com/Proton-105/bazaar-bot/internal/validate"
)

// AskingQuantity accepts a quantity list row or a typed quantity.
func (f *Flow) AskingQuantity(ctx context.Context, t *Turn) error {
	raw, ok := quantityInput(t.Event)
	if !ok {
		return f.rejectAndAsk(ctx, t, f.askQuantity)
	}

	value, ok := f.resolver.Resolve(ctx, raw, validate.KindQuantity, t.Conv.Language)
	if !ok {
		return f.rejectAndAsk(ctx, t, f.askQuantity)
	}

	qty, err := strconv.Atoi(value)
	if err != nil {
		return f.rejectAndAsk(ctx, t, f.askQuantity)
	}

	if err := f.advance(ctx, t, state.StateAskingName, func(c *state.Context) { c.Qty = qty }); err != nil {
		return err
	}

	return f.say(ctx, t.Event.Identity, i18n.AskName, nil)
}

// AskingName accepts the customer's name.
func (f *Flow) AskingName(ctx context.Context, t *Turn) error {
	name, ok := f.resolveText(ctx, t, validate.KindName)
	if !ok {
		return f.rejectAndAsk(ctx, t, f.ask(i18n.AskName))
	}

	if err := f.advance(ctx, t, state.StateAskingPhone, func(c *state.Context) { c.Name = name }); err != nil {
		return err
	}

	return f.say(ctx, t.Event.Identity, i18n.AskPhone, nil)
}

// AskingPhone accepts a Pakistani mobile number and stores it in international form.
func (f *Flow) AskingPhone(ctx context.Context, t *Turn) error {
	phone, ok := f.resolveText(ctx, t, validate.KindPhone)
	if !ok {
		return f.rejectAndAsk(ctx, t, f.ask(i18n.AskPhone))
	}

	if err := f.advance(ctx, t, state.StateAskingAddress, func(c *state.Context) { c.Phone = phone }); err != nil {
		return err
	}

	return f.say(ctx, t.Event.Identity, i18n.AskAddress, nil)
}

// AskingAddress accepts the delivery address, then shows the order summary and payment options.
func (f *Flow) AskingAddress(ctx context.Context, t *Turn) error {
	address, ok := f.resolveText(ctx, t, validate.KindAddress)
	if !ok {
		return f.rejectAndAsk(ctx, t, f.ask(i18n.AskAddress))
	}

	p, err := f.product(ctx, t.Conv.Context.ProductSKU)
	if err != nil {
		return err
	}

	if err := f.advance(ctx, t, state.StateAskingPaymentMethod, func(c *state.Context) { c.Address = address }); err != nil {
		return err
	}

	if err := f.sendOrderSummary(ctx, t, p); err != nil {
		return err
	}

	return f.askPaymentMethod(ctx, t)
}

// AskingPaymentMethod handles the payment buttons. Cash on delivery places the
// order at once; EasyPaisa waits for a proof of payment.
func (f *Flow) AskingPaymentMethod(ctx context.Context, t *Turn) error {
	if !state.Accepts(state.StateAskingPaymentMethod, t.Event.Modality) {
		return f.rejectAndAsk(ctx, t, f.askPaymentMethod)
	}

	switch t.Event.Selection() {
	case i18n.ButtonEasyPaisa:
		err := f.advance(ctx, t, state.StateWaitingPaymentProof, func(c *state.Context) {
			c.PaymentMethod = domain.PaymentEasyPaisa
		})
		if err != nil {
			return err
		}
		return f.sendPaymentInstructions(ctx, t)

	case i18n.ButtonCOD:
		err := f.advance(ctx, t, state.StateAskingPaymentMethod, func(c *state.Context) {
			c.PaymentMethod = domain.PaymentCashOnDelivery
		})
		if err != nil {
			return err
		}
		if err := f.placeOrder(ctx, t, nil); err != nil {
			return err
		}
		return f.say(ctx, t.Event.Identity, i18n.CODConfirmation, i18n.Args{"hours": f.settings.ConfirmationWaitHours})

	default:
		return f.rejectAndAsk(ctx, t, f.askPaymentMethod)
	}
}

// WaitingPaymentProof accepts a payment screenshot or a transaction reference.
func (f *Flow) WaitingPaymentProof(ctx context.Context, t *Turn) error {
	var proof *domain.PaymentProof

	switch t.Event.Modality {
	case channel.ModalityImage:
		stored, err := f.storeProof(ctx, t.Event)
		if err != nil {
			return err
		}
		proof = &domain.PaymentProof{
			Kind:       domain.ProofImage,
			MediaRef:   t.Event.MediaRef,
			StoredPath: stored,
			ReceivedAt: f.now().UTC(),
		}

	case channel.ModalityText:
		text := strings.TrimSpace(t.Event.Text)
		if text == "" {
			return f.rejectAndAsk(ctx, t, f.sendPaymentInstructions)
		}
		proof = &domain.PaymentProof{
			Kind:       domain.ProofText,
			Text:       text,
			ReceivedAt: f.now().UTC(),
		}

	default:
		return f.rejectAndAsk(ctx, t, f.sendPaymentInstructions)
	}

	if err := f.placeOrder(ctx, t, proof); err != nil {
		return err
	}

	return f.say(ctx, t.Event.Identity, i18n.PaymentReceived, i18n.Args{"hours": f.settings.ConfirmationWaitHours})
}

// placeOrder snapshots the product into a new order, persists it and only then
// clears the context and returns to product browsing.
func (f *Flow) placeOrder(ctx context.Context, t *Turn, proof *domain.PaymentProof) error {
	c := t.Conv.Context
	if err := state.ReadyForOrder(c); err != nil {
		return apperrors.NewStateError(err.Error())
	}

	p, err := f.product(ctx, c.ProductSKU)
	if err != nil {
		return err
	}

	order, err := domain.NewOrder(domain.OrderDraft{
		Identity: t.Conv.Identity,
		Product:  *p,
		Qty:      c.Qty,
		Customer: domain.Customer{
			Name:    c.Name,
			Phone:   c.Phone,
			Address: c.Address,
		},
		PaymentMethod: c.PaymentMethod,
		Proof:         proof,
	}, f.now())
	if err != nil {
		return apperrors.NewStateError(err.Error())
	}

	if err := f.orders.Place(ctx, order); err != nil {
		return err
	}

	next, err := state.CompleteOrder(t.Conv)
	if err != nil {
		return apperrors.NewStateError(err.Error())
	}

	if err := f.save(ctx, t, next); err != nil {
		f.log.ErrorContext(ctx, "order placed but conversation not reset",
			slog.String("order_id", order.ID), slog.String("identity", t.Conv.Identity))
		return err
	}

	return nil
}

// product fetches sku from storage. A product missing here was shown earlier in
// the flow, so its absence is a state error rather than a retryable one.
func (f *Flow) product(ctx context.Context, sku string) (*domain.Product, error) {
	p, err := f.catalog.Product(ctx, sku)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return nil, apperrors.NewStateError(fmt.Sprintf("product %q no longer exists", sku))
	case err != nil:
		return nil, apperrors.NewDatabaseError(err)
	}

	return p, nil
}

func (f *Flow) storeProof(ctx context.Context, ev channel.Event) (string, error) {
	data, err := f.ch.FetchMedia(ctx, ev.MediaRef)
	if err != nil {
		return "", err
	}

	path, err := f.proofs.Save(ctx, ev.Identity, data)
	if err != nil {
		return "", apperrors.NewDependencyError("media storage", err)
	}

	return path, nil
}

// resolveText runs the field resolver on text input; other modalities never resolve.
func (f *Flow) resolveText(ctx context.Context, t *Turn, kind validate.Kind) (string, bool) {
	if t.Event.Modality != channel.ModalityText {
		return "", false
	}
	return f.resolver.Resolve(ctx, t.Event.Text, kind, t.Conv.Language)
}

func quantityInput(ev channel.Event) (string, bool) {
	switch ev.Modality {
	case channel.ModalityList:
		return i18n.QuantityFromRow(ev.ListID)
	case channel.ModalityText:
		return ev.Text, true
	default:
		return "", false
	}
}
