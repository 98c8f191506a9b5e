package handlers

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Proton-105/bazaar-bot/internal/channel"
	"github.com/Proton-105/bazaar-bot/internal/domain"
	"github.com/Proton-105/bazaar-bot/internal/i18n"
)

// placeholderQRHost marks the sample QR URL shipped in example configs.
const placeholderQRHost = "your-domain.com"

// say sends a bilingual message followed by its voice prompt.
func (f *Flow) say(ctx context.Context, to, key string, args i18n.Args) error {
	if err := f.ch.SendText(ctx, to, f.msgs.Bilingual(key, args)); err != nil {
		return err
	}

	f.audio(ctx, to, key)
	return nil
}

// audio delivers the recorded prompt for key. Failures are logged and dropped.
func (f *Flow) audio(ctx context.Context, to, key string) {
	url := i18n.AudioURL(f.settings.BaseURL, key)
	if url == "" {
		return
	}

	if err := f.ch.SendAudio(ctx, to, url); err != nil {
		f.log.WarnContext(ctx, "audio prompt not delivered", slog.String("key", key), slog.Any("error", err))
	}
}

// Welcome sends the greeting with one language button per language, each labelled in its own language.
func (f *Flow) Welcome(ctx context.Context, to string) error {
	buttons := []channel.Button{
		f.msgs.Button(i18n.ButtonEnglish, domain.LanguageEnglish),
		f.msgs.Button(i18n.ButtonUrdu, domain.LanguageUrdu),
	}

	if err := f.ch.SendButtons(ctx, to, f.msgs.Welcome(f.settings.BusinessName), buttons); err != nil {
		return err
	}

	f.audio(ctx, to, i18n.Welcome)
	return nil
}

func (f *Flow) sendProduct(ctx context.Context, t *Turn, p *domain.Product) error {
	to := t.Event.Identity
	card := f.msgs.ProductCard(p)

	var err error
	if p.ImageURL != "" {
		err = f.ch.SendImage(ctx, to, p.ImageURL, card)
	} else {
		err = f.ch.SendText(ctx, to, card)
	}
	if err != nil {
		return err
	}

	actions := f.msgs.Buttons(t.Conv.Language, i18n.ButtonBuy, i18n.ButtonNext, i18n.ButtonAgent)
	if err := f.ch.SendButtons(ctx, to, f.msgs.Bilingual(i18n.ProductActions, nil), actions); err != nil {
		return err
	}

	f.audio(ctx, to, i18n.ProductCard)
	return nil
}

func (f *Flow) askQuantity(ctx context.Context, t *Turn) error {
	to := t.Event.Identity
	label, rows, section := f.msgs.QuantityList(t.Conv.Language)

	if err := f.ch.SendList(ctx, to, f.msgs.Bilingual(i18n.AskQuantity, nil), label, rows, section); err != nil {
		return err
	}

	f.audio(ctx, to, i18n.AskQuantity)
	return nil
}

func (f *Flow) askPaymentMethod(ctx context.Context, t *Turn) error {
	to := t.Event.Identity
	buttons := f.msgs.Buttons(t.Conv.Language, i18n.ButtonEasyPaisa, i18n.ButtonCOD)

	if err := f.ch.SendButtons(ctx, to, f.msgs.Bilingual(i18n.AskPaymentMethod, nil), buttons); err != nil {
		return err
	}

	f.audio(ctx, to, i18n.AskPaymentMethod)
	return nil
}

// sendPaymentInstructions attaches the QR image only when a real one is configured.
func (f *Flow) sendPaymentInstructions(ctx context.Context, t *Turn) error {
	to := t.Event.Identity
	ep := f.settings.EasyPaisa
	text := f.msgs.Bilingual(i18n.EasyPaisaInstructions, i18n.Args{
		"account_name":   ep.AccountName,
		"account_number": ep.AccountNumber,
	})

	var err error
	if qrConfigured(ep.QRImageURL) {
		err = f.ch.SendImage(ctx, to, ep.QRImageURL, text)
	} else {
		err = f.ch.SendText(ctx, to, text)
	}
	if err != nil {
		return err
	}

	f.audio(ctx, to, i18n.EasyPaisaInstructions)
	return nil
}

func (f *Flow) sendOrderSummary(ctx context.Context, t *Turn, p *domain.Product) error {
	c := t.Conv.Context
	text := f.msgs.BilingualFor(i18n.OrderSummary, func(lang string) i18n.Args {
		return i18n.Args{
			"product": p.LocalizedName(domain.Language(lang)),
			"qty":     strconv.Itoa(c.Qty),
			"price":   i18n.FormatAmount(p.Price),
			"total":   i18n.FormatAmount(p.Price * int64(c.Qty)),
			"name":    c.Name,
			"phone":   c.Phone,
			"address": c.Address,
		}
	})

	if err := f.ch.SendText(ctx, t.Event.Identity, text); err != nil {
		return err
	}

	f.audio(ctx, t.Event.Identity, i18n.OrderSummary)
	return nil
}

// rejectAndAsk sends the invalid-input notice and repeats the step's prompt.
func (f *Flow) rejectAndAsk(ctx context.Context, t *Turn, prompt func(context.Context, *Turn) error) error {
	if err := f.say(ctx, t.Event.Identity, i18n.InvalidInput, nil); err != nil {
		return err
	}
	return prompt(ctx, t)
}

// ask returns a prompt that sends the bilingual message for key.
func (f *Flow) ask(key string) func(context.Context, *Turn) error {
	return func(ctx context.Context, t *Turn) error {
		return f.say(ctx, t.Event.Identity, key, nil)
	}
}

func qrConfigured(url string) bool {
	return url != "" && !strings.Contains(url, placeholderQRHost)
}

// Notify sends the bilingual message for key and its voice prompt to identity.
func (f *Flow) Notify(ctx context.Context, to, key string) error {
	return f.say(ctx, to, key, nil)
}
