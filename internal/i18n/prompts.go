package i18n

import (
	"strconv"
	"strings"

	"github.com/Proton-105/bazaar-bot/internal/channel"
	"github.com/Proton-105/bazaar-bot/internal/domain"
)

// Message keys.
const (
	Welcome               = "WELCOME"
	ProductCard           = "PRODUCT_CARD"
	ProductActions        = "PRODUCT_ACTIONS"
	AskQuantity           = "ASK_QUANTITY"
	AskName               = "ASK_NAME"
	AskPhone              = "ASK_PHONE"
	AskAddress            = "ASK_ADDRESS"
	AskPaymentMethod      = "ASK_PAYMENT_METHOD"
	EasyPaisaInstructions = "EASYPAISA_INSTRUCTIONS"
	PaymentReceived       = "PAYMENT_RECEIVED"
	CODConfirmation       = "COD_CONFIRMATION"
	OrderSummary          = "ORDER_SUMMARY"
	InvalidInput          = "INVALID_INPUT"
	ErrorGeneric          = "ERROR_GENERIC"
	RateLimited           = "RATE_LIMITED"
	NoProducts            = "NO_PRODUCTS"
	TalkToAgent           = "TALK_TO_AGENT"
	ThankYouAgent         = "THANK_YOU_AGENT"
)

// Button ids.
const (
	ButtonEnglish   = "lang_en"
	ButtonUrdu      = "lang_ur"
	ButtonBuy       = "buy"
	ButtonNext      = "next"
	ButtonAgent     = "agent"
	ButtonEasyPaisa = "payment_easypaisa"
	ButtonCOD       = "payment_cod"

	quantityRowPrefix = "qty_"
	quantityRows      = 10
)

// audioPrompts are the keys with a recorded voice prompt.
var audioPrompts = map[string]bool{
	Welcome: true, ProductCard: true, AskQuantity: true, AskName: true, AskPhone: true,
	AskAddress: true, AskPaymentMethod: true, EasyPaisaInstructions: true, PaymentReceived: true,
	CODConfirmation: true, OrderSummary: true, InvalidInput: true, ErrorGeneric: true,
	NoProducts: true, TalkToAgent: true, ThankYouAgent: true,
}

// AudioURL returns the voice prompt URL for key, or "" when key has none.
func AudioURL(baseURL, key string) string {
	if !audioPrompts[key] || baseURL == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/audio/" + strings.ToLower(key) + ".mp3"
}

// Button returns the button with its label in lang.
func (m *Manager) Button(id string, lang domain.Language) channel.Button {
	return channel.Button{
		ID:    id,
		Title: channel.Truncate(m.Translator(string(lang.OrDefault())).T("buttons."+id), channel.MaxButtonTitle),
	}
}

// Buttons maps ids to labelled buttons.
func (m *Manager) Buttons(lang domain.Language, ids ...string) []channel.Button {
	buttons := make([]channel.Button, 0, len(ids))
	for _, id := range ids {
		buttons = append(buttons, m.Button(id, lang))
	}
	return buttons
}

// QuantityList returns the list label, rows qty_1..qty_10 and the section title.
func (m *Manager) QuantityList(lang domain.Language) (string, []channel.Row, string) {
	tr := m.Translator(string(lang.OrDefault()))

	rows := make([]channel.Row, 0, quantityRows)
	for n := 1; n <= quantityRows; n++ {
		num := strconv.Itoa(n)
		descKey := "quantity.many"
		if n == 1 {
			descKey = "quantity.one"
		}
		rows = append(rows, channel.Row{
			ID:          quantityRowPrefix + num,
			Title:       num,
			Description: tr.Format(descKey, Args{"n": num}),
		})
	}

	return tr.T("quantity.label"), rows, tr.T("quantity.section")
}

// QuantityFromRow parses a qty_N list id.
func QuantityFromRow(id string) (string, bool) {
	n, ok := strings.CutPrefix(id, quantityRowPrefix)
	return n, ok && n != ""
}

// ProductCard renders the bilingual card for p, each half in its own language.
func (m *Manager) ProductCard(p *domain.Product) string {
	return m.BilingualFor(ProductCard, func(lang string) Args {
		return productCardArgs(p, domain.Language(lang))
	})
}

func productCardArgs(p *domain.Product, lang domain.Language) Args {
	return Args{
		"name":        p.LocalizedName(lang),
		"description": p.LocalizedDescription(lang),
		"price":       FormatAmount(p.Price),
		"sku":         p.SKU,
		"stock":       strconv.Itoa(p.Stock),
	}
}

// FormatAmount renders an integer amount with thousands separators.
func FormatAmount(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}
