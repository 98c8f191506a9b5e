package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/bazaar-bot/internal/catalog"
	"github.com/Proton-105/bazaar-bot/internal/channel"
	"github.com/Proton-105/bazaar-bot/internal/domain"
	apperrors "github.com/Proton-105/bazaar-bot/internal/errors"
	"github.com/Proton-105/bazaar-bot/internal/events"
	"github.com/Proton-105/bazaar-bot/internal/i18n"
	"github.com/Proton-105/bazaar-bot/internal/language"
	"github.com/Proton-105/bazaar-bot/internal/resolver"
	"github.com/Proton-105/bazaar-bot/internal/state"
	"github.com/Proton-105/bazaar-bot/internal/validate"
)

const identity = "923001234567"

type sent struct {
	kind    string
	text    string
	ref     string
	buttons []channel.Button
	rows    []channel.Row
}

type fakeChannel struct {
	mu        sync.Mutex
	messages  []sent
	media     []byte
	failText  error
	failAudio error
}

func (c *fakeChannel) record(s sent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, s)
}

func (c *fakeChannel) SendText(_ context.Context, _ string, text string) error {
	if c.failText != nil {
		return c.failText
	}
	c.record(sent{kind: "text", text: text})
	return nil
}

func (c *fakeChannel) SendButtons(_ context.Context, _ string, text string, buttons []channel.Button) error {
	c.record(sent{kind: "buttons", text: text, buttons: buttons})
	return nil
}

func (c *fakeChannel) SendList(_ context.Context, _ string, text, _ string, rows []channel.Row, _ string) error {
	c.record(sent{kind: "list", text: text, rows: rows})
	return nil
}

func (c *fakeChannel) SendImage(_ context.Context, _ string, ref, caption string) error {
	c.record(sent{kind: "image", text: caption, ref: ref})
	return nil
}

func (c *fakeChannel) SendAudio(_ context.Context, _ string, ref string) error {
	if c.failAudio != nil {
		return c.failAudio
	}
	c.record(sent{kind: "audio", ref: ref})
	return nil
}

func (c *fakeChannel) FetchMedia(_ context.Context, _ string) ([]byte, error) {
	return c.media, nil
}

// kinds lists the sent message kinds, skipping audio.
func (c *fakeChannel) kinds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.messages))
	for _, m := range c.messages {
		if m.kind != "audio" {
			out = append(out, m.kind)
		}
	}
	return out
}

func (c *fakeChannel) last(kind string) sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].kind == kind {
			return c.messages[i]
		}
	}
	return sent{}
}

func (c *fakeChannel) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}

type stubRepository struct {
	products []domain.Product
}

func (r *stubRepository) ListAvailable(context.Context) ([]domain.Product, error) {
	return r.products, nil
}

func (r *stubRepository) GetBySKU(_ context.Context, sku string) (*domain.Product, error) {
	for i := range r.products {
		if r.products[i].SKU == sku {
			p := r.products[i]
			return &p, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

type fakeOrders struct {
	placed   []*domain.Order
	agents   []events.AgentRequested
	placeErr error
}

func (o *fakeOrders) Place(_ context.Context, order *domain.Order) error {
	if o.placeErr != nil {
		return o.placeErr
	}
	o.placed = append(o.placed, order)
	return nil
}

func (o *fakeOrders) RequestAgent(_ context.Context, req events.AgentRequested) {
	o.agents = append(o.agents, req)
}

type fakeProofs struct {
	saved map[string][]byte
}

func (p *fakeProofs) Save(_ context.Context, identity string, data []byte) (string, error) {
	if p.saved == nil {
		p.saved = make(map[string][]byte)
	}
	path := "uploads/" + identity + "/payment_1.jpg"
	p.saved[path] = data
	return path, nil
}

type mockLanguage struct {
	mock.Mock
}

func (m *mockLanguage) Transcribe(ctx context.Context, audio []byte, lang domain.Language, vocabulary string) (string, error) {
	args := m.Called(ctx, audio, lang, vocabulary)
	return args.String(0), args.Error(1)
}

func (m *mockLanguage) ExtractField(ctx context.Context, text string, kind validate.Kind, lang domain.Language) (string, error) {
	args := m.Called(ctx, text, kind, lang)
	return args.String(0), args.Error(1)
}

func (m *mockLanguage) CleanupTranscript(ctx context.Context, text string, kind validate.Kind) (string, error) {
	args := m.Called(ctx, text, kind)
	return args.String(0), args.Error(1)
}

var testProducts = []domain.Product{
	{SKU: "SHIRT-001", Name: "Cotton Shirt", NameUR: "سوتی قمیض", Price: 1500, Currency: "PKR", Active: true, Stock: 10, ImageURL: "https://cdn.example.com/shirt.jpg"},
	{SKU: "SHOES-001", Name: "Sports Shoes", Price: 3500, Currency: "PKR", Active: true, Stock: 4},
	{SKU: "WATCH-001", Name: "Smart Watch", Price: 8000, Currency: "PKR", Active: true, Stock: 2},
}

type harness struct {
	flow   *Flow
	ch     *fakeChannel
	store  *state.RedisStore
	orders *fakeOrders
	proofs *fakeProofs
	lang   *mockLanguage
	repo   *stubRepository
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	msgs, err := i18n.Load("en")
	require.NoError(t, err)

	h := &harness{
		ch:     &fakeChannel{},
		store:  state.NewRedisStore(client, log, time.Hour),
		orders: &fakeOrders{},
		proofs: &fakeProofs{},
		lang:   &mockLanguage{},
		repo:   &stubRepository{products: append([]domain.Product(nil), testProducts...)},
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	h.flow = NewFlow(Deps{
		Channel:  h.ch,
		Store:    h.store,
		Catalog:  catalog.New(h.repo, nil, 0, log),
		Orders:   h.orders,
		Resolver: resolver.New(h.lang, log),
		Messages: msgs,
		Proofs:   h.proofs,
		Settings: Settings{
			BusinessName: "Bazaar",
			BaseURL:      "https://bot.example.com",
			EasyPaisa: EasyPaisa{
				AccountName:   "Bazaar Store",
				AccountNumber: "03001234567",
				QRImageURL:    "https://your-domain.com/qr.png",
			},
		},
		Log: log,
	})
	h.flow.now = func() time.Time { return h.now }

	return h
}

// seed stores a conversation in st with ctx and returns it freshly loaded.
func (h *harness) seed(t *testing.T, st state.State, lang domain.Language, c state.Context) *Turn {
	t.Helper()

	ctx := context.Background()
	conv, err := h.store.GetOrCreate(ctx, identity)
	require.NoError(t, err)

	conv.State = st
	conv.Language = lang
	conv.Context = c
	require.NoError(t, state.CheckContext(st, c))
	require.NoError(t, h.store.Save(ctx, conv))

	return &Turn{Conv: conv}
}

func (h *harness) stored(t *testing.T) *state.Conversation {
	t.Helper()
	conv, err := h.store.GetOrCreate(context.Background(), identity)
	require.NoError(t, err)
	return conv
}

func text(s string) channel.Event {
	return channel.Event{Identity: identity, Modality: channel.ModalityText, Text: s}
}

func button(id string) channel.Event {
	return channel.Event{Identity: identity, Modality: channel.ModalityButton, ButtonID: id}
}

func listRow(id string) channel.Event {
	return channel.Event{Identity: identity, Modality: channel.ModalityList, ListID: id}
}

func image(ref string) channel.Event {
	return channel.Event{Identity: identity, Modality: channel.ModalityImage, MediaRef: ref}
}

func fullContext(pm domain.PaymentMethod) state.Context {
	return state.Context{
		ProductSKU:    "SHOES-001",
		Qty:           2,
		Name:          "Ali Khan",
		Phone:         "+923001234567",
		Address:       "House 12, Street 4, Gulberg, Lahore",
		PaymentMethod: pm,
	}
}

func TestGreet_RestartsConversation(t *testing.T) {
	h := newHarness(t)
	turn := h.seed(t, state.StateShowingProduct, domain.LanguageUrdu, state.Context{ProductSKU: "SHIRT-001"})
	turn.Event = text("wwwwaaa")

	require.NoError(t, h.flow.Greet(context.Background(), turn))

	conv := h.stored(t)
	assert.Equal(t, state.StateLanguageSelection, conv.State)
	assert.Equal(t, domain.LanguageUnset, conv.Language)
	assert.Equal(t, state.Context{}, conv.Context)

	welcome := h.ch.last("buttons")
	assert.Contains(t, welcome.text, "Welcome to Bazaar")
	assert.Contains(t, welcome.text, i18n.Divider)
	require.Len(t, welcome.buttons, 2)
	assert.Equal(t, channel.Button{ID: "lang_en", Title: "English"}, welcome.buttons[0])
	assert.Equal(t, channel.Button{ID: "lang_ur", Title: "اردو"}, welcome.buttons[1])
	assert.Equal(t, "https://bot.example.com/audio/welcome.mp3", h.ch.last("audio").ref)
}

func TestLanguageSelection(t *testing.T) {
	testCases := []struct {
		name      string
		event     channel.Event
		wantState state.State
		wantLang  domain.Language
		wantKinds []string
	}{
		{
			name:      "english shows first product",
			event:     button("lang_en"),
			wantState: state.StateShowingProduct,
			wantLang:  domain.LanguageEnglish,
			wantKinds: []string{"image", "buttons"},
		},
		{
			name:      "urdu shows first product",
			event:     button("lang_ur"),
			wantState: state.StateShowingProduct,
			wantLang:  domain.LanguageUrdu,
			wantKinds: []string{"image", "buttons"},
		},
		{
			name:      "other button resends welcome",
			event:     button("buy"),
			wantState: state.StateLanguageSelection,
			wantKinds: []string{"buttons"},
		},
		{
			name:      "text is ignored",
			event:     text("hello"),
			wantState: state.StateLanguageSelection,
			wantKinds: []string{},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			turn := h.seed(t, state.StateLanguageSelection, domain.LanguageUnset, state.Context{})
			turn.Event = tc.event

			require.NoError(t, h.flow.LanguageSelection(context.Background(), turn))

			conv := h.stored(t)
			assert.Equal(t, tc.wantState, conv.State)
			assert.Equal(t, tc.wantLang, conv.Language)
			assert.Equal(t, tc.wantKinds, h.ch.kinds())
		})
	}
}

func TestLanguageSelection_ProductCardAndButtons(t *testing.T) {
	h := newHarness(t)
	turn := h.seed(t, state.StateLanguageSelection, domain.LanguageUnset, state.Context{})
	turn.Event = button("lang_ur")

	require.NoError(t, h.flow.LanguageSelection(context.Background(), turn))

	conv := h.stored(t)
	assert.Equal(t, "SHIRT-001", conv.Context.ProductSKU)

	card := h.ch.last("image")
	assert.Equal(t, "https://cdn.example.com/shirt.jpg", card.ref)
	assert.Contains(t, card.text, "Cotton Shirt")
	assert.Contains(t, card.text, "سوتی قمیض")
	assert.Contains(t, card.text, "1,500")

	actions := h.ch.last("buttons")
	require.Len(t, actions.buttons, 3)
	assert.Equal(t, []string{"buy", "next", "agent"}, []string{actions.buttons[0].ID, actions.buttons[1].ID, actions.buttons[2].ID})
}

func TestShowingProduct_NextWrapsToFirst(t *testing.T) {
	h := newHarness(t)
	turn := h.seed(t, state.StateShowingProduct, domain.LanguageEnglish, state.Context{ProductSKU: "WATCH-001"})
	turn.Event = button("next")

	require.NoError(t, h.flow.ShowingProduct(context.Background(), turn))

	conv := h.stored(t)
	assert.Equal(t, state.StateShowingProduct, conv.State)
	assert.Equal(t, "SHIRT-001", conv.Context.ProductSKU)
	assert.Contains(t, h.ch.last("image").text, "Cotton Shirt")
}

func TestShowingProduct_NextWithoutImageSendsText(t *testing.T) {
	h := newHarness(t)
	turn := h.seed(t, state.StateShowingProduct, domain.LanguageEnglish, state.Context{ProductSKU: "SHIRT-001"})
	turn.Event = button("next")

	require.NoError(t, h.flow.ShowingProduct(context.Background(), turn))

	assert.Equal(t, "SHOES-001", h.stored(t).Context.ProductSKU)
	assert.Equal(t, []string{"text", "buttons"}, h.ch.kinds())
}

func TestShowingProduct_NoProducts(t *testing.T) {
	h := newHarness(t)
	h.repo.products = nil
	turn := h.seed(t, state.StateShowingProduct, domain.LanguageEnglish, state.Context{ProductSKU: "WATCH-001"})
	turn.Event = button("next")

	require.NoError(t, h.flow.ShowingProduct(context.Background(), turn))

	conv := h.stored(t)
	assert.Equal(t, state.StateShowingProduct, conv.State)
	assert.Equal(t, "WATCH-001", conv.Context.ProductSKU)
	assert.Contains(t, h.ch.last("text").text, "no products are currently available")
}

func TestShowingProduct_Buy(t *testing.T) {
	h := newHarness(t)
	turn := h.seed(t, state.StateShowingProduct, domain.LanguageEnglish, state.Context{ProductSKU: "SHOES-001"})
	turn.Event = button("buy")

	require.NoError(t, h.flow.ShowingProduct(context.Background(), turn))

	assert.Equal(t, state.StateAskingQuantity, h.stored(t).State)
	list := h.ch.last("list")
	require.Len(t, list.rows, 10)
	assert.Equal(t, "qty_1", list.rows[0].ID)
	assert.Equal(t, "qty_10", list.rows[9].ID)
}

func TestShowingProduct_IgnoresText(t *testing.T) {
	h := newHarness(t)
	turn := h.seed(t, state.StateShowingProduct, domain.LanguageEnglish, state.Context{ProductSKU: "SHOES-001"})
	turn.Event = text("how much?")

	require.NoError(t, h.flow.ShowingProduct(context.Background(), turn))

	assert.Empty(t, h.ch.kinds())
	assert.Equal(t, state.StateShowingProduct, h.stored(t).State)
}

func TestAgentBranch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	turn := h.seed(t, state.StateShowingProduct, domain.LanguageEnglish, state.Context{ProductSKU: "SHOES-001"})

	turn.Event = button("agent")
	require.NoError(t, h.flow.ShowingProduct(ctx, turn))
	assert.Equal(t, state.StateWaitingForAgent, h.stored(t).State)

	turn.Event = text("call me later")
	h.lang.On("ExtractField", mock.Anything, "call me later", validate.KindPhone, domain.LanguageEnglish).
		Return("", language.ErrNoValue).Once()
	require.NoError(t, h.flow.WaitingForAgent(ctx, turn))
	assert.Equal(t, state.StateWaitingForAgent, h.stored(t).State)
	assert.Contains(t, h.ch.last("text").text, "share your phone number")
	assert.Empty(t, h.orders.agents)

	turn.Event = text("0300 1234567")
	require.NoError(t, h.flow.WaitingForAgent(ctx, turn))

	conv := h.stored(t)
	assert.Equal(t, state.StateShowingProduct, conv.State)
	assert.Equal(t, "SHOES-001", conv.Context.ProductSKU)
	require.Len(t, h.orders.agents, 1)
	assert.Equal(t, "+923001234567", h.orders.agents[0].Phone)
	assert.Equal(t, "SHOES-001", h.orders.agents[0].ProductSKU)
	assert.Contains(t, h.ch.last("text").text, "Our agent will contact you shortly")
	h.lang.AssertExpectations(t)
}

func TestAskingQuantity(t *testing.T) {
	testCases := []struct {
		name      string
		event     channel.Event
		setup     func(m *mockLanguage)
		wantState state.State
		wantQty   int
	}{
		{
			name:      "typed digit accepted without extraction",
			event:     text("5"),
			wantState: state.StateAskingName,
			wantQty:   5,
		},
		{
			name:      "list row",
			event:     listRow("qty_3"),
			wantState: state.StateAskingName,
			wantQty:   3,
		},
		{
			name:  "extraction rescues phrasing",
			event: text("I'd like a couple please"),
			setup: func(m *mockLanguage) {
				m.On("ExtractField", mock.Anything, "I'd like a couple please", validate.KindQuantity, domain.LanguageEnglish).Return("2", nil).Once()
			},
			wantState: state.StateAskingName,
			wantQty:   2,
		},
		{
			name:  "out of range is rejected",
			event: text("500"),
			setup: func(m *mockLanguage) {
				m.On("ExtractField", mock.Anything, "500", validate.KindQuantity, domain.LanguageEnglish).Return("500", nil).Once()
			},
			wantState: state.StateAskingQuantity,
		},
		{
			name:      "button is rejected",
			event:     button("buy"),
			wantState: state.StateAskingQuantity,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			if tc.setup != nil {
				tc.setup(h.lang)
			}
			turn := h.seed(t, state.StateAskingQuantity, domain.LanguageEnglish, state.Context{ProductSKU: "SHOES-001"})
			turn.Event = tc.event

			require.NoError(t, h.flow.AskingQuantity(context.Background(), turn))

			conv := h.stored(t)
			assert.Equal(t, tc.wantState, conv.State)
			assert.Equal(t, tc.wantQty, conv.Context.Qty)
			if tc.wantState == state.StateAskingQuantity {
				assert.Equal(t, []string{"text", "list"}, h.ch.kinds())
				assert.Contains(t, h.ch.messages[0].text, "Invalid input")
			} else {
				assert.Contains(t, h.ch.last("text").text, "full name")
			}
			h.lang.AssertExpectations(t)
			if tc.setup == nil {
				h.lang.AssertNotCalled(t, "ExtractField", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestAskingPhone_SpokenDigitsRescuedByExtraction(t *testing.T) {
	h := newHarness(t)
	spoken := "zero three double one two three four five six seven"
	h.lang.On("ExtractField", mock.Anything, spoken, validate.KindPhone, domain.LanguageEnglish).Return("03112345677", nil).Once()

	turn := h.seed(t, state.StateAskingPhone, domain.LanguageEnglish, state.Context{ProductSKU: "SHOES-001", Qty: 2, Name: "Ali Khan"})
	turn.Event = text(spoken)

	require.NoError(t, h.flow.AskingPhone(context.Background(), turn))

	conv := h.stored(t)
	assert.Equal(t, state.StateAskingAddress, conv.State)
	assert.Equal(t, "+923112345677", conv.Context.Phone)
	assert.Contains(t, h.ch.last("text").text, "delivery address")
	h.lang.AssertExpectations(t)
}

func TestAskingName_RejectsNonText(t *testing.T) {
	h := newHarness(t)
	turn := h.seed(t, state.StateAskingName, domain.LanguageEnglish, state.Context{ProductSKU: "SHOES-001", Qty: 2})
	turn.Event = image("media-1")

	require.NoError(t, h.flow.AskingName(context.Background(), turn))

	assert.Equal(t, state.StateAskingName, h.stored(t).State)
	assert.Equal(t, []string{"text", "text"}, h.ch.kinds())
	assert.Contains(t, h.ch.last("text").text, "full name")
}

func TestAskingName_SavedBeforePromptFails(t *testing.T) {
	h := newHarness(t)
	turn := h.seed(t, state.StateAskingName, domain.LanguageEnglish, state.Context{ProductSKU: "SHOES-001", Qty: 2})
	turn.Event = text("Ali Khan")
	h.ch.failText = errors.New("channel down")

	err := h.flow.AskingName(context.Background(), turn)
	require.Error(t, err)

	conv := h.stored(t)
	assert.Equal(t, state.StateAskingPhone, conv.State)
	assert.Equal(t, "Ali Khan", conv.Context.Name)
}

func TestAskingAddress_SendsSummaryThenPaymentButtons(t *testing.T) {
	h := newHarness(t)
	turn := h.seed(t, state.StateAskingAddress, domain.LanguageUrdu, state.Context{
		ProductSKU: "SHIRT-001", Qty: 3, Name: "Ali Khan", Phone: "+923001234567",
	})
	turn.Event = text("House 12, Street 4, Gulberg, Lahore")

	require.NoError(t, h.flow.AskingAddress(context.Background(), turn))

	conv := h.stored(t)
	assert.Equal(t, state.StateAskingPaymentMethod, conv.State)
	assert.Equal(t, "House 12, Street 4, Gulberg, Lahore", conv.Context.Address)

	assert.Equal(t, []string{"text", "buttons"}, h.ch.kinds())
	summary := h.ch.last("text").text
	assert.Contains(t, summary, "Cotton Shirt")
	assert.Contains(t, summary, "سوتی قمیض")
	assert.Contains(t, summary, "4,500")

	payment := h.ch.last("buttons")
	require.Len(t, payment.buttons, 2)
	assert.Equal(t, "payment_easypaisa", payment.buttons[0].ID)
	assert.Equal(t, "payment_cod", payment.buttons[1].ID)
}

func TestAskingPaymentMethod_CashOnDeliveryPlacesOrder(t *testing.T) {
	h := newHarness(t)
	c := fullContext("")
	turn := h.seed(t, state.StateAskingPaymentMethod, domain.LanguageEnglish, c)
	turn.Event = button("payment_cod")

	require.NoError(t, h.flow.AskingPaymentMethod(context.Background(), turn))

	require.Len(t, h.orders.placed, 1)
	order := h.orders.placed[0]
	assert.Equal(t, domain.StatusPendingConfirmation, order.Status)
	assert.Equal(t, domain.PaymentCashOnDelivery, order.PaymentMethod)
	assert.Equal(t, int64(3500), order.ProductPrice)
	assert.Equal(t, int64(7000), order.Total)
	assert.Nil(t, order.Proof)

	conv := h.stored(t)
	assert.Equal(t, state.StateShowingProduct, conv.State)
	assert.Equal(t, state.Context{}, conv.Context)
	assert.Equal(t, domain.LanguageEnglish, conv.Language)
	assert.Contains(t, h.ch.last("text").text, "within 1-3 hours")
}

func TestAskingPaymentMethod_EasyPaisa(t *testing.T) {
	testCases := []struct {
		name     string
		qr       string
		wantKind string
	}{
		{name: "placeholder qr sends text", qr: "https://your-domain.com/qr.png", wantKind: "text"},
		{name: "no qr sends text", qr: "", wantKind: "text"},
		{name: "real qr sends image", qr: "https://cdn.example.com/qr.png", wantKind: "image"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.flow.settings.EasyPaisa.QRImageURL = tc.qr
			turn := h.seed(t, state.StateAskingPaymentMethod, domain.LanguageEnglish, fullContext(""))
			turn.Event = button("payment_easypaisa")

			require.NoError(t, h.flow.AskingPaymentMethod(context.Background(), turn))

			conv := h.stored(t)
			assert.Equal(t, state.StateWaitingPaymentProof, conv.State)
			assert.Equal(t, domain.PaymentEasyPaisa, conv.Context.PaymentMethod)
			assert.Equal(t, []string{tc.wantKind}, h.ch.kinds())
			assert.Contains(t, h.ch.last(tc.wantKind).text, "03001234567")
			assert.Empty(t, h.orders.placed)
		})
	}
}

func TestAskingPaymentMethod_InvalidRepeatsButtons(t *testing.T) {
	h := newHarness(t)
	turn := h.seed(t, state.StateAskingPaymentMethod, domain.LanguageEnglish, fullContext(""))
	turn.Event = text("cash please")

	require.NoError(t, h.flow.AskingPaymentMethod(context.Background(), turn))

	assert.Equal(t, state.StateAskingPaymentMethod, h.stored(t).State)
	assert.Equal(t, []string{"text", "buttons"}, h.ch.kinds())
	assert.Empty(t, h.orders.placed)
}

func TestWaitingPaymentProof(t *testing.T) {
	testCases := []struct {
		name      string
		event     channel.Event
		wantOrder bool
		wantKind  domain.ProofKind
	}{
		{name: "image proof", event: image("media-42"), wantOrder: true, wantKind: domain.ProofImage},
		{name: "transaction id", event: text("TXN 88812345"), wantOrder: true, wantKind: domain.ProofText},
		{name: "button rejected", event: button("payment_cod")},
		{name: "blank text rejected", event: text("   ")},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.ch.media = []byte("jpeg-bytes")
			turn := h.seed(t, state.StateWaitingPaymentProof, domain.LanguageEnglish, fullContext(domain.PaymentEasyPaisa))
			turn.Event = tc.event

			require.NoError(t, h.flow.WaitingPaymentProof(context.Background(), turn))

			conv := h.stored(t)
			if !tc.wantOrder {
				assert.Empty(t, h.orders.placed)
				assert.Equal(t, state.StateWaitingPaymentProof, conv.State)
				assert.Contains(t, h.ch.messages[0].text, "Invalid input")
				return
			}

			require.Len(t, h.orders.placed, 1)
			order := h.orders.placed[0]
			assert.Equal(t, domain.StatusPendingReview, order.Status)
			require.NotNil(t, order.Proof)
			assert.Equal(t, tc.wantKind, order.Proof.Kind)
			assert.Equal(t, h.now, order.Proof.ReceivedAt)
			if tc.wantKind == domain.ProofImage {
				assert.Equal(t, "media-42", order.Proof.MediaRef)
				assert.Equal(t, []byte("jpeg-bytes"), h.proofs.saved[order.Proof.StoredPath])
			} else {
				assert.Equal(t, "TXN 88812345", order.Proof.Text)
			}

			assert.Equal(t, state.StateShowingProduct, conv.State)
			assert.Equal(t, state.Context{}, conv.Context)
			assert.Contains(t, h.ch.last("text").text, "payment information has been received")
		})
	}
}

func TestPlaceOrder_ProductVanished(t *testing.T) {
	h := newHarness(t)
	c := fullContext("")
	c.ProductSKU = "GONE-001"
	turn := h.seed(t, state.StateAskingPaymentMethod, domain.LanguageEnglish, c)
	turn.Event = button("payment_cod")

	err := h.flow.AskingPaymentMethod(context.Background(), turn)
	require.Error(t, err)
	assert.Equal(t, "E400", apperrors.CodeOf(err))
	assert.Empty(t, h.orders.placed)
	assert.Equal(t, state.StateAskingPaymentMethod, h.stored(t).State)
}

func TestPlaceOrder_StorageFailureKeepsContext(t *testing.T) {
	h := newHarness(t)
	h.orders.placeErr = apperrors.NewDatabaseError(errors.New("connection refused"))
	turn := h.seed(t, state.StateWaitingPaymentProof, domain.LanguageEnglish, fullContext(domain.PaymentEasyPaisa))
	turn.Event = text("TXN 1")

	err := h.flow.WaitingPaymentProof(context.Background(), turn)
	require.Error(t, err)

	conv := h.stored(t)
	assert.Equal(t, state.StateWaitingPaymentProof, conv.State)
	assert.Equal(t, "Ali Khan", conv.Context.Name)
}

func TestAudioFailureDoesNotBlockText(t *testing.T) {
	h := newHarness(t)
	h.ch.failAudio = errors.New("audio rejected")
	turn := h.seed(t, state.StateAskingName, domain.LanguageEnglish, state.Context{ProductSKU: "SHOES-001", Qty: 1})
	turn.Event = text("Ayesha Siddiqui")

	require.NoError(t, h.flow.AskingName(context.Background(), turn))

	assert.Equal(t, state.StateAskingPhone, h.stored(t).State)
	assert.True(t, strings.Contains(h.ch.last("text").text, "mobile number"))
}
