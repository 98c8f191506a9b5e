package whapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/Proton-105/bazaar-bot/internal/channel"
)

const (
	whatsappSuffix = "@s.whatsapp.net"
	buttonPrefix   = "ButtonsV3:"
	listPrefix     = "ListV3:"

	maxPayloadBytes = 1 << 20
)

// WebhookConfig configures the inbound side.
type WebhookConfig struct {
	VerifyToken string
	// MediaBaseURL builds download URLs for media that arrive without a link.
	MediaBaseURL string
}

// Webhook receives Whapi.Cloud deliveries. Each delivery is acknowledged
// before its messages are processed.
type Webhook struct {
	cfg    WebhookConfig
	handle channel.EventHandler
	log    *slog.Logger
	wg     sync.WaitGroup
}

func NewWebhook(cfg WebhookConfig, handle channel.EventHandler, log *slog.Logger) *Webhook {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MediaBaseURL == "" {
		cfg.MediaBaseURL = DefaultBaseURL
	}
	cfg.MediaBaseURL = strings.TrimRight(cfg.MediaBaseURL, "/")

	return &Webhook{cfg: cfg, handle: handle, log: log}
}

// Register mounts GET and POST handlers on pattern.
func (w *Webhook) Register(r chi.Router, pattern string) {
	r.Get(pattern, w.verify)
	r.Post(pattern, w.receive)
}

// Wait blocks until every accepted delivery has been processed.
func (w *Webhook) Wait() {
	w.wg.Wait()
}

func (w *Webhook) verify(rw http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")

	switch {
	case mode == "subscribe" && w.cfg.VerifyToken != "" && q.Get("hub.verify_token") == w.cfg.VerifyToken:
		w.log.InfoContext(r.Context(), "webhook verified")
		rw.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(rw, q.Get("hub.challenge"))
	case mode != "":
		w.log.WarnContext(r.Context(), "webhook verification failed", slog.String("mode", mode))
		rw.WriteHeader(http.StatusForbidden)
	default:
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(rw, `{"status":"ok"}`)
	}
}

func (w *Webhook) receive(rw http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	err := json.NewDecoder(io.LimitReader(r.Body, maxPayloadBytes)).Decode(&payload)

	rw.WriteHeader(http.StatusOK)

	ctx := r.Context()
	if err != nil {
		w.log.WarnContext(ctx, "undecodable webhook payload", slog.Any("error", err))
		return
	}

	events := w.normalize(ctx, payload.Messages)
	if len(events) == 0 {
		w.log.DebugContext(ctx, "webhook without inbound messages")
		return
	}

	// The request context ends with the response; keep its values only.
	ctx = context.WithoutCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for _, ev := range events {
			if err := w.handle(ctx, ev); err != nil {
				w.log.ErrorContext(ctx, "inbound event failed",
					slog.String("identity", ev.Identity),
					slog.String("message_id", ev.MessageID),
					slog.Any("error", err),
				)
			}
		}
	}()
}

func (w *Webhook) normalize(ctx context.Context, messages []inboundMessage) []channel.Event {
	events := make([]channel.Event, 0, len(messages))
	for _, m := range messages {
		if m.FromMe {
			continue
		}

		ev, ok := w.toEvent(m)
		if !ok {
			w.log.DebugContext(ctx, "unsupported inbound message", slog.String("type", m.Type), slog.String("message_id", m.ID))
			continue
		}
		if ev.Identity == "" {
			continue
		}
		events = append(events, ev)
	}
	return events
}

func (w *Webhook) toEvent(m inboundMessage) (channel.Event, bool) {
	ev := channel.Event{Identity: identityOf(m), MessageID: m.ID}

	switch m.Type {
	case "text":
		ev.Modality = channel.ModalityText
		ev.Text = string(m.Text)
	case "interactive":
		if m.Interactive == nil {
			return ev, false
		}
		switch m.Interactive.Type {
		case "button_reply":
			if m.Interactive.ButtonReply == nil {
				return ev, false
			}
			ev.Modality = channel.ModalityButton
			ev.ButtonID = m.Interactive.ButtonReply.ID
		case "list_reply":
			if m.Interactive.ListReply == nil {
				return ev, false
			}
			ev.Modality = channel.ModalityList
			ev.ListID = m.Interactive.ListReply.ID
		default:
			return ev, false
		}
	case "reply":
		if m.Reply == nil {
			return ev, false
		}
		switch {
		case m.Reply.Type == "buttons_reply" && m.Reply.ButtonsReply != nil:
			ev.Modality = channel.ModalityButton
			ev.ButtonID = strings.TrimPrefix(m.Reply.ButtonsReply.ID, buttonPrefix)
		case m.Reply.Type == "list_reply" && m.Reply.ListReply != nil:
			ev.Modality = channel.ModalityList
			ev.ListID = strings.TrimPrefix(m.Reply.ListReply.ID, listPrefix)
		default:
			return ev, false
		}
	case "action":
		if m.Action == nil {
			return ev, false
		}
		return actionEvent(ev, *m.Action)
	case "image":
		if m.Image == nil {
			return ev, false
		}
		ev.Modality = channel.ModalityImage
		ev.MediaRef = w.mediaURL(*m.Image)
		ev.Text = m.Image.Caption
	case "audio", "voice", "ptt":
		media := firstMedia(m.Audio, m.Voice, m.PTT)
		if media == nil {
			return ev, false
		}
		ev.Modality = channel.ModalityVoice
		ev.MediaRef = w.mediaURL(*media)
	default:
		return ev, false
	}

	return ev, true
}

// actionEvent handles the gateway's legacy "action" deliveries. Without an
// explicit id, the visible label is matched against the known buttons.
func actionEvent(ev channel.Event, a actionPayload) (channel.Event, bool) {
	id := a.ID
	if id == "" {
		id = a.ButtonID
	}
	label := a.Body
	if label == "" {
		label = a.Title
	}

	if id != "" {
		ev.Modality = channel.ModalityButton
		ev.ButtonID = id
		return ev, true
	}
	if label == "" {
		return ev, false
	}

	if matched := matchButtonLabel(label); matched != "" {
		ev.Modality = channel.ModalityButton
		ev.ButtonID = matched
		return ev, true
	}

	ev.Modality = channel.ModalityText
	ev.Text = label
	return ev, true
}

var labelKeywords = []struct {
	id       string
	keywords []string
}{
	{"buy", []string{"buy", "خرید"}},
	{"next", []string{"next", "اگل"}},
	{"agent", []string{"agent", "ایجنٹ"}},
	{"payment_easypaisa", []string{"easypaisa", "ایزی"}},
	{"payment_cod", []string{"cash", "کیش"}},
}

func matchButtonLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	for _, entry := range labelKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(label, kw) {
				return entry.id
			}
		}
	}
	return ""
}

func identityOf(m inboundMessage) string {
	if m.ChatID != "" {
		return strings.TrimSuffix(m.ChatID, whatsappSuffix)
	}
	return m.From
}

func (w *Webhook) mediaURL(m mediaPayload) string {
	if m.Link != "" {
		return m.Link
	}
	if m.ID != "" {
		return w.cfg.MediaBaseURL + "/media/" + m.ID
	}
	return ""
}

func firstMedia(candidates ...*mediaPayload) *mediaPayload {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}
