// Package telegram adapts a Telegram bot to the channel capability. Buttons
// and lists become inline keyboards; taps come back as callbacks.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/bazaar-bot/internal/bot/keyboard"
	"github.com/Proton-105/bazaar-bot/internal/channel"
	apperrors "github.com/Proton-105/bazaar-bot/internal/errors"
	"github.com/Proton-105/bazaar-bot/pkg/metrics"
)

const (
	CommandStart = "/start"

	defaultMaxMediaBytes = 16 << 20
)

// Config configures the adapter. URL overrides the Bot API endpoint.
type Config struct {
	Token         string
	URL           string
	PollTimeout   time.Duration
	MaxMediaBytes int64
	Offline       bool
}

// Adapter implements channel.Channel on top of telebot.
type Adapter struct {
	bot      *telebot.Bot
	log      *slog.Logger
	maxMedia int64
	baseCtx  context.Context
}

var _ channel.Channel = (*Adapter)(nil)

// New builds a long-polling Telegram bot.
func New(cfg Config, log *slog.Logger) (*Adapter, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Second
	}
	if cfg.MaxMediaBytes <= 0 {
		cfg.MaxMediaBytes = defaultMaxMediaBytes
	}

	tb, err := telebot.NewBot(telebot.Settings{
		Token:   cfg.Token,
		URL:     cfg.URL,
		Poller:  &telebot.LongPoller{Timeout: cfg.PollTimeout},
		Offline: cfg.Offline,
		OnError: func(err error, c telebot.Context) {
			log.Error("telegram update failed", slog.Any("error", err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	return &Adapter{
		bot:      tb,
		log:      log,
		maxMedia: cfg.MaxMediaBytes,
		baseCtx:  context.Background(),
	}, nil
}

// Listen routes every supported update to handle.
func (a *Adapter) Listen(handle channel.EventHandler) {
	route := func(c telebot.Context) error {
		ev, ok := a.toEvent(c)
		if !ok {
			return nil
		}
		if err := handle(a.baseCtx, ev); err != nil {
			a.log.ErrorContext(a.baseCtx, "inbound event failed",
				slog.String("identity", ev.Identity),
				slog.String("message_id", ev.MessageID),
				slog.Any("error", err),
			)
		}
		return nil
	}

	a.bot.Handle(CommandStart, route)
	a.bot.Handle(telebot.OnText, route)
	a.bot.Handle(telebot.OnCallback, func(c telebot.Context) error {
		if err := c.Respond(); err != nil {
			a.log.Warn("failed to answer callback", slog.Any("error", err))
		}
		return route(c)
	})
	a.bot.Handle(telebot.OnPhoto, route)
	a.bot.Handle(telebot.OnVoice, route)
	a.bot.Handle(telebot.OnAudio, route)
}

// Run polls for updates until ctx ends. Turns already running keep ctx's values but not its cancellation.
func (a *Adapter) Run(ctx context.Context) error {
	a.baseCtx = context.WithoutCancel(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.log.Info("telegram polling started")
		a.bot.Start()
	}()

	<-ctx.Done()
	a.log.Info("stopping telegram bot...")
	a.bot.Stop()
	<-done
	return nil
}

// HealthCheck calls getMe.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := a.bot.Raw("getMe", nil)
	return err
}

func (a *Adapter) toEvent(c telebot.Context) (channel.Event, bool) {
	chat := c.Chat()
	if chat == nil {
		return channel.Event{}, false
	}
	ev := channel.Event{Identity: strconv.FormatInt(chat.ID, 10)}

	if cb := c.Callback(); cb != nil {
		modality, id, ok := keyboard.Selection(cb.Data)
		if !ok {
			a.log.Debug("unknown callback data", slog.String("data", cb.Data))
			return ev, false
		}
		ev.Modality = modality
		ev.MessageID = "cb:" + cb.ID
		if modality == channel.ModalityList {
			ev.ListID = id
		} else {
			ev.ButtonID = id
		}
		return ev, true
	}

	msg := c.Message()
	if msg == nil {
		return ev, false
	}
	ev.MessageID = strconv.Itoa(msg.ID)

	switch {
	case msg.Photo != nil:
		ev.Modality = channel.ModalityImage
		ev.MediaRef = msg.Photo.FileID
		ev.Text = msg.Caption
	case msg.Voice != nil:
		ev.Modality = channel.ModalityVoice
		ev.MediaRef = msg.Voice.FileID
	case msg.Audio != nil:
		ev.Modality = channel.ModalityVoice
		ev.MediaRef = msg.Audio.FileID
	case msg.Text != "":
		ev.Modality = channel.ModalityText
		ev.Text = msg.Text
	default:
		return ev, false
	}

	return ev, true
}

func (a *Adapter) SendText(ctx context.Context, to, text string) error {
	return a.send(ctx, "text", to, text)
}

func (a *Adapter) SendButtons(ctx context.Context, to, text string, buttons []channel.Button) error {
	markup, err := keyboard.Buttons(buttons)
	if err != nil {
		return apperrors.NewExternalAPIError("telegram", err)
	}
	return a.send(ctx, "buttons", to, text, markup)
}

// SendList renders the rows as an inline keyboard. Telegram has no list
// picker, so label and section are unused.
func (a *Adapter) SendList(ctx context.Context, to, text, _ string, rows []channel.Row, _ string) error {
	markup, err := keyboard.List(rows)
	if err != nil {
		return apperrors.NewExternalAPIError("telegram", err)
	}
	return a.send(ctx, "list", to, text, markup)
}

func (a *Adapter) SendImage(ctx context.Context, to, imageRef, caption string) error {
	return a.send(ctx, "image", to, &telebot.Photo{File: telebot.FromURL(imageRef), Caption: caption})
}

func (a *Adapter) SendAudio(ctx context.Context, to, audioRef string) error {
	return a.send(ctx, "audio", to, &telebot.Audio{File: telebot.FromURL(audioRef)})
}

// FetchMedia downloads a file by its Telegram file id.
func (a *Adapter) FetchMedia(ctx context.Context, ref string) ([]byte, error) {
	if ref == "" {
		return nil, apperrors.NewExternalAPIError("telegram", fmt.Errorf("fetch media: empty reference"))
	}

	rc, err := a.bot.File(&telebot.File{FileID: ref})
	if err != nil {
		return nil, apperrors.NewExternalAPIError("telegram", fmt.Errorf("fetch media: %w", err))
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, a.maxMedia+1))
	if err != nil {
		return nil, apperrors.NewExternalAPIError("telegram", fmt.Errorf("read media: %w", err))
	}
	if int64(len(data)) > a.maxMedia {
		return nil, apperrors.NewExternalAPIError("telegram", fmt.Errorf("media exceeds %d bytes", a.maxMedia))
	}

	a.log.DebugContext(ctx, "media fetched", slog.Int("bytes", len(data)))
	return data, nil
}

func (a *Adapter) send(ctx context.Context, kind, to string, what any, opts ...any) error {
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return apperrors.NewExternalAPIError("telegram", fmt.Errorf("invalid chat id %q: %w", to, err))
	}

	_, err = a.bot.Send(telebot.ChatID(chatID), what, opts...)
	metrics.RecordChannelSend(kind, err == nil)
	if err != nil {
		a.log.WarnContext(ctx, "telegram send failed", slog.String("kind", kind), slog.Any("error", err))
		return apperrors.NewExternalAPIError("telegram", err)
	}

	return nil
}
