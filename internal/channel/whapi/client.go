// Package whapi talks to WhatsApp through the Whapi.Cloud gateway: an HTTP
// client for outbound messages and a webhook that normalizes inbound ones.
package whapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Proton-105/bazaar-bot/internal/channel"
	apperrors "github.com/Proton-105/bazaar-bot/internal/errors"
	"github.com/Proton-105/bazaar-bot/pkg/metrics"
)

const (
	DefaultBaseURL = "https://gate.whapi.cloud"

	defaultMaxMediaBytes = 16 << 20
)

// Config configures the gateway client.
type Config struct {
	BaseURL       string
	Token         string
	Timeout       time.Duration
	MaxMediaBytes int64
}

// Client implements channel.Channel over the Whapi.Cloud REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

var _ channel.Channel = (*Client)(nil)

func NewClient(cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxMediaBytes <= 0 {
		cfg.MaxMediaBytes = defaultMaxMediaBytes
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

type textMessage struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

type mediaMessage struct {
	To      string `json:"to"`
	Media   string `json:"media"`
	Caption string `json:"caption,omitempty"`
}

type interactiveBody struct {
	Text string `json:"text"`
}

type quickReply struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Title string `json:"title"`
}

type listRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type listSection struct {
	Title string    `json:"title"`
	Rows  []listRow `json:"rows"`
}

type listAction struct {
	Label    string        `json:"label"`
	Sections []listSection `json:"sections"`
}

type interactiveAction struct {
	Buttons []quickReply `json:"buttons,omitempty"`
	List    *listAction  `json:"list,omitempty"`
}

type interactiveMessage struct {
	To     string            `json:"to"`
	Type   string            `json:"type"`
	Body   interactiveBody   `json:"body"`
	Action interactiveAction `json:"action"`
}

func (c *Client) SendText(ctx context.Context, to, text string) error {
	return c.send(ctx, "text", "/messages/text", textMessage{To: to, Body: text})
}

// SendButtons sends up to three quick-reply buttons.
func (c *Client) SendButtons(ctx context.Context, to, text string, buttons []channel.Button) error {
	if len(buttons) > channel.MaxButtons {
		return apperrors.NewExternalAPIError("whapi", fmt.Errorf("at most %d buttons allowed, got %d", channel.MaxButtons, len(buttons)))
	}

	replies := make([]quickReply, 0, len(buttons))
	for _, b := range buttons {
		replies = append(replies, quickReply{
			Type:  "quick_reply",
			ID:    b.ID,
			Title: channel.Truncate(b.Title, channel.MaxButtonTitle),
		})
	}

	return c.send(ctx, "buttons", "/messages/interactive", interactiveMessage{
		To:     to,
		Type:   "button",
		Body:   interactiveBody{Text: text},
		Action: interactiveAction{Buttons: replies},
	})
}

// SendList sends a single-section list. More than ten rows is allowed but logged.
func (c *Client) SendList(ctx context.Context, to, text, label string, rows []channel.Row, section string) error {
	if len(rows) > channel.MaxListRows {
		c.log.WarnContext(ctx, "list exceeds recommended row count", slog.Int("rows", len(rows)))
	}

	items := make([]listRow, 0, len(rows))
	for _, r := range rows {
		items = append(items, listRow{
			ID:          r.ID,
			Title:       channel.Truncate(r.Title, channel.MaxRowTitle),
			Description: channel.Truncate(r.Description, channel.MaxRowDescription),
		})
	}

	return c.send(ctx, "list", "/messages/interactive", interactiveMessage{
		To:   to,
		Type: "list",
		Body: interactiveBody{Text: text},
		Action: interactiveAction{List: &listAction{
			Label:    channel.Truncate(label, channel.MaxListLabel),
			Sections: []listSection{{Title: section, Rows: items}},
		}},
	})
}

func (c *Client) SendImage(ctx context.Context, to, imageRef, caption string) error {
	return c.send(ctx, "image", "/messages/image", mediaMessage{To: to, Media: imageRef, Caption: caption})
}

func (c *Client) SendAudio(ctx context.Context, to, audioRef string) error {
	return c.send(ctx, "audio", "/messages/audio", mediaMessage{To: to, Media: audioRef})
}

// FetchMedia downloads an inbound media file. ref is the URL the webhook produced.
func (c *Client) FetchMedia(ctx context.Context, ref string) ([]byte, error) {
	if ref == "" {
		return nil, apperrors.NewExternalAPIError("whapi", fmt.Errorf("fetch media: empty reference"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, apperrors.NewExternalAPIError("whapi", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalAPIError("whapi", fmt.Errorf("fetch media: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewExternalAPIError("whapi", fmt.Errorf("fetch media: unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxMediaBytes+1))
	if err != nil {
		return nil, apperrors.NewExternalAPIError("whapi", fmt.Errorf("read media: %w", err))
	}
	if int64(len(data)) > c.cfg.MaxMediaBytes {
		return nil, apperrors.NewExternalAPIError("whapi", fmt.Errorf("media exceeds %d bytes", c.cfg.MaxMediaBytes))
	}

	return data, nil
}

// HealthCheck asks the gateway whether the WhatsApp session is up.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("whapi health: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) send(ctx context.Context, kind, path string, payload any) error {
	err := c.post(ctx, path, payload)
	metrics.RecordChannelSend(kind, err == nil)
	if err != nil {
		c.log.WarnContext(ctx, "whapi send failed", slog.String("kind", kind), slog.Any("error", err))
		return apperrors.NewExternalAPIError("whapi", err)
	}

	c.log.DebugContext(ctx, "whapi message sent", slog.String("kind", kind))
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}
