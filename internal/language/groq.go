package language

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Proton-105/bazaar-bot/internal/domain"
	apperrors "github.com/Proton-105/bazaar-bot/internal/errors"
	"github.com/Proton-105/bazaar-bot/internal/validate"
	"github.com/Proton-105/bazaar-bot/pkg/metrics"
)

const (
	DefaultBaseURL      = "https://api.groq.com/openai/v1"
	DefaultChatModel    = "llama-3.3-70b-versatile"
	DefaultWhisperModel = "whisper-large-v3-turbo"

	audioFileName = "voice.ogg"
)

// Config configures the Groq client.
type Config struct {
	APIKey       string
	BaseURL      string
	ChatModel    string
	WhisperModel string
	Timeout      time.Duration
}

// GroqClient implements Service on top of Groq's OpenAI-compatible API.
type GroqClient struct {
	cfg        Config
	httpClient *http.Client
	breaker    *apperrors.CircuitBreaker
	log        *slog.Logger
}

var _ Service = (*GroqClient)(nil)

// NewGroqClient builds a client with defaults filled in.
func NewGroqClient(cfg Config, log *slog.Logger) *GroqClient {
	if log == nil {
		log = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.WhisperModel == "" {
		cfg.WhisperModel = DefaultWhisperModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &GroqClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    apperrors.NewCircuitBreaker(),
		log:        log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe sends audio to the Whisper endpoint.
func (c *GroqClient) Transcribe(ctx context.Context, audio []byte, lang domain.Language, vocabulary string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("transcribe: empty audio")
	}

	var text string
	err := c.call(ctx, "transcribe", func() error {
		body := &bytes.Buffer{}
		form := multipart.NewWriter(body)

		part, err := form.CreateFormFile("file", audioFileName)
		if err != nil {
			return fmt.Errorf("create form file: %w", err)
		}
		if _, err := part.Write(audio); err != nil {
			return fmt.Errorf("write audio: %w", err)
		}

		fields := map[string]string{
			"model":           c.cfg.WhisperModel,
			"response_format": "json",
			"temperature":     "0",
		}
		if lang != domain.LanguageUnset {
			fields["language"] = string(lang)
		}
		if vocabulary != "" {
			fields["prompt"] = vocabulary
		}
		for key, value := range fields {
			if err := form.WriteField(key, value); err != nil {
				return fmt.Errorf("write field %s: %w", key, err)
			}
		}
		if err := form.Close(); err != nil {
			return fmt.Errorf("close form: %w", err)
		}

		var resp transcriptionResponse
		if err := c.post(ctx, "/audio/transcriptions", form.FormDataContentType(), body, &resp); err != nil {
			return err
		}

		text = strings.TrimSpace(resp.Text)
		return nil
	})
	if err != nil {
		return "", err
	}

	c.log.DebugContext(ctx, "audio transcribed", slog.String("language", string(lang)), slog.Int("chars", len(text)))
	return text, nil
}

// ExtractField asks the chat model for one field and returns ErrNoValue on a null answer.
func (c *GroqClient) ExtractField(ctx context.Context, text string, kind validate.Kind, lang domain.Language) (string, error) {
	prompt, ok := extractionPrompt(kind, lang)
	if !ok {
		return "", fmt.Errorf("extract: unknown field %q", kind)
	}

	result, err := c.chatJSON(ctx, "extract", prompt, text)
	if err != nil {
		return "", err
	}

	value := scalarString(result[string(kind)])
	if value == "" {
		return "", ErrNoValue
	}

	return value, nil
}

// CleanupTranscript returns the model's cleaned text, or the input when the model gives nothing back.
func (c *GroqClient) CleanupTranscript(ctx context.Context, text string, kind validate.Kind) (string, error) {
	prompt, ok := cleanupPrompt(kind)
	if !ok {
		return text, nil
	}

	result, err := c.chatJSON(ctx, "cleanup", prompt, text)
	if err != nil {
		return text, err
	}

	if cleaned := scalarString(result["cleaned"]); cleaned != "" {
		return cleaned, nil
	}

	return text, nil
}

func (c *GroqClient) chatJSON(ctx context.Context, op, system, user string) (map[string]any, error) {
	if !strings.Contains(strings.ToLower(system), "json") {
		system += jsonOnlySuffix
	}

	var result map[string]any
	err := c.call(ctx, op, func() error {
		payload, err := json.Marshal(chatRequest{
			Model: c.cfg.ChatModel,
			Messages: []chatMessage{
				{Role: "system", Content: system},
				{Role: "user", Content: user},
			},
			Temperature:    0.3,
			ResponseFormat: map[string]string{"type": "json_object"},
		})
		if err != nil {
			return fmt.Errorf("encode chat request: %w", err)
		}

		var resp chatResponse
		if err := c.post(ctx, "/chat/completions", "application/json", bytes.NewReader(payload), &resp); err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("chat completion returned no choices")
		}

		if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &result); err != nil {
			return fmt.Errorf("decode chat content: %w", err)
		}
		return nil
	})

	return result, err
}

func (c *GroqClient) post(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// call runs fn behind the circuit breaker and records latency.
func (c *GroqClient) call(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	err := c.breaker.Call(fn)
	metrics.RecordLanguageCall(op, err == nil, time.Since(start))

	if err != nil {
		c.log.WarnContext(ctx, "language service call failed", slog.String("op", op), slog.Any("error", err))
		return apperrors.NewExternalAPIError("groq", err)
	}

	return nil
}

// scalarString renders a JSON scalar as text; null and non-scalars become "".
func scalarString(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return ""
	}
}
