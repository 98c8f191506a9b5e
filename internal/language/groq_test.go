package language

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/bazaar-bot/internal/domain"
	apperrors "github.com/Proton-105/bazaar-bot/internal/errors"
	"github.com/Proton-105/bazaar-bot/internal/validate"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func chatServer(t *testing.T, content string, assertReq func(r *http.Request, req chatRequest)) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if assertReq != nil {
			assertReq(r, req)
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestGroqClient_ExtractField(t *testing.T) {
	testCases := []struct {
		name      string
		kind      validate.Kind
		content   string
		want      string
		expectErr error
	}{
		{name: "phone string", kind: validate.KindPhone, content: `{"phone": "03112345677"}`, want: "03112345677"},
		{name: "quantity number", kind: validate.KindQuantity, content: `{"quantity": 4}`, want: "4"},
		{name: "null value", kind: validate.KindName, content: `{"name": null}`, expectErr: ErrNoValue},
		{name: "missing key", kind: validate.KindAddress, content: `{}`, expectErr: ErrNoValue},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ts := chatServer(t, tc.content, func(r *http.Request, req chatRequest) {
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				assert.Equal(t, DefaultChatModel, req.Model)
				assert.Equal(t, "json_object", req.ResponseFormat["type"])
				require.Len(t, req.Messages, 2)
				assert.Equal(t, "system", req.Messages[0].Role)
				assert.Equal(t, "some input", req.Messages[1].Content)
			})
			defer ts.Close()

			client := NewGroqClient(Config{APIKey: "secret", BaseURL: ts.URL}, testLogger())

			got, err := client.ExtractField(context.Background(), "some input", tc.kind, domain.LanguageEnglish)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGroqClient_CleanupTranscript(t *testing.T) {
	ts := chatServer(t, `{"cleaned": "03001234567"}`, nil)
	defer ts.Close()

	client := NewGroqClient(Config{BaseURL: ts.URL}, testLogger())

	got, err := client.CleanupTranscript(context.Background(), "mera number hai zero three zero zero...", validate.KindPhone)
	require.NoError(t, err)
	assert.Equal(t, "03001234567", got)
}

func TestGroqClient_CleanupTranscript_EmptyFallsBackToInput(t *testing.T) {
	ts := chatServer(t, `{"cleaned": ""}`, nil)
	defer ts.Close()

	client := NewGroqClient(Config{BaseURL: ts.URL}, testLogger())

	got, err := client.CleanupTranscript(context.Background(), "raw text", validate.KindAddress)
	require.NoError(t, err)
	assert.Equal(t, "raw text", got)
}

func TestGroqClient_Transcribe(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, DefaultWhisperModel, r.FormValue("model"))
		assert.Equal(t, "ur", r.FormValue("language"))
		assert.Equal(t, "vocab", r.FormValue("prompt"))
		assert.Equal(t, "0", r.FormValue("temperature"))

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(file)
		assert.Equal(t, []byte("audio-bytes"), data)

		_ = json.NewEncoder(w).Encode(map[string]string{"text": "  میرا نام علی ہے  "})
	}))
	defer ts.Close()

	client := NewGroqClient(Config{BaseURL: ts.URL}, testLogger())

	got, err := client.Transcribe(context.Background(), []byte("audio-bytes"), domain.LanguageUrdu, "vocab")
	require.NoError(t, err)
	assert.Equal(t, "میرا نام علی ہے", got)
}

func TestGroqClient_TranscribeWithoutLanguageHint(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, hasLanguage := r.MultipartForm.Value["language"]
		assert.False(t, hasLanguage)
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "hello"})
	}))
	defer ts.Close()

	client := NewGroqClient(Config{BaseURL: ts.URL}, testLogger())

	got, err := client.Transcribe(context.Background(), []byte("x"), domain.LanguageUnset, "")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestGroqClient_ServerErrorIsExternalAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer ts.Close()

	client := NewGroqClient(Config{BaseURL: ts.URL, Timeout: time.Second}, testLogger())

	_, err := client.Transcribe(context.Background(), []byte("x"), domain.LanguageEnglish, "")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "E300", appErr.Code)
}
