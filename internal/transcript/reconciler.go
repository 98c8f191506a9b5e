// Package transcript turns a voice note into text for the field the conversation
// is waiting on.
package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Proton-105/bazaar-bot/internal/domain"
	apperrors "github.com/Proton-105/bazaar-bot/internal/errors"
	"github.com/Proton-105/bazaar-bot/internal/language"
	"github.com/Proton-105/bazaar-bot/internal/validate"
)

// Reconciler produces one cleaned transcript per voice note.
type Reconciler struct {
	svc language.Service
	log *slog.Logger
}

func NewReconciler(svc language.Service, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{svc: svc, log: log}
}

// Reconcile transcribes audio for the expected field kind. An empty kind means no
// field is expected and the plain transcript is returned. The error, when not nil,
// is a transcription failure: no text is available for the turn.
func (r *Reconciler) Reconcile(ctx context.Context, audio []byte, kind validate.Kind, lang domain.Language) (string, error) {
	switch kind {
	case "":
		return r.transcribe(ctx, audio, lang.OrDefault(), "")
	case validate.KindName:
		return r.reconcileName(ctx, audio)
	default:
		return r.reconcileField(ctx, audio, kind, lang)
	}
}

func (r *Reconciler) reconcileField(ctx context.Context, audio []byte, kind validate.Kind, lang domain.Language) (string, error) {
	raw, err := r.transcribe(ctx, audio, lang.OrDefault(), Vocabulary(kind))
	if err != nil {
		return "", err
	}

	return r.cleanup(ctx, raw, raw, kind), nil
}

// reconcileName transcribes once per supported language in parallel and lets the
// language service pick the name out of both.
func (r *Reconciler) reconcileName(ctx context.Context, audio []byte) (string, error) {
	hints := []domain.Language{domain.LanguageEnglish, domain.LanguageUrdu}
	texts := make([]string, len(hints))
	errs := make([]error, len(hints))

	var wg sync.WaitGroup
	for i, lang := range hints {
		wg.Add(1)
		go func(i int, lang domain.Language) {
			defer wg.Done()
			texts[i], errs[i] = r.svc.Transcribe(ctx, audio, lang, Vocabulary(validate.KindName))
		}(i, lang)
	}
	wg.Wait()

	english, urdu := texts[0], texts[1]
	switch {
	case errs[0] != nil && errs[1] != nil:
		return "", apperrors.NewTranscriptionError(fmt.Errorf("english: %w; urdu: %v", errs[0], errs[1]))
	case errs[0] != nil:
		r.log.WarnContext(ctx, "english name transcription failed, using urdu only", slog.Any("error", errs[0]))
		return r.cleanup(ctx, urdu, urdu, validate.KindName), nil
	case errs[1] != nil:
		r.log.WarnContext(ctx, "urdu name transcription failed, using english only", slog.Any("error", errs[1]))
		return r.cleanup(ctx, english, english, validate.KindName), nil
	}

	r.log.DebugContext(ctx, "name transcriptions", slog.String("english", english), slog.String("urdu", urdu))

	combined := fmt.Sprintf("English: %s\nUrdu: %s", english, urdu)
	return r.cleanup(ctx, combined, english, validate.KindName), nil
}

// cleanup runs the field cleanup and falls back to fallback on failure or an empty answer.
func (r *Reconciler) cleanup(ctx context.Context, text, fallback string, kind validate.Kind) string {
	if strings.TrimSpace(text) == "" {
		return fallback
	}

	cleaned, err := r.svc.CleanupTranscript(ctx, text, kind)
	if err != nil {
		r.log.WarnContext(ctx, "transcript cleanup failed, keeping raw text",
			slog.String("kind", string(kind)),
			slog.Any("error", err),
		)
		return fallback
	}

	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" || cleaned == text {
		return fallback
	}

	return cleaned
}

func (r *Reconciler) transcribe(ctx context.Context, audio []byte, lang domain.Language, hint string) (string, error) {
	text, err := r.svc.Transcribe(ctx, audio, lang, hint)
	if err != nil {
		return "", apperrors.NewTranscriptionError(err)
	}
	return text, nil
}
