// Package language is the boundary to the speech-to-text and text-extraction
// provider.
package language

import (
	"context"
	"errors"

	"github.com/Proton-105/bazaar-bot/internal/domain"
	"github.com/Proton-105/bazaar-bot/internal/validate"
)

// ErrNoValue is returned by ExtractField when the provider found nothing usable.
var ErrNoValue = errors.New("language: no value extracted")

// Service is the capability the conversation core consumes.
type Service interface {
	// Transcribe converts audio to text. lang may be LanguageUnset to let the
	// provider detect the language; vocabulary biases recognition.
	Transcribe(ctx context.Context, audio []byte, lang domain.Language, vocabulary string) (string, error)
	// ExtractField pulls a single field value out of free text or returns ErrNoValue.
	ExtractField(ctx context.Context, text string, kind validate.Kind, lang domain.Language) (string, error)
	// CleanupTranscript normalizes a raw transcript for the expected field.
	CleanupTranscript(ctx context.Context, text string, kind validate.Kind) (string, error)
}
