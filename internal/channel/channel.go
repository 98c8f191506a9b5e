// Package channel defines the messaging capability the bot talks through and the
// normalized inbound event every adapter produces.
package channel

import "context"

// Modality is the shape of an inbound event.
type Modality string

const (
	ModalityText   Modality = "text"
	ModalityButton Modality = "button"
	ModalityList   Modality = "list"
	ModalityImage  Modality = "image"
	ModalityVoice  Modality = "voice"
)

// Limits imposed by the messaging providers.
const (
	MaxButtons        = 3
	MaxListRows       = 10
	MaxButtonTitle    = 20
	MaxListLabel      = 20
	MaxRowTitle       = 24
	MaxRowDescription = 72
)

// Event is one inbound message after adapter normalization.
type Event struct {
	Identity  string
	Modality  Modality
	Text      string
	ButtonID  string
	ListID    string
	MediaRef  string
	MessageID string
}

// Selection returns the button or list id carried by the event, if any.
func (e Event) Selection() string {
	switch e.Modality {
	case ModalityButton:
		return e.ButtonID
	case ModalityList:
		return e.ListID
	default:
		return ""
	}
}

// Button is a quick-reply button.
type Button struct {
	ID    string
	Title string
}

// Row is one entry of a single-section list message.
type Row struct {
	ID          string
	Title       string
	Description string
}

// Channel sends messages to an identity and fetches inbound media.
type Channel interface {
	SendText(ctx context.Context, to, text string) error
	SendButtons(ctx context.Context, to, text string, buttons []Button) error
	SendList(ctx context.Context, to, text, label string, rows []Row, section string) error
	SendImage(ctx context.Context, to, imageRef, caption string) error
	SendAudio(ctx context.Context, to, audioRef string) error
	FetchMedia(ctx context.Context, ref string) ([]byte, error)
}

// EventHandler consumes normalized inbound events. Adapters call it once per event.
type EventHandler func(ctx context.Context, ev Event) error

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
