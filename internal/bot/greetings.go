package bot

import (
	"strings"
	"sync"
)

// Greetings holds the phrases that restart a conversation. The list can be
// replaced at runtime when the configuration changes.
type Greetings struct {
	mu      sync.RWMutex
	phrases []string
}

func NewGreetings(phrases []string) *Greetings {
	g := &Greetings{}
	g.Set(phrases)
	return g
}

// Set replaces the phrase list.
func (g *Greetings) Set(phrases []string) {
	normalized := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			normalized = append(normalized, p)
		}
	}

	g.mu.Lock()
	g.phrases = normalized
	g.mu.Unlock()
}

// Match reports whether text is a greeting phrase, alone or followed by more words.
func (g *Greetings) Match(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return false
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, p := range g.phrases {
		if text == p || strings.HasPrefix(text, p+" ") {
			return true
		}
	}
	return false
}
