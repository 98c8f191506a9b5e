package ratelimit

import (
	"time"

	"github.com/Proton-105/bazaar-bot/pkg/config"
)

// Rules encapsulates configured rate limits and helper methods.
type Rules struct {
	enabled   bool
	limit     int
	window    time.Duration
	whitelist map[string]struct{}
}

// NewRules constructs rate limiting rules from configuration settings.
func NewRules(cfg config.RateLimitConfig) *Rules {
	whitelist := make(map[string]struct{}, len(cfg.Whitelist))
	for _, identity := range cfg.Whitelist {
		whitelist[identity] = struct{}{}
	}

	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	return &Rules{
		enabled:   cfg.Enabled && cfg.Limit > 0,
		limit:     cfg.Limit,
		window:    window,
		whitelist: whitelist,
	}
}

// Enabled reports whether limits are enforced at all.
func (r *Rules) Enabled() bool {
	return r != nil && r.enabled
}

// IsWhitelisted returns true if the identity bypasses rate limits.
func (r *Rules) IsWhitelisted(identity string) bool {
	_, ok := r.whitelist[identity]
	return ok
}

// PerIdentity returns the limit and window applied to each sender.
func (r *Rules) PerIdentity() (int, time.Duration) {
	return r.limit, r.window
}
