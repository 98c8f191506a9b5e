package bot

import (
	"context"
	"sync"

	"github.com/Proton-105/bazaar-bot/internal/bot/handlers"
	"github.com/Proton-105/bazaar-bot/internal/channel"
)

// Router wraps the core turn handler in the registered middleware chain.
type Router struct {
	mu          sync.RWMutex
	core        handlers.Handler
	middlewares []handlers.Middleware
}

// NewRouter builds a Router around core.
func NewRouter(core handlers.Handler) *Router {
	return &Router{
		core:        core,
		middlewares: make([]handlers.Middleware, 0),
	}
}

// Use appends a middleware to the chain. The first registered runs outermost.
func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// Route processes one inbound event.
func (r *Router) Route(ctx context.Context, ev channel.Event) error {
	if ev.Identity == "" {
		return nil
	}

	wrapped := r.applyMiddlewares(r.core)
	if wrapped == nil {
		return nil
	}

	return wrapped(ctx, &handlers.Turn{Event: ev})
}

// applyMiddlewares wraps the handler with all registered middlewares.
func (r *Router) applyMiddlewares(h handlers.Handler) handlers.Handler {
	if h == nil {
		return nil
	}

	middlewares := r.middlewaresSnapshot()
	wrapped := h
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}

	return wrapped
}

func (r *Router) middlewaresSnapshot() []handlers.Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.middlewares) == 0 {
		return nil
	}

	snapshot := make([]handlers.Middleware, len(r.middlewares))
	copy(snapshot, r.middlewares)
	return snapshot
}
