// Package httpapi assembles the bot's HTTP surface: the WhatsApp webhook,
// health probes, Prometheus metrics and the static audio prompts.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Proton-105/bazaar-bot/internal/health"
	"github.com/Proton-105/bazaar-bot/internal/lifecycle"
	"github.com/Proton-105/bazaar-bot/internal/middleware"
	"github.com/Proton-105/bazaar-bot/pkg/logger"
)

// Webhook mounts inbound message endpoints.
type Webhook interface {
	Register(r chi.Router, pattern string)
}

// Options selects what the router serves. Nil fields switch their routes off.
type Options struct {
	Webhook  Webhook
	Checker  *health.Checker
	Probes   lifecycle.HealthChecker
	AudioDir string
	Log      *slog.Logger
}

// NewRouter builds the chi router.
func NewRouter(opts Options) *chi.Mux {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(logger.Middleware)
	r.Use(middleware.New(log))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
	})

	if opts.Webhook != nil {
		opts.Webhook.Register(r, "/webhook")
	}

	if opts.Checker != nil {
		r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
			report := opts.Checker.Check(req.Context())
			status := http.StatusOK
			if !report.Healthy() {
				status = http.StatusServiceUnavailable
			}
			writeJSON(w, status, report)
		})
	}

	if opts.Probes != nil {
		r.Get("/livez", probe(opts.Probes.Liveness))
		r.Get("/readyz", probe(opts.Probes.Readiness))
	}

	r.Handle("/metrics", promhttp.Handler())

	if opts.AudioDir != "" {
		r.Handle("/audio/*", http.StripPrefix("/audio/", http.FileServer(http.Dir(opts.AudioDir))))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}

func probe(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := check(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
