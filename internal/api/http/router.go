package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	logging "github.com/adamanr/hcm_gateway/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

const probeTimeout = 2 * time.Second

// Options carries the process-level collaborators of the router.
type Options struct {
	Idempotency IdempotencyStore
	Probes      map[string]func(context.Context) error
	Registerer  prometheus.Registerer
	Gatherer    prometheus.Gatherer
}

// NewRouter builds the chi router: health and metrics endpoints plus the
// /api/v1 routes of s.
func NewRouter(s *Server, opts Options) http.Handler {
	cfg := s.deps.Config
	metrics := NewMetrics(opts.Registerer)
	limiter := NewRateLimiter(rate.Limit(cfg.Server.RateLimitPerSecond), cfg.Server.RateLimitBurst, s.deps.Logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(s.deps.Logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.httpResponse(w, http.StatusOK, map[string]string{"status": "ok"}, "success")
	})
	r.Get("/readyz", s.ready(opts.Probes))

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	routes := Routes{Authenticate: s.Authenticate}
	if opts.Idempotency != nil {
		routes.Idempotent = Idempotent(opts.Idempotency, cfg.Redis.IdempotencyTTL, s.deps.Logger)
	}

	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		HandlerFromMux(s, r, routes, s.respondError)
	})

	return r
}

// ready answers 503 when any dependency probe fails.
func (s *Server) ready(probes map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		report := make(map[string]string, len(probes))
		status := http.StatusOK

		for name, probe := range probes {
			if err := probe(ctx); err != nil {
				s.deps.Logger.Warn("Readiness probe failed", slog.String("probe", name), slog.String("error", err.Error()))
				report[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}

		respType := "success"
		if status != http.StatusOK {
			respType = "error"
		}
		s.httpResponse(w, status, report, respType)
	}
}
