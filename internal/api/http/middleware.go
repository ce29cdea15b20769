package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/adamanr/hcm_gateway/internal/entity"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	idempotencyLockTTL = 30 * time.Second
)

type ctxKey int

const sessionKey ctxKey = iota

func withSession(ctx context.Context, session *entity.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// sessionFrom returns the caller set by Authenticate. Routes behind it
// always carry one.
func sessionFrom(ctx context.Context) *entity.Session {
	session, _ := ctx.Value(sessionKey).(*entity.Session)
	if session == nil {
		return &entity.Session{}
	}

	return session
}

// Authenticate verifies the bearer token and resolves the caller's profile.
func (s *Server) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")

		claims, err := s.Controllers.AuthController.CheckUserToken(r.Context(), authHeader)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		session, err := s.Controllers.ProfileController.Session(r.Context(), claims, bearerToken(authHeader))
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), session)))
	})
}

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	r        rate.Limit
	b        int
	logger   *slog.Logger
}

func NewRateLimiter(r rate.Limit, b int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		b:        b,
		logger:   logger,
	}
}

func (l *RateLimiter) Limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(l.r, l.b)
		l.limiters[key] = limiter
	}

	return limiter
}

// Middleware rejects requests from a client IP over its budget with 429.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !l.Limiter(key).Allow() {
			l.logger.Warn("Rate limit exceeded", slog.String("client", key), slog.String("path", r.URL.Path))
			writeResponse(w, l.logger, http.StatusTooManyRequests, map[string]string{"error": "Too many requests"}, "error")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

// IdempotencyStore is the part of redis the idempotency middleware uses.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type cachedResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

func idempotencyKey(path string, employeeID int64, key string) string {
	return fmt.Sprintf("idemp:%s:%d:%s", path, employeeID, key)
}

// Idempotent replays the stored response for a repeated Idempotency-Key and
// answers 409 while the first request with that key is still running.
// Responses with status 5xx are not stored.
func Idempotent(store IdempotencyStore, ttl time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idempKey := r.Header.Get(IdempotencyHeader)
			if idempKey == "" || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			cacheKey := idempotencyKey(r.URL.Path, sessionFrom(ctx).EmployeeID(), idempKey)
			lockKey := cacheKey + ":lock"

			val, err := store.Get(ctx, cacheKey).Result()
			switch {
			case err == nil:
				var cached cachedResponse
				if jsonErr := json.Unmarshal([]byte(val), &cached); jsonErr == nil {
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set(ReplayedHeader, "true")
					w.WriteHeader(cached.Status)
					_, _ = w.Write([]byte(cached.Body))
					return
				}
				logger.Warn("Discarding unreadable idempotent response", slog.String("key", cacheKey))
			case !errors.Is(err, redis.Nil):
				logger.Error("Error reading idempotency key", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			isNew, err := store.SetNX(ctx, lockKey, "locked", idempotencyLockTTL).Result()
			if err != nil {
				logger.Error("Error locking idempotency key", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}
			if !isNew {
				writeResponse(w, logger, http.StatusConflict, map[string]string{"error": "This request is already being processed"}, "error")
				return
			}

			defer func() {
				if err := store.Del(context.WithoutCancel(ctx), lockKey).Err(); err != nil {
					logger.Error("Error releasing idempotency lock", slog.String("error", err.Error()))
				}
			}()

			var body bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusInternalServerError {
				return
			}

			data, err := json.Marshal(cachedResponse{Status: status, Body: body.String()})
			if err != nil {
				return
			}
			if err := store.Set(context.WithoutCancel(ctx), cacheKey, string(data), ttl).Err(); err != nil {
				logger.Error("Error storing idempotent response", slog.String("error", err.Error()))
			}
		})
	}
}

// Metrics counts served requests per route pattern.
type Metrics struct {
	requests *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.requests)
	}

	return m
}

// unmatchedRoute labels requests that hit no route, keeping the path label bounded.
const unmatchedRoute = "unmatched"

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		m.requests.WithLabelValues(path, r.Method, strconv.Itoa(ww.Status())).Inc()
	})
}
