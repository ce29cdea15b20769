package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/adamanr/hcm_gateway/internal/entity"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestIdempotent(t *testing.T) {
	const (
		path     = "/api/v1/leave/approvals/42/decision"
		cacheKey = "idemp:/api/v1/leave/approvals/42/decision:7:abc"
		lockKey  = cacheKey + ":lock"
		ttl      = time.Hour
	)

	stored, err := json.Marshal(cachedResponse{Status: http.StatusCreated, Body: `{"ok":true}`})
	require.NoError(t, err)

	tests := []struct {
		name           string
		key            string
		setupMocks     func(mock redismock.ClientMock)
		expectedStatus int
		expectedCalls  int
		replayed       bool
	}{
		{
			name:           "no key passes through",
			key:            "",
			setupMocks:     func(redismock.ClientMock) {},
			expectedStatus: http.StatusCreated,
			expectedCalls:  1,
		},
		{
			name: "first request is stored",
			key:  "abc",
			setupMocks: func(mock redismock.ClientMock) {
				mock.ExpectGet(cacheKey).RedisNil()
				mock.ExpectSetNX(lockKey, "locked", idempotencyLockTTL).SetVal(true)
				mock.ExpectSet(cacheKey, string(stored), ttl).SetVal("OK")
				mock.ExpectDel(lockKey).SetVal(1)
			},
			expectedStatus: http.StatusCreated,
			expectedCalls:  1,
		},
		{
			name: "repeat is replayed",
			key:  "abc",
			setupMocks: func(mock redismock.ClientMock) {
				mock.ExpectGet(cacheKey).SetVal(string(stored))
			},
			expectedStatus: http.StatusCreated,
			expectedCalls:  0,
			replayed:       true,
		},
		{
			name: "concurrent duplicate is refused",
			key:  "abc",
			setupMocks: func(mock redismock.ClientMock) {
				mock.ExpectGet(cacheKey).RedisNil()
				mock.ExpectSetNX(lockKey, "locked", idempotencyLockTTL).SetVal(false)
			},
			expectedStatus: http.StatusConflict,
			expectedCalls:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := redismock.NewClientMock()
			tt.setupMocks(mock)

			calls := 0
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusCreated)
				_, _ = io.WriteString(w, `{"ok":true}`)
			})

			session := &entity.Session{Employee: entity.Employee{ID: 7}}
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Idempotent(db, ttl, quietLogger())(next).ServeHTTP(w, r.WithContext(withSession(r.Context(), session)))
			})

			req := httptest.NewRequest(http.MethodPost, path, nil)
			if tt.key != "" {
				req.Header.Set(IdempotencyHeader, tt.key)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectedCalls, calls)
			if tt.replayed {
				assert.Equal(t, "true", rec.Header().Get(ReplayedHeader))
				assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIdempotent_ServerErrorsAreNotStored(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectGet("idemp:/x:0:k").RedisNil()
	mock.ExpectSetNX("idemp:/x:0:k:lock", "locked", idempotencyLockTTL).SetVal(true)
	mock.ExpectDel("idemp:/x:0:k:lock").SetVal(1)

	handler := Idempotent(db, time.Hour, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(IdempotencyHeader, "k")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(rate.Limit(1), 2, quietLogger())
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1002"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.2:1000"))
	assert.Same(t, limiter.Limiter("10.0.0.1"), limiter.Limiter("10.0.0.1"))
}

func TestMetrics_LabelsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/payslips/{id}/pdf", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"1", "2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/payslips/"+id+"/pdf", nil))
	}

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	require.Len(t, families[0].GetMetric(), 1)

	metric := families[0].GetMetric()[0]
	labels := map[string]string{}
	for _, pair := range metric.GetLabel() {
		labels[pair.GetName()] = pair.GetValue()
	}

	assert.Equal(t, "/payslips/{id}/pdf", labels["path"])
	assert.Equal(t, "200", labels["status"])
	assert.Equal(t, float64(2), metric.GetCounter().GetValue())
}

func TestMetrics_UnmatchedRoutesShareOneLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, path := range []string{"/wp-admin", "/.env", "/a/b/c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	require.Len(t, families[0].GetMetric(), 1)

	metric := families[0].GetMetric()[0]
	labels := map[string]string{}
	for _, pair := range metric.GetLabel() {
		labels[pair.GetName()] = pair.GetValue()
	}

	assert.Equal(t, unmatchedRoute, labels["path"])
	assert.Equal(t, "404", labels["status"])
	assert.Equal(t, float64(3), metric.GetCounter().GetValue())
}
