package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adamanr/hcm_gateway/internal/backend"
	"github.com/adamanr/hcm_gateway/internal/config"
	"github.com/adamanr/hcm_gateway/internal/controllers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// memRedis is an in-memory stand-in for the token and KV store.
type memRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemRedis() *memRedis {
	return &memRedis{data: make(map[string]string)}
}

func (m *memRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := redis.NewStringCmd(ctx)
	if v, ok := m.data[key]; ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redis.Nil)
	}

	return cmd
}

func (m *memRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch v := value.(type) {
	case string:
		m.data[key] = v
	case []byte:
		m.data[key] = string(v)
	}

	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")

	return cmd
}

func (m *memRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}

	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(n)

	return cmd
}

const employeeJSON = `{"id":7,"employeeCode":"E-007","employeeName":"Approver","childCompanyId":3,"branchId":1,"userType":1,"designationName":"Manager"}`

// fakeBackend serves the backend endpoints the handler tests touch.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/EmpRegistration/GetAuthUser", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Invalid password"}`)
			return
		}
		_, _ = io.WriteString(w, `{"employeeId":"7","childCompanyId":3,"userType":1}`)
	})
	mux.HandleFunc("GET /api/EmpRegistration/GetEmpRegistrationById/7", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, employeeJSON)
	})
	mux.HandleFunc("GET /api/GeoFencing/GetGeoFenceDetails/3", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"id":1,"lattitude":"23.7808","longitude":90.4161,"radius":150,"locationName":"HQ"}`)
	})
	mux.HandleFunc("GET /api/PaySlip/GetPaySlipListByEmployeeId/3/7", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"id":11,"monthName":"May","year":2024,"grossSalary":50000,"totalDeduction":5000,"netSalary":45000,
			"earnings":[{"name":"Basic","amount":"50000"}],"deductions":[{"name":"Tax","amount":5000}]}]`)
	})
	mux.HandleFunc("GET /api/ApplyLeave/GetApplyLeaveDetailsById/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "42" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"message":"Leave service is down"}`)
			return
		}
		_, _ = io.WriteString(w, `{"applyLeaveId":42,"employeeId":9,"leaveNo":"2","status":"Pending"}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

type testEnv struct {
	handler http.Handler
	redis   *memRedis
	reg     *prometheus.Registry
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	srv := fakeBackend(t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	cfg := &config.Config{}
	cfg.Server.JWTSecret = "test-secret"
	cfg.Server.RateLimitPerSecond = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Backend.BaseURL = srv.URL + "/api/"
	cfg.Backend.Timeout = 5 * time.Second
	cfg.Redis.AccessTokenTTL = time.Hour
	cfg.Redis.RefreshTokenTTL = 24 * time.Hour
	cfg.Redis.ProfileTTL = time.Minute
	cfg.Redis.IdempotencyTTL = time.Hour
	cfg.Workflow.PageSize = 5
	cfg.Workflow.ControllerName = "LeaveApproval"
	cfg.Workflow.ActionName = "SaveLeaveFinalApproval"
	cfg.Attendance.HoldDuration = 15 * time.Second
	cfg.Attendance.MaxFrameGap = 2 * time.Second
	cfg.Attendance.CenterTolerance = 0.15
	cfg.Attendance.MinFaceRatio = 0.25
	cfg.Attendance.MaxFaceRatio = 0.8
	cfg.Attendance.HistoryLimit = 100

	rdb := newMemRedis()
	reg := prometheus.NewRegistry()

	deps := &controllers.Dependens{
		Redis:     rdb,
		Backend:   backend.NewClient(cfg, logger, backend.NewMetrics(reg)),
		Validator: controllers.NewValidator(),
		Logger:    logger,
		Config:    cfg,
	}

	if opts.Registerer == nil {
		opts.Registerer = reg
		opts.Gatherer = reg
	}

	return &testEnv{
		handler: NewRouter(NewServer(deps), opts),
		redis:   rdb,
		reg:     reg,
	}
}

type envelope struct {
	Status int             `json:"status"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}

	return rec, env
}

// login signs the test employee in and returns the access and refresh tokens.
func (e *testEnv) login(t *testing.T) (string, string) {
	t.Helper()

	rec, env := e.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"userName": "approver",
		"password": "secret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tokens))

	return tokens.AccessToken, tokens.RefreshToken
}

func errorMessage(t *testing.T, env envelope) string {
	t.Helper()

	var body map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &body))

	return body["error"]
}
