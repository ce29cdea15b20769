package api

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func serviceStatus(t *testing.T, s *Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()

	resp, err := s.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)

	return resp.GetStatus()
}

func TestServer_Check(t *testing.T) {
	tests := []struct {
		name            string
		probes          map[string]Probe
		expectedOverall healthpb.HealthCheckResponse_ServingStatus
		failing         string
	}{
		{
			name: "all probes pass",
			probes: map[string]Probe{
				"backend": func(context.Context) error { return nil },
				"redis":   func(context.Context) error { return nil },
			},
			expectedOverall: healthpb.HealthCheckResponse_SERVING,
		},
		{
			name: "one probe fails",
			probes: map[string]Probe{
				"backend":  func(context.Context) error { return nil },
				"postgres": func(context.Context) error { return errors.New("connection refused") },
			},
			expectedOverall: healthpb.HealthCheckResponse_NOT_SERVING,
			failing:         "postgres",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(tt.probes, time.Minute, quietLogger())

			assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, serviceStatus(t, s, ""))

			overall := s.Check(context.Background())

			assert.Equal(t, tt.expectedOverall, overall)
			assert.Equal(t, tt.expectedOverall, serviceStatus(t, s, ""))
			assert.Equal(t, tt.expectedOverall, serviceStatus(t, s, ServiceName))

			for name := range tt.probes {
				expected := healthpb.HealthCheckResponse_SERVING
				if name == tt.failing {
					expected = healthpb.HealthCheckResponse_NOT_SERVING
				}
				assert.Equal(t, expected, serviceStatus(t, s, probeService(name)), name)
			}
		})
	}
}

func TestServer_MonitorStopsOnCancel(t *testing.T) {
	var runs atomic.Int32
	s := NewServer(map[string]Probe{
		"backend": func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}, 10*time.Millisecond, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Monitor(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestServer_ServesHealthOverGRPC(t *testing.T) {
	s := NewServer(map[string]Probe{
		"redis": func(context.Context) error { return nil },
	}, time.Minute, quietLogger())
	s.Check(context.Background())

	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.GracefulStop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client := healthpb.NewHealthClient(conn)

	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	_, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "unknown"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestLoggingInterceptor(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("user-agent", "hcm-mobile/1.0"))
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	_, err := loggingInterceptor(logger)(ctx, nil, info, func(context.Context, any) (any, error) {
		return nil, status.Error(codes.Unavailable, "down")
	})

	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Contains(t, buf.String(), `"method":"/grpc.health.v1.Health/Check"`)
	assert.Contains(t, buf.String(), `"code":"Unavailable"`)
	assert.Contains(t, buf.String(), `"user_agent":"hcm-mobile/1.0"`)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}
