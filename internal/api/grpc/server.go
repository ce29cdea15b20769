package api

import (
	"context"
	"log/slog"
	"net"
	"sort"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const (
	// ServiceName is the health service name the gateway reports as a whole.
	ServiceName = "hcm.gateway"

	DefaultProbeInterval = 10 * time.Second
	probeTimeout         = 3 * time.Second
)

// Probe checks one upstream dependency.
type Probe func(ctx context.Context) error

// Server exposes the gRPC health service. Its serving status follows the
// upstream probes: the gateway is SERVING only while every probe passes.
type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	probes   map[string]Probe
	interval time.Duration
	logger   *slog.Logger
}

// NewServer create new health server.
func NewServer(probes map[string]Probe, interval time.Duration, logger *slog.Logger) *Server {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}

	s := &Server{
		grpc:     grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger))),
		health:   health.NewServer(),
		probes:   probes,
		interval: interval,
		logger:   logger,
	}

	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return s
}

func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC health server is starting", slog.String("address", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// Monitor runs the probes immediately and then every interval until ctx is done.
func (s *Server) Monitor(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.Check(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Check runs every probe once and publishes the resulting statuses.
func (s *Server) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	overall := healthpb.HealthCheckResponse_SERVING

	for _, name := range s.probeNames() {
		status := healthpb.HealthCheckResponse_SERVING

		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := s.probes[name](probeCtx)
		cancel()

		if err != nil {
			s.logger.Warn("Health probe failed", slog.String("probe", name), slog.String("error", err.Error()))
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = healthpb.HealthCheckResponse_NOT_SERVING
		}

		s.health.SetServingStatus(probeService(name), status)
	}

	s.health.SetServingStatus("", overall)
	s.health.SetServingStatus(ServiceName, overall)

	return overall
}

// GracefulStop marks everything NOT_SERVING and drains open RPCs.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

func (s *Server) probeNames() []string {
	names := make([]string, 0, len(s.probes))
	for name := range s.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
