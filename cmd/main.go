package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcapi "github.com/adamanr/hcm_gateway/internal/api/grpc"
	httpapi "github.com/adamanr/hcm_gateway/internal/api/http"
	"github.com/adamanr/hcm_gateway/internal/backend"
	"github.com/adamanr/hcm_gateway/internal/config"
	"github.com/adamanr/hcm_gateway/internal/controllers"
	"github.com/adamanr/hcm_gateway/internal/database"
	logging "github.com/adamanr/hcm_gateway/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootLogger := slog.New(logging.NewCustomHandler(os.Stdout, io.Discard, slog.LevelInfo))

	cfg, err := config.GetConfig(bootLogger)
	if err != nil {
		log.Fatal("Failed to load config:", err)
		return
	}

	logger := logging.SetupLogger(cfg.Logging.File, os.Stdout, cfg.LogLevel())
	slog.SetDefault(logger)

	rdb, redisErr := database.NewRedisConn(ctx, cfg, logger)
	if redisErr != nil {
		log.Fatal("Failed to connect to Redis:", redisErr)
		return
	}
	defer rdb.Close()

	db, dbErr := database.NewConnect(ctx, cfg, logger)
	if dbErr != nil {
		logger.Error("Failed to connect to database", slog.Any("error", dbErr))
		return
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, logger); err != nil {
		logger.Error("Failed to migrate database", slog.Any("error", err))
		return
	}

	client := backend.NewClient(cfg, logger, backend.NewMetrics(prometheus.DefaultRegisterer))

	deps := &controllers.Dependens{
		DB:        db,
		Redis:     rdb,
		Backend:   client,
		Validator: controllers.NewValidator(),
		Logger:    logger,
		Config:    cfg,
	}

	probes := map[string]func(context.Context) error{
		"backend":  client.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		"postgres": db.Ping,
	}

	handler := httpapi.NewRouter(httpapi.NewServer(deps), httpapi.Options{
		Idempotency: rdb,
		Probes:      probes,
		Registerer:  prometheus.DefaultRegisterer,
		Gatherer:    prometheus.DefaultGatherer,
	})

	s := &http.Server{
		Handler:           handler,
		Addr:              cfg.Server.Host,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	grpcProbes := make(map[string]grpcapi.Probe, len(probes))
	for name, probe := range probes {
		grpcProbes[name] = probe
	}
	healthServer := grpcapi.NewServer(grpcProbes, grpcapi.DefaultProbeInterval, logger)

	lis, err := net.Listen("tcp", cfg.Server.GRPCHost)
	if err != nil {
		logger.Error("Failed to listen for gRPC", slog.String("address", cfg.Server.GRPCHost), slog.Any("error", err))
		return
	}

	go healthServer.Monitor(ctx)
	go func() {
		if err := healthServer.Serve(lis); err != nil {
			logger.Error("gRPC server stopped", slog.Any("error", err))
		}
	}()

	go func() {
		logger.Info("Server is starting", slog.String("address", cfg.Server.Host))
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server stopped", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", slog.Any("error", err))
	}
	healthServer.GracefulStop()

	logger.Info("Server stopped")
}
