package api

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// probeService is the health service name published for a single probe.
func probeService(name string) string {
	return ServiceName + "." + name
}

// userAgentFromMetadata get user agent from incoming metadata.
func userAgentFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	if ua := md.Get("user-agent"); len(ua) > 0 {
		return ua[0]
	}

	return ""
}

// loggingInterceptor logs every unary call with its status code.
func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelWarn
		}

		logger.Log(ctx, level, "gRPC request",
			slog.String("method", info.FullMethod),
			slog.String("code", status.Code(err).String()),
			slog.Duration("duration", time.Since(start)),
			slog.String("user_agent", userAgentFromMetadata(ctx)),
		)

		return resp, err
	}
}
