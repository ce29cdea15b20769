package database

import (
	"context"
	"log/slog"

	"github.com/adamanr/hcm_gateway/internal/config"
	"github.com/redis/go-redis/v9"
)

func NewRedisConn(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.RedisAddr,
		Password: cfg.Redis.RedisPassword,
		DB:       cfg.Redis.RedisDB,
	})

	_, err := rdb.Ping(ctx).Result()
	if err != nil {
		logger.Error("Failed to connect to Redis", slog.Any("error", err))
		return nil, err
	}

	logger.Info("Successfully connected to Redis")

	return rdb, nil
}
