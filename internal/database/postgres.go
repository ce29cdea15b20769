package database

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/adamanr/hcm_gateway/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DSN builds the connection URL with the credentials escaped.
func DSN(config *config.Config) string {
	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(config.Database.User, config.Database.Password),
		Host:   config.Database.Host,
		Path:   "/" + config.Database.Database,
	}

	return dsn.String()
}

func NewConnect(ctx context.Context, config *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(DSN(config))
	if err != nil {
		logger.Error("Error parsing DB config", slog.String("error", err.Error()))
		return nil, err
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error("Error connecting to DB", slog.String("error", err.Error()))
		return nil, err
	}

	if err = pool.Ping(ctx); err != nil {
		logger.Error("Error pinging DB", slog.String("error", err.Error()))
		pool.Close()
		return nil, err
	}

	logger.Info("Connected to DB successfully")
	return pool, nil
}
