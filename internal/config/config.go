package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const DefaultPath = "configs/config.toml"

type Config struct {
	Server struct {
		Host                 string
		GRPCHost             string  `toml:"grpc_host"`
		JWTSecret            string  `toml:"jwt_secret"`
		RateLimitPerSecond   float64 `toml:"rate_limit_per_second"`
		RateLimitBurst       int     `toml:"rate_limit_burst"`
		ReadTimeout          time.Duration
		WriteTimeout         time.Duration
		ReadHeaderTimeout    time.Duration
		StrReadTimeout       string `toml:"read_timeout"`
		StrWriteTimeout      string `toml:"write_timeout"`
		StrReadHeaderTimeout string `toml:"read_header_timeout"`
	}
	Backend struct {
		BaseURL    string `toml:"base_url"`
		Timeout    time.Duration
		StrTimeout string `toml:"timeout"`
	}
	Database struct {
		Host     string
		User     string
		Password string
		Database string
	}
	Redis struct {
		RedisAddr          string `toml:"redis_addr"`
		RedisPassword      string `toml:"redis_password"`
		RedisDB            int    `toml:"redis_db"`
		AccessTokenTTL     time.Duration
		RefreshTokenTTL    time.Duration
		ProfileTTL         time.Duration
		IdempotencyTTL     time.Duration
		StrAccessTokenTTL  string `toml:"access_token_ttl"`
		StrRefreshTokenTTL string `toml:"refresh_token_ttl"`
		StrProfileTTL      string `toml:"profile_ttl"`
		StrIdempotencyTTL  string `toml:"idempotency_ttl"`
	}
	Workflow struct {
		PageSize       int    `toml:"page_size"`
		ControllerName string `toml:"controller_name"`
		ActionName     string `toml:"action_name"`
	}
	Attendance struct {
		HoldDuration    time.Duration
		MaxFrameGap     time.Duration
		StrHoldDuration string  `toml:"hold_duration"`
		StrMaxFrameGap  string  `toml:"max_frame_gap"`
		CenterTolerance float64 `toml:"center_tolerance"`
		MinFaceRatio    float64 `toml:"min_face_ratio"`
		MaxFaceRatio    float64 `toml:"max_face_ratio"`
		HistoryLimit    int     `toml:"history_limit"`
	}
	Logging struct {
		File  string
		Level string
	}
}

// GetConfig reads the TOML file named by HCM_CONFIG (or DefaultPath) and
// applies secret overrides from the environment.
func GetConfig(logger *slog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Error read .env file", slog.String("error", err.Error()))
	}

	path := os.Getenv("HCM_CONFIG")
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("Error read config file", slog.String("path", path), slog.String("error", err.Error()))
		return nil, err
	}

	cfg, err := Parse(string(data))
	if err != nil {
		logger.Error("Error decode config file", slog.String("path", path), slog.String("error", err.Error()))
		return nil, err
	}

	logger.Info("Config is loaded", slog.String("path", path))
	return cfg, nil
}

// Parse decodes a TOML document, fills defaults, applies environment
// overrides and validates the result.
func Parse(data string) (*Config, error) {
	var cfg Config

	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, err
	}

	cfg.setDefaults()
	cfg.applyEnv()

	if err := cfg.parseDurations(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = ":8080"
	}
	if c.Server.GRPCHost == "" {
		c.Server.GRPCHost = ":9090"
	}
	if c.Server.RateLimitPerSecond == 0 {
		c.Server.RateLimitPerSecond = 10
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = 20
	}
	setDefault(&c.Server.StrReadTimeout, "10s")
	setDefault(&c.Server.StrWriteTimeout, "30s")
	setDefault(&c.Server.StrReadHeaderTimeout, "5s")
	setDefault(&c.Backend.StrTimeout, "15s")
	setDefault(&c.Redis.StrAccessTokenTTL, "1h")
	setDefault(&c.Redis.StrRefreshTokenTTL, "168h")
	setDefault(&c.Redis.StrProfileTTL, "30m")
	setDefault(&c.Redis.StrIdempotencyTTL, "24h")

	if c.Workflow.PageSize == 0 {
		c.Workflow.PageSize = 5
	}
	setDefault(&c.Workflow.ControllerName, "LeaveApproval")
	setDefault(&c.Workflow.ActionName, "SaveLeaveFinalApproval")

	setDefault(&c.Attendance.StrHoldDuration, "15s")
	setDefault(&c.Attendance.StrMaxFrameGap, "2s")
	if c.Attendance.CenterTolerance == 0 {
		c.Attendance.CenterTolerance = 0.15
	}
	if c.Attendance.MinFaceRatio == 0 {
		c.Attendance.MinFaceRatio = 0.25
	}
	if c.Attendance.MaxFaceRatio == 0 {
		c.Attendance.MaxFaceRatio = 0.8
	}
	if c.Attendance.HistoryLimit == 0 {
		c.Attendance.HistoryLimit = 100
	}

	setDefault(&c.Logging.File, "server.log")
	setDefault(&c.Logging.Level, "info")
}

func (c *Config) applyEnv() {
	overrideFromEnv(&c.Server.JWTSecret, "HCM_JWT_SECRET")
	overrideFromEnv(&c.Backend.BaseURL, "HCM_BACKEND_URL")
	overrideFromEnv(&c.Database.Password, "HCM_DB_PASSWORD")
	overrideFromEnv(&c.Redis.RedisPassword, "HCM_REDIS_PASSWORD")
}

func (c *Config) parseDurations() error {
	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"read_timeout", c.Server.StrReadTimeout, &c.Server.ReadTimeout},
		{"write_timeout", c.Server.StrWriteTimeout, &c.Server.WriteTimeout},
		{"read_header_timeout", c.Server.StrReadHeaderTimeout, &c.Server.ReadHeaderTimeout},
		{"backend timeout", c.Backend.StrTimeout, &c.Backend.Timeout},
		{"access_token_ttl", c.Redis.StrAccessTokenTTL, &c.Redis.AccessTokenTTL},
		{"refresh_token_ttl", c.Redis.StrRefreshTokenTTL, &c.Redis.RefreshTokenTTL},
		{"profile_ttl", c.Redis.StrProfileTTL, &c.Redis.ProfileTTL},
		{"idempotency_ttl", c.Redis.StrIdempotencyTTL, &c.Redis.IdempotencyTTL},
		{"hold_duration", c.Attendance.StrHoldDuration, &c.Attendance.HoldDuration},
		{"max_frame_gap", c.Attendance.StrMaxFrameGap, &c.Attendance.MaxFrameGap},
	}

	for _, d := range durations {
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	return nil
}

func (c *Config) Validate() error {
	if c.Server.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base_url is required")
	}
	if c.Workflow.PageSize < 1 {
		return fmt.Errorf("workflow page_size must be positive")
	}
	if c.Attendance.HoldDuration <= 0 {
		return fmt.Errorf("attendance hold_duration must be positive")
	}
	if c.Attendance.MaxFrameGap <= 0 {
		return fmt.Errorf("attendance max_frame_gap must be positive")
	}
	if c.Attendance.MinFaceRatio >= c.Attendance.MaxFaceRatio {
		return fmt.Errorf("attendance min_face_ratio must be below max_face_ratio")
	}

	return nil
}

// LogLevel maps the configured level name onto slog.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelInfo
	}

	return level
}

func setDefault(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}

func overrideFromEnv(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}
