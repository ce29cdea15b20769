package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
[server]
jwt_secret = "secret"

[backend]
base_url = "http://backend.local/api/"
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(minimalConfig)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Host)
	assert.Equal(t, ":9090", cfg.Server.GRPCHost)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, time.Hour, cfg.Redis.AccessTokenTTL)
	assert.Equal(t, 168*time.Hour, cfg.Redis.RefreshTokenTTL)
	assert.Equal(t, 5, cfg.Workflow.PageSize)
	assert.Equal(t, "LeaveApproval", cfg.Workflow.ControllerName)
	assert.Equal(t, 15*time.Second, cfg.Attendance.HoldDuration)
	assert.Equal(t, 2*time.Second, cfg.Attendance.MaxFrameGap)
	assert.Equal(t, 100, cfg.Attendance.HistoryLimit)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name          string
		data          string
		errorContains string
	}{
		{
			name:          "missing jwt secret",
			data:          "[backend]\nbase_url = \"http://x\"\n",
			errorContains: "JWT_SECRET",
		},
		{
			name:          "missing backend url",
			data:          "[server]\njwt_secret = \"s\"\n",
			errorContains: "base_url",
		},
		{
			name:          "invalid duration",
			data:          minimalConfig + "\n[redis]\naccess_token_ttl = \"soon\"\n",
			errorContains: "access_token_ttl",
		},
		{
			name:          "face ratios inverted",
			data:          minimalConfig + "\n[attendance]\nmin_face_ratio = 0.9\nmax_face_ratio = 0.5\n",
			errorContains: "min_face_ratio",
		},
		{
			name:          "zero frame gap",
			data:          minimalConfig + "\n[attendance]\nmax_frame_gap = \"0s\"\n",
			errorContains: "max_frame_gap",
		},
		{
			name:          "broken toml",
			data:          "[server\n",
			errorContains: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HCM_JWT_SECRET", "")
			t.Setenv("HCM_BACKEND_URL", "")

			cfg, err := Parse(tt.data)

			assert.Error(t, err)
			assert.Nil(t, cfg)
			if tt.errorContains != "" {
				assert.Contains(t, err.Error(), tt.errorContains)
			}
		})
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("HCM_JWT_SECRET", "from-env")
	t.Setenv("HCM_BACKEND_URL", "http://env.local/")
	t.Setenv("HCM_DB_PASSWORD", "db-pass")

	cfg, err := Parse(minimalConfig)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Server.JWTSecret)
	assert.Equal(t, "http://env.local/", cfg.Backend.BaseURL)
	assert.Equal(t, "db-pass", cfg.Database.Password)
}

func TestGetConfig_ReadsFileFromEnvPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(minimalConfig+"\n[logging]\nlevel = \"debug\"\n"), 0o600))

	t.Setenv("HCM_CONFIG", path)
	t.Setenv("HCM_JWT_SECRET", "")
	t.Setenv("HCM_BACKEND_URL", "")

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	cfg, err := GetConfig(logger)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestGetConfig_MissingFile(t *testing.T) {
	t.Setenv("HCM_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	cfg, err := GetConfig(logger)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}
