package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/miniapi/internal/config"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), *cfg)
}

func TestLoad_file(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9000"
  max_body_size: 2048
  shutdown_timeout: 5s
logging:
  level: debug
  format: json
rate_limit:
  enabled: false
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, int64(2048), cfg.Server.MaxBodySize)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.RateLimit.Enabled)
	// Untouched sections keep their defaults.
	assert.Equal(t, "none", cfg.Telemetry.TraceExporter)
}

func TestLoad_env_overrides_file(t *testing.T) {
	path := writeFile(t, "server:\n  addr: \":9000\"\n")
	t.Setenv("MINIAPI_SERVER_ADDR", ":7000")
	t.Setenv("MINIAPI_SERVER_DEBUG", "true")
	t.Setenv("MINIAPI_RATE_LIMIT_RPS", "2.5")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.True(t, cfg.Server.Debug)
	assert.InDelta(t, 2.5, cfg.RateLimit.RPS, 0.0001)
}

func TestLoad_errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config file")
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := config.Load(writeFile(t, "server: [\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config file")
	})

	t.Run("bad env", func(t *testing.T) {
		t.Setenv("MINIAPI_SERVER_MAX_BODY_SIZE", "lots")
		_, err := config.Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load config from env")
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		mutate  func(*config.Config)
		wantErr string
	}{
		"valid defaults": {
			mutate: func(*config.Config) {},
		},
		"empty addr": {
			mutate:  func(c *config.Config) { c.Server.Addr = "" },
			wantErr: "server.addr is required",
		},
		"bad level": {
			mutate:  func(c *config.Config) { c.Logging.Level = "loud" },
			wantErr: "logging.level",
		},
		"bad format": {
			mutate:  func(c *config.Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		"zero rps while enabled": {
			mutate:  func(c *config.Config) { c.RateLimit.RPS = 0 },
			wantErr: "rate_limit.rps must be positive",
		},
		"zero rps while disabled": {
			mutate: func(c *config.Config) {
				c.RateLimit.Enabled = false
				c.RateLimit.RPS = 0
			},
		},
		"bad exporter": {
			mutate:  func(c *config.Config) { c.Telemetry.TraceExporter = "jaeger" },
			wantErr: "telemetry.trace_exporter",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()

	level, err := config.LoggingConfig{Level: "warn"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}
