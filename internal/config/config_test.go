package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobals(t *testing.T) {
	t.Helper()
	mu.Lock()
	cfg = nil
	once = sync.Once{}
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		cfg = nil
		once = sync.Once{}
		mu.Unlock()
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "tickora.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func TestDefaults(t *testing.T) {
	d := Defaults()

	assert.Equal(t, "http://localhost:8000/api", d.API.BaseURL)
	assert.Equal(t, 30*time.Second, d.Polling.AttendanceInterval)
	assert.Equal(t, 60*time.Second, d.Polling.LeaveInterval)
	assert.Equal(t, time.Second, d.Polling.TickerInterval)
	assert.Equal(t, "file", d.Auth.Store)
	assert.NoError(t, d.Validate())
}

func TestGetBeforeLoad(t *testing.T) {
	resetGlobals(t)

	got := Get()
	require.NotNil(t, got)
	assert.Equal(t, Defaults(), got)
}

func TestLoadFromFile(t *testing.T) {
	t.Run("Load valid YAML config file", func(t *testing.T) {
		resetGlobals(t)
		file := writeConfig(t, `
api:
  base_url: https://tickets.example.com/api
  timeout: 5s
  retry_count: 0
auth:
  store: redis
  redis:
    addr: redis.internal:6379
    password: s3cret
    db: 2
polling:
  attendance_interval: 10s
cache:
  ticket_ttl: 0s
`)

		require.NoError(t, LoadFromFile(file))

		got := Get()
		assert.Equal(t, "https://tickets.example.com/api", got.API.BaseURL)
		assert.Equal(t, 5*time.Second, got.API.Timeout)
		assert.Equal(t, 0, got.API.RetryCount)
		assert.True(t, got.Auth.UsesRedis())
		assert.Equal(t, "redis.internal:6379", got.Auth.Redis.Addr)
		assert.Equal(t, 2, got.Auth.Redis.DB)
		assert.Equal(t, 10*time.Second, got.Polling.AttendanceInterval)
		// Unset keys keep their defaults
		assert.Equal(t, 60*time.Second, got.Polling.LeaveInterval)
		assert.Equal(t, "tickora:tokens", got.Auth.Redis.KeyPrefix)
		assert.Equal(t, time.Duration(0), got.Cache.TicketTTL)
	})

	t.Run("Missing file fails", func(t *testing.T) {
		resetGlobals(t)
		err := LoadFromFile("/non/existent/tickora.yaml")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("Malformed YAML fails", func(t *testing.T) {
		resetGlobals(t)
		file := writeConfig(t, "api: [unclosed")
		assert.Error(t, LoadFromFile(file))
	})

	t.Run("Invalid values are rejected and keep the previous config", func(t *testing.T) {
		resetGlobals(t)
		file := writeConfig(t, `
auth:
  store: floppy
polling:
  ticker_interval: 0s
`)
		err := LoadFromFile(file)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `auth.store "floppy" must be file or redis`)
		assert.Contains(t, err.Error(), "polling.ticker_interval must be positive")
		assert.Equal(t, Defaults(), Get())
	})
}

func TestEnvironmentOverrides(t *testing.T) {
	resetGlobals(t)
	t.Setenv("TICKORA_API_BASE_URL", "https://override.example.com/api")
	t.Setenv("TICKORA_POLLING_LEAVE_INTERVAL", "2m")
	t.Setenv("TICKORA_METRICS_ENABLED", "true")

	file := writeConfig(t, `
api:
  base_url: https://file.example.com/api
`)
	require.NoError(t, LoadFromFile(file))

	got := Get()
	assert.Equal(t, "https://override.example.com/api", got.API.BaseURL)
	assert.Equal(t, 2*time.Minute, got.Polling.LeaveInterval)
	assert.True(t, got.Metrics.Enabled)
}

func TestLoad(t *testing.T) {
	t.Run("Explicit file", func(t *testing.T) {
		resetGlobals(t)
		file := writeConfig(t, `
logging:
  debug: true
`)
		require.NoError(t, Load(file))
		assert.True(t, Get().Logging.Debug)

		// Later calls are no-ops
		require.NoError(t, Load("/non/existent/tickora.yaml"))
		assert.True(t, Get().Logging.Debug)
	})

	t.Run("Missing explicit file fails", func(t *testing.T) {
		resetGlobals(t)
		assert.Error(t, Load(filepath.Join(t.TempDir(), "nope.yaml")))
	})

	t.Run("No file found falls back to defaults", func(t *testing.T) {
		resetGlobals(t)
		t.Setenv("HOME", t.TempDir())
		chdir(t, t.TempDir())

		require.NoError(t, Load(""))
		assert.Equal(t, Defaults(), Get())
	})
}

func TestMustLoad(t *testing.T) {
	t.Run("MustLoad panics on error", func(t *testing.T) {
		resetGlobals(t)
		assert.Panics(t, func() {
			MustLoad("/non/existent/path.yaml")
		})
	})
}

func TestValidator(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
		warning string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.API.BaseURL = "/api" },
			wantErr: "must be an absolute http(s) URL",
		},
		{
			name:    "empty base url",
			mutate:  func(c *Config) { c.API.BaseURL = "" },
			wantErr: "api.base_url is not set",
		},
		{
			name:    "plain http to a remote host warns",
			mutate:  func(c *Config) { c.API.BaseURL = "http://tickets.example.com/api" },
			warning: "without TLS",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.API.RetryCount = -1 },
			wantErr: "api.retry_count must not be negative",
		},
		{
			name: "redis without address",
			mutate: func(c *Config) {
				c.Auth.Store = "redis"
				c.Auth.Redis.Addr = ""
			},
			wantErr: "auth.redis.addr is required",
		},
		{
			name:    "redis without password warns",
			mutate:  func(c *Config) { c.Auth.Store = "redis" },
			warning: "auth.redis.password is empty",
		},
		{
			name:    "file store without path",
			mutate:  func(c *Config) { c.Auth.TokenPath = "" },
			wantErr: "auth.token_path is required",
		},
		{
			name: "metrics with a bad listen address",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Listen = "9464"
			},
			wantErr: "metrics.listen",
		},
		{
			name:    "cache without cleanup interval",
			mutate:  func(c *Config) { c.Cache.CleanupInterval = 0 },
			wantErr: "cache.cleanup_interval must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mutate(c)

			v := NewValidator(c)
			err := v.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
			if tt.warning != "" {
				require.NotEmpty(t, v.Warnings())
				assert.Contains(t, v.Warnings()[0], tt.warning)
			}
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
