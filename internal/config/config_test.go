package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, StorePostgres, cfg.StoreDriver)
	require.True(t, cfg.UsesPostgres())
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, []string{"user_activity_events"}, cfg.ConsumerTopics)
	require.Equal(t, 2*time.Second, cfg.OutboxPollInterval)
	require.Equal(t, 25, cfg.OutboxBatchSize)
	require.Equal(t, 5, cfg.DLQMaxRetries)
	require.Equal(t, time.Minute, cfg.DLQBaseDelay)
	require.Equal(t, 500*time.Millisecond, cfg.ConsumerRetryBackoff)
	require.Empty(t, cfg.TrustedProxies)
	require.Equal(t, time.UTC, cfg.Location())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TIMEZONE", "America/New_York")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")

	cfg, err := Load()
	require.NoError(t, err)

	require.False(t, cfg.UsesPostgres())
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "America/New_York", cfg.Location().String())
	require.InDelta(t, 2.5, cfg.RateLimitRPS, 0.0001)
	require.Equal(t, 500*time.Millisecond, cfg.OutboxPollInterval)
}

func TestLoadReadsDotEnvWithoutOverridingEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("HTTP_ADDRESS", ":7000")
	t.Setenv("JWT_ISSUER", "")
	os.Unsetenv("JWT_ISSUER")

	dotenv := "HTTP_ADDRESS=:9999\nJWT_ISSUER=dotenv-issuer\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":7000", cfg.HTTPAddress)
	require.Equal(t, "dotenv-issuer", cfg.JWTIssuer)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	yaml := "store_driver: memory\nhttp_address: \":8181\"\ncors_allowed_origins:\n  - https://app.example.com\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, StoreMemory, cfg.StoreDriver)
	require.Equal(t, ":8181", cfg.HTTPAddress)
	require.Equal(t, []string{"https://app.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")

	_, err := Load()
	require.ErrorContains(t, err, "config: read /nonexistent/config.yaml")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			StoreDriver:        StoreMemory,
			Timezone:           "UTC",
			JWTSecret:          "secret",
			RateLimitRPS:       1,
			RateLimitBurst:     1,
			RateLimitIPRPS:     1,
			RateLimitIPBurst:   1,
			OutboxPollInterval: time.Second,
			OutboxBatchSize:    1,
			DLQPollInterval:    time.Second,
			DLQBatchSize:       1,

			ConsumerRetryBackoff:    time.Millisecond,
			ConsumerRetryMaxBackoff: time.Second,
		}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	cases := map[string]func(*Config){
		"unknown driver":         func(c *Config) { c.StoreDriver = "sqlite" },
		"postgres without url":   func(c *Config) { c.StoreDriver = StorePostgres },
		"bad timezone":           func(c *Config) { c.Timezone = "Mars/Olympus" },
		"empty secret":           func(c *Config) { c.JWTSecret = "" },
		"negative leeway":        func(c *Config) { c.JWTLeeway = -time.Second },
		"zero rate limit":        func(c *Config) { c.RateLimitRPS = 0 },
		"zero outbox batch size": func(c *Config) { c.OutboxBatchSize = 0 },
		"zero dlq interval":      func(c *Config) { c.DLQPollInterval = 0 },
		"zero ip rate limit":     func(c *Config) { c.RateLimitIPBurst = 0 },
		"bad trusted proxy":      func(c *Config) { c.TrustedProxies = []string{"10.0.0.0/33"} },
		"retry cap below start":  func(c *Config) { c.ConsumerRetryMaxBackoff = time.Microsecond },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestTrustedProxyPrefixes(t *testing.T) {
	cfg := Config{TrustedProxies: []string{"10.0.0.7/8", " 192.0.2.10 ", ""}}

	prefixes, err := cfg.TrustedProxyPrefixes()
	require.NoError(t, err)
	require.Len(t, prefixes, 2)
	require.Equal(t, "10.0.0.0/8", prefixes[0].String())
	require.Equal(t, "192.0.2.10/32", prefixes[1].String())
}
