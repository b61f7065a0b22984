package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
server:
  port: 5000
  read_timeout: 10s
  write_timeout: 30s
  rate_limit: 5
  rate_burst: 10
  max_text_bytes: 4096
store:
  type: memory
cache:
  type: memory
  ttl: 1m
engine:
  passive_voice: true
tokenizer:
  strategy: estimate
monitoring:
  log_level: info
  log_format: json
`

func TestLoadFromBytes(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 5.0, cfg.Server.RateLimit)
	assert.Equal(t, StoreMemory, cfg.Store.Type)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.Engine.PassiveVoice)
	assert.Equal(t, TokenizerEstimate, cfg.Tokenizer.Strategy)
	assert.Equal(t, "info", cfg.Monitoring.Logger().Level)
}

func TestLoadFromBytes_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_PARAPHRASE_PORT", "6001")

	data := `
server:
  port: ${TEST_PARAPHRASE_PORT:-5000}
  read_timeout: ${TEST_PARAPHRASE_UNSET:-5s}
  write_timeout: 5s
  max_text_bytes: 10
store:
  type: memory
`
	cfg, err := LoadFromBytes([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, 6001, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadFromBytes_EnvOverrides(t *testing.T) {
	t.Setenv("PARAPHRASE_TELEMETRY_LOG", "/tmp/paraphrase/telemetry.jsonl")
	t.Setenv("PARAPHRASE_STORE_DSN", "postgres://user@localhost/phrases")

	cfg, err := LoadFromBytes([]byte(validYAML))
	require.NoError(t, err)

	assert.True(t, cfg.Monitoring.TelemetryEnabled)
	assert.Equal(t, "/tmp/paraphrase/telemetry.jsonl", cfg.Monitoring.Telemetry().LogPath)
	assert.Equal(t, StorePostgres, cfg.Store.Type)
	assert.Equal(t, "postgres://user@localhost/phrases", cfg.Store.DSN)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadFromBytes([]byte(validYAML))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"missing port", func(c *Config) { c.Server.Port = 0 }, "server.port is required"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid server.port"},
		{"missing read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }, "server.read_timeout"},
		{"missing write timeout", func(c *Config) { c.Server.WriteTimeout = 0 }, "server.write_timeout"},
		{"negative rate", func(c *Config) { c.Server.RateLimit = -1 }, "rate_limit"},
		{"rate without burst", func(c *Config) { c.Server.RateBurst = 0 }, "rate_burst"},
		{"missing max text", func(c *Config) { c.Server.MaxTextBytes = 0 }, "max_text_bytes"},
		{"bad store", func(c *Config) { c.Store.Type = "mongo" }, "store"},
		{"sqlite without path", func(c *Config) { c.Store.Type = StoreSQLite }, "store.path"},
		{"redis without addr", func(c *Config) { c.Cache.Type = CacheRedis }, "cache.addr"},
		{"bad tokenizer", func(c *Config) { c.Tokenizer.Strategy = "words" }, "tokenizer"},
		{"bad log level", func(c *Config) { c.Monitoring.LogLevel = "loud" }, "log_level"},
		{"telemetry without path", func(c *Config) { c.Monitoring.TelemetryEnabled = true }, "telemetry_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0600))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Server.Port)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := LoadFromBytes([]byte("server: [unterminated"))
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestExpandEnvWithDefaults(t *testing.T) {
	t.Setenv("TEST_EXPAND_SET", "value")

	assert.Equal(t, "value", expandEnvWithDefaults("${TEST_EXPAND_SET}"))
	assert.Equal(t, "value", expandEnvWithDefaults("${TEST_EXPAND_SET:-other}"))
	assert.Equal(t, "fallback", expandEnvWithDefaults("${TEST_EXPAND_UNSET:-fallback}"))
	assert.Equal(t, "", expandEnvWithDefaults("${TEST_EXPAND_UNSET}"))
	assert.Equal(t, "a-value-b", expandEnvWithDefaults("a-${TEST_EXPAND_SET}-b"))
}
