// Package config loads and validates the gateway configuration.
//
// DESIGN: All configuration comes from YAML files. The binary embeds a
// complete default file, so every field is explicit and auditable; Validate
// rejects anything missing instead of guessing.
//
// FILES:
//   - config.go:     Root Config struct, Load(), Validate()
//   - components.go: Store, cache and tokenizer config re-exports
//   - monitoring.go: Logging and telemetry settings
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the Paraphrase Gateway.
type Config struct {
	Server     ServerConfig     `yaml:"server"`     // HTTP server settings
	Store      StoreConfig      `yaml:"store"`      // Phrase rule storage
	Cache      CacheConfig      `yaml:"cache"`      // Result cache
	Engine     EngineConfig     `yaml:"engine"`     // Simplification engine
	Tokenizer  TokenizerConfig  `yaml:"tokenizer"`  // Token counting
	Monitoring MonitoringConfig `yaml:"monitoring"` // Telemetry and logging
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // Port to listen on
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // Max time to read request
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // Max time to write response
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // Grace period for in-flight requests
	RateLimit       float64       `yaml:"rate_limit"`       // Requests per second per client IP
	RateBurst       int           `yaml:"rate_burst"`       // Burst size per client IP
	MaxTextBytes    int           `yaml:"max_text_bytes"`   // Largest accepted input text
	MaxConcurrent   int           `yaml:"max_concurrent"`   // Simplifications running at once, 0 = default
	AllowedOrigins  []string      `yaml:"allowed_origins"`  // Extra CORS origins (prefix match)
}

// EngineConfig contains simplification engine settings.
type EngineConfig struct {
	PassiveVoice bool `yaml:"passive_voice"` // Enable the passive-to-active heuristic
}

// envPattern matches ${VAR} and ${VAR:-default}. Bare $VAR is left alone so
// DSNs and passwords containing '$' survive.
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnvWithDefaults substitutes environment references. An unset or
// empty variable takes the default, or "" without one.
func expandEnvWithDefaults(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(ref string) string {
		m := envPattern.FindStringSubmatch(ref)
		if v := os.Getenv(m[1]); v != "" {
			return v
		}
		return m[2]
	})
}

// Load reads configuration from a YAML file.
// Returns an error if the file doesn't exist or is invalid.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML bytes.
// Supports ${VAR:-default} env var expansion, env overrides, and validation.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvWithDefaults(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides lets deployments redirect telemetry and storage without
// editing the config file.
func (c *Config) applyEnvOverrides() {
	// PARAPHRASE_TELEMETRY_LOG overrides the telemetry log path and enables telemetry
	if envPath := os.Getenv("PARAPHRASE_TELEMETRY_LOG"); envPath != "" {
		c.Monitoring.TelemetryPath = envPath
		c.Monitoring.TelemetryEnabled = true
	}

	// PARAPHRASE_STORE_DSN points the store at PostgreSQL
	if dsn := os.Getenv("PARAPHRASE_STORE_DSN"); dsn != "" {
		c.Store.Type = StorePostgres
		c.Store.DSN = dsn
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ReadTimeout == 0 {
		return fmt.Errorf("server.read_timeout is required")
	}
	if c.Server.WriteTimeout == 0 {
		return fmt.Errorf("server.write_timeout is required")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return fmt.Errorf("server.rate_burst must be at least 1 when rate_limit is set")
	}
	if c.Server.MaxTextBytes <= 0 {
		return fmt.Errorf("server.max_text_bytes is required")
	}
	if c.Server.MaxConcurrent < 0 {
		return fmt.Errorf("server.max_concurrent must not be negative")
	}

	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Tokenizer.Validate(); err != nil {
		return err
	}
	return c.Monitoring.Validate()
}
