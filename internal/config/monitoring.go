// Monitoring configuration - telemetry and logging settings.
//
// DESIGN: Separates logging (zerolog) from telemetry (JSONL files).
// Logging is for operators, telemetry is for analytics/debugging.
package config

import (
	"fmt"
	"time"

	"github.com/compresr/paraphrase-gateway/internal/monitoring"
)

// MonitoringConfig contains all monitoring settings.
type MonitoringConfig struct {
	// Logging settings
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // json, console
	LogOutput string `yaml:"log_output"` // stdout, stderr, or file path

	// Telemetry settings
	TelemetryEnabled bool   `yaml:"telemetry_enabled"` // Enable telemetry tracking
	TelemetryPath    string `yaml:"telemetry_path"`    // Path to telemetry JSONL file
	LogToStdout      bool   `yaml:"log_to_stdout"`     // Also log telemetry to stdout
	VerbosePayloads  bool   `yaml:"verbose_payloads"`  // Log original and simplified text

	// Alerts
	HighLatencyThreshold time.Duration `yaml:"high_latency_threshold"` // Warn above this request latency
}

// Logger returns the zerolog settings.
func (m MonitoringConfig) Logger() monitoring.LoggerConfig {
	return monitoring.LoggerConfig{Level: m.LogLevel, Format: m.LogFormat, Output: m.LogOutput}
}

// Telemetry returns the JSONL telemetry settings.
func (m MonitoringConfig) Telemetry() monitoring.TelemetryConfig {
	return monitoring.TelemetryConfig{
		Enabled:         m.TelemetryEnabled,
		LogPath:         m.TelemetryPath,
		LogToStdout:     m.LogToStdout,
		VerbosePayloads: m.VerbosePayloads,
	}
}

// Alerts returns the alert thresholds.
func (m MonitoringConfig) Alerts() monitoring.AlertConfig {
	return monitoring.AlertConfig{HighLatencyThreshold: m.HighLatencyThreshold}
}

// Validate checks the monitoring settings.
func (m MonitoringConfig) Validate() error {
	switch m.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid monitoring.log_level: %q", m.LogLevel)
	}
	switch m.LogFormat {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid monitoring.log_format: %q (must be json or console)", m.LogFormat)
	}
	if m.TelemetryEnabled && m.TelemetryPath == "" && !m.LogToStdout {
		return fmt.Errorf("monitoring.telemetry_path is required when telemetry is enabled")
	}
	return nil
}
