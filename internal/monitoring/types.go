// Package monitoring - types.go defines shared types.
//
// DESIGN: These types are used by gateway/, paraphrase/ and monitoring/.
// Defined here ONCE to avoid duplication and circular imports.
//
// TYPES:
//   - Source:               Which surface asked for a simplification
//   - SimplificationEvent:  Telemetry data for each simplification
//   - RuleChangeEvent:      Audit record for catalog mutations
//   - Config types:         TelemetryConfig, LoggerConfig, AlertConfig
package monitoring

import "time"

// =============================================================================
// SOURCES - Used by telemetry to tell callers apart
// =============================================================================

// Source identifies the surface a simplification came from.
type Source string

const (
	SourceHTTP      Source = "http"
	SourceWebSocket Source = "websocket"
	SourceCLI       Source = "cli"
)

// =============================================================================
// EVENT TYPES - Structured data for telemetry recording
// =============================================================================

// SimplificationEvent captures one simplification.
type SimplificationEvent struct {
	Event            string    `json:"event"`
	RequestID        string    `json:"request_id,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	Source           Source    `json:"source,omitempty"`
	Fingerprint      string    `json:"fingerprint"`
	UserRules        int       `json:"user_rules"`
	OriginalBytes    int       `json:"original_bytes"`
	SimplifiedBytes  int       `json:"simplified_bytes"`
	OriginalTokens   int       `json:"original_tokens"`
	SimplifiedTokens int       `json:"simplified_tokens"`
	TokensSaved      int       `json:"tokens_saved"`
	PercentSaved     float64   `json:"percent_saved"`
	Estimated        bool      `json:"estimated"`
	CacheHit         bool      `json:"cache_hit"`
	LatencyMs        int64     `json:"latency_ms"`
	// Payloads, only with TelemetryConfig.VerbosePayloads
	OriginalText   string `json:"original_text,omitempty"`
	SimplifiedText string `json:"simplified_text,omitempty"`
}

// RuleChangeEvent captures a catalog mutation.
type RuleChangeEvent struct {
	Event     string    `json:"event"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"` // add, remove, reset
	RuleID    string    `json:"rule_id,omitempty"`
	Original  string    `json:"original,omitempty"`
	Category  string    `json:"category,omitempty"`
	Count     int       `json:"count,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// Event names written in the "event" field.
const (
	EventSimplification = "simplification"
	EventRuleChange     = "rule_change"
)

// =============================================================================
// CONFIG TYPES
// =============================================================================

// TelemetryConfig contains telemetry configuration.
type TelemetryConfig struct {
	Enabled         bool   `yaml:"enabled"`
	LogPath         string `yaml:"log_path"`
	LogToStdout     bool   `yaml:"log_to_stdout"`
	VerbosePayloads bool   `yaml:"verbose_payloads"`
}

// LoggerConfig contains logging configuration.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// AlertConfig contains alert thresholds.
type AlertConfig struct {
	HighLatencyThreshold time.Duration `yaml:"high_latency_threshold"`
}
