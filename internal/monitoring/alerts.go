// Package monitoring - alerts.go flags conditions an operator should see.
//
// DESIGN: Every alert has a kind, is logged once at the kind's level and is
// counted. The counts are served next to the metrics on /api/stats so a
// rising fallback or store failure rate is visible without reading logs.
//
//	kind                 level  when
//	high_latency         warn   request slower than the threshold
//	token_count_estimated warn  counts came from the estimator
//	store_failed         error  rule store read or write failed
//	invalid_request      debug  input rejected
//	panic_recovered      error  handler panicked
package monitoring

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AlertKind names a class of alert.
type AlertKind string

const (
	AlertHighLatency     AlertKind = "high_latency"
	AlertCounterFallback AlertKind = "token_count_estimated"
	AlertStoreFailure    AlertKind = "store_failed"
	AlertInvalidRequest  AlertKind = "invalid_request"
	AlertPanic           AlertKind = "panic_recovered"
)

// DefaultHighLatencyThreshold applies when AlertConfig leaves it at zero.
const DefaultHighLatencyThreshold = time.Second

// AlertManager logs and counts alerts. Safe for concurrent use.
type AlertManager struct {
	logger    *Logger
	threshold time.Duration

	mu     sync.Mutex
	counts map[AlertKind]int64
}

// NewAlertManager creates an alert manager writing to logger.
func NewAlertManager(logger *Logger, cfg AlertConfig) *AlertManager {
	if logger == nil {
		logger = Nop()
	}
	threshold := cfg.HighLatencyThreshold
	if threshold <= 0 {
		threshold = DefaultHighLatencyThreshold
	}
	return &AlertManager{
		logger:    logger,
		threshold: threshold,
		counts:    make(map[AlertKind]int64),
	}
}

// raise counts kind and returns a log event at level carrying the request ID.
func (am *AlertManager) raise(kind AlertKind, level zerolog.Level, requestID string) *zerolog.Event {
	am.mu.Lock()
	am.counts[kind]++
	am.mu.Unlock()

	var event *zerolog.Event
	switch level {
	case zerolog.ErrorLevel:
		event = am.logger.Error()
	case zerolog.WarnLevel:
		event = am.logger.Warn()
	default:
		event = am.logger.Debug()
	}
	if requestID != "" {
		event = event.Str("request_id", requestID)
	}
	return event
}

// FlagHighLatency alerts when latency reaches the threshold.
func (am *AlertManager) FlagHighLatency(requestID string, latency time.Duration, path string) {
	if latency < am.threshold {
		return
	}
	am.raise(AlertHighLatency, zerolog.WarnLevel, requestID).
		Dur("latency", latency).
		Dur("threshold", am.threshold).
		Str("path", path).
		Msg(string(AlertHighLatency))
}

// FlagCounterFallback alerts on a result whose token counts are estimates.
func (am *AlertManager) FlagCounterFallback(requestID string) {
	am.raise(AlertCounterFallback, zerolog.WarnLevel, requestID).
		Msg(string(AlertCounterFallback))
}

// FlagStoreFailure alerts on a failed rule store operation.
func (am *AlertManager) FlagStoreFailure(requestID, op string, err error) {
	am.raise(AlertStoreFailure, zerolog.ErrorLevel, requestID).
		Str("op", op).
		Err(err).
		Msg(string(AlertStoreFailure))
}

// FlagInvalidRequest records rejected input.
func (am *AlertManager) FlagInvalidRequest(requestID, reason string) {
	am.raise(AlertInvalidRequest, zerolog.DebugLevel, requestID).
		Str("reason", reason).
		Msg(string(AlertInvalidRequest))
}

// FlagPanic alerts on a recovered panic.
func (am *AlertManager) FlagPanic(requestID string, value any, stack string) {
	am.raise(AlertPanic, zerolog.ErrorLevel, requestID).
		Interface("panic", value).
		Str("stack", stack).
		Msg(string(AlertPanic))
}

// Counts returns the number of alerts raised per kind.
func (am *AlertManager) Counts() map[string]int64 {
	am.mu.Lock()
	defer am.mu.Unlock()
	out := make(map[string]int64, len(am.counts))
	for kind, n := range am.counts {
		out[string(kind)] = n
	}
	return out
}
