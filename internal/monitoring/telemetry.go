// Package monitoring - telemetry.go records analytics events as JSONL.
//
// DESIGN: One JSON object per line, written through an unbuffered encoder so
// the file is always current:
//   - SimplificationEvent: one per Simplify call
//   - RuleChangeEvent:     one per catalog add/remove/reset
//
// The file is opened once and held until Close. Text payloads are dropped
// unless verbose_payloads is on.
package monitoring

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// Tracker appends telemetry events to a JSONL file and, optionally, the log.
// A nil or disabled Tracker ignores every call.
type Tracker struct {
	cfg     TelemetryConfig
	mu      sync.Mutex
	file    *os.File
	enc     *json.Encoder
	written int
	dropped int
}

// NewTracker opens the telemetry file when telemetry is enabled.
func NewTracker(cfg TelemetryConfig) (*Tracker, error) {
	t := &Tracker{cfg: cfg}
	if !cfg.Enabled || cfg.LogPath == "" {
		return t, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create telemetry dir: %w", err)
	}
	f, err := os.OpenFile(cfg.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry file: %w", err)
	}
	t.file = f
	t.enc = json.NewEncoder(f)
	return t, nil
}

// Enabled reports whether events are recorded at all.
func (t *Tracker) Enabled() bool {
	return t != nil && t.cfg.Enabled
}

// RecordSimplification records one simplification.
func (t *Tracker) RecordSimplification(event *SimplificationEvent) {
	if !t.Enabled() {
		return
	}
	event.Event = EventSimplification
	if !t.cfg.VerbosePayloads {
		event.OriginalText, event.SimplifiedText = "", ""
	}

	if t.cfg.LogToStdout {
		log.Info().
			Str("request_id", shortID(event.RequestID)).
			Str("source", string(event.Source)).
			Int("tokens_saved", event.TokensSaved).
			Float64("percent_saved", event.PercentSaved).
			Bool("cache_hit", event.CacheHit).
			Msg("telemetry")
	}
	t.append(event)
}

// RecordRuleChange records a catalog mutation.
func (t *Tracker) RecordRuleChange(event *RuleChangeEvent) {
	if !t.Enabled() {
		return
	}
	event.Event = EventRuleChange
	t.append(event)
}

func (t *Tracker) append(event any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enc == nil {
		return
	}
	if err := t.enc.Encode(event); err != nil {
		t.dropped++
		log.Error().Err(err).Str("path", t.cfg.LogPath).Msg("telemetry: failed to write event")
		return
	}
	t.written++
}

// Close flushes the file and logs a session summary. Further events are
// ignored.
func (t *Tracker) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}

	log.Info().
		Str("path", t.cfg.LogPath).
		Int("events", t.written).
		Int("dropped", t.dropped).
		Msg("telemetry: session complete")

	err := t.file.Close()
	t.file, t.enc = nil, nil
	return err
}

// shortID keeps log lines narrow; the full ID is in the JSONL file.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
