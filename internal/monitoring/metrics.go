// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - requests/successes:  Total and successful HTTP/WS request counts
//   - simplifications:     Completed simplifications and the tokens they saved
//   - estimated:           Results whose counts came from the estimator
//   - cache_hits/misses:   Result cache performance
//   - rule_changes:        Catalog mutations
package monitoring

import (
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	requests        atomic.Int64
	successes       atomic.Int64
	simplifications atomic.Int64
	tokensSaved     atomic.Int64
	estimated       atomic.Int64
	cacheHits       atomic.Int64
	cacheMisses     atomic.Int64
	ruleChanges     atomic.Int64
	latencyNanos    atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RecordRequest records a request.
func (mc *MetricsCollector) RecordRequest(success bool, latency time.Duration) {
	mc.requests.Add(1)
	mc.latencyNanos.Add(int64(latency))
	if success {
		mc.successes.Add(1)
	}
}

// RecordSimplification records a completed simplification.
func (mc *MetricsCollector) RecordSimplification(tokensSaved int, estimated bool) {
	mc.simplifications.Add(1)
	mc.tokensSaved.Add(int64(tokensSaved))
	if estimated {
		mc.estimated.Add(1)
	}
}

// RecordCacheHit records a cache hit.
func (mc *MetricsCollector) RecordCacheHit() { mc.cacheHits.Add(1) }

// RecordCacheMiss records a cache miss.
func (mc *MetricsCollector) RecordCacheMiss() { mc.cacheMisses.Add(1) }

// RecordRuleChange records a catalog mutation.
func (mc *MetricsCollector) RecordRuleChange() { mc.ruleChanges.Add(1) }

// Stats returns current metrics.
func (mc *MetricsCollector) Stats() map[string]int64 {
	requests := mc.requests.Load()
	var avgLatencyMs int64
	if requests > 0 {
		avgLatencyMs = time.Duration(mc.latencyNanos.Load() / requests).Milliseconds()
	}
	return map[string]int64{
		"requests":        requests,
		"successes":       mc.successes.Load(),
		"simplifications": mc.simplifications.Load(),
		"tokens_saved":    mc.tokensSaved.Load(),
		"estimated":       mc.estimated.Load(),
		"cache_hits":      mc.cacheHits.Load(),
		"cache_misses":    mc.cacheMisses.Load(),
		"rule_changes":    mc.ruleChanges.Load(),
		"avg_latency_ms":  avgLatencyMs,
	}
}
