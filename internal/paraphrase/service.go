// Package paraphrase composes the catalog, engine, normalizer and token
// metrics into the simplify operation the transports expose.
//
// DESIGN: One call runs:
//
//	validate -> catalog snapshot -> cache lookup -> engine -> normalize
//	         -> token metrics -> cache store -> metrics/telemetry
//
// The snapshot is taken once per call, so rules added or removed while a
// call is running never affect it. Results are cached under the snapshot
// fingerprint, engine signature and counter identity, so neither a catalog
// change nor a differently configured instance sharing the cache serves a
// result this instance would not produce. Results with
// estimated token counts are not cached: the counter may recover later.
package paraphrase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/compresr/paraphrase-gateway/internal/cache"
	"github.com/compresr/paraphrase-gateway/internal/monitoring"
	"github.com/compresr/paraphrase-gateway/internal/phrases"
	"github.com/compresr/paraphrase-gateway/internal/simplify"
	"github.com/compresr/paraphrase-gateway/internal/tokens"
)

// DefaultMaxTextBytes bounds a single input when Config leaves it unset.
const DefaultMaxTextBytes = 1 << 20

// Result is the outcome of one simplification.
type Result struct {
	SimplifiedText string         `json:"simplifiedText"`
	TokenMetrics   tokens.Metrics `json:"tokenMetrics"`
}

// Config holds service limits.
type Config struct {
	MaxTextBytes int
}

// Deps are the collaborators of a Service. Catalog is required; the rest
// default to built-in engine options, the estimator, no cache and no
// telemetry.
type Deps struct {
	Catalog *phrases.Catalog
	Engine  *simplify.Engine
	Counter tokens.Counter
	Cache   cache.Cache
	Metrics *monitoring.MetricsCollector
	Tracker *monitoring.Tracker
	Alerts  *monitoring.AlertManager
	Logger  *monitoring.RequestLogger
}

// Service runs simplifications and catalog mutations.
type Service struct {
	cfg     Config
	catalog *phrases.Catalog
	engine  *simplify.Engine
	counter tokens.Counter
	cache   cache.Cache
	metrics *monitoring.MetricsCollector
	tracker *monitoring.Tracker
	alerts  *monitoring.AlertManager
	logger  *monitoring.RequestLogger
	now     func() time.Time
}

// New creates a Service.
func New(cfg Config, deps Deps) *Service {
	if cfg.MaxTextBytes <= 0 {
		cfg.MaxTextBytes = DefaultMaxTextBytes
	}
	s := &Service{
		cfg:     cfg,
		catalog: deps.Catalog,
		engine:  deps.Engine,
		counter: deps.Counter,
		cache:   deps.Cache,
		metrics: deps.Metrics,
		tracker: deps.Tracker,
		alerts:  deps.Alerts,
		logger:  deps.Logger,
		now:     time.Now,
	}
	if s.engine == nil {
		s.engine = simplify.NewEngine(simplify.DefaultOptions())
	}
	if s.counter == nil {
		s.counter = tokens.Estimator
	}
	if s.cache == nil {
		s.cache = cache.Nop{}
	}
	if s.metrics == nil {
		s.metrics = monitoring.NewMetricsCollector()
	}
	if s.alerts == nil {
		s.alerts = monitoring.NewAlertManager(monitoring.Nop(), monitoring.AlertConfig{})
	}
	if s.logger == nil {
		s.logger = monitoring.NewRequestLogger(monitoring.Nop())
	}
	return s
}

// Metrics returns the collector the service records into.
func (s *Service) Metrics() *monitoring.MetricsCollector { return s.metrics }

// Alerts returns the alert manager the service raises alerts on.
func (s *Service) Alerts() *monitoring.AlertManager { return s.alerts }

// Catalog returns the underlying catalog.
func (s *Service) Catalog() *phrases.Catalog { return s.catalog }

// =============================================================================
// SIMPLIFY
// =============================================================================

// Simplify rewrites text with the current catalog and reports token savings.
// Empty text returns an empty result with zero metrics.
func (s *Service) Simplify(ctx context.Context, text string, source monitoring.Source) (Result, error) {
	if err := s.validate(text); err != nil {
		s.alerts.FlagInvalidRequest(monitoring.RequestIDFromContext(ctx), err.Error())
		return Result{}, err
	}
	if text == "" {
		return Result{}, nil
	}

	start := s.now()
	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		s.alerts.FlagStoreFailure(monitoring.RequestIDFromContext(ctx), "snapshot", err)
		return Result{}, fmt.Errorf("failed to load phrases: %w", err)
	}

	key := cache.Key(s.cacheScope(snap), text)
	result, hit := s.lookup(ctx, key)
	if !hit {
		result = Run(s.engine, snap, s.counter, text)
		if !result.TokenMetrics.Estimated {
			s.store(ctx, key, result)
		}
	}

	s.record(ctx, snap, text, result, hit, source, s.now().Sub(start))
	return result, nil
}

// Run is the pure pipeline: engine, normalizer, token metrics. It does not
// touch the catalog, the cache or telemetry.
func Run(engine *simplify.Engine, snap *phrases.Snapshot, counter tokens.Counter, text string) Result {
	if text == "" {
		return Result{}
	}
	simplified := simplify.Normalize(engine.Simplify(text, snap))
	return Result{
		SimplifiedText: simplified,
		TokenMetrics:   tokens.Compute(text, simplified, counter),
	}
}

// cacheScope names everything that decides a result for snap.
func (s *Service) cacheScope(snap *phrases.Snapshot) string {
	return snap.Fingerprint() + "/" + s.engine.Signature(snap) + "/" + tokens.Identity(s.counter)
}

func (s *Service) validate(text string) error {
	if len(text) > s.cfg.MaxTextBytes {
		return &phrases.ValidationError{
			Field:  "text",
			Reason: fmt.Sprintf("exceeds %d bytes", s.cfg.MaxTextBytes),
		}
	}
	if !utf8.ValidString(text) {
		return &phrases.ValidationError{Field: "text", Reason: "must be valid UTF-8"}
	}
	return nil
}

// lookup reads a cached result. Cache errors are logged and treated as a miss.
func (s *Service) lookup(ctx context.Context, key string) (Result, bool) {
	if _, disabled := s.cache.(cache.Nop); disabled {
		return Result{}, false
	}

	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("result cache read failed")
	}
	if err != nil || !ok {
		s.metrics.RecordCacheMiss()
		return Result{}, false
	}

	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		log.Warn().Err(err).Msg("discarding corrupt cache entry")
		s.metrics.RecordCacheMiss()
		return Result{}, false
	}
	s.metrics.RecordCacheHit()
	return r, true
}

func (s *Service) store(ctx context.Context, key string, r Result) {
	if _, disabled := s.cache.(cache.Nop); disabled {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		log.Warn().Err(err).Msg("result cache write failed")
	}
}

func (s *Service) record(ctx context.Context, snap *phrases.Snapshot, text string, r Result, hit bool, source monitoring.Source, latency time.Duration) {
	requestID := monitoring.RequestIDFromContext(ctx)
	m := r.TokenMetrics

	s.metrics.RecordSimplification(m.TokensSaved, m.Estimated)
	if m.Estimated {
		s.alerts.FlagCounterFallback(requestID)
	}

	s.logger.LogSimplification(&monitoring.SimplificationInfo{
		RequestID:        requestID,
		Fingerprint:      snap.Fingerprint(),
		OriginalTokens:   m.OriginalTokenCount,
		SimplifiedTokens: m.SimplifiedTokenCount,
		PercentSaved:     m.PercentSaved,
		CacheHit:         hit,
		Estimated:        m.Estimated,
		Duration:         latency,
	})

	if !s.tracker.Enabled() {
		return
	}
	s.tracker.RecordSimplification(&monitoring.SimplificationEvent{
		RequestID:        requestID,
		Timestamp:        s.now().UTC(),
		Source:           source,
		Fingerprint:      snap.Fingerprint(),
		UserRules:        snap.Len(),
		OriginalBytes:    len(text),
		SimplifiedBytes:  len(r.SimplifiedText),
		OriginalTokens:   m.OriginalTokenCount,
		SimplifiedTokens: m.SimplifiedTokenCount,
		TokensSaved:      m.TokensSaved,
		PercentSaved:     m.PercentSaved,
		Estimated:        m.Estimated,
		CacheHit:         hit,
		LatencyMs:        latency.Milliseconds(),
		OriginalText:     text,
		SimplifiedText:   r.SimplifiedText,
	})
}
