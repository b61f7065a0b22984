// Package gateway exposes the paraphrase service over HTTP and WebSocket.
//
// DESIGN: The gateway is a thin transport. It parses requests, hands text
// and rule mutations to paraphrase.Service, and maps typed errors to status
// codes. It holds no simplification logic of its own.
//
// FILES:
//   - gateway.go:    Gateway struct, New(), Start(), Shutdown()
//   - router.go:     chi routes and the concurrency pool
//   - handlers.go:   Paraphrase, phrase CRUD, health and stats handlers
//   - websocket.go:  Simplify-over-WebSocket
//   - middleware.go: Panic recovery, rate limiting, logging, CORS
//   - types.go:      Request/response bodies
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/compresr/paraphrase-gateway/internal/config"
	"github.com/compresr/paraphrase-gateway/internal/monitoring"
	"github.com/compresr/paraphrase-gateway/internal/paraphrase"
)

// Header names.
const (
	HeaderRequestID = "X-Request-ID"
)

// Limits.
const (
	// MaxRateLimitBuckets caps the number of client IPs tracked at once.
	MaxRateLimitBuckets = 10000
	// DefaultMaxConcurrent is used when server.max_concurrent is 0.
	DefaultMaxConcurrent = 64
	// maxPhraseBodyBytes bounds a phrase create request.
	maxPhraseBodyBytes = 64 << 10
)

// Gateway serves the paraphrase API.
type Gateway struct {
	config         *config.Config
	service        *paraphrase.Service
	handler        http.Handler
	server         *http.Server
	pool           *Pool
	rateLimiter    *rateLimiter
	metrics        *monitoring.MetricsCollector
	alerts         *monitoring.AlertManager
	requestLogger  *monitoring.RequestLogger
	logger         *monitoring.Logger
	allowedOrigins []string
	startedAt      time.Time
}

// New creates a gateway around an assembled service. Metrics and alerts are
// shared with the service.
// logger may be nil, in which case request logs are discarded.
func New(cfg *config.Config, service *paraphrase.Service, logger *monitoring.Logger) *Gateway {
	if logger == nil {
		logger = monitoring.Nop()
	}
	logger = logger.Component("gateway")

	size := cfg.Server.MaxConcurrent
	if size <= 0 {
		size = DefaultMaxConcurrent
	}

	g := &Gateway{
		config:         cfg,
		service:        service,
		pool:           newPool(size),
		metrics:        service.Metrics(),
		alerts:         service.Alerts(),
		requestLogger:  monitoring.NewRequestLogger(logger),
		logger:         logger,
		allowedOrigins: cfg.Server.AllowedOrigins,
		startedAt:      time.Now(),
	}
	if cfg.Server.RateLimit > 0 {
		g.rateLimiter = newRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
	}
	g.handler = g.routes()
	return g
}

// Handler returns the root HTTP handler with all middleware applied.
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// Start listens on the configured port. It blocks until the server stops and
// returns nil after a graceful Shutdown.
func (g *Gateway) Start() error {
	g.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", g.config.Server.Port),
		Handler:           g.handler,
		ReadTimeout:       g.config.Server.ReadTimeout,
		ReadHeaderTimeout: g.config.Server.ReadTimeout,
		WriteTimeout:      g.config.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Int("port", g.config.Server.Port).Msg("gateway listening")

	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.rateLimiter != nil {
		g.rateLimiter.stop()
	}
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}
