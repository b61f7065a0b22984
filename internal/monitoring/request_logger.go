// Package monitoring - request_logger.go logs HTTP request lifecycle.
//
// DESIGN: Structured logging for request tracing at DEBUG level:
//   - LogIncoming:        Request received from client
//   - LogResponse:        Response sent to client
//   - LogSimplification:  Simplification details
package monitoring

import (
	"net/http"
	"time"
)

// RequestLogger logs HTTP request lifecycle events.
type RequestLogger struct {
	logger *Logger
}

// NewRequestLogger creates a new request logger.
func NewRequestLogger(logger *Logger) *RequestLogger {
	return &RequestLogger{logger: logger}
}

// RequestInfo describes a request as it arrives.
type RequestInfo struct {
	RequestID string
	Method    string
	Path      string
	ClientIP  string
	Origin    string // browser extension or page that sent it
	BodySize  int
}

// NewRequestInfo creates RequestInfo from an HTTP request. A negative
// Content-Length (unknown) is logged as 0.
func NewRequestInfo(r *http.Request, requestID, clientIP string) *RequestInfo {
	size := int(r.ContentLength)
	if size < 0 {
		size = 0
	}
	return &RequestInfo{
		RequestID: requestID,
		Method:    r.Method,
		Path:      r.URL.Path,
		ClientIP:  clientIP,
		Origin:    r.Header.Get("Origin"),
		BodySize:  size,
	}
}

// LogIncoming logs an incoming request.
func (rl *RequestLogger) LogIncoming(info *RequestInfo) {
	event := rl.logger.Debug().
		Str("request_id", info.RequestID).
		Str("method", info.Method).
		Str("path", info.Path).
		Str("client_ip", info.ClientIP).
		Int("body_size", info.BodySize)
	if info.Origin != "" {
		event = event.Str("origin", info.Origin)
	}
	event.Msg("incoming")
}

// ResponseInfo describes the response sent back.
type ResponseInfo struct {
	RequestID    string
	StatusCode   int
	ResponseSize int
	Latency      time.Duration
}

// LogResponse logs a response. Server errors are logged at WARN so they
// show up without debug logging.
func (rl *RequestLogger) LogResponse(info *ResponseInfo) {
	event := rl.logger.Debug()
	if info.StatusCode >= http.StatusInternalServerError {
		event = rl.logger.Warn()
	}
	event.
		Str("request_id", info.RequestID).
		Int("status", info.StatusCode).
		Int("response_size", info.ResponseSize).
		Dur("latency", info.Latency).
		Msg("response")
}

// SimplificationInfo contains simplification information.
type SimplificationInfo struct {
	RequestID        string
	Fingerprint      string
	OriginalTokens   int
	SimplifiedTokens int
	PercentSaved     float64
	CacheHit         bool
	Estimated        bool
	Duration         time.Duration
}

// LogSimplification logs a simplification.
func (rl *RequestLogger) LogSimplification(info *SimplificationInfo) {
	event := rl.logger.Debug().
		Str("request_id", info.RequestID).
		Str("fingerprint", info.Fingerprint).
		Int("original", info.OriginalTokens).
		Int("simplified", info.SimplifiedTokens).
		Float64("percent_saved", info.PercentSaved).
		Bool("cache_hit", info.CacheHit).
		Dur("duration", info.Duration)
	if info.Estimated {
		event = event.Bool("estimated", true)
	}
	event.Msg("simplification")
}
