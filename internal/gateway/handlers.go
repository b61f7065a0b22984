// HTTP handlers for the paraphrase API.
//
// DESIGN: Error mapping is fixed and never leaks internals:
//   - ValidationError, DuplicateRuleError -> 400 with the error message
//   - NotFoundError                       -> 404 with the error message
//   - anything else                       -> 500 "internal error"
//
// A failed simplification never returns a partial result.
package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/compresr/paraphrase-gateway/internal/monitoring"
	"github.com/compresr/paraphrase-gateway/internal/phrases"
)

// =============================================================================
// PARAPHRASE
// =============================================================================

func (g *Gateway) handleParaphrase(w http.ResponseWriter, r *http.Request) {
	requestID := monitoring.RequestIDFromContext(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, g.maxParaphraseBody()))
	if err != nil {
		g.alerts.FlagInvalidRequest(requestID, "body too large")
		g.writeError(w, "request body too large", http.StatusBadRequest)
		return
	}

	text, err := parseText(body)
	if err != nil {
		g.alerts.FlagInvalidRequest(requestID, err.Error())
		g.writeServiceError(w, r, err)
		return
	}

	if err := g.pool.acquire(r.Context()); err != nil {
		g.writeError(w, "request cancelled", http.StatusServiceUnavailable)
		return
	}
	defer g.pool.release()

	result, err := g.service.Simplify(r.Context(), text, monitoring.SourceHTTP)
	if err != nil {
		g.writeServiceError(w, r, err)
		return
	}
	g.writeJSON(w, http.StatusOK, result)
}

// parseText extracts the "text" field. The empty string is valid; a missing
// or non-string value is not.
func parseText(body []byte) (string, error) {
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return "", &phrases.ValidationError{Field: "body", Reason: "must be a JSON object"}
	}
	v := gjson.GetBytes(body, "text")
	if !v.Exists() {
		return "", &phrases.ValidationError{Field: "text", Reason: "is required"}
	}
	if v.Type != gjson.String {
		return "", &phrases.ValidationError{Field: "text", Reason: "must be a string"}
	}
	return v.String(), nil
}

// maxParaphraseBody allows for JSON escaping of a maximum-size text.
func (g *Gateway) maxParaphraseBody() int64 {
	return int64(g.config.Server.MaxTextBytes)*6 + 1024
}

// =============================================================================
// PHRASES
// =============================================================================

func (g *Gateway) handleListPhrases(w http.ResponseWriter, r *http.Request) {
	rules, err := g.service.ListRules(r.Context())
	if err != nil {
		g.writeServiceError(w, r, err)
		return
	}
	if rules == nil {
		rules = []phrases.Rule{}
	}
	g.writeJSON(w, http.StatusOK, PhraseListResponse{Count: len(rules), Data: rules})
}

func (g *Gateway) handleCreatePhrase(w http.ResponseWriter, r *http.Request) {
	var req PhraseRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPhraseBodyBytes)).Decode(&req); err != nil {
		g.alerts.FlagInvalidRequest(monitoring.RequestIDFromContext(r.Context()), err.Error())
		g.writeError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	rule, err := g.service.AddRule(r.Context(), req.toRule())
	if err != nil {
		g.writeServiceError(w, r, err)
		return
	}
	g.writeJSON(w, http.StatusCreated, DataResponse{Data: rule})
}

func (g *Gateway) handleDeletePhrase(w http.ResponseWriter, r *http.Request) {
	if err := g.service.RemoveRule(r.Context(), chi.URLParam(r, "id")); err != nil {
		g.writeServiceError(w, r, err)
		return
	}
	g.writeJSON(w, http.StatusOK, DataResponse{Data: struct{}{}})
}

// =============================================================================
// HEALTH / STATS
// =============================================================================

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	g.writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(g.startedAt).Round(time.Second).String(),
	})
}

func (g *Gateway) handleStats(w http.ResponseWriter, _ *http.Request) {
	g.writeJSON(w, http.StatusOK, StatsResponse{
		Stats:  g.metrics.Stats(),
		Alerts: g.alerts.Counts(),
		Pool:   PoolStats{Size: g.pool.size, InUse: g.pool.size - len(g.pool.slots)},
	})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// statusForError maps service errors to an HTTP status and a client message.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, phrases.ErrValidation), errors.Is(err, phrases.ErrDuplicateRule):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, phrases.ErrNotFound):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (g *Gateway) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusForError(err)
	if status == http.StatusInternalServerError {
		g.logger.ForRequest(r.Context()).Error().
			Err(err).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	g.writeError(w, msg, status)
}

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode response")
		g.writeError(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError writes {"error": msg}.
func (g *Gateway) writeError(w http.ResponseWriter, msg string, status int) {
	body, err := sjson.SetBytes([]byte(`{}`), "error", msg)
	if err != nil {
		body = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
