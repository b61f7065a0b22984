// Package gateway types - request and response bodies.
//
// DESIGN: Field names follow the browser extension's wire format
// (camelCase, {data} envelopes for phrase routes, {error} on failure).
// The paraphrase request body is parsed with gjson instead of a struct so a
// non-string "text" can be told apart from a missing one.
package gateway

import (
	"strings"

	"github.com/compresr/paraphrase-gateway/internal/phrases"
)

// PhraseRequest is the body of POST /api/phrases.
type PhraseRequest struct {
	Original   string `json:"original"`
	Simplified string `json:"simplified"`
	Category   string `json:"category"`
}

// toRule builds the catalog rule. The catalog validates it, so an empty
// original is reported before an unknown category.
func (p PhraseRequest) toRule() phrases.Rule {
	return phrases.Rule{
		Original:   p.Original,
		Simplified: p.Simplified,
		Category:   phrases.Category(strings.ToLower(strings.TrimSpace(p.Category))),
	}
}

// PhraseListResponse is the body of GET /api/phrases.
type PhraseListResponse struct {
	Count int            `json:"count"`
	Data  []phrases.Rule `json:"data"`
}

// DataResponse wraps a single payload.
type DataResponse struct {
	Data any `json:"data"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	Stats  map[string]int64 `json:"stats"`
	Alerts map[string]int64 `json:"alerts"`
	Pool   PoolStats        `json:"pool"`
}

// PoolStats reports simplification slot usage.
type PoolStats struct {
	Size  int `json:"size"`
	InUse int `json:"inUse"`
}
