// Package store provides phrase rule storage for the catalog.
//
// DESIGN: Every backend implements phrases.RuleStore plus Close:
//   - MemoryStore: process-local map, default for tests and single runs
//   - SQLStore:    database/sql via sqlx, SQLite (modernc, no CGO) or PostgreSQL
//
// Stores enforce uniqueness of the case-folded original and report it as
// phrases.ErrDuplicateRule; unknown IDs are phrases.ErrNotFound.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/compresr/paraphrase-gateway/internal/phrases"
)

// Store types accepted by New.
const (
	TypeMemory   = "memory"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Store is a phrase rule backend.
type Store interface {
	phrases.RuleStore

	// Close releases resources.
	Close() error
}

// Config selects and configures a store backend.
type Config struct {
	Type         string `yaml:"type"`           // memory | sqlite | postgres
	Path         string `yaml:"path"`           // SQLite database file
	DSN          string `yaml:"dsn"`            // PostgreSQL connection string
	MaxOpenConns int    `yaml:"max_open_conns"` // SQL connection pool size
	SeedFile     string `yaml:"seed_file"`      // YAML seed applied when the store is empty
	WatchSeed    bool   `yaml:"watch_seed"`     // Re-seed when seed_file changes
}

// Validate checks the store config.
func (c Config) Validate() error {
	switch c.Type {
	case TypeMemory:
	case TypeSQLite:
		if c.Path == "" {
			return fmt.Errorf("store.path is required when store.type=sqlite")
		}
	case TypePostgres:
		if c.DSN == "" {
			return fmt.Errorf("store.dsn is required when store.type=postgres")
		}
	case "":
		return fmt.Errorf("store.type is required")
	default:
		return fmt.Errorf("store: unknown type %q, must be 'memory', 'sqlite', or 'postgres'", c.Type)
	}
	if c.WatchSeed && c.SeedFile == "" {
		return fmt.Errorf("store.seed_file is required when store.watch_seed is enabled")
	}
	return nil
}

// New opens the configured store.
func New(cfg Config) (Store, error) {
	switch cfg.Type {
	case TypeMemory:
		return NewMemoryStore(), nil
	case TypeSQLite, TypePostgres:
		return OpenSQL(cfg)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemoryStore is an in-memory Store. Rules are listed in insertion order.
type MemoryStore struct {
	mu     sync.RWMutex
	rules  map[string]phrases.Rule // id -> rule
	keys   map[string]string       // folded original -> id
	order  []string                // ids in insertion order
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rules: make(map[string]phrases.Rule),
		keys:  make(map[string]string),
	}
}

// ListRules returns every rule in insertion order.
func (s *MemoryStore) ListRules(_ context.Context) ([]phrases.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]phrases.Rule, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rules[id])
	}
	return out, nil
}

// CreateRule stores rule, rejecting duplicate originals and IDs.
func (s *MemoryStore) CreateRule(_ context.Context, rule phrases.Rule) (phrases.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return phrases.Rule{}, fmt.Errorf("store is closed")
	}
	key := rule.Key()
	if _, exists := s.keys[key]; exists {
		return phrases.Rule{}, phrases.ErrDuplicateRule
	}
	if _, exists := s.rules[rule.ID]; exists {
		return phrases.Rule{}, phrases.ErrDuplicateRule
	}

	s.rules[rule.ID] = rule
	s.keys[key] = rule.ID
	s.order = append(s.order, rule.ID)
	return rule, nil
}

// DeleteRule removes a rule by ID.
func (s *MemoryStore) DeleteRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, exists := s.rules[id]
	if !exists {
		return phrases.ErrNotFound
	}
	delete(s.rules, id)
	delete(s.keys, rule.Key())
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// ReplaceRules swaps the whole rule set under one lock.
func (s *MemoryStore) ReplaceRules(_ context.Context, rules []phrases.Rule) error {
	byID := make(map[string]phrases.Rule, len(rules))
	keys := make(map[string]string, len(rules))
	order := make([]string, 0, len(rules))
	for _, r := range rules {
		key := r.Key()
		if _, exists := keys[key]; exists {
			return phrases.ErrDuplicateRule
		}
		if _, exists := byID[r.ID]; exists {
			return phrases.ErrDuplicateRule
		}
		byID[r.ID] = r
		keys[key] = r.ID
		order = append(order, r.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}
	s.rules, s.keys, s.order = byID, keys, order
	return nil
}

// Close drops all rules. Further writes fail.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		s.rules = make(map[string]phrases.Rule)
		s.keys = make(map[string]string)
		s.order = nil
	}
	return nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
