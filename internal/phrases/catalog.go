// Package phrases - catalog.go owns rule mutation and snapshotting.
//
// DESIGN: The catalog never holds rules itself. Every call goes to the
// RuleStore, so the store stays the single owner of persisted rules:
//   - Add/Remove/Reset: validate, then mutate the store
//   - List:             store order re-sorted by (category, original)
//   - Snapshot:         List + built-ins frozen into an immutable value
//
// Mutations are serialized by the catalog. Snapshots are never modified after
// creation, so a simplification holding one is unaffected by later mutations.
package phrases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// RuleStore is the persistence contract the catalog depends on.
// Implementations live in internal/store.
type RuleStore interface {
	// ListRules returns every stored rule.
	ListRules(ctx context.Context) ([]Rule, error)

	// CreateRule persists a rule. Returns ErrDuplicateRule if the case-folded
	// original already exists.
	CreateRule(ctx context.Context, rule Rule) (Rule, error)

	// DeleteRule removes a rule by ID. Returns ErrNotFound if absent.
	DeleteRule(ctx context.Context, id string) error

	// ReplaceRules atomically replaces every stored rule.
	ReplaceRules(ctx context.Context, rules []Rule) error
}

// Catalog validates mutations and hands out snapshots.
type Catalog struct {
	store    RuleStore
	builtins *Builtins
	now      func() time.Time

	mu   sync.Mutex
	last atomic.Pointer[Snapshot]
}

// NewCatalog creates a catalog over store using the default built-in groups.
func NewCatalog(store RuleStore) *Catalog {
	return NewCatalogWithBuiltins(store, DefaultBuiltins())
}

// NewCatalogWithBuiltins creates a catalog with a custom set of built-in groups.
func NewCatalogWithBuiltins(store RuleStore, builtins *Builtins) *Catalog {
	if builtins == nil {
		builtins = DefaultBuiltins()
	}
	return &Catalog{
		store:    store,
		builtins: builtins,
		now:      time.Now,
	}
}

// Add validates and persists a new rule, returning it with its ID assigned.
func (c *Catalog) Add(ctx context.Context, rule Rule) (Rule, error) {
	rule = rule.Trimmed()
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.store.ListRules(ctx)
	if err != nil {
		return Rule{}, fmt.Errorf("failed to list phrases: %w", err)
	}
	key := rule.Key()
	for _, r := range existing {
		if r.Key() == key {
			return Rule{}, &DuplicateRuleError{Original: rule.Original}
		}
	}

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = c.now().UTC()
	}

	created, err := c.store.CreateRule(ctx, rule)
	if err != nil {
		if errors.Is(err, ErrDuplicateRule) {
			return Rule{}, &DuplicateRuleError{Original: rule.Original}
		}
		return Rule{}, fmt.Errorf("failed to create phrase: %w", err)
	}
	return created, nil
}

// Remove deletes the rule with the given ID. A second call for the same ID
// fails with NotFoundError.
func (c *Catalog) Remove(ctx context.Context, id string) error {
	if id == "" {
		return &NotFoundError{ID: id}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.DeleteRule(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &NotFoundError{ID: id}
		}
		return fmt.Errorf("failed to delete phrase: %w", err)
	}
	return nil
}

// List returns every user rule ordered by (category, original).
func (c *Catalog) List(ctx context.Context) ([]Rule, error) {
	rules, err := c.store.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list phrases: %w", err)
	}
	SortRules(rules)
	return rules, nil
}

// Reset replaces every user rule with rules. The whole batch is validated
// first; nothing is written if any rule is invalid or duplicated.
func (c *Catalog) Reset(ctx context.Context, rules []Rule) error {
	prepared := make([]Rule, 0, len(rules))
	seen := make(map[string]bool, len(rules))
	now := c.now().UTC()

	for _, r := range rules {
		r = r.Trimmed()
		if err := r.Validate(); err != nil {
			return err
		}
		key := r.Key()
		if seen[key] {
			return &DuplicateRuleError{Original: r.Original}
		}
		seen[key] = true
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		prepared = append(prepared, r)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.ReplaceRules(ctx, prepared); err != nil {
		return fmt.Errorf("failed to replace phrases: %w", err)
	}
	return nil
}

// Snapshot reads the store once and returns an immutable view of the user
// rules plus the built-in groups. When nothing changed since the previous
// call the previous Snapshot is returned, so compiled patterns are reused.
func (c *Catalog) Snapshot(ctx context.Context) (*Snapshot, error) {
	rules, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	fp := fingerprint(rules)
	if prev := c.last.Load(); prev != nil && prev.fingerprint == fp {
		return prev, nil
	}

	snap := newSnapshot(rules, c.builtins, fp)
	c.last.Store(snap)
	return snap, nil
}
