// Package phrases defines phrase rules and the rule catalog.
//
// DESIGN: A Rule maps an original phrase to a simplified one inside a fixed
// category. Rules are user-editable and persisted by a RuleStore. The built-in
// rule groups (builtin.go) are immutable and combined with the user rules into
// a Snapshot, which is what the simplification engine consumes.
//
// FILES:
//   - rule.go:     Rule, Category, validation
//   - errors.go:   Typed errors (validation, duplicate, not found)
//   - catalog.go:  Catalog mutation and snapshotting over a RuleStore
//   - snapshot.go: Immutable point-in-time view of the catalog
//   - builtin.go:  Built-in courtesy/filler/verbose/... tables
//   - seed.go:     YAML seed files and fsnotify reloading
package phrases

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Category groups rules by the kind of rewrite they perform.
type Category string

const (
	CategoryCourtesy    Category = "courtesy"
	CategoryContraction Category = "contraction"
	CategoryVerbose     Category = "verbose"
	CategoryFiller      Category = "filler"
)

// Categories lists every accepted category.
var Categories = []Category{CategoryCourtesy, CategoryContraction, CategoryVerbose, CategoryFiller}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryCourtesy, CategoryContraction, CategoryVerbose, CategoryFiller:
		return true
	}
	return false
}

// ParseCategory converts s into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", s)}
	}
	return c, nil
}

// Rule is a single original -> simplified mapping.
// An empty Simplified value makes it a deletion rule.
type Rule struct {
	ID         string    `json:"id" yaml:"id,omitempty"`
	Original   string    `json:"original" yaml:"original"`
	Simplified string    `json:"simplified" yaml:"simplified"`
	Category   Category  `json:"category" yaml:"category"`
	CreatedAt  time.Time `json:"createdAt" yaml:"-"`
}

// IsDeletion reports whether the rule removes its phrase instead of replacing it.
func (r Rule) IsDeletion() bool {
	return r.Simplified == ""
}

// Key returns the case-folded form of Original used for duplicate detection.
func (r Rule) Key() string {
	return FoldKey(r.Original)
}

// Validate checks the rule before it is accepted by the catalog.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Original) == "" {
		return &ValidationError{Field: "original", Reason: "must not be empty"}
	}
	if !r.Category.Valid() {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", r.Category)}
	}
	return nil
}

// Trimmed returns r with surrounding whitespace removed from both phrases.
func (r Rule) Trimmed() Rule {
	r.Original = strings.TrimSpace(r.Original)
	r.Simplified = strings.TrimSpace(r.Simplified)
	return r
}

// FoldKey case-folds a phrase so "Cannot" and "cannot" collide.
// A new Caser is built per call since Casers are not safe for concurrent use.
func FoldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// SortRules orders rules by (category, original), stable for equal keys.
func SortRules(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Category != rules[j].Category {
			return rules[i].Category < rules[j].Category
		}
		return rules[i].Original < rules[j].Original
	})
}
