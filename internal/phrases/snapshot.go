package phrases

import (
	"crypto/sha256"
	"encoding/hex"
)

// Snapshot is an immutable, point-in-time view of the catalog.
// Nothing in a Snapshot changes after creation; accessors return copies.
type Snapshot struct {
	fingerprint string
	rules       []Rule
	builtins    *Builtins
}

// NewSnapshot builds a snapshot from rules in the order given.
// A nil builtins uses DefaultBuiltins.
func NewSnapshot(rules []Rule, builtins *Builtins) *Snapshot {
	return newSnapshot(rules, builtins, fingerprint(rules))
}

func newSnapshot(rules []Rule, builtins *Builtins, fp string) *Snapshot {
	if builtins == nil {
		builtins = DefaultBuiltins()
	}
	frozen := make([]Rule, len(rules))
	copy(frozen, rules)
	return &Snapshot{
		fingerprint: fp,
		rules:       frozen,
		builtins:    builtins,
	}
}

// Fingerprint identifies the user rule set. Equal fingerprints mean equal
// rules in equal order.
func (s *Snapshot) Fingerprint() string { return s.fingerprint }

// Len returns the number of user rules.
func (s *Snapshot) Len() int { return len(s.rules) }

// Rules returns a copy of the user rules in application order.
func (s *Snapshot) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Builtins returns the built-in groups. Callers must treat them as read-only.
func (s *Snapshot) Builtins() *Builtins { return s.builtins }

// fingerprint hashes the ordered rule contents (16 hex chars).
func fingerprint(rules []Rule) string {
	h := sha256.New()
	for _, r := range rules {
		h.Write([]byte(r.ID))
		h.Write([]byte{0})
		h.Write([]byte(r.Original))
		h.Write([]byte{0})
		h.Write([]byte(r.Simplified))
		h.Write([]byte{0})
		h.Write([]byte(r.Category))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
