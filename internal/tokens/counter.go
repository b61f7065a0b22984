// Package tokens counts tokens and computes before/after savings.
//
// DESIGN: Counting is pluggable. The metrics calculator only sees the
// Counter interface; the composition root picks the implementation:
//   - Estimator: ceil(runes/4), no dependencies, never fails
//   - Tiktoken:  exact BPE counts via tiktoken-go (cl100k_base by default)
package tokens

import (
	"fmt"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Strategy names accepted by New.
const (
	StrategyTiktoken = "tiktoken"
	StrategyEstimate = "estimate"
)

// DefaultEncoding is used when neither an encoding nor a model is configured.
const DefaultEncoding = "cl100k_base"

// Counter returns the number of tokens in text.
// Implementations must be deterministic for identical input.
type Counter interface {
	Count(text string) (int, error)
}

// CounterFunc adapts a function to Counter.
type CounterFunc func(text string) (int, error)

// Count calls f(text).
func (f CounterFunc) Count(text string) (int, error) { return f(text) }

// Estimate approximates the token count as ceil(runes/4).
func Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// Estimator is the dependency-free fallback counter.
var Estimator Counter = estimator{}

type estimator struct{}

func (estimator) Count(text string) (int, error) { return Estimate(text), nil }
func (estimator) Name() string                   { return StrategyEstimate }

// Identity names the counting scheme of c, so results counted by different
// counters are never mixed. Counters without a Name are "custom".
func Identity(c Counter) string {
	named, ok := c.(interface{ Name() string })
	if !ok {
		return "custom"
	}
	if _, isTiktoken := c.(*Tiktoken); isTiktoken {
		return StrategyTiktoken + ":" + named.Name()
	}
	return named.Name()
}

// Tiktoken counts tokens with a BPE encoding.
type Tiktoken struct {
	enc  *tiktoken.Tiktoken
	name string
}

// NewTiktoken loads the named encoding (e.g. "cl100k_base").
func NewTiktoken(encoding string) (*Tiktoken, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: get encoding %q: %w", encoding, err)
	}
	return &Tiktoken{enc: enc, name: encoding}, nil
}

// NewTiktokenForModel loads the encoding used by model (e.g. "gpt-4o").
func NewTiktokenForModel(model string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: encoding for model %q: %w", model, err)
	}
	return &Tiktoken{enc: enc, name: model}, nil
}

// Count returns the number of BPE tokens in text.
func (t *Tiktoken) Count(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

// Name returns the encoding or model the counter was built for.
func (t *Tiktoken) Name() string { return t.name }

// Config selects a counter.
type Config struct {
	Strategy string `yaml:"strategy"` // tiktoken | estimate
	Encoding string `yaml:"encoding"` // BPE encoding name
	Model    string `yaml:"model"`    // model name, overrides encoding
}

// Validate checks the tokenizer config.
func (c Config) Validate() error {
	switch c.Strategy {
	case "", StrategyEstimate, StrategyTiktoken:
		return nil
	}
	return fmt.Errorf("tokenizer: unknown strategy %q, must be 'tiktoken' or 'estimate'", c.Strategy)
}

// New builds the configured counter. The estimator is returned for an empty
// strategy. Loading tiktoken can fail (e.g. no network to fetch BPE ranks);
// the caller decides whether to fall back.
func New(cfg Config) (Counter, error) {
	switch cfg.Strategy {
	case "", StrategyEstimate:
		return Estimator, nil
	case StrategyTiktoken:
		if cfg.Model != "" {
			return NewTiktokenForModel(cfg.Model)
		}
		return NewTiktoken(cfg.Encoding)
	default:
		return nil, fmt.Errorf("tokenizer: unknown strategy %q", cfg.Strategy)
	}
}
