package tokens

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
)

// Metrics are the before/after token counts of one simplification.
type Metrics struct {
	OriginalTokenCount   int     `json:"originalTokenCount"`
	SimplifiedTokenCount int     `json:"simplifiedTokenCount"`
	TokensSaved          int     `json:"tokensSaved"`
	PercentSaved         float64 `json:"percentSaved"`
	// Estimated is set when the injected counter failed and both counts
	// came from the length-based estimator instead.
	Estimated bool `json:"estimated,omitempty"`
}

// errNegativeCount marks a counter that broke the non-negative contract.
var errNegativeCount = errors.New("counter returned a negative count")

// Compute counts both texts with counter and derives the savings.
// It never fails: if counter errors, panics or returns a negative count for
// either text, both counts are recomputed with Estimate and Estimated is set.
// A nil counter is treated the same way.
func Compute(original, simplified string, counter Counter) Metrics {
	var m Metrics

	origCount, err := safeCount(counter, original)
	if err == nil {
		var simpCount int
		simpCount, err = safeCount(counter, simplified)
		m.OriginalTokenCount, m.SimplifiedTokenCount = origCount, simpCount
	}
	if err != nil {
		log.Warn().Err(err).Msg("token counter failed, using estimate")
		m.OriginalTokenCount = Estimate(original)
		m.SimplifiedTokenCount = Estimate(simplified)
		m.Estimated = true
	}

	m.TokensSaved = m.OriginalTokenCount - m.SimplifiedTokenCount
	m.PercentSaved = PercentSaved(m.OriginalTokenCount, m.TokensSaved)
	return m
}

// PercentSaved returns saved/original*100 rounded to one decimal, or 0 when
// original is 0.
func PercentSaved(original, saved int) float64 {
	if original <= 0 {
		return 0
	}
	return math.Round(float64(saved)/float64(original)*1000) / 10
}

func safeCount(counter Counter, text string) (n int, err error) {
	if counter == nil {
		return 0, errors.New("no token counter configured")
	}
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("counter panicked: %v", r)
		}
	}()
	n, err = counter.Count(text)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errNegativeCount
	}
	return n, nil
}
