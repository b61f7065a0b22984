package paraphrase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/paraphrase-gateway/internal/cache"
	"github.com/compresr/paraphrase-gateway/internal/monitoring"
	"github.com/compresr/paraphrase-gateway/internal/phrases"
	"github.com/compresr/paraphrase-gateway/internal/simplify"
	"github.com/compresr/paraphrase-gateway/internal/store"
	"github.com/compresr/paraphrase-gateway/internal/tokens"
)

func newService(t *testing.T, deps Deps, rules ...phrases.Rule) *Service {
	t.Helper()
	st := store.NewMemoryStore()
	t.Cleanup(func() { st.Close() })
	deps.Catalog = phrases.NewCatalog(st)
	for _, r := range rules {
		_, err := deps.Catalog.Add(context.Background(), r)
		require.NoError(t, err)
	}
	return New(Config{}, deps)
}

func filler(original string) phrases.Rule {
	return phrases.Rule{Original: original, Category: phrases.CategoryFiller}
}

// wordCounter counts whitespace-separated words.
var wordCounter = tokens.CounterFunc(func(s string) (int, error) {
	return len(strings.Fields(s)), nil
})

// =============================================================================
// END-TO-END SCENARIOS
// =============================================================================

func TestSimplify_ScenarioCourtesyVerboseContraction(t *testing.T) {
	svc := newService(t, Deps{},
		phrases.Rule{Original: "please be advised that", Simplified: "please note", Category: phrases.CategoryCourtesy},
		phrases.Rule{Original: "I would like to bring to your attention", Simplified: "note that", Category: phrases.CategoryCourtesy},
		phrases.Rule{Original: "cannot", Simplified: "can't", Category: phrases.CategoryContraction},
		phrases.Rule{Original: "utilize", Simplified: "use", Category: phrases.CategoryVerbose},
	)

	res, err := svc.Simplify(context.Background(),
		"Please be advised that I would like to bring to your attention that we cannot utilize this approach.",
		monitoring.SourceCLI)
	require.NoError(t, err)

	assert.Contains(t, res.SimplifiedText, "can't")
	assert.Contains(t, res.SimplifiedText, "use")
	assert.NotContains(t, res.SimplifiedText, "utilize")
	assert.NotContains(t, res.SimplifiedText, "cannot")
	assert.Equal(t, "note that we can't use this approach.", res.SimplifiedText)
	assert.Greater(t, res.TokenMetrics.TokensSaved, 0)
}

func TestSimplify_ScenarioFillerDeletion(t *testing.T) {
	svc := newService(t, Deps{}, filler("basically"), filler("actually"), filler("essentially"))

	res, err := svc.Simplify(context.Background(),
		"basically, I actually think we should essentially simplify this", monitoring.SourceHTTP)
	require.NoError(t, err)

	assert.Equal(t, ", I think we should simplify this", res.SimplifiedText)
	assert.NotContains(t, res.SimplifiedText, "  ")
}

func TestSimplify_ScenarioEmptyInput(t *testing.T) {
	svc := newService(t, Deps{Counter: wordCounter})

	res, err := svc.Simplify(context.Background(), "", monitoring.SourceHTTP)
	require.NoError(t, err)
	assert.Equal(t, "", res.SimplifiedText)
	assert.Equal(t, tokens.Metrics{}, res.TokenMetrics)
}

func TestSimplify_SnapshotIsolation(t *testing.T) {
	svc := newService(t, Deps{})
	ctx := context.Background()

	snap, err := svc.Catalog().Snapshot(ctx)
	require.NoError(t, err)
	before := Run(simplify.NewEngine(simplify.DefaultOptions()), snap, tokens.Estimator, "we cannotate the gadget")

	_, err = svc.AddRule(ctx, phrases.Rule{Original: "gadget", Simplified: "tool", Category: phrases.CategoryVerbose})
	require.NoError(t, err)

	after := Run(simplify.NewEngine(simplify.DefaultOptions()), snap, tokens.Estimator, "we cannotate the gadget")
	assert.Equal(t, before, after)
	assert.Contains(t, after.SimplifiedText, "gadget")

	// A fresh call sees the new rule.
	res, err := svc.Simplify(ctx, "we cannotate the gadget", monitoring.SourceHTTP)
	require.NoError(t, err)
	assert.Contains(t, res.SimplifiedText, "tool")
	assert.Contains(t, res.SimplifiedText, "cannotate")
}

func TestSimplify_ConcurrentMutation(t *testing.T) {
	svc := newService(t, Deps{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Simplify(ctx, "I would like to utilize this in order to win", monitoring.SourceHTTP)
			assert.NoError(t, err)
		}()
		go func(i int) {
			defer wg.Done()
			_, err := svc.AddRule(ctx, phrases.Rule{
				Original:   "word" + string(rune('a'+i)),
				Simplified: "w",
				Category:   phrases.CategoryVerbose,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	rules, err := svc.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 8)
}

// =============================================================================
// VALIDATION AND METRICS
// =============================================================================

func TestSimplify_TooLong(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	svc := New(Config{MaxTextBytes: 8}, Deps{Catalog: phrases.NewCatalog(st)})

	_, err := svc.Simplify(context.Background(), "this is longer than eight bytes", monitoring.SourceHTTP)
	assert.ErrorIs(t, err, phrases.ErrValidation)
}

func TestSimplify_InvalidUTF8(t *testing.T) {
	svc := newService(t, Deps{})
	_, err := svc.Simplify(context.Background(), "bad \xff byte", monitoring.SourceHTTP)
	var verr *phrases.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSimplify_CounterFailureIsEstimated(t *testing.T) {
	failing := tokens.CounterFunc(func(string) (int, error) { return 0, errors.New("tokenizer offline") })
	metrics := monitoring.NewMetricsCollector()
	svc := newService(t, Deps{Counter: failing, Metrics: metrics})

	res, err := svc.Simplify(context.Background(), "We will utilize it", monitoring.SourceHTTP)
	require.NoError(t, err)
	assert.True(t, res.TokenMetrics.Estimated)
	assert.Equal(t, tokens.Estimate("We will utilize it"), res.TokenMetrics.OriginalTokenCount)
	assert.Equal(t, int64(1), metrics.Stats()["estimated"])
}

func TestSimplify_Determinism(t *testing.T) {
	svc := newService(t, Deps{}, filler("kinda"))
	text := "Kinda, I was wondering if you could utilize the the report prior to Friday!!!"

	first, err := svc.Simplify(context.Background(), text, monitoring.SourceHTTP)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := svc.Simplify(context.Background(), text, monitoring.SourceHTTP)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

// =============================================================================
// CACHE
// =============================================================================

func TestSimplify_CachesByFingerprint(t *testing.T) {
	mc := cache.NewMemoryCache(time.Minute, 0)
	defer mc.Close()
	metrics := monitoring.NewMetricsCollector()
	svc := newService(t, Deps{Cache: mc, Metrics: metrics, Counter: wordCounter})
	ctx := context.Background()

	first, err := svc.Simplify(ctx, "we need to utilize it", monitoring.SourceHTTP)
	require.NoError(t, err)
	second, err := svc.Simplify(ctx, "we need to utilize it", monitoring.SourceHTTP)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), metrics.Stats()["cache_hits"])
	assert.Equal(t, int64(1), metrics.Stats()["cache_misses"])

	// Changing the catalog changes the fingerprint, so the stale entry is skipped.
	_, err = svc.AddRule(ctx, phrases.Rule{Original: "need to", Simplified: "must", Category: phrases.CategoryVerbose})
	require.NoError(t, err)
	third, err := svc.Simplify(ctx, "we need to utilize it", monitoring.SourceHTTP)
	require.NoError(t, err)
	assert.Equal(t, "we must use it", third.SimplifiedText)
	assert.Equal(t, int64(2), metrics.Stats()["cache_misses"])
}

func TestSimplify_SharedCacheKeepsEngineOptionsApart(t *testing.T) {
	mc := cache.NewMemoryCache(time.Minute, 0)
	defer mc.Close()
	ctx := context.Background()
	text := "The code is reviewed by Bob"

	passiveOn := newService(t, Deps{Cache: mc, Engine: simplify.NewEngine(simplify.Options{PassiveVoice: true})})
	passiveOff := newService(t, Deps{Cache: mc, Engine: simplify.NewEngine(simplify.Options{PassiveVoice: false})})

	on, err := passiveOn.Simplify(ctx, text, monitoring.SourceHTTP)
	require.NoError(t, err)
	assert.Equal(t, "The code is reviewing Bob", on.SimplifiedText)

	off, err := passiveOff.Simplify(ctx, text, monitoring.SourceHTTP)
	require.NoError(t, err)
	assert.Equal(t, text, off.SimplifiedText)
	assert.Equal(t, int64(0), passiveOff.Metrics().Stats()["cache_hits"])
	assert.Equal(t, 2, mc.Len())
}

func TestSimplify_SharedCacheKeepsCountersApart(t *testing.T) {
	mc := cache.NewMemoryCache(time.Minute, 0)
	defer mc.Close()
	ctx := context.Background()
	text := "we need to utilize this approach"

	words := newService(t, Deps{Cache: mc, Counter: wordCounter})
	estimate := newService(t, Deps{Cache: mc, Counter: tokens.Estimator})

	byWords, err := words.Simplify(ctx, text, monitoring.SourceHTTP)
	require.NoError(t, err)
	byEstimate, err := estimate.Simplify(ctx, text, monitoring.SourceHTTP)
	require.NoError(t, err)

	assert.Equal(t, tokens.Compute(text, byEstimate.SimplifiedText, tokens.Estimator), byEstimate.TokenMetrics)
	assert.Equal(t, byWords.SimplifiedText, byEstimate.SimplifiedText)
	assert.Equal(t, int64(0), estimate.Metrics().Stats()["cache_hits"])
}

func TestSimplify_EstimatedResultsNotCached(t *testing.T) {
	mc := cache.NewMemoryCache(time.Minute, 0)
	defer mc.Close()
	failing := tokens.CounterFunc(func(string) (int, error) { return -1, nil })
	svc := newService(t, Deps{Cache: mc, Counter: failing})

	_, err := svc.Simplify(context.Background(), "utilize", monitoring.SourceHTTP)
	require.NoError(t, err)
	assert.Equal(t, 0, mc.Len())
}

// =============================================================================
// RULE MUTATIONS AND TELEMETRY
// =============================================================================

func TestRules_AddRemoveWithTelemetry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.jsonl")
	tracker, err := monitoring.NewTracker(monitoring.TelemetryConfig{Enabled: true, LogPath: path})
	require.NoError(t, err)
	metrics := monitoring.NewMetricsCollector()
	svc := newService(t, Deps{Tracker: tracker, Metrics: metrics})
	ctx := monitoring.WithRequestIDContext(context.Background(), "req-42")

	added, err := svc.AddRule(ctx, phrases.Rule{Original: "cannot", Simplified: "can't", Category: phrases.CategoryContraction})
	require.NoError(t, err)

	_, err = svc.AddRule(ctx, phrases.Rule{Original: "Cannot", Simplified: "cant", Category: phrases.CategoryContraction})
	assert.ErrorIs(t, err, phrases.ErrDuplicateRule)

	require.NoError(t, svc.RemoveRule(ctx, added.ID))
	assert.ErrorIs(t, svc.RemoveRule(ctx, added.ID), phrases.ErrNotFound)

	_, err = svc.Simplify(ctx, "we cannot go", monitoring.SourceHTTP)
	require.NoError(t, err)

	assert.Equal(t, int64(2), metrics.Stats()["rule_changes"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], `"action":"add"`)
	assert.Contains(t, lines[0], `"request_id":"req-42"`)
	assert.Contains(t, lines[1], `"success":false`)
	assert.Contains(t, lines[4], `"event":"simplification"`)
}

func TestRules_Reset(t *testing.T) {
	svc := newService(t, Deps{}, filler("kinda"))
	ctx := context.Background()

	err := svc.ResetRules(ctx, []phrases.Rule{
		{Original: "utilize", Simplified: "use", Category: phrases.CategoryVerbose},
		{Original: "do not", Simplified: "don't", Category: phrases.CategoryContraction},
	})
	require.NoError(t, err)

	rules, err := svc.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, phrases.CategoryContraction, rules[0].Category)
	assert.Equal(t, phrases.CategoryVerbose, rules[1].Category)

	err = svc.ResetRules(ctx, []phrases.Rule{{Original: "x", Category: "bogus"}})
	assert.ErrorIs(t, err, phrases.ErrValidation)
}
