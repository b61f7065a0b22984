package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/compresr/paraphrase-gateway/internal/cache"
	"github.com/compresr/paraphrase-gateway/internal/config"
	"github.com/compresr/paraphrase-gateway/internal/monitoring"
	"github.com/compresr/paraphrase-gateway/internal/paraphrase"
	"github.com/compresr/paraphrase-gateway/internal/phrases"
	"github.com/compresr/paraphrase-gateway/internal/simplify"
	"github.com/compresr/paraphrase-gateway/internal/store"
	"github.com/compresr/paraphrase-gateway/internal/tokens"
)

// app holds every component a command needs, wired from one Config.
type app struct {
	cfg     *config.Config
	store   store.Store
	cache   cache.Cache
	tracker *monitoring.Tracker
	service *paraphrase.Service
	cancel  context.CancelFunc
}

// newApp builds store -> catalog -> engine -> counter -> cache -> telemetry
// -> service. An empty store is seeded first.
func newApp(ctx context.Context, cfg *config.Config, logger *monitoring.Logger) (*app, error) {
	st, err := store.New(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	a := &app{cfg: cfg, store: st}

	counter, err := tokens.New(cfg.Tokenizer)
	if err != nil {
		log.Warn().Err(err).Msg("token counter unavailable, using estimator")
		counter = tokens.Estimator
	}

	a.cache, err = cache.New(cfg.Cache)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	a.tracker, err = monitoring.NewTracker(cfg.Monitoring.Telemetry())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create telemetry tracker: %w", err)
	}

	engine := simplify.NewEngine(simplify.Options{PassiveVoice: cfg.Engine.PassiveVoice})
	log.Debug().Strs("stages", engine.Stages()).Msg("simplification engine ready")

	a.service = paraphrase.New(
		paraphrase.Config{MaxTextBytes: cfg.Server.MaxTextBytes},
		paraphrase.Deps{
			Catalog: phrases.NewCatalog(st),
			Engine:  engine,
			Counter: counter,
			Cache:   a.cache,
			Metrics: monitoring.NewMetricsCollector(),
			Tracker: a.tracker,
			Alerts:  monitoring.NewAlertManager(logger.Component("alerts"), cfg.Monitoring.Alerts()),
			Logger:  monitoring.NewRequestLogger(logger.Component("paraphrase")),
		},
	)

	if err := a.seedIfEmpty(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// seedIfEmpty applies the configured seed file, or the embedded default
// phrases, when the store holds no rules.
func (a *app) seedIfEmpty(ctx context.Context) error {
	existing, err := a.service.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to read phrases: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	rules, source, err := loadSeed(a.cfg.Store.SeedFile)
	if err != nil {
		return err
	}
	if err := a.service.ResetRules(ctx, rules); err != nil {
		return fmt.Errorf("failed to seed phrases from %s: %w", source, err)
	}
	log.Info().Int("count", len(rules)).Str("source", source).Msg("seeded empty phrase store")
	return nil
}

// watchSeed re-seeds the store whenever the configured seed file changes.
func (a *app) watchSeed(ctx context.Context) error {
	if !a.cfg.Store.WatchSeed {
		return nil
	}
	ctx, a.cancel = context.WithCancel(ctx)
	return phrases.WatchSeedFile(ctx, a.cfg.Store.SeedFile, func(rules []phrases.Rule) error {
		return a.service.ResetRules(ctx, rules)
	})
}

// Close releases every component. Safe on a partially built app.
func (a *app) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	var errs []error
	if a.tracker != nil {
		errs = append(errs, a.tracker.Close())
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn().Err(err).Msg("shutdown: failed to close component")
	}
}

// loadSeed reads a seed file, or the embedded default when path is empty.
// It returns the rules and a description of where they came from.
func loadSeed(path string) ([]phrases.Rule, string, error) {
	if path != "" {
		rules, err := phrases.LoadSeedFile(path)
		if err != nil {
			return nil, "", err
		}
		return rules, path, nil
	}

	data, err := getEmbeddedRules(defaultRulesName)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read embedded phrases: %w", err)
	}
	rules, err := phrases.ParseSeed(data)
	if err != nil {
		return nil, "", err
	}
	return rules, "(embedded) " + defaultRulesName + ".yaml", nil
}
