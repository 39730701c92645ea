package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reviewlens/reviews-cli/internal/analysis"
	"github.com/reviewlens/reviews-cli/internal/provider"
	"github.com/reviewlens/reviews-cli/internal/resilience"
	"github.com/reviewlens/reviews-cli/internal/store"
	"github.com/reviewlens/reviews-cli/internal/tracker"
	anthropicpkg "github.com/reviewlens/reviews-cli/pkg/anthropic"
	"github.com/reviewlens/reviews-cli/pkg/browser"
	"github.com/reviewlens/reviews-cli/pkg/outscraper"
	"github.com/reviewlens/reviews-cli/pkg/places"
)

// pipelineEnv holds the initialized store, providers, engine and tracker
// needed by the ingest/analyze/serve commands.
type pipelineEnv struct {
	Store   store.Store
	Tracker *tracker.Tracker
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initEnv sets up the store, the provider chain in trust order, and the
// analysis engine. Callers should defer env.Close(). Providers without a
// credential are still registered; they skip themselves at fetch time.
func initEnv(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	retry := resilience.RetryConfigFrom(cfg.Analysis.RetryMaxAttempts, 0, 0)

	var placesClient places.Client
	if cfg.Places.Key != "" {
		placesClient = places.NewClient(cfg.Places.Key, places.WithBaseURL(cfg.Places.BaseURL))
		zap.L().Info("places provider enabled")
	} else {
		zap.L().Debug("REVIEWLENS_PLACES_KEY not set, places provider disabled")
	}

	var scrapeClient outscraper.Client
	if cfg.Outscraper.Key != "" {
		scrapeClient = outscraper.NewClient(cfg.Outscraper.Key, outscraper.WithBaseURL(cfg.Outscraper.BaseURL))
		zap.L().Info("scrape-job provider enabled")
	} else {
		zap.L().Debug("REVIEWLENS_OUTSCRAPER_KEY not set, scrape-job provider disabled")
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.Outscraper.FailureThreshold,
		ResetTimeout:     time.Duration(cfg.Outscraper.CooldownSecs) * time.Second,
	})
	scrapeProvider := provider.NewScrapeJobProvider(scrapeClient, breaker,
		outscraper.WithPollMaxAttempts(cfg.Outscraper.PollMaxAttempts),
		outscraper.WithPollInterval(time.Duration(cfg.Outscraper.PollIntervalSecs)*time.Second),
		outscraper.WithPollCap(time.Duration(cfg.Outscraper.PollCapSecs)*time.Second),
	)

	selectors, err := provider.LoadSelectors(cfg.Browser.SelectorsPath)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "load browser selectors")
	}
	var sessionFactory provider.SessionFactory
	if cfg.Browser.Enabled {
		headless := cfg.Browser.Headless
		sessionFactory = func(ctx context.Context) (browser.Session, error) {
			return browser.NewSession(ctx, browser.Options{Headless: headless})
		}
	}

	providers := []provider.Provider{
		provider.NewPlacesProvider(placesClient, retry),
		scrapeProvider,
		provider.NewBrowserProvider(sessionFactory, selectors),
	}

	var llm anthropicpkg.Client
	if cfg.Anthropic.Key != "" {
		llm = anthropicpkg.NewClient(cfg.Anthropic.Key)
	} else {
		zap.L().Debug("REVIEWLENS_ANTHROPIC_KEY not set, analysis degrades to rating-derived fallbacks")
	}
	engine := analysis.NewEngine(llm, retry)

	return &pipelineEnv{
		Store:   st,
		Tracker: tracker.New(st, engine, providers),
	}, nil
}

// initStore opens the configured persistence backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "open postgres store")
		}
		return st, nil
	default:
		st, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, eris.Wrap(err, "open sqlite store")
		}
		return st, nil
	}
}
