package cli

import (
	"context"
	"fmt"
	"time"

	"bilancio/internal/backend"
	"bilancio/internal/cache"
	"bilancio/internal/config"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/ports"
	"bilancio/internal/services"
)

const cacheCleanupInterval = 10 * time.Minute

// App is the assembled application: a backend plus the services on top.
type App struct {
	Config *config.Config
	Store  ports.Store
	Logger *log.Logger

	Engine       *services.MaterializationEngine
	Rules        *services.RuleService
	Transactions *services.TransactionService
	Taxonomy     *services.TaxonomyService
	Summary      *services.SummaryService
	Yields       *services.YieldService
	Caches       *cache.Manager

	cleanup backend.CleanupFunc
}

// NewApp opens the configured backend and wires the services. Close
// releases everything it opened.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Discard()
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}
	return newApp(cfg, res, logger), nil
}

func newApp(cfg *config.Config, res *backend.BackendResult, logger *log.Logger) *App {
	store := res.Store
	engine := services.NewMaterializationEngine(store, store,
		services.WithEvents(res.Events),
		services.WithConcurrency(cfg.MaterializeConcurrency),
		services.WithEngineLogger(logger),
	)

	yieldCache := cache.NewLRUCache[[]core.MarketYield](cfg.YieldCacheSize, cfg.YieldCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(yieldCache)

	return &App{
		Config:       cfg,
		Store:        store,
		Logger:       logger,
		Engine:       engine,
		Rules:        services.NewRuleService(store, store, store, store, logger),
		Transactions: services.NewTransactionService(store, store, store, res.Events, logger),
		Taxonomy:     services.NewTaxonomyService(store, store, logger),
		Summary:      services.NewSummaryService(engine, store),
		Yields:       services.NewYieldService(store, res.Yields, yieldCache, logger),
		Caches:       caches,
		cleanup:      res.Cleanup,
	}
}

// StartBackground starts the periodic cache cleanup. Only long-running
// processes need it.
func (a *App) StartBackground() {
	a.Caches.StartCleanup(cacheCleanupInterval)
}

func (a *App) Close() error {
	a.Caches.Stop()
	if a.cleanup != nil {
		return a.cleanup()
	}
	return nil
}
