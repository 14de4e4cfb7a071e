package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/confluo/internal/common"
	"github.com/ternarybob/confluo/internal/httpclient"
	"github.com/ternarybob/confluo/internal/interfaces"
	"github.com/ternarybob/confluo/internal/models"
	"github.com/ternarybob/confluo/internal/services/analyst"
	"github.com/ternarybob/confluo/internal/services/cache"
	"github.com/ternarybob/confluo/internal/services/llm"
	"github.com/ternarybob/confluo/internal/services/news"
	"github.com/ternarybob/confluo/internal/services/ranking"
	"github.com/ternarybob/confluo/internal/services/screener"
	"github.com/ternarybob/confluo/internal/services/session"
)

// App holds all application components and dependencies
type App struct {
	Config     *common.Config
	Logger     arbor.ILogger
	HTTPClient *http.Client

	// Sources
	Ranking interfaces.RankSource
	News    interfaces.NewsSource

	// Services
	Cache     *cache.Service
	Engine    *screener.Engine
	Analyst   *analyst.Service
	Providers *llm.ProviderFactory
	Gateway   *llm.Gateway
	Session   *session.Session

	// quotes and newsDigests route lookups through the cache
	quotes      interfaces.QuoteSource
	newsDigests interfaces.NewsSource

	mu   sync.Mutex
	last *models.ScreenResult
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initCache(); err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	app.initSources()
	app.initModels(context.Background())
	app.initServices()

	logger.Info().
		Strs("leaders", cfg.Screen.Leaders).
		Strs("news_backends", cfg.News.Backends).
		Str("model", cfg.LLM.DefaultModel).
		Bool("cache_enabled", cfg.Cache.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// newWithSources builds an App around caller-supplied sources and model invoker.
func newWithSources(cfg *common.Config, logger arbor.ILogger, rank interfaces.RankSource, newsSource interfaces.NewsSource, invoker interfaces.ModelInvoker) (*App, error) {
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Ranking: rank,
		News:    newsSource,
	}
	if err := app.initCache(); err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	app.Gateway = llm.NewGateway(invoker, cfg.LLM, logger)
	app.initServices()
	return app, nil
}

// initCache opens the in-memory cache
func (a *App) initCache() error {
	cacheService, err := cache.NewService(a.Config.Cache, a.Logger)
	if err != nil {
		return err
	}
	a.Cache = cacheService
	return nil
}

// initSources creates the rank collector and the news aggregator over one shared HTTP client
func (a *App) initSources() {
	a.HTTPClient = httpclient.NewDefaultHTTPClient(common.ParseDuration(a.Config.HTTP.Timeout, 15*time.Second))

	a.Ranking = ranking.NewServiceWithClient(a.HTTPClient, a.Config.HTTP, a.Config.Sources, a.Logger)

	backends := news.NewBackends(a.Config.News, a.HTTPClient, a.Config.HTTP.UserAgent, a.Logger)
	newsService := news.NewServiceWithClient(a.HTTPClient, a.Config.News, a.Config.HTTP, backends, a.Logger)
	a.News = newsService

	a.Logger.Debug().
		Strs("backends", newsService.Backends()).
		Msg("Rank and news sources initialized")
}

// initModels resolves provider credentials. A missing credential only disables model features.
func (a *App) initModels(ctx context.Context) {
	a.Providers = llm.NewProviderFactory(ctx, a.Config, a.Logger)
	a.Gateway = llm.NewGateway(a.Providers, a.Config.LLM, a.Logger)

	for _, model := range append([]string{a.Config.LLM.DefaultModel}, a.Config.LLM.Fallbacks...) {
		if err := a.Providers.Available(model); err != nil {
			a.Logger.Warn().
				Str("model", model).
				Err(err).
				Msg("Model unavailable")
		}
	}
}

// initServices wires the screening engine, prompt assembly and the session
func (a *App) initServices() {
	a.quotes = &cachedQuotes{source: a.Ranking, cache: a.Cache}
	a.newsDigests = a.News
	if a.Config.Cache.CacheNews {
		a.newsDigests = &cachedNews{source: a.News, cache: a.Cache}
	}

	a.Engine = screener.NewEngine(a.Logger)
	a.Analyst = analyst.NewService(a.newsDigests, a.quotes, a.Config, a.Logger)
	a.Session = session.New(a.Logger)
}

// Close releases the cache store and flushes logs
func (a *App) Close() error {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			return fmt.Errorf("failed to close cache: %w", err)
		}
		a.Logger.Debug().Msg("Cache closed")
	}
	return nil
}
