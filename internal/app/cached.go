package app

import (
	"context"

	"github.com/ternarybob/confluo/internal/interfaces"
	"github.com/ternarybob/confluo/internal/models"
	"github.com/ternarybob/confluo/internal/services/cache"
)

// memoize returns the cached value for key, loading it on a miss. Empty
// fail-soft results are stored like any other; Refresh is the only way to
// retry them.
func memoize[T any](ctx context.Context, c *cache.Service, key string, load func(context.Context) T) T {
	var fresh T
	value, err := cache.Fetch(ctx, c, key, func(ctx context.Context) (T, error) {
		fresh = load(ctx)
		return fresh, nil
	})
	if err != nil {
		return fresh
	}
	return value
}

// collect fetches one ranked listing through the cache.
func (a *App) collect(ctx context.Context, desc models.SourceDescriptor) []models.RankedEntry {
	return memoize(ctx, a.Cache, cache.Key(cache.NamespaceRanking, desc),
		func(ctx context.Context) []models.RankedEntry {
			return a.Ranking.Collect(ctx, desc)
		},
	)
}

// collectThemes fetches the theme universe through the cache.
func (a *App) collectThemes(ctx context.Context) []models.ThemeGroup {
	sources := a.Config.Sources
	maxThemes := a.Config.Screen.MaxThemes
	key := cache.Key(cache.NamespaceThemes, sources.ThemeList, sources.ThemeMembers, maxThemes)

	return memoize(ctx, a.Cache, key,
		func(ctx context.Context) []models.ThemeGroup {
			return a.Ranking.CollectThemes(ctx, sources.ThemeList, sources.ThemeMembers, maxThemes)
		},
	)
}

// cachedNews memoizes digests per subject.
type cachedNews struct {
	source interfaces.NewsSource
	cache  *cache.Service
}

func (n *cachedNews) Aggregate(ctx context.Context, subject models.NewsSubject) models.NewsDigest {
	return memoize(ctx, n.cache, cache.Key(cache.NamespaceNews, subject),
		func(ctx context.Context) models.NewsDigest {
			return n.source.Aggregate(ctx, subject)
		},
	)
}

// cachedQuotes memoizes per-instrument fundamentals.
type cachedQuotes struct {
	source interfaces.QuoteSource
	cache  *cache.Service
}

func (q *cachedQuotes) MarketCap(ctx context.Context, code string) string {
	return memoize(ctx, q.cache, cache.Key(cache.NamespaceQuote, "market_cap", code),
		func(ctx context.Context) string {
			return q.source.MarketCap(ctx, code)
		},
	)
}
