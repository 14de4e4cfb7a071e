package news

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/confluo/internal/common"
	"github.com/ternarybob/confluo/internal/interfaces"
)

// Backend names accepted in [news] backends
const (
	BackendDDG     = "ddg"
	BackendTavily  = "tavily"
	BackendSearXNG = "searxng"
	BackendRSS     = "rss"
	BackendNaver   = "naver"
)

// NewBackends builds the configured backends in order. A backend that
// cannot be configured (missing key or endpoint) is skipped with a warning.
func NewBackends(config common.NewsConfig, client *http.Client, userAgent string, logger arbor.ILogger) []interfaces.NewsBackend {
	backends := make([]interfaces.NewsBackend, 0, len(config.Backends))
	seen := make(map[string]bool)

	for _, raw := range config.Backends {
		name := strings.ToLower(strings.TrimSpace(raw))
		if seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case BackendDDG:
			backends = append(backends, NewDDGBackend(client, config.DDGURL, userAgent))
		case BackendTavily:
			key, err := common.ResolveAPIKey(common.TavilyKeyEnv, config.Tavily.APIKey)
			if err != nil {
				logger.Warn().Err(err).Str("backend", name).Msg("News backend disabled")
				continue
			}
			backends = append(backends, NewTavilyBackend(client, config.Tavily.BaseURL, key))
		case BackendSearXNG:
			if config.SearXNG.BaseURL == "" {
				logger.Warn().Str("backend", name).Msg("News backend disabled: no base_url configured")
				continue
			}
			backends = append(backends, NewSearXNGBackend(client, config.SearXNG.BaseURL, userAgent))
		case BackendRSS:
			backends = append(backends, NewRSSBackend(client, config.RSSTemplate, userAgent))
		case BackendNaver:
			backends = append(backends, NewStockNewsBackend(client, config.StockNewsURL, config.StockNewsReferer, config.StockNewsItem, userAgent))
		default:
			logger.Warn().Str("backend", raw).Msg("Unknown news backend ignored")
		}
	}

	logger.Debug().Int("backends", len(backends)).Msg("News backends configured")
	return backends
}
