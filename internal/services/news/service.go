// Package news aggregates news items from several backends into a
// deduplicated, size-bounded digest.
package news

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/confluo/internal/common"
	"github.com/ternarybob/confluo/internal/httpclient"
	"github.com/ternarybob/confluo/internal/interfaces"
	"github.com/ternarybob/confluo/internal/models"
)

// maxDeepFetch bounds how many items get a full-page fetch per digest.
const maxDeepFetch = 10

// resolveConcurrency bounds parallel HEAD requests during canonicalization.
const resolveConcurrency = 8

// Service fans a subject out to every backend and merges the results.
// Backend failures never surface: a failing backend contributes no items.
type Service struct {
	config           common.NewsConfig
	backends         []interfaces.NewsBackend
	client           *http.Client
	userAgent        string
	backendTimeout   time.Duration
	deepFetchTimeout time.Duration
	logger           arbor.ILogger
}

var _ interfaces.NewsSource = (*Service)(nil)

// NewService creates a news aggregator over the given backends.
func NewService(config common.NewsConfig, httpCfg common.HTTPConfig, backends []interfaces.NewsBackend, logger arbor.ILogger) *Service {
	return NewServiceWithClient(
		httpclient.NewDefaultHTTPClient(common.ParseDuration(httpCfg.Timeout, 15*time.Second)),
		config, httpCfg, backends, logger,
	)
}

// NewServiceWithClient creates a news aggregator using the given HTTP client
// for redirect resolution and deep fetches.
func NewServiceWithClient(client *http.Client, config common.NewsConfig, httpCfg common.HTTPConfig, backends []interfaces.NewsBackend, logger arbor.ILogger) *Service {
	return &Service{
		config:           config,
		backends:         backends,
		client:           client,
		userAgent:        httpCfg.UserAgent,
		backendTimeout:   common.ParseDuration(config.BackendTimeout, 10*time.Second),
		deepFetchTimeout: common.ParseDuration(config.DeepFetchTimeout, 10*time.Second),
		logger:           logger,
	}
}

// Backends returns the configured backend names in fan-out order.
func (s *Service) Backends() []string {
	names := make([]string, 0, len(s.backends))
	for _, b := range s.backends {
		names = append(names, b.Name())
	}
	return names
}

// Aggregate gathers, canonicalizes, deduplicates and bounds the news for a subject.
// Items beyond the configured cap are reported as headlines only.
func (s *Service) Aggregate(ctx context.Context, subject models.NewsSubject) models.NewsDigest {
	digest := models.NewsDigest{Subject: subject, Items: []models.NewsItem{}}

	items := s.gather(ctx, subject)
	if len(items) == 0 && len(subject.Qualifiers) > 0 && ctx.Err() == nil {
		plain := subject
		plain.Qualifiers = nil
		s.logger.Debug().
			Str("query", subject.Query()).
			Str("fallback_query", plain.Query()).
			Msg("No news for qualified query, retrying with plain query")
		items = s.gather(ctx, plain)
	}

	s.canonicalize(ctx, items)
	items = Dedup(items)

	for i := range items {
		items[i].Title = collapseSpace(items[i].Title)
		items[i].Summary = Truncate(StripHTML(items[i].Summary), s.config.SummaryMaxRunes)
	}

	if limit := s.config.MaxItems; limit > 0 && len(items) > limit {
		for _, item := range items[limit:] {
			digest.Headlines = append(digest.Headlines, item.Title)
		}
		items = items[:limit]
	}

	s.deepFetch(ctx, items)
	digest.Items = items

	s.logger.Info().
		Str("query", subject.Query()).
		Int("items", len(digest.Items)).
		Int("headlines", len(digest.Headlines)).
		Msg("News aggregated")

	return digest
}

// gather runs every backend concurrently and concatenates the results in
// configured backend order.
func (s *Service) gather(ctx context.Context, subject models.NewsSubject) []models.NewsItem {
	results := make([][]models.NewsItem, len(s.backends))

	var wg sync.WaitGroup
	for i, backend := range s.backends {
		common.SafeGo(s.logger, &wg, "news-"+backend.Name(), func() {
			results[i] = s.search(ctx, backend, subject)
		})
	}
	wg.Wait()

	var items []models.NewsItem
	for _, r := range results {
		items = append(items, r...)
	}
	return items
}

type searchResult struct {
	items []models.NewsItem
	err   error
}

// search runs one backend under its own timeout. A backend that ignores
// cancellation is abandoned when the timeout fires.
func (s *Service) search(ctx context.Context, backend interfaces.NewsBackend, subject models.NewsSubject) []models.NewsItem {
	bctx, cancel := context.WithTimeout(ctx, s.backendTimeout)
	defer cancel()

	done := make(chan searchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- searchResult{err: common.PanicError(s.logger, "news-"+backend.Name(), r)}
			}
		}()
		items, err := backend.Search(bctx, subject, s.config.PerBackendLimit)
		done <- searchResult{items: items, err: err}
	}()

	var res searchResult
	select {
	case res = <-done:
	case <-bctx.Done():
		res = searchResult{err: bctx.Err()}
	}

	if res.err != nil {
		kind := "source_fetch"
		if errors.Is(res.err, context.DeadlineExceeded) {
			kind = "timeout"
		}
		s.logger.Warn().
			Err(res.err).
			Str("backend", backend.Name()).
			Str("kind", kind).
			Msg("News backend failed")
		return nil
	}

	items := res.items
	if limit := s.config.PerBackendLimit; limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	for i := range items {
		if items[i].Source == "" {
			items[i].Source = backend.Name()
		}
	}

	s.logger.Debug().
		Str("backend", backend.Name()).
		Int("items", len(items)).
		Msg("News backend returned")

	return items
}

// canonicalize fills CanonicalLink, following redirects when enabled.
// A failed resolution falls back to the original link.
func (s *Service) canonicalize(ctx context.Context, items []models.NewsItem) {
	if !s.config.ResolveRedirects {
		for i := range items {
			items[i].CanonicalLink = Canonicalize(items[i].Link)
		}
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for i := range items {
		g.Go(func() error {
			link := items[i].Link
			if link == "" {
				return nil
			}
			rctx, cancel := context.WithTimeout(gctx, s.backendTimeout)
			defer cancel()

			final, err := httpclient.ResolveFinalURL(rctx, s.client, link, s.userAgent)
			if err != nil {
				s.logger.Trace().Err(err).Str("link", link).Msg("Redirect resolution failed, keeping original link")
				final = link
			}
			items[i].CanonicalLink = Canonicalize(final)
			return nil
		})
	}
	_ = g.Wait()
}

// deepFetch replaces the summary-only view of the first items with the
// readable article text. Failures leave Body empty.
func (s *Service) deepFetch(ctx context.Context, items []models.NewsItem) {
	n := s.config.DeepFetch
	if n > maxDeepFetch {
		n = maxDeepFetch
	}
	if n > len(items) {
		n = len(items)
	}
	if n <= 0 {
		return
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		common.SafeGo(s.logger, &wg, "news-deep-fetch", func() {
			items[i].Body = s.fetchBody(ctx, items[i])
		})
	}
	wg.Wait()
}

func (s *Service) fetchBody(ctx context.Context, item models.NewsItem) string {
	link := item.CanonicalLink
	if link == "" {
		link = item.Link
	}
	pageURL, err := url.Parse(link)
	if err != nil || pageURL.Host == "" {
		return ""
	}

	fctx, cancel := context.WithTimeout(ctx, s.deepFetchTimeout)
	defer cancel()

	resp, err := httpclient.Fetch(fctx, s.client, link, httpclient.Headers(s.userAgent, ""))
	if err != nil {
		s.logger.Debug().Err(err).Str("link", link).Msg("Deep fetch failed")
		return ""
	}
	body, err := httpclient.Decode(resp.Body, resp.ContentType, "auto")
	if err != nil {
		s.logger.Debug().Err(err).Str("link", link).Msg("Deep fetch decode failed")
		return ""
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		s.logger.Debug().Err(err).Str("link", link).Msg("Readability extraction failed")
		return ""
	}

	text := collapseSpace(article.TextContent)
	if utf8.RuneCountInString(text) <= s.config.MinBodyRunes {
		return ""
	}
	return Truncate(text, s.config.BodyMaxRunes)
}
