// Package ranking collects ranked listings (price leaders, volume leaders,
// themes) from HTML table sources and normalizes them into RankedEntry values.
package ranking

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/confluo/internal/common"
	"github.com/ternarybob/confluo/internal/httpclient"
	"github.com/ternarybob/confluo/internal/interfaces"
	"github.com/ternarybob/confluo/internal/models"
)

// Service fetches ranked listings. Every public method is fail-soft:
// network, status and encoding failures are logged and yield empty results.
type Service struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	sources   common.SourcesConfig
	validate  *validator.Validate
	logger    arbor.ILogger

	patternsMu sync.Mutex
	patterns   map[string]*regexp.Regexp
}

var _ interfaces.RankSource = (*Service)(nil)

// NewService creates a ranking service from the HTTP and source configuration.
func NewService(httpCfg common.HTTPConfig, sources common.SourcesConfig, logger arbor.ILogger) *Service {
	return NewServiceWithClient(
		httpclient.NewDefaultHTTPClient(common.ParseDuration(httpCfg.Timeout, 15*time.Second)),
		httpCfg, sources, logger,
	)
}

// NewServiceWithClient creates a ranking service with a caller-supplied HTTP client.
func NewServiceWithClient(client *http.Client, httpCfg common.HTTPConfig, sources common.SourcesConfig, logger arbor.ILogger) *Service {
	interval := common.ParseDuration(httpCfg.PageInterval, 50*time.Millisecond)
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Service{
		client:    client,
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: httpCfg.UserAgent,
		sources:   sources,
		validate:  validator.New(),
		logger:    logger,
		patterns:  make(map[string]*regexp.Regexp),
	}
}

// Collect fetches every page of the descriptor and returns up to desc.Limit entries.
// A failed page stops pagination; rows already collected are kept.
func (s *Service) Collect(ctx context.Context, desc models.SourceDescriptor) []models.RankedEntry {
	if err := s.validate.Struct(desc); err != nil {
		s.logger.Warn().Err(err).Str("source", desc.Name).Msg("Invalid source descriptor")
		return []models.RankedEntry{}
	}

	entries := make([]models.RankedEntry, 0)
	skipped := 0
	for _, page := range desc.Pages() {
		doc, err := s.fetchDocument(ctx, desc.PageURL(page), desc.Referer, desc.Encoding)
		if err != nil {
			s.logFetchFailure(err, desc.ListName(), page)
			break
		}

		rows, bad := parseRows(doc, desc, s.codePattern(desc.CodePattern), len(entries))
		entries = append(entries, rows...)
		skipped += bad

		if desc.Limit > 0 && len(entries) >= desc.Limit {
			break
		}
	}

	if desc.Limit > 0 && len(entries) > desc.Limit {
		entries = entries[:desc.Limit]
	}

	s.logger.Debug().
		Str("source", desc.ListName()).
		Int("entries", len(entries)).
		Int("skipped_rows", skipped).
		Msg("Collected ranked listing")

	return entries
}

// MarketCap scrapes the formatted market capitalisation of one instrument.
// Returns "" when the page or element is unavailable.
func (s *Service) MarketCap(ctx context.Context, code string) string {
	if s.sources.QuoteURL == "" || code == "" {
		return ""
	}
	pageURL := strings.ReplaceAll(s.sources.QuoteURL, "{code}", url.QueryEscape(code))
	doc, err := s.fetchDocument(ctx, pageURL, s.sources.QuoteReferer, "auto")
	if err != nil {
		s.logFetchFailure(err, "quote:"+code, 1)
		return ""
	}
	return strings.Join(strings.Fields(doc.Find(s.sources.CapSelector).First().Text()), " ")
}

// fetchDocument downloads, decodes and parses a page.
func (s *Service) fetchDocument(ctx context.Context, pageURL, referer, encoding string) (*goquery.Document, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSourceFetch, err)
	}

	resp, err := httpclient.Fetch(ctx, s.client, pageURL, httpclient.Headers(s.userAgent, referer))
	if err != nil {
		return nil, err
	}

	body, err := httpclient.Decode(resp.Body, resp.ContentType, encoding)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", models.ErrSourceFetch, pageURL, err)
	}
	doc.Url, _ = url.Parse(resp.FinalURL)
	return doc, nil
}

func (s *Service) codePattern(expr string) *regexp.Regexp {
	if expr == "" {
		expr = defaultCodePattern
	}
	s.patternsMu.Lock()
	defer s.patternsMu.Unlock()
	if re, ok := s.patterns[expr]; ok {
		return re
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		s.logger.Warn().Err(err).Str("pattern", expr).Msg("Invalid code pattern, using default")
		re = regexp.MustCompile(defaultCodePattern)
	}
	s.patterns[expr] = re
	return re
}

func (s *Service) logFetchFailure(err error, source string, page int) {
	kind := "source_fetch"
	if errors.Is(err, models.ErrEncoding) {
		kind = "encoding"
	}
	s.logger.Warn().
		Err(err).
		Str("source", source).
		Int("page", page).
		Str("kind", kind).
		Msg("Ranked listing fetch failed")
}
