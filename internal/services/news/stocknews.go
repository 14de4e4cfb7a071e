package news

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/confluo/internal/httpclient"
	"github.com/ternarybob/confluo/internal/models"
)

// StockNewsBackend scrapes the per-instrument news list of the quote provider.
// It only serves subjects with an identifier.
type StockNewsBackend struct {
	client    *http.Client
	template  string
	referer   string
	selector  string
	userAgent string
}

// NewStockNewsBackend creates the stock news list backend. The URL and
// referer templates carry a {code} placeholder.
func NewStockNewsBackend(client *http.Client, template, referer, selector, userAgent string) *StockNewsBackend {
	if selector == "" {
		selector = ".title > a, a.tit"
	}
	return &StockNewsBackend{
		client:    client,
		template:  template,
		referer:   referer,
		selector:  selector,
		userAgent: userAgent,
	}
}

func (b *StockNewsBackend) Name() string { return BackendNaver }

// Search returns the newest headlines for subject.Code.
func (b *StockNewsBackend) Search(ctx context.Context, subject models.NewsSubject, limit int) ([]models.NewsItem, error) {
	if subject.Code == "" || subject.MarketWide || b.template == "" {
		return nil, nil
	}

	code := url.QueryEscape(subject.Code)
	pageURL := strings.ReplaceAll(b.template, "{code}", code)
	referer := strings.ReplaceAll(b.referer, "{code}", code)

	resp, err := httpclient.Fetch(ctx, b.client, pageURL, httpclient.Headers(b.userAgent, referer))
	if err != nil {
		return nil, err
	}
	body, err := httpclient.Decode(resp.Body, resp.ContentType, "cp949")
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", models.ErrSourceFetch, pageURL, err)
	}
	base, _ := url.Parse(resp.FinalURL)

	items := make([]models.NewsItem, 0)
	doc.Find(b.selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		title := collapseSpace(sel.Text())
		if !ok || title == "" {
			return true
		}
		items = append(items, models.NewsItem{
			Title:  title,
			Link:   resolveLink(base, href),
			Source: BackendNaver,
		})
		return limit <= 0 || len(items) < limit
	})
	return items, nil
}

func resolveLink(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
