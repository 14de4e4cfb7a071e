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

// DDGBackend searches the DuckDuckGo HTML endpoint. It asks the news
// vertical first and falls back to general web results when that is empty.
type DDGBackend struct {
	client    *http.Client
	endpoint  string
	userAgent string
}

// NewDDGBackend creates a DuckDuckGo backend.
func NewDDGBackend(client *http.Client, endpoint, userAgent string) *DDGBackend {
	if endpoint == "" {
		endpoint = "https://html.duckduckgo.com/html/"
	}
	return &DDGBackend{client: client, endpoint: endpoint, userAgent: userAgent}
}

func (b *DDGBackend) Name() string { return BackendDDG }

// Search returns up to limit results for the subject query.
func (b *DDGBackend) Search(ctx context.Context, subject models.NewsSubject, limit int) ([]models.NewsItem, error) {
	query := subject.Query()
	if query == "" {
		return nil, nil
	}

	items, err := b.search(ctx, query, true, limit)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		return items, nil
	}
	return b.search(ctx, query, false, limit)
}

func (b *DDGBackend) search(ctx context.Context, query string, newsOnly bool, limit int) ([]models.NewsItem, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("kl", "kr-kr")
	if newsOnly {
		params.Set("iar", "news")
		params.Set("ia", "news")
	}

	resp, err := httpclient.Fetch(ctx, b.client, b.endpoint+"?"+params.Encode(), httpclient.Headers(b.userAgent, ""))
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse ddg results: %v", models.ErrSourceFetch, err)
	}

	items := make([]models.NewsItem, 0)
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		anchor := sel.Find("a.result__a").First()
		href, ok := anchor.Attr("href")
		title := collapseSpace(anchor.Text())
		if !ok || title == "" {
			return true
		}
		items = append(items, models.NewsItem{
			Title:   title,
			Link:    unwrapDDGLink(href),
			Summary: collapseSpace(sel.Find(".result__snippet").Text()),
			Source:  BackendDDG,
		})
		return limit <= 0 || len(items) < limit
	})
	return items, nil
}

// unwrapDDGLink extracts the target of a DuckDuckGo redirect link (/l/?uddg=...).
func unwrapDDGLink(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
