package news

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/ternarybob/confluo/internal/httpclient"
	"github.com/ternarybob/confluo/internal/models"
)

// RSSBackend reads a query-templated RSS or Atom feed.
type RSSBackend struct {
	client    *http.Client
	template  string
	userAgent string
}

// NewRSSBackend creates a feed backend. The template carries a {query} placeholder.
func NewRSSBackend(client *http.Client, template, userAgent string) *RSSBackend {
	return &RSSBackend{client: client, template: template, userAgent: userAgent}
}

func (b *RSSBackend) Name() string { return BackendRSS }

// Search fetches the feed for the subject query and returns up to limit items.
func (b *RSSBackend) Search(ctx context.Context, subject models.NewsSubject, limit int) ([]models.NewsItem, error) {
	query := subject.Query()
	if query == "" || b.template == "" {
		return nil, nil
	}

	feedURL := strings.ReplaceAll(b.template, "{query}", url.QueryEscape(query))
	resp, err := httpclient.Fetch(ctx, b.client, feedURL, httpclient.Headers(b.userAgent, ""))
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse feed %s: %v", models.ErrSourceFetch, feedURL, err)
	}

	items := make([]models.NewsItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if limit > 0 && len(items) >= limit {
			break
		}
		summary := it.Description
		if summary == "" {
			summary = it.Content
		}
		items = append(items, models.NewsItem{
			Title:       it.Title,
			Link:        it.Link,
			Summary:     summary,
			Source:      BackendRSS,
			PublishedAt: it.PublishedParsed,
		})
	}
	return items, nil
}
