package news

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/ternarybob/confluo/internal/httpclient"
	"github.com/ternarybob/confluo/internal/models"
)

// SearXNGBackend queries a self-hosted SearXNG instance through its JSON API.
type SearXNGBackend struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

type searxngResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Content       string `json:"content"`
		PublishedDate string `json:"publishedDate"`
		Engine        string `json:"engine"`
	} `json:"results"`
}

// NewSearXNGBackend creates a SearXNG backend.
func NewSearXNGBackend(client *http.Client, baseURL, userAgent string) *SearXNGBackend {
	return &SearXNGBackend{client: client, baseURL: strings.TrimSuffix(baseURL, "/"), userAgent: userAgent}
}

func (b *SearXNGBackend) Name() string { return BackendSearXNG }

// Search returns up to limit news results for the subject query.
func (b *SearXNGBackend) Search(ctx context.Context, subject models.NewsSubject, limit int) ([]models.NewsItem, error) {
	query := subject.Query()
	if query == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("categories", "news")
	params.Set("language", "ko")

	var resp searxngResponse
	if err := httpclient.GetJSON(ctx, b.client, b.baseURL+"/search?"+params.Encode(), httpclient.Headers(b.userAgent, ""), &resp); err != nil {
		return nil, err
	}

	items := make([]models.NewsItem, 0, len(resp.Results))
	for _, r := range resp.Results {
		if limit > 0 && len(items) >= limit {
			break
		}
		items = append(items, models.NewsItem{
			Title:       r.Title,
			Link:        r.URL,
			Summary:     r.Content,
			Source:      BackendSearXNG,
			PublishedAt: parseTime(r.PublishedDate),
		})
	}
	return items, nil
}
