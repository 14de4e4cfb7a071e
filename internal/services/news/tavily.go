package news

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/confluo/internal/httpclient"
	"github.com/ternarybob/confluo/internal/models"
)

// TavilyBackend queries the Tavily search API in news mode.
type TavilyBackend struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	Topic      string `json:"topic"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Content       string `json:"content"`
		PublishedDate string `json:"published_date"`
	} `json:"results"`
}

// NewTavilyBackend creates a Tavily backend with a resolved API key.
func NewTavilyBackend(client *http.Client, baseURL, apiKey string) *TavilyBackend {
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}
	return &TavilyBackend{client: client, baseURL: strings.TrimSuffix(baseURL, "/"), apiKey: apiKey}
}

func (b *TavilyBackend) Name() string { return BackendTavily }

// Search returns up to limit news results for the subject query.
func (b *TavilyBackend) Search(ctx context.Context, subject models.NewsSubject, limit int) ([]models.NewsItem, error) {
	query := subject.Query()
	if query == "" {
		return nil, nil
	}

	var resp tavilyResponse
	req := tavilyRequest{APIKey: b.apiKey, Query: query, Topic: "news", MaxResults: limit}
	if err := httpclient.PostJSON(ctx, b.client, b.baseURL+"/search", nil, req, &resp); err != nil {
		return nil, err
	}

	items := make([]models.NewsItem, 0, len(resp.Results))
	for _, r := range resp.Results {
		items = append(items, models.NewsItem{
			Title:       r.Title,
			Link:        r.URL,
			Summary:     r.Content,
			Source:      BackendTavily,
			PublishedAt: parseTime(r.PublishedDate),
		})
	}
	return items, nil
}

var timeLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime accepts the date formats seen in search API payloads.
func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
