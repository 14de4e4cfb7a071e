package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/confluo/internal/models"
)

// maxBodySize caps how much of a response body is read
const maxBodySize = 10 * 1024 * 1024

// NewDefaultHTTPClient creates a simple HTTP client with a timeout
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// Response is a fetched page body with the header needed for decoding.
type Response struct {
	Body        []byte
	ContentType string
	FinalURL    string
}

// Fetch performs a GET with the given headers and returns the body.
// Transport failures and non-2xx statuses are wrapped in models.ErrSourceFetch.
func Fetch(ctx context.Context, client *http.Client, url string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request %s: %v", models.ErrSourceFetch, url, err)
	}
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrSourceFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: status %d", models.ErrSourceFetch, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", models.ErrSourceFetch, url, err)
	}

	return &Response{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// Headers builds the common request headers.
func Headers(userAgent, referer string) map[string]string {
	return map[string]string{
		"User-Agent": userAgent,
		"Referer":    referer,
	}
}
