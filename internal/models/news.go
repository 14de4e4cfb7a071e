package models

import (
	"strings"
	"time"
)

// NewsItem is one normalized news result.
type NewsItem struct {
	Title         string     `json:"title"`
	Link          string     `json:"link"`
	CanonicalLink string     `json:"canonical_link"`
	Summary       string     `json:"summary"`
	Body          string     `json:"body,omitempty"` // deep-fetched article text
	Source        string     `json:"source"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
}

// Text returns the body when present, the summary otherwise.
func (n NewsItem) Text() string {
	if n.Body != "" {
		return n.Body
	}
	return n.Summary
}

// NewsSubject describes what news is gathered for.
type NewsSubject struct {
	Code       string   `json:"code,omitempty"`
	Name       string   `json:"name,omitempty"`
	Qualifiers []string `json:"qualifiers,omitempty"`
	MarketWide bool     `json:"market_wide,omitempty"`
}

// Query builds the free-text search query for the subject.
func (s NewsSubject) Query() string {
	parts := make([]string, 0, len(s.Qualifiers)+1)
	if s.Name != "" {
		parts = append(parts, s.Name)
	}
	for _, q := range s.Qualifiers {
		if q = strings.TrimSpace(q); q != "" {
			parts = append(parts, q)
		}
	}
	return strings.Join(parts, " ")
}

// NewsDigest is the deduplicated, size-bounded news set for a subject.
type NewsDigest struct {
	Subject   NewsSubject `json:"subject"`
	Items     []NewsItem  `json:"items"`
	Headlines []string    `json:"headlines,omitempty"` // titles of items beyond the cap
}
