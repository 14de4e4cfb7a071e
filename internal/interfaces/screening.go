package interfaces

import (
	"context"
	"iter"

	"github.com/ternarybob/confluo/internal/models"
)

// RankSource fetches ranked listings and normalizes them.
// Implementations are fail-soft: network and parse trouble yields empty results.
type RankSource interface {
	Collect(ctx context.Context, desc models.SourceDescriptor) []models.RankedEntry
	CollectThemes(ctx context.Context, themes, members models.SourceDescriptor, maxThemes int) []models.ThemeGroup
	QuoteSource
}

// QuoteSource looks up per-instrument fundamentals. Returns "" when unavailable.
type QuoteSource interface {
	MarketCap(ctx context.Context, code string) string
}

// NewsBackend is one origin of news items for a subject.
type NewsBackend interface {
	Name() string
	Search(ctx context.Context, subject models.NewsSubject, limit int) ([]models.NewsItem, error)
}

// NewsSource aggregates news for a subject.
type NewsSource interface {
	Aggregate(ctx context.Context, subject models.NewsSubject) models.NewsDigest
}

// ModelRequest is the provider-agnostic input to a streaming model call.
type ModelRequest struct {
	SystemInstruction string
	Messages          []models.Message
	Temperature       float32
	MaxTokens         int
}

// ModelInvoker streams text fragments for a request against one model.
// The sequence ends after the last fragment or after yielding a non-nil error.
type ModelInvoker interface {
	Stream(ctx context.Context, model string, req *ModelRequest) iter.Seq2[string, error]
}

// ExchangeLog records the outcome of a gateway turn.
type ExchangeLog interface {
	Complete(queryID, model, text string)
	Fail(queryID, reason string)
}
