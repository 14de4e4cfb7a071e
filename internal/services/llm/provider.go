package llm

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/confluo/internal/common"
	"github.com/ternarybob/confluo/internal/interfaces"
	"github.com/ternarybob/confluo/internal/models"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
	// ProviderOpenAI uses the OpenAI chat completions API
	ProviderOpenAI ProviderType = "openai"
)

// geminiKeyPrefix is the prefix every Gemini API key carries.
const geminiKeyPrefix = "AIza"

var providerPrefixes = map[string]ProviderType{
	"claude/":    ProviderClaude,
	"anthropic/": ProviderClaude,
	"gemini/":    ProviderGemini,
	"google/":    ProviderGemini,
	"openai/":    ProviderOpenAI,
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "claude-sonnet-4-20250514" -> Claude
// - "claude/claude-sonnet-4-20250514" -> Claude (with prefix)
// - "gemini-2.5-flash" -> Gemini
// - "openai/gpt-4o-mini" or "gpt-4o-mini" -> OpenAI
// Anything else is treated as a Gemini model.
func DetectProvider(model string) ProviderType {
	model = strings.ToLower(strings.TrimSpace(model))

	for prefix, provider := range providerPrefixes {
		if strings.HasPrefix(model, prefix) {
			return provider
		}
	}

	switch {
	case strings.HasPrefix(model, "claude-"):
		return ProviderClaude
	case strings.HasPrefix(model, "gpt-"), strings.HasPrefix(model, "chatgpt-"),
		strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"), strings.HasPrefix(model, "o4"):
		return ProviderOpenAI
	default:
		return ProviderGemini
	}
}

// NormalizeModel removes provider prefix from model name if present
func NormalizeModel(model string) string {
	model = strings.TrimSpace(model)
	for prefix := range providerPrefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// ProviderFactory routes streaming requests to the provider that serves a
// model. Providers without a usable credential are recorded as unavailable;
// requests for their models fail with models.ErrCredentialMissing.
type ProviderFactory struct {
	invokers    map[ProviderType]interfaces.ModelInvoker
	unavailable map[ProviderType]error
	logger      arbor.ILogger
}

var _ interfaces.ModelInvoker = (*ProviderFactory)(nil)

// NewProviderFactory resolves credentials and creates a client per provider.
// It never fails: a missing or malformed credential disables only that provider.
func NewProviderFactory(ctx context.Context, config *common.Config, logger arbor.ILogger) *ProviderFactory {
	f := &ProviderFactory{
		invokers:    make(map[ProviderType]interfaces.ModelInvoker),
		unavailable: make(map[ProviderType]error),
		logger:      logger,
	}

	if key, err := common.ResolveAPIKey(common.GeminiKeyEnv, config.Gemini.APIKey); err != nil {
		f.disable(ProviderGemini, err)
	} else if !strings.HasPrefix(key, geminiKeyPrefix) {
		f.disable(ProviderGemini, fmt.Errorf("%w: gemini API key is malformed", models.ErrCredentialMissing))
	} else if invoker, err := NewGeminiInvoker(ctx, key); err != nil {
		f.disable(ProviderGemini, err)
	} else {
		f.invokers[ProviderGemini] = invoker
	}

	if key, err := common.ResolveAPIKey(common.ClaudeKeyEnv, config.Claude.APIKey); err != nil {
		f.disable(ProviderClaude, err)
	} else {
		f.invokers[ProviderClaude] = NewClaudeInvoker(key)
	}

	if key, err := common.ResolveAPIKey(common.OpenAIKeyEnv, config.OpenAI.APIKey); err != nil {
		f.disable(ProviderOpenAI, err)
	} else {
		f.invokers[ProviderOpenAI] = NewOpenAIInvoker(key, config.OpenAI.BaseURL)
	}

	logger.Debug().
		Strs("available", f.providerNames()).
		Int("unavailable", len(f.unavailable)).
		Msg("Model providers initialized")

	return f
}

func (f *ProviderFactory) disable(provider ProviderType, reason error) {
	f.unavailable[provider] = reason
	f.logger.Warn().
		Str("provider", string(provider)).
		Err(reason).
		Msg("Model provider unavailable, model features degraded")
}

func (f *ProviderFactory) providerNames() []string {
	names := make([]string, 0, len(f.invokers))
	for p := range f.invokers {
		names = append(names, string(p))
	}
	sort.Strings(names)
	return names
}

// Available reports whether the provider serving model has a client.
// The returned error explains why it does not.
func (f *ProviderFactory) Available(model string) error {
	provider := DetectProvider(model)
	if _, ok := f.invokers[provider]; ok {
		return nil
	}
	if reason, ok := f.unavailable[provider]; ok {
		return reason
	}
	return fmt.Errorf("%w: provider %s not configured", models.ErrCredentialMissing, provider)
}

// Stream routes the request to the provider detected from the model name.
func (f *ProviderFactory) Stream(ctx context.Context, model string, req *interfaces.ModelRequest) iter.Seq2[string, error] {
	provider := DetectProvider(model)
	invoker, ok := f.invokers[provider]
	if !ok {
		reason := f.Available(model)
		return func(yield func(string, error) bool) {
			yield("", reason)
		}
	}

	normalized := NormalizeModel(model)
	f.logger.Debug().
		Str("provider", string(provider)).
		Str("model", normalized).
		Int("message_count", len(req.Messages)).
		Msg("Streaming content with provider")

	return invoker.Stream(ctx, normalized, req)
}
