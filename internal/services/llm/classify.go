package llm

import (
	"errors"
	"regexp"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v2"
	"google.golang.org/genai"

	"github.com/ternarybob/confluo/internal/models"
)

// quotaMarkers are matched case-insensitively against error text when no
// typed provider error is available.
var quotaMarkers = []string{"resource_exhausted", "quota"}

// quotaStatus matches 429 as a standalone status token, not inside ports or ids.
var quotaStatus = regexp.MustCompile(`\b429\b`)

// Classify maps a provider failure onto models.ErrQuotaExceeded or
// models.ErrOtherModel. Only a quota classification allows switching model.
func Classify(err error) error {
	if IsQuotaError(err) {
		return models.ErrQuotaExceeded
	}
	return models.ErrOtherModel
}

// IsQuotaError reports whether err is a quota or rate limit failure.
// Typed API errors decide on their status alone; otherwise the error text
// is matched.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, models.ErrQuotaExceeded) {
		return true
	}

	// A typed provider error carries the status; its verdict is final.
	var geminiErr genai.APIError
	if errors.As(err, &geminiErr) {
		return geminiErr.Code == 429 || strings.EqualFold(geminiErr.Status, "RESOURCE_EXHAUSTED")
	}
	var claudeErr *anthropic.Error
	if errors.As(err, &claudeErr) {
		return claudeErr.StatusCode == 429
	}
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode == 429
	}

	text := strings.ToLower(err.Error())
	if quotaStatus.MatchString(text) {
		return true
	}
	for _, marker := range quotaMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
