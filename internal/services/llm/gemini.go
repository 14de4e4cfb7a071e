package llm

import (
	"context"
	"fmt"
	"iter"

	"google.golang.org/genai"

	"github.com/ternarybob/confluo/internal/interfaces"
	"github.com/ternarybob/confluo/internal/models"
)

// GeminiInvoker streams completions from the Gemini API.
type GeminiInvoker struct {
	client *genai.Client
}

// NewGeminiInvoker creates a Gemini client for the given key.
func NewGeminiInvoker(ctx context.Context, apiKey string) (*GeminiInvoker, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", models.ErrCredentialMissing, err)
	}
	return &GeminiInvoker{client: client}, nil
}

// Stream yields text fragments as Gemini produces them.
func (g *GeminiInvoker) Stream(ctx context.Context, model string, req *interfaces.ModelRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		config := &genai.GenerateContentConfig{
			Temperature: genai.Ptr(req.Temperature),
		}
		if req.MaxTokens > 0 {
			config.MaxOutputTokens = int32(req.MaxTokens)
		}
		if req.SystemInstruction != "" {
			config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
		}

		for resp, err := range g.client.Models.GenerateContentStream(ctx, model, convertMessagesToGemini(req.Messages), config) {
			if err != nil {
				yield("", err)
				return
			}
			if resp == nil {
				continue
			}
			if text := resp.Text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}

// convertMessagesToGemini maps conversation turns onto Gemini contents.
// System turns are carried by the request's system instruction instead.
func convertMessagesToGemini(messages []models.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		case models.RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	return contents
}
