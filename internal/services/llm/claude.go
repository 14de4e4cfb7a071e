package llm

import (
	"context"
	"iter"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ternarybob/confluo/internal/interfaces"
	"github.com/ternarybob/confluo/internal/models"
)

// defaultClaudeMaxTokens is used when the request leaves MaxTokens unset.
const defaultClaudeMaxTokens = 4096

// ClaudeInvoker streams completions from the Anthropic Messages API.
type ClaudeInvoker struct {
	client anthropic.Client
}

// NewClaudeInvoker creates an Anthropic client for the given key.
func NewClaudeInvoker(apiKey string) *ClaudeInvoker {
	return &ClaudeInvoker{client: anthropic.NewClient(option.WithAPIKey(apiKey))}
}

// Stream yields text deltas as Claude produces them.
func (c *ClaudeInvoker) Stream(ctx context.Context, model string, req *interfaces.ModelRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		maxTokens := req.MaxTokens
		if maxTokens <= 0 {
			maxTokens = defaultClaudeMaxTokens
		}

		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: int64(maxTokens),
			Messages:  convertMessagesToClaude(req.Messages),
		}
		if req.Temperature > 0 {
			params.Temperature = anthropic.Float(float64(req.Temperature))
		}
		if req.SystemInstruction != "" {
			params.System = []anthropic.TextBlockParam{
				{Text: req.SystemInstruction},
			}
		}

		stream := c.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch delta := ev.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if delta.Text != "" && !yield(delta.Text, nil) {
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			yield("", err)
		}
	}
}

func convertMessagesToClaude(messages []models.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		case models.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return out
}
