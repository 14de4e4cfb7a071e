package llm

import (
	"context"
	"iter"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"

	"github.com/ternarybob/confluo/internal/interfaces"
	"github.com/ternarybob/confluo/internal/models"
)

// OpenAIInvoker streams chat completions from an OpenAI-compatible endpoint.
type OpenAIInvoker struct {
	completions openai.ChatCompletionService
}

// NewOpenAIInvoker creates an OpenAI client. An empty baseURL uses the public API.
func NewOpenAIInvoker(apiKey, baseURL string) *OpenAIInvoker {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIInvoker{completions: client.Chat.Completions}
}

// Stream yields content deltas as the model produces them.
func (o *OpenAIInvoker) Stream(ctx context.Context, model string, req *interfaces.ModelRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		params := openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(model),
			Messages: convertMessagesToOpenAI(req.SystemInstruction, req.Messages),
		}
		if req.MaxTokens > 0 {
			params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
		}
		if req.Temperature > 0 {
			params.Temperature = param.NewOpt(float64(req.Temperature))
		}

		stream := o.completions.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			if text := chunk.Choices[0].Delta.Content; text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			yield("", err)
		}
	}
}

func convertMessagesToOpenAI(system string, messages []models.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		case models.RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
