package models

import "time"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one conversation turn.
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string `json:"role"`
	// Content contains the text content of the message
	Content string `json:"content"`
}

// ModelQuery is one user turn dispatched to the model gateway.
type ModelQuery struct {
	ID             string    `json:"id"`
	SystemContext  string    `json:"system_context"`
	History        []Message `json:"history"`
	Prompt         string    `json:"prompt"`
	TargetModel    string    `json:"target_model"`
	FallbackModels []string  `json:"fallback_models"`
	CreatedAt      time.Time `json:"created_at"`
}

// Chain returns the target model followed by the fallbacks, skipping blanks and repeats.
func (q ModelQuery) Chain() []string {
	seen := make(map[string]bool)
	chain := make([]string, 0, len(q.FallbackModels)+1)
	for _, m := range append([]string{q.TargetModel}, q.FallbackModels...) {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		chain = append(chain, m)
	}
	return chain
}

// Messages returns the history followed by the prompt as a user turn.
func (q ModelQuery) Messages() []Message {
	msgs := make([]Message, 0, len(q.History)+1)
	msgs = append(msgs, q.History...)
	if q.Prompt != "" {
		msgs = append(msgs, Message{Role: RoleUser, Content: q.Prompt})
	}
	return msgs
}

// ChunkKind classifies a streamed chunk.
type ChunkKind string

const (
	ChunkText   ChunkKind = "text"
	ChunkNotice ChunkKind = "notice"
	ChunkError  ChunkKind = "error"
)

// Chunk is one piece of gateway output.
type Chunk struct {
	Kind  ChunkKind `json:"kind"`
	Text  string    `json:"text"`
	Model string    `json:"model,omitempty"`
}

// CacheEntry is a stored cache value.
type CacheEntry struct {
	Key       string    `json:"key"`
	Value     []byte    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}
