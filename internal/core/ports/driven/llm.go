// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// LLMService provides language model operations for answering and summarising.
// This is an optional service - when nil, question answering is disabled
// while indexing and semantic search keep working.
//
// Implementations may include:
//   - OpenAI (GPT-4o)
//   - Anthropic (Claude)
//   - Ollama (local models)
//   - Groq and other OpenAI-compatible endpoints
type LLMService interface {
	// Complete sends a system prompt, prior turns and a user message,
	// returning the reply and the tokens consumed.
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)

	// Summarise creates a summary of document content.
	Summarise(ctx context.Context, content string, maxLength int) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompletionRequest is a single chat completion call.
type CompletionRequest struct {
	// SystemPrompt constrains the model. May be empty.
	SystemPrompt string

	// History holds earlier turns, oldest first.
	History []domain.ChatMessage

	// UserMessage is the new user turn.
	UserMessage string

	// MaxTokens is the maximum number of tokens to generate. Zero uses the provider default.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

// Messages flattens the request into provider message order.
func (r CompletionRequest) Messages() []domain.ChatMessage {
	msgs := make([]domain.ChatMessage, 0, len(r.History)+2)
	if r.SystemPrompt != "" {
		msgs = append(msgs, domain.ChatMessage{Role: domain.ChatRoleSystem, Content: r.SystemPrompt})
	}
	msgs = append(msgs, r.History...)
	return append(msgs, domain.ChatMessage{Role: domain.ChatRoleUser, Content: r.UserMessage})
}

// Completion is the generator's reply.
type Completion struct {
	// Text is the generated message content.
	Text string

	// TokensUsed is prompt plus completion tokens as reported by the provider.
	TokensUsed int

	// Model is the model that produced the reply.
	Model string
}
