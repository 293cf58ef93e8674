// Package langchain provides an LLM service adapter for Groq and other
// OpenAI-compatible chat endpoints through langchaingo.
package langchain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/custodia-labs/docchat/internal/adapters/driven/llm/prompt"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var (
	_ driven.LLMService       = (*LLMService)(nil)
	_ driven.PromptStoreAware = (*LLMService)(nil)
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

const placeholderToken = "unused"

// Config holds configuration for the compatible LLM service.
type Config struct {
	// BaseURL is the endpoint root (required).
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Model is the chat model name (required).
	Model string
}

// LLMService answers through a langchaingo model.
type LLMService struct {
	model       llms.Model
	name        string
	promptStore driven.PromptStore
}

// NewLLMService creates an LLM service for an OpenAI-compatible endpoint.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("langchain: base URL is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("langchain: model is required")
	}

	token := cfg.APIKey
	if token == "" {
		token = placeholderToken
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(token),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("langchain: create client: %w", err)
	}
	return NewFromModel(client, cfg.Model), nil
}

// NewGroq creates an LLM service for Groq.
func NewGroq(apiKey, model string) (*LLMService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("groq: API key is required")
	}
	return NewLLMService(Config{BaseURL: GroqBaseURL, APIKey: apiKey, Model: model})
}

// NewFromModel wraps an existing langchaingo model.
func NewFromModel(model llms.Model, name string) *LLMService {
	return &LLMService{model: model, name: name}
}

// Complete generates a reply with GenerateContent.
func (s *LLMService) Complete(ctx context.Context, req driven.CompletionRequest) (*driven.Completion, error) {
	msgs := req.Messages()
	content := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		content = append(content, llms.TextParts(messageType(m.Role), m.Content))
	}

	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	resp, err := s.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		if strings.Contains(err.Error(), "429") {
			return nil, fmt.Errorf("langchain: %w: %w", domain.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("langchain: %w: %w", domain.ErrLLMUnavailable, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, errors.New("langchain: no response choices returned")
	}

	choice := resp.Choices[0]
	return &driven.Completion{
		Text:       choice.Content,
		TokensUsed: tokensUsed(choice.GenerationInfo),
		Model:      s.name,
	}, nil
}

// Summarise creates a summary of document content.
func (s *LLMService) Summarise(ctx context.Context, content string, maxLength int) (string, error) {
	return prompt.Summarise(ctx, s, s.promptStore, content, maxLength)
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.name
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (s *LLMService) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// Ping sends a one-token completion.
func (s *LLMService) Ping(ctx context.Context) error {
	_, err := s.Complete(ctx, driven.CompletionRequest{UserMessage: "ping", MaxTokens: 1})
	return err
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}

func messageType(role domain.ChatRole) llms.ChatMessageType {
	switch role {
	case domain.ChatRoleSystem:
		return llms.ChatMessageTypeSystem
	case domain.ChatRoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func tokensUsed(info map[string]any) int {
	if total := intValue(info["TotalTokens"]); total > 0 {
		return total
	}
	return intValue(info["PromptTokens"]) + intValue(info["CompletionTokens"])
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
