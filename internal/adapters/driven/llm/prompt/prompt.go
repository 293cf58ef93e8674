// Package prompt holds prompt handling shared by the LLM adapters.
package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// DefaultSummarise is the fallback prompt when no PromptStore is configured.
const DefaultSummarise = `Summarise the following content in %d characters or less.
Be concise and capture the key points.

Content:
%s

Summary:`

// summaryTemperature keeps summaries close to the source text.
const summaryTemperature = 0.3

// Completer is the part of driven.LLMService the helpers need.
type Completer interface {
	Complete(ctx context.Context, req driven.CompletionRequest) (*driven.Completion, error)
}

// Load loads a prompt from the store, falling back to the default if unavailable.
func Load(store driven.PromptStore, name, fallback string) string {
	if store == nil {
		return fallback
	}
	p, err := store.Load(name)
	if err != nil || strings.TrimSpace(p) == "" {
		return fallback
	}
	return p
}

// Summarise asks c for a summary of content no longer than maxLength characters.
func Summarise(
	ctx context.Context,
	c Completer,
	store driven.PromptStore,
	content string,
	maxLength int,
) (string, error) {
	if maxLength <= 0 {
		maxLength = 500
	}
	tmpl := Load(store, driven.PromptSummarise, DefaultSummarise)

	out, err := c.Complete(ctx, driven.CompletionRequest{
		UserMessage: fmt.Sprintf(tmpl, maxLength, content),
		MaxTokens:   max(maxLength/4, 16), // ~4 chars per token
		Temperature: summaryTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("summarise: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}
