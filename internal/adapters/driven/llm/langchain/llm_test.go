package langchain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

type fakeModel struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	resp     *llms.ContentResponse
	err      error
}

func (f *fakeModel) GenerateContent(
	_ context.Context,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	return f.resp, f.err
}

func (f *fakeModel) Call(ctx context.Context, p string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, p, options...)
}

func TestComplete_MapsRolesAndOptions(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:        "answer",
		GenerationInfo: map[string]any{"TotalTokens": 99},
	}}}}
	svc := NewFromModel(model, "llama-3.3-70b-versatile")

	out, err := svc.Complete(context.Background(), driven.CompletionRequest{
		SystemPrompt: "sys",
		History:      []domain.ChatMessage{{Role: domain.ChatRoleAssistant, Content: "prev"}},
		UserMessage:  "question",
		Temperature:  0.3,
		MaxTokens:    256,
	})
	require.NoError(t, err)

	assert.Equal(t, "answer", out.Text)
	assert.Equal(t, 99, out.TokensUsed)
	assert.Equal(t, "llama-3.3-70b-versatile", out.Model)

	require.Len(t, model.messages, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, model.messages[1].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[2].Role)
	assert.InDelta(t, 0.3, model.opts.Temperature, 1e-9)
	assert.Equal(t, 256, model.opts.MaxTokens)
}

func TestComplete_SumsPartialTokenCounts(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:        "x",
		GenerationInfo: map[string]any{"PromptTokens": 5, "CompletionTokens": 2},
	}}}}

	out, err := NewFromModel(model, "m").Complete(context.Background(), driven.CompletionRequest{UserMessage: "q"})
	require.NoError(t, err)
	assert.Equal(t, 7, out.TokensUsed)
}

func TestComplete_ErrorWrapsUnavailable(t *testing.T) {
	model := &fakeModel{err: errors.New("connection refused")}

	_, err := NewFromModel(model, "m").Complete(context.Background(), driven.CompletionRequest{UserMessage: "q"})
	require.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestComplete_RateLimited(t *testing.T) {
	model := &fakeModel{err: errors.New("API returned unexpected status code: 429")}

	_, err := NewFromModel(model, "m").Complete(context.Background(), driven.CompletionRequest{UserMessage: "q"})
	require.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestComplete_NoChoices(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{}}

	_, err := NewFromModel(model, "m").Complete(context.Background(), driven.CompletionRequest{UserMessage: "q"})
	require.Error(t, err)
}

func TestNewLLMService_Validation(t *testing.T) {
	_, err := NewLLMService(Config{Model: "m"})
	require.Error(t, err)

	_, err = NewLLMService(Config{BaseURL: "http://localhost:1234/v1"})
	require.Error(t, err)

	svc, err := NewLLMService(Config{BaseURL: "http://localhost:1234/v1", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "m", svc.ModelName())
}

func TestNewGroq_RequiresKey(t *testing.T) {
	_, err := NewGroq("", "llama")
	require.Error(t, err)

	svc, err := NewGroq("gsk_test", "llama")
	require.NoError(t, err)
	assert.Equal(t, "llama", svc.ModelName())
}
