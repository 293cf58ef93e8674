// Package ai provides factory functions for creating AI service adapters
// and wiring them into the embedder and vector index used for retrieval.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/docchat/internal/adapters/driven/embedding/langchain"
	"github.com/custodia-labs/docchat/internal/adapters/driven/embedding/local"
	ollamaembed "github.com/custodia-labs/docchat/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docchat/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/docchat/internal/adapters/driven/embedding/provider"
	anthropicllm "github.com/custodia-labs/docchat/internal/adapters/driven/llm/anthropic"
	langchainllm "github.com/custodia-labs/docchat/internal/adapters/driven/llm/langchain"
	ollamallm "github.com/custodia-labs/docchat/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docchat/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/chromem"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService // Nil when embeddings are local only.
	Embedder         driven.Embedder
	LLMService       driven.LLMService // Nil when answering is unavailable.
	VectorIndex      driven.VectorIndex
	Warnings         []string // Non-fatal issues that caused fallback.
	FellBack         bool     // True if the embedding provider was unusable.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.VectorIndex != nil {
		r.VectorIndex.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Initialise builds every AI-facing dependency from settings.
// Provider problems are reported as warnings; only a vector index that
// cannot be opened is an error.
func Initialise(ctx context.Context, settings *domain.AppSettings, prompts driven.PromptStore) (*InitResult, error) {
	if settings == nil {
		defaults := domain.DefaultAppSettings()
		settings = &defaults
	}
	result := &InitResult{}

	embedSvc, err := CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		result.FellBack = true
		logger.Warn("embedding provider unavailable, using local hash embeddings: %v", err)
	}
	result.EmbeddingService = embedSvc
	result.Embedder = NewEmbedder(embedSvc, &settings.Embedding)

	llmSvc, err := CreateAndValidateLLMService(&settings.LLM)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		logger.Warn("LLM provider unavailable, answering disabled: %v", err)
	}
	if llmSvc != nil {
		if aware, ok := llmSvc.(driven.PromptStoreAware); ok && prompts != nil {
			aware.SetPromptStore(prompts)
		}
		result.LLMService = llmSvc
	}

	index, err := CreateVectorIndex(ctx, result.Embedder, &settings.RAG)
	if err != nil {
		result.Close()
		return nil, err
	}
	result.VectorIndex = index

	return result, nil
}

// NewEmbedder wraps svc so that failures fall back to local hash
// embeddings of the same size. A nil svc embeds locally only.
func NewEmbedder(svc driven.EmbeddingService, settings *domain.EmbeddingSettings) driven.Embedder {
	dims := domain.DefaultFallbackDimensions
	if settings != nil && settings.Dimensions > 0 {
		dims = settings.Dimensions
	}
	if svc != nil && svc.Dimensions() > 0 {
		dims = svc.Dimensions()
	}

	fallback := local.NewHashEmbedder(dims)
	if svc == nil {
		return fallback
	}
	return provider.New(svc, fallback, provider.Config{})
}

// CreateVectorIndex opens the configured vector backend.
func CreateVectorIndex(ctx context.Context, embedder driven.Embedder, settings *domain.RAGSettings) (driven.VectorIndex, error) {
	backend := domain.VectorBackendMemory
	if settings != nil && settings.VectorBackend != "" {
		backend = settings.VectorBackend
	}

	switch backend {
	case domain.VectorBackendMemory:
		return memory.NewVectorIndex(embedder), nil
	case domain.VectorBackendChromem:
		return chromem.NewVectorIndex(ctx, embedder, chromem.Config{PersistDir: settings.PersistDir})
	default:
		return nil, fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidInput, backend)
	}
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'docchat settings set' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'docchat settings set' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'docchat settings set' to fix",
			domain.ErrLLMUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'docchat settings set' to fix",
			domain.ErrLLMUnavailable, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return embedding(openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}))

	case domain.AIProviderCompatible:
		return embedding(langchain.NewEmbeddingService(langchain.Config{
			BaseURL:    settings.BaseURL,
			APIKey:     settings.APIKey,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}))

	case domain.AIProviderAnthropic, domain.AIProviderGroq:
		return nil, fmt.Errorf("%s does not support embeddings, use ollama, openai or openai_compatible", settings.Provider)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	model := settings.Model
	if model == "" {
		model = domain.DefaultLLMModels()[settings.Provider]
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   model,
		}), nil

	case domain.AIProviderOpenAI:
		return llm(openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   model,
		}))

	case domain.AIProviderAnthropic:
		return llm(anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   model,
		}))

	case domain.AIProviderGroq:
		return llm(langchainllm.NewGroq(settings.APIKey, model))

	case domain.AIProviderCompatible:
		return llm(langchainllm.NewLLMService(langchainllm.Config{
			BaseURL: settings.BaseURL,
			APIKey:  settings.APIKey,
			Model:   model,
		}))

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// createOllamaEmbedding uses the model's native size when known.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = settings.Dimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// llm and embedding keep a failed constructor from returning a typed nil
// inside a non-nil interface.
func llm[S driven.LLMService](svc S, err error) (driven.LLMService, error) {
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func embedding[S driven.EmbeddingService](svc S, err error) (driven.EmbeddingService, error) {
	if err != nil {
		return nil, err
	}
	return svc, nil
}
