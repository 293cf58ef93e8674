// Package langchain provides an embedding service adapter for
// OpenAI-compatible endpoints (LM Studio, vLLM, LocalAI, ...) through
// langchaingo.
package langchain

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultBatchSize is the number of texts sent per request.
const DefaultBatchSize = 64

// placeholderToken satisfies langchaingo for local servers that ignore auth.
const placeholderToken = "unused"

// Config holds configuration for the compatible embedding service.
type Config struct {
	// BaseURL is the endpoint root, e.g. http://localhost:1234/v1 (required).
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Model is the embedding model name (required).
	Model string

	// Dimensions is the vector size the model returns.
	Dimensions int
}

// EmbeddingService generates embeddings through a langchaingo embedder.
type EmbeddingService struct {
	embedder   embeddings.Embedder
	model      string
	dimensions int
}

// NewEmbeddingService creates an embedding service for an OpenAI-compatible endpoint.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
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
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("langchain: create client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithBatchSize(DefaultBatchSize))
	if err != nil {
		return nil, fmt.Errorf("langchain: create embedder: %w", err)
	}

	return NewFromEmbedder(embedder, cfg.Model, cfg.Dimensions), nil
}

// NewFromEmbedder wraps an existing langchaingo embedder.
// Zero dims looks the model up in the known model table.
func NewFromEmbedder(embedder embeddings.Embedder, model string, dims int) *EmbeddingService {
	if dims == 0 {
		dims = domain.EmbeddingDimensions()[model]
	}
	return &EmbeddingService{
		embedder:   embedder,
		model:      model,
		dimensions: dims,
	}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("langchain: embed: %w", err)
	}
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("langchain: embed batch: %w", err)
	}
	return vecs, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping embeds a short probe and checks the vector size.
// Compatible servers have no standard health endpoint.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	vec, err := s.Embed(ctx, "ping")
	if err != nil {
		return err
	}
	if s.dimensions > 0 && len(vec) != s.dimensions {
		return fmt.Errorf("langchain: model %s returned %d dimensions, configured %d", s.model, len(vec), s.dimensions)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
