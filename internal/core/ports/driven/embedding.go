// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// Embedder turns arbitrary text into a fixed-length vector.
//
// Embed never fails: implementations backed by a remote provider degrade
// to a deterministic local computation instead of returning an error, so
// that indexing and retrieval stay available when the provider is down.
// Non-zero vectors are L2-normalised.
type Embedder interface {
	// Embed returns the vector for text.
	Embed(ctx context.Context, text string) []float32

	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) [][]float32

	// Dimensions returns the vector size.
	Dimensions() int

	// Name identifies the embedding strategy for logging.
	Name() string
}

// EmbeddingService generates vector embeddings from text via a provider.
// This is an optional service - when nil, the local hash embedder is used.
//
// Note: This is separate from Embedder which never fails.
// EmbeddingService reports provider errors; Embedder absorbs them.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI-compatible inference servers
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	// This is more efficient than calling Embed in a loop for large batches.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
