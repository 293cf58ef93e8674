package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// VectorIndex stores chunk embeddings grouped by document and ranks them
// against a query. Entries are embedded with the index's Embedder.
//
// Search against an empty index, or with a document filter that matches
// nothing, returns an empty slice and a nil error.
type VectorIndex interface {
	// Add embeds text and stores it as chunk chunkIndex of documentID.
	Add(ctx context.Context, documentID, text string, chunkIndex int, metadata map[string]any) (domain.IndexEntry, error)

	// AddBatch stores chunks as chunk indexes 0..n-1 of documentID.
	// Entries are returned in chunk order.
	AddBatch(ctx context.Context, documentID string, chunks []string, metadata map[string]any) ([]domain.IndexEntry, error)

	// Search returns at most topK entries ordered by descending similarity,
	// ties broken by insertion order. An empty documentID searches everything.
	Search(ctx context.Context, query string, topK int, documentID string) ([]domain.SearchResult, error)

	// ChunksForDocument returns a document's entries ordered by chunk index.
	ChunksForDocument(ctx context.Context, documentID string) ([]domain.IndexEntry, error)

	// DeleteDocument removes all entries for a document and returns how many
	// were removed. Unknown documents return 0.
	DeleteDocument(ctx context.Context, documentID string) (int, error)

	// Stats computes document and chunk counts.
	Stats(ctx context.Context) (domain.IndexStats, error)

	// Clear drops every entry.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close() error
}
