package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// RAGService answers questions from indexed documents.
type RAGService interface {
	// Index chunks and embeds a document, returning the chunk count.
	// Indexing an already-indexed ID appends; use Reindex to replace.
	Index(ctx context.Context, doc *domain.Document) (int, error)

	// Reindex removes a document's existing entries then indexes it again.
	Reindex(ctx context.Context, doc *domain.Document) (int, error)

	// Query retrieves context for question and generates a grounded answer.
	Query(ctx context.Context, question string, opts domain.QueryOptions) (*domain.Answer, error)

	// Search ranks indexed chunks against query without generating an answer.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// ChunksForDocument returns a document's chunks in order.
	ChunksForDocument(ctx context.Context, documentID string) ([]domain.IndexEntry, error)

	// IsIndexed reports whether any chunks exist for a document.
	IsIndexed(ctx context.Context, documentID string) (bool, error)

	// DeleteDocument removes a document's chunks, returning how many were removed.
	DeleteDocument(ctx context.Context, documentID string) (int, error)

	// Stats reports index contents.
	Stats(ctx context.Context) (domain.IndexStats, error)

	// Reset drops every indexed chunk.
	Reset(ctx context.Context) error
}
