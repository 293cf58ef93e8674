package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// DocumentStore persists uploaded documents.
// Backed by SQLite; vectors are rebuilt from stored documents on start-up.
type DocumentStore interface {
	// SaveDocument stores or replaces a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// DeleteDocument removes a document. Deleting a missing document is not an error.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns all documents ordered by creation time.
	ListDocuments(ctx context.Context) ([]domain.Document, error)
}
