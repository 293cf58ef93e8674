package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// DocumentService manages uploaded documents and keeps the index in step.
type DocumentService interface {
	// Upload normalises, stores and indexes a raw document.
	// An upload with the ID of a stored document replaces it.
	Upload(ctx context.Context, raw *domain.RawDocument) (*UploadResult, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// List returns all stored documents.
	List(ctx context.Context) ([]domain.Document, error)

	// GetDetails returns metadata for display.
	GetDetails(ctx context.Context, documentID string) (*DocumentDetails, error)

	// Delete removes a document from the store and the index.
	Delete(ctx context.Context, documentID string) error

	// Summarise asks the LLM for a summary of the document's chunks.
	Summarise(ctx context.Context, documentID string, maxLength int) (string, error)

	// Restore re-indexes every stored document. Vectors live only as long
	// as the process, so this runs at start-up.
	Restore(ctx context.Context) (int, error)
}

// UploadResult describes a completed upload.
type UploadResult struct {
	// Document is the stored document.
	Document *domain.Document

	// Chunks is the number of chunks indexed.
	Chunks int

	// Replaced is true when an existing document was overwritten.
	Replaced bool
}

// DocumentDetails provides a standardised view of document metadata.
type DocumentDetails struct {
	// ID is the unique document identifier.
	ID string

	// Name is the display name.
	Name string

	// Kind is text or tabular.
	Kind domain.DocumentKind

	// URI is the original location.
	URI string

	// MIMEType is the parsed content type.
	MIMEType string

	// Size is the upload size in bytes.
	Size int64

	// ChunkCount is the number of indexed chunks.
	ChunkCount int

	// Columns lists tabular columns.
	Columns []string

	// RowCount is the number of tabular rows.
	RowCount int

	// CreatedAt is when the document was first stored.
	CreatedAt time.Time

	// UpdatedAt is when the document was last replaced.
	UpdatedAt time.Time

	// Metadata contains flattened key-value pairs for display.
	Metadata map[string]string
}
