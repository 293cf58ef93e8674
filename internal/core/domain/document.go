package domain

import "time"

// DocumentKind distinguishes free text from row-oriented data.
type DocumentKind string

// Available document kinds.
const (
	// DocumentKindText is prose split on sentence boundaries.
	DocumentKindText DocumentKind = "text"

	// DocumentKindTabular is row records with a fixed column list.
	DocumentKindTabular DocumentKind = "tabular"
)

// IsValid returns true if the kind is recognised.
func (k DocumentKind) IsValid() bool {
	return k == DocumentKindText || k == DocumentKindTabular
}

// String returns the string representation.
func (k DocumentKind) String() string {
	return string(k)
}

// Document represents an uploaded artifact after normalisation.
// It is immutable once stored; chunks reference it by ID.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Name is the display name, usually the file name.
	Name string

	// URI is the original location (file path, URL, etc).
	URI string

	// MIMEType is the content type the document was parsed from.
	MIMEType string

	// Kind selects the chunking strategy.
	Kind DocumentKind

	// Content is the full text for text documents.
	Content string

	// Columns is the ordered column list for tabular documents.
	Columns []string

	// Rows holds one record per row, keyed by column name.
	Rows []map[string]any

	// Size is the size of the original upload in bytes.
	Size int64

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the document was first stored.
	CreatedAt time.Time

	// UpdatedAt is when the document was last replaced.
	UpdatedAt time.Time
}

// IsTabular reports whether the document carries row data.
func (d *Document) IsTabular() bool {
	return d.Kind == DocumentKindTabular
}

// IsEmpty reports whether the document has nothing to chunk.
func (d *Document) IsEmpty() bool {
	if d.IsTabular() {
		return len(d.Columns) == 0 && len(d.Rows) == 0
	}
	return d.Content == ""
}

// Chunk represents a retrieval unit within a document.
type Chunk struct {
	// DocumentID links to the parent Document.
	DocumentID string

	// Index is the 0-based ordinal position within the document.
	Index int

	// Content is the text content of this chunk.
	Content string

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}
