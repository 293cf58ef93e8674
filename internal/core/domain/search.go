package domain

import "time"

// Default result counts for retrieval.
const (
	// DefaultQueryTopK is used when answering a question.
	DefaultQueryTopK = 5

	// DefaultSearchTopK is used for the semantic search view.
	DefaultSearchTopK = 10
)

// IndexEntry is a chunk stored in the vector index with its embedding.
type IndexEntry struct {
	// ID is the unique identifier for the entry.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// ChunkIndex is the authoritative order key within the document.
	ChunkIndex int

	// Content is the chunk text.
	Content string

	// Embedding is the vector representation of Content.
	Embedding []float32

	// Metadata holds source name, kind and extension fields.
	Metadata map[string]any

	// CreatedAt is when the entry was added.
	CreatedAt time.Time
}

// SearchResult represents a single ranked hit.
type SearchResult struct {
	// Entry is the matched index entry.
	Entry IndexEntry

	// Score is the cosine similarity between query and entry.
	Score float64
}

// IndexStats summarises the contents of a vector index.
type IndexStats struct {
	TotalDocuments       int
	TotalChunks          int
	AvgChunksPerDocument float64
}

// SearchOptions configures a retrieval-only search.
type SearchOptions struct {
	// DocumentID restricts results to one document when set.
	DocumentID string

	// TopK is the maximum number of results. Zero uses DefaultSearchTopK.
	TopK int
}

// QueryOptions configures a question answered from retrieved context.
type QueryOptions struct {
	// DocumentID restricts retrieval to one document when set.
	DocumentID string

	// TopK is the number of chunks to retrieve. Zero uses DefaultQueryTopK.
	TopK int

	// History holds earlier turns of the conversation, oldest first.
	History []ChatMessage
}

// NewIndexStats derives the per-document average from the two counts.
func NewIndexStats(documents, chunks int) IndexStats {
	s := IndexStats{TotalDocuments: documents, TotalChunks: chunks}
	if documents > 0 {
		s.AvgChunksPerDocument = float64(chunks) / float64(documents)
	}
	return s
}
