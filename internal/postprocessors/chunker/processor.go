// Package chunker splits documents into retrieval-sized chunks.
//
// Text is split on sentence boundaries and packed greedily up to a target
// size, with a few trailing words carried into the next chunk. Tabular data
// becomes a schema chunk, batches of self-describing rows and an optional
// summary statistics chunk. Output is a pure function of the input and the
// configured options.
package chunker

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// DefaultChunkSize is the target number of characters per text chunk.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the overlap in characters between window slices.
const DefaultChunkOverlap = 50

// DefaultOverlapWords is the number of trailing words seeded into the next chunk.
const DefaultOverlapWords = DefaultChunkOverlap / 5

// DefaultRowsPerChunk is the number of table rows rendered per chunk.
const DefaultRowsPerChunk = 20

// Chunk sections recorded in chunk metadata.
const (
	SectionText       = "text"
	SectionSchema     = "schema"
	SectionRows       = "rows"
	SectionStatistics = "statistics"
)

// Processor splits document content into chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize    int
	overlap      int
	overlapWords int
	rowsPerChunk int
	statistics   bool
	maxChunks    int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between window slices in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithOverlapWords sets how many trailing words start the next text chunk.
func WithOverlapWords(words int) Option {
	return func(p *Processor) {
		if words >= 0 {
			p.overlapWords = words
		}
	}
}

// WithRowsPerChunk sets the number of table rows per chunk.
func WithRowsPerChunk(rows int) Option {
	return func(p *Processor) {
		if rows > 0 {
			p.rowsPerChunk = rows
		}
	}
}

// WithStatistics enables or disables the summary statistics chunk.
func WithStatistics(enabled bool) Option {
	return func(p *Processor) {
		p.statistics = enabled
	}
}

// WithMaxChunks caps the number of chunks per document. Zero means no cap.
// The schema chunk of a tabular document is always kept.
func WithMaxChunks(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.maxChunks = n
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:    DefaultChunkSize,
		overlap:      DefaultChunkOverlap,
		overlapWords: DefaultOverlapWords,
		rowsPerChunk: DefaultRowsPerChunk,
		statistics:   true,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document into chunks according to its kind.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		texts    []string
		sections []string
	)
	if doc.IsTabular() {
		texts, sections = p.chunkTabular(doc.Rows, doc.Columns)
	} else {
		texts = p.ChunkText(doc.Content)
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		section := SectionText
		if sections != nil {
			section = sections[i]
		}
		chunks[i] = domain.Chunk{
			DocumentID: doc.ID,
			Index:      i,
			Content:    text,
			Metadata:   map[string]any{"section": section},
		}
	}

	return chunks, nil
}
