package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// Default batching for AddBatch.
const (
	DefaultEmbedBatchSize   = 32
	DefaultEmbedConcurrency = 4
)

type record struct {
	entry domain.IndexEntry
	seq   uint64
}

// VectorIndex is an in-memory implementation of driven.VectorIndex.
// Search is an exhaustive cosine scan.
type VectorIndex struct {
	embedder driven.Embedder

	mu        sync.RWMutex
	entries   map[string]*record
	documents map[string][]string // document ID -> entry IDs
	seq       uint64

	batchSize   int
	concurrency int
	now         func() time.Time
}

// VectorIndexOption configures a VectorIndex.
type VectorIndexOption func(*VectorIndex)

// WithEmbedBatchSize sets how many chunks are embedded per EmbedBatch call.
func WithEmbedBatchSize(n int) VectorIndexOption {
	return func(v *VectorIndex) {
		if n > 0 {
			v.batchSize = n
		}
	}
}

// WithEmbedConcurrency sets how many embedding batches run at once.
func WithEmbedConcurrency(n int) VectorIndexOption {
	return func(v *VectorIndex) {
		if n > 0 {
			v.concurrency = n
		}
	}
}

// NewVectorIndex creates an empty index that embeds with embedder.
func NewVectorIndex(embedder driven.Embedder, opts ...VectorIndexOption) *VectorIndex {
	v := &VectorIndex{
		embedder:    embedder,
		entries:     make(map[string]*record),
		documents:   make(map[string][]string),
		batchSize:   DefaultEmbedBatchSize,
		concurrency: DefaultEmbedConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Add embeds text and stores it.
func (v *VectorIndex) Add(
	ctx context.Context,
	documentID, text string,
	chunkIndex int,
	metadata map[string]any,
) (domain.IndexEntry, error) {
	if documentID == "" {
		return domain.IndexEntry{}, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(text) == "" {
		return domain.IndexEntry{}, fmt.Errorf("%w: chunk text is empty", domain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return domain.IndexEntry{}, err
	}

	entry := v.newEntry(documentID, text, chunkIndex, metadata, v.embedder.Embed(ctx, text))

	v.mu.Lock()
	v.insert(entry)
	v.mu.Unlock()

	return entry, nil
}

// AddBatch embeds chunks in parallel batches, then inserts them in chunk order.
func (v *VectorIndex) AddBatch(
	ctx context.Context,
	documentID string,
	chunks []string,
	metadata map[string]any,
) ([]domain.IndexEntry, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	if len(chunks) == 0 {
		return nil, nil
	}
	for i, c := range chunks {
		if strings.TrimSpace(c) == "" {
			return nil, fmt.Errorf("%w: chunk %d is empty", domain.ErrInvalidInput, i)
		}
	}

	vectors, err := v.embedAll(ctx, chunks)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.IndexEntry, len(chunks))
	for i, text := range chunks {
		entries[i] = v.newEntry(documentID, text, i, metadata, vectors[i])
	}

	v.mu.Lock()
	for _, e := range entries {
		v.insert(e)
	}
	v.mu.Unlock()

	return entries, nil
}

func (v *VectorIndex) embedAll(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for start := 0; start < len(chunks); start += v.batchSize {
		end := min(start+v.batchSize, len(chunks))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			copy(vectors[start:end], v.embedder.EmbedBatch(gctx, chunks[start:end]))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	return vectors, nil
}

func (v *VectorIndex) newEntry(
	documentID, text string,
	chunkIndex int,
	metadata map[string]any,
	embedding []float32,
) domain.IndexEntry {
	return domain.IndexEntry{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		ChunkIndex: chunkIndex,
		Content:    text,
		Embedding:  embedding,
		Metadata:   maps.Clone(metadata),
		CreatedAt:  v.now(),
	}
}

// insert requires v.mu held for writing.
func (v *VectorIndex) insert(e domain.IndexEntry) {
	v.seq++
	v.entries[e.ID] = &record{entry: e, seq: v.seq}
	v.documents[e.DocumentID] = append(v.documents[e.DocumentID], e.ID)
}

// Search ranks entries by cosine similarity to query.
func (v *VectorIndex) Search(ctx context.Context, query string, topK int, documentID string) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = domain.DefaultQueryTopK
	}

	v.mu.RLock()
	empty := len(v.entries) == 0
	v.mu.RUnlock()
	if empty {
		return []domain.SearchResult{}, nil
	}

	qv := v.embedder.Embed(ctx, query)

	type hit struct {
		result domain.SearchResult
		seq    uint64
	}

	var hits []hit
	score := func(r *record) {
		hits = append(hits, hit{
			result: domain.SearchResult{Entry: r.entry, Score: domain.CosineSimilarity(qv, r.entry.Embedding)},
			seq:    r.seq,
		})
	}

	v.mu.RLock()
	if documentID != "" {
		for _, id := range v.documents[documentID] {
			score(v.entries[id])
		}
	} else {
		hits = make([]hit, 0, len(v.entries))
		for _, r := range v.entries {
			score(r)
		}
	}
	v.mu.RUnlock()

	slices.SortFunc(hits, func(a, b hit) int {
		if c := cmp.Compare(b.result.Score, a.result.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	results := make([]domain.SearchResult, 0, min(topK, len(hits)))
	for _, h := range hits[:min(topK, len(hits))] {
		results = append(results, h.result)
	}
	return results, nil
}

// ChunksForDocument returns entries ordered by chunk index.
func (v *VectorIndex) ChunksForDocument(_ context.Context, documentID string) ([]domain.IndexEntry, error) {
	v.mu.RLock()
	ids := v.documents[documentID]
	recs := make([]*record, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, v.entries[id])
	}
	v.mu.RUnlock()

	slices.SortStableFunc(recs, func(a, b *record) int {
		if c := cmp.Compare(a.entry.ChunkIndex, b.entry.ChunkIndex); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	out := make([]domain.IndexEntry, len(recs))
	for i, r := range recs {
		out[i] = r.entry
	}
	return out, nil
}

// DeleteDocument removes every entry of a document.
func (v *VectorIndex) DeleteDocument(_ context.Context, documentID string) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ids := v.documents[documentID]
	for _, id := range ids {
		delete(v.entries, id)
	}
	delete(v.documents, documentID)
	return len(ids), nil
}

// Stats counts documents and chunks.
func (v *VectorIndex) Stats(_ context.Context) (domain.IndexStats, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return domain.NewIndexStats(len(v.documents), len(v.entries)), nil
}

// Clear drops every entry.
func (v *VectorIndex) Clear(_ context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = make(map[string]*record)
	v.documents = make(map[string][]string)
	return nil
}

// Close releases resources.
func (v *VectorIndex) Close() error {
	return nil
}
