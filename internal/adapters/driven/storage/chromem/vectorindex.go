// Package chromem provides a driven.VectorIndex backed by chromem-go,
// optionally persisted to a directory so the index survives restarts.
package chromem

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	chromemgo "github.com/philippgille/chromem-go"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// DefaultCollection is the collection chunks are stored in.
const DefaultCollection = "chunks"

// DefaultConcurrency bounds parallel embedding in AddBatch.
const DefaultConcurrency = 4

// Reserved metadata keys. User metadata is stored under metaPrefix.
const (
	keyDocumentID = "document_id"
	keyChunkIndex = "chunk_index"
	keySeq        = "seq"
	keyCreatedAt  = "created_at"
	metaPrefix    = "m:"
)

// Config holds configuration for the chromem index.
type Config struct {
	// PersistDir stores the database on disk. Empty keeps it in memory.
	PersistDir string

	// Compress gzips persisted documents.
	Compress bool

	// Collection names the chromem collection (default: chunks).
	Collection string

	// Concurrency bounds parallel embedding in AddBatch (default: 4).
	Concurrency int
}

// VectorIndex stores chunk embeddings in a chromem-go collection.
// A document ID to entry ID map is kept alongside for grouping and stats.
type VectorIndex struct {
	embedder    driven.Embedder
	db          *chromemgo.DB
	name        string
	concurrency int

	mu        sync.RWMutex
	coll      *chromemgo.Collection
	documents map[string][]string
	seq       atomic.Uint64
}

// NewVectorIndex opens or creates the index.
// A persisted collection is scanned once to rebuild the document map.
func NewVectorIndex(ctx context.Context, embedder driven.Embedder, cfg Config) (*VectorIndex, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	var db *chromemgo.DB
	if cfg.PersistDir == "" {
		db = chromemgo.NewDB()
	} else {
		var err error
		db, err = chromemgo.NewPersistentDB(cfg.PersistDir, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %w", domain.ErrVectorIndexUnavailable, cfg.PersistDir, err)
		}
	}

	v := &VectorIndex{
		embedder:    embedder,
		db:          db,
		name:        cfg.Collection,
		concurrency: cfg.Concurrency,
		documents:   make(map[string][]string),
	}

	coll, err := db.GetOrCreateCollection(cfg.Collection, nil, v.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("%w: collection %s: %w", domain.ErrVectorIndexUnavailable, cfg.Collection, err)
	}
	v.coll = coll

	if err := v.rebuild(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *VectorIndex) embeddingFunc() chromemgo.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return v.embedder.Embed(ctx, text), nil
	}
}

// rebuild scans every stored entry to restore the document map and sequence.
func (v *VectorIndex) rebuild(ctx context.Context) error {
	n := v.coll.Count()
	if n == 0 {
		return nil
	}

	probe := make([]float32, v.embedder.Dimensions())
	if len(probe) == 0 {
		return fmt.Errorf("%w: embedder reports zero dimensions", domain.ErrVectorIndexUnavailable)
	}
	probe[0] = 1

	results, err := v.coll.QueryEmbedding(ctx, probe, n, nil, nil)
	if err != nil {
		return fmt.Errorf("%w: stored vectors do not match %d dimensions, reset the index: %w",
			domain.ErrVectorIndexUnavailable, len(probe), err)
	}

	type stored struct {
		id  string
		seq uint64
	}
	byDoc := make(map[string][]stored)
	for _, r := range results {
		seq, _ := strconv.ParseUint(r.Metadata[keySeq], 10, 64)
		docID := r.Metadata[keyDocumentID]
		byDoc[docID] = append(byDoc[docID], stored{r.ID, seq})
		if seq > v.seq.Load() {
			v.seq.Store(seq)
		}
	}
	for docID, items := range byDoc {
		slices.SortFunc(items, func(a, b stored) int { return cmp.Compare(a.seq, b.seq) })
		ids := make([]string, len(items))
		for i, it := range items {
			ids[i] = it.id
		}
		v.documents[docID] = ids
	}

	logger.Debug("chromem: restored %d entries for %d documents", len(results), len(v.documents))
	return nil
}

// Add embeds text and stores it.
func (v *VectorIndex) Add(
	ctx context.Context,
	documentID, text string,
	chunkIndex int,
	metadata map[string]any,
) (domain.IndexEntry, error) {
	if err := validate(documentID, []string{text}); err != nil {
		return domain.IndexEntry{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.IndexEntry{}, err
	}

	doc := v.newDocument(documentID, text, chunkIndex, metadata)
	doc.Embedding = v.embedder.Embed(ctx, text)

	coll := v.collection()
	if err := coll.AddDocument(ctx, doc); err != nil {
		return domain.IndexEntry{}, fmt.Errorf("%w: add: %w", domain.ErrVectorIndexUnavailable, err)
	}
	stored, err := coll.GetByID(ctx, doc.ID)
	if err != nil {
		return domain.IndexEntry{}, fmt.Errorf("%w: read back %s: %w", domain.ErrVectorIndexUnavailable, doc.ID, err)
	}

	v.mu.Lock()
	v.documents[documentID] = append(v.documents[documentID], doc.ID)
	v.mu.Unlock()

	return toEntry(stored.ID, stored.Content, stored.Embedding, stored.Metadata), nil
}

// AddBatch stores chunks as chunk indexes 0..n-1. Chunks are embedded in
// parallel by chromem's AddDocuments; order is carried by the chunk_index
// and seq metadata rather than by completion order.
func (v *VectorIndex) AddBatch(
	ctx context.Context,
	documentID string,
	chunks []string,
	metadata map[string]any,
) ([]domain.IndexEntry, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	if err := validate(documentID, chunks); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	docs := make([]chromemgo.Document, len(chunks))
	ids := make([]string, len(chunks))
	for i, text := range chunks {
		docs[i] = v.newDocument(documentID, text, i, metadata)
		ids[i] = docs[i].ID
	}

	coll := v.collection()
	err := coll.AddDocuments(ctx, docs, v.concurrency)
	if err == nil {
		// AddDocuments stops quietly when ctx is cancelled part way.
		err = ctx.Err()
	}
	if err != nil {
		_ = coll.Delete(context.WithoutCancel(ctx), nil, nil, ids...)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("embed chunks: %w", ctxErr)
		}
		return nil, fmt.Errorf("%w: add batch: %w", domain.ErrVectorIndexUnavailable, err)
	}

	entries := make([]domain.IndexEntry, len(docs))
	for i, id := range ids {
		stored, err := coll.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: read back %s: %w", domain.ErrVectorIndexUnavailable, id, err)
		}
		entries[i] = toEntry(stored.ID, stored.Content, stored.Embedding, stored.Metadata)
	}

	v.mu.Lock()
	v.documents[documentID] = append(v.documents[documentID], ids...)
	v.mu.Unlock()

	return entries, nil
}

func (v *VectorIndex) collection() *chromemgo.Collection {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.coll
}

func (v *VectorIndex) newDocument(documentID, text string, chunkIndex int, metadata map[string]any) chromemgo.Document {
	meta := make(map[string]string, len(metadata)+4)
	for k, val := range metadata {
		meta[metaPrefix+k] = fmt.Sprint(val)
	}
	meta[keyDocumentID] = documentID
	meta[keyChunkIndex] = strconv.Itoa(chunkIndex)
	meta[keySeq] = strconv.FormatUint(v.seq.Add(1), 10)
	meta[keyCreatedAt] = time.Now().UTC().Format(time.RFC3339Nano)

	return chromemgo.Document{
		ID:       uuid.NewString(),
		Metadata: meta,
		Content:  text,
	}
}

// Search ranks entries by cosine similarity to query. Every matching entry
// is scored so that ties at the topK cutoff resolve by insertion order.
func (v *VectorIndex) Search(ctx context.Context, query string, topK int, documentID string) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = domain.DefaultQueryTopK
	}
	if v.available(documentID) == 0 {
		return []domain.SearchResult{}, nil
	}

	qv := v.embedder.Embed(ctx, query)
	if domain.Magnitude(qv) == 0 {
		return []domain.SearchResult{}, nil
	}

	var where map[string]string
	if documentID != "" {
		where = map[string]string{keyDocumentID: documentID}
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	n := v.coll.Count()
	if documentID != "" {
		n = min(n, len(v.documents[documentID]))
	}
	if n == 0 {
		return []domain.SearchResult{}, nil
	}
	hits, err := v.coll.QueryEmbedding(ctx, qv, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", domain.ErrVectorIndexUnavailable, err)
	}

	results := make([]domain.SearchResult, len(hits))
	seqs := make(map[string]uint64, len(hits))
	for i, h := range hits {
		results[i] = domain.SearchResult{
			Entry: toEntry(h.ID, h.Content, h.Embedding, h.Metadata),
			Score: clamp(float64(h.Similarity)),
		}
		seqs[h.ID], _ = strconv.ParseUint(h.Metadata[keySeq], 10, 64)
	}
	slices.SortFunc(results, func(a, b domain.SearchResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(seqs[a.Entry.ID], seqs[b.Entry.ID])
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// available counts the entries a search over documentID would consider.
func (v *VectorIndex) available(documentID string) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if documentID != "" {
		return len(v.documents[documentID])
	}
	return v.coll.Count()
}

// ChunksForDocument returns entries ordered by chunk index.
func (v *VectorIndex) ChunksForDocument(ctx context.Context, documentID string) ([]domain.IndexEntry, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	ids := v.documents[documentID]
	entries := make([]domain.IndexEntry, 0, len(ids))
	for _, id := range ids {
		d, err := v.coll.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: get %s: %w", domain.ErrVectorIndexUnavailable, id, err)
		}
		entries = append(entries, toEntry(d.ID, d.Content, d.Embedding, d.Metadata))
	}
	slices.SortStableFunc(entries, func(a, b domain.IndexEntry) int {
		return cmp.Compare(a.ChunkIndex, b.ChunkIndex)
	})
	return entries, nil
}

// DeleteDocument removes every entry of a document.
func (v *VectorIndex) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ids := v.documents[documentID]
	if len(ids) == 0 {
		return 0, nil
	}
	if err := v.coll.Delete(ctx, nil, nil, ids...); err != nil {
		return 0, fmt.Errorf("%w: delete %s: %w", domain.ErrVectorIndexUnavailable, documentID, err)
	}
	delete(v.documents, documentID)
	return len(ids), nil
}

// Stats counts documents and chunks.
func (v *VectorIndex) Stats(_ context.Context) (domain.IndexStats, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	chunks := 0
	for _, ids := range v.documents {
		chunks += len(ids)
	}
	return domain.NewIndexStats(len(v.documents), chunks), nil
}

// Clear drops the collection and recreates it empty.
func (v *VectorIndex) Clear(_ context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.db.DeleteCollection(v.name); err != nil {
		return fmt.Errorf("%w: clear: %w", domain.ErrVectorIndexUnavailable, err)
	}
	coll, err := v.db.CreateCollection(v.name, nil, v.embeddingFunc())
	if err != nil {
		return fmt.Errorf("%w: recreate: %w", domain.ErrVectorIndexUnavailable, err)
	}
	v.coll = coll
	v.documents = make(map[string][]string)
	v.seq.Store(0)
	return nil
}

// Close releases resources. Writes are persisted synchronously.
func (v *VectorIndex) Close() error {
	return nil
}

func validate(documentID string, chunks []string) error {
	if documentID == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	for i, c := range chunks {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("%w: chunk %d is empty", domain.ErrInvalidInput, i)
		}
	}
	return nil
}

func toEntry(id, content string, embedding []float32, meta map[string]string) domain.IndexEntry {
	entry := domain.IndexEntry{
		ID:         id,
		DocumentID: meta[keyDocumentID],
		Content:    content,
		Embedding:  embedding,
		Metadata:   make(map[string]any),
	}
	entry.ChunkIndex, _ = strconv.Atoi(meta[keyChunkIndex])
	entry.CreatedAt, _ = time.Parse(time.RFC3339Nano, meta[keyCreatedAt])
	for k, val := range meta {
		if name, ok := strings.CutPrefix(k, metaPrefix); ok {
			entry.Metadata[name] = val
		}
	}
	return entry
}

func clamp(s float64) float64 {
	return max(-1, min(1, s))
}
