package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure RAGService implements the interface.
var _ driving.RAGService = (*RAGService)(nil)

// RAGService indexes documents into a vector index and answers questions
// from the chunks it retrieves.
//
// Writes for one document (Index, Reindex, DeleteDocument) are serialised by
// a per-document lock. Queries read the index without locking, so a query
// running alongside an ingest may or may not see the new chunks.
type RAGService struct {
	index    driven.VectorIndex
	pipeline driven.PostProcessorPipeline
	llm      driven.LLMService
	prompts  driven.PromptStore
	settings domain.RAGSettings
	locks    *documentLocks
}

// NewRAGService creates a RAG service.
// The llm and prompts parameters are optional (can be nil). Without an
// LLM, Query returns domain.ErrLLMUnavailable once it has context to answer from.
func NewRAGService(
	index driven.VectorIndex,
	pipeline driven.PostProcessorPipeline,
	llm driven.LLMService,
	prompts driven.PromptStore,
	settings domain.RAGSettings,
) *RAGService {
	return &RAGService{
		index:    index,
		pipeline: pipeline,
		llm:      llm,
		prompts:  prompts,
		settings: settings,
		locks:    newDocumentLocks(),
	}
}

// SetLLMService replaces the generator, e.g. after settings change.
func (s *RAGService) SetLLMService(llm driven.LLMService) {
	s.llm = llm
}

// Index chunks doc and adds the chunks to the index.
// Indexing an ID that already has chunks appends a second copy; callers
// that want replacement use Reindex.
func (s *RAGService) Index(ctx context.Context, doc *domain.Document) (int, error) {
	if err := validateDocument(doc); err != nil {
		return 0, err
	}

	unlock := s.locks.lock(doc.ID)
	defer unlock()

	return s.indexLocked(ctx, doc)
}

// Reindex deletes doc's existing chunks, then indexes it again.
func (s *RAGService) Reindex(ctx context.Context, doc *domain.Document) (int, error) {
	if err := validateDocument(doc); err != nil {
		return 0, err
	}

	unlock := s.locks.lock(doc.ID)
	defer unlock()

	removed, err := s.index.DeleteDocument(ctx, doc.ID)
	if err != nil {
		return 0, fmt.Errorf("delete previous chunks: %w", err)
	}
	logger.Debug("Reindex %s: removed %d chunks", doc.ID, removed)

	return s.indexLocked(ctx, doc)
}

// indexLocked requires the document lock held.
func (s *RAGService) indexLocked(ctx context.Context, doc *domain.Document) (int, error) {
	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("chunk document: %w", err)
	}
	if len(chunks) == 0 {
		logger.Debug("Document %s produced no chunks", doc.ID)
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	if _, err := s.index.AddBatch(ctx, doc.ID, texts, chunkMetadata(doc)); err != nil {
		return 0, fmt.Errorf("add chunks: %w", err)
	}

	logger.Info("Indexed %q (%s): %d chunks", doc.Name, doc.Kind, len(chunks))
	return len(chunks), nil
}

// chunkMetadata is attached to every chunk of doc.
func chunkMetadata(doc *domain.Document) map[string]any {
	kind := doc.Kind
	if kind == "" {
		kind = domain.DocumentKindText
	}
	return map[string]any{
		"source": doc.Name,
		"type":   kind.String(),
		"size":   doc.Size,
	}
}

// Query answers question from the topK most similar chunks.
//
// Finding nothing is not an error: the answer is domain.NoRelevantInformation
// with no sources and the generator is not called. Generator errors are
// returned wrapped and never retried.
func (s *RAGService) Query(ctx context.Context, question string, opts domain.QueryOptions) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is empty: %w", domain.ErrInvalidInput)
	}

	topK := firstPositive(opts.TopK, s.settings.TopK, domain.DefaultQueryTopK)
	logger.Debug("query received: topK=%d document=%q", topK, opts.DocumentID)

	logger.Debug("query retrieving")
	retrievalStart := time.Now()
	results, err := s.index.Search(ctx, question, topK, opts.DocumentID)
	retrievalTime := time.Since(retrievalStart)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	if len(results) == 0 {
		logger.Debug("query empty: no chunks matched, done")
		return &domain.Answer{
			Text:          domain.NoRelevantInformation,
			Sources:       []domain.Source{},
			RetrievalTime: retrievalTime,
		}, nil
	}
	logger.Debug("query retrieved: %d chunks in %s", len(results), retrievalTime)

	if s.llm == nil {
		return nil, fmt.Errorf("answer question: %w", domain.ErrLLMUnavailable)
	}

	contextText, used := ComposeContext(results, s.maxContextChars())
	if used < len(results) {
		logger.Debug("context bounded: %d of %d sources fit", used, len(results))
	}

	logger.Debug("query generating")
	generationStart := time.Now()
	completion, err := s.llm.Complete(ctx, driven.CompletionRequest{
		SystemPrompt: s.systemPrompt(contextText),
		History:      opts.History,
		UserMessage:  question,
		Temperature:  s.temperature(),
	})
	generationTime := time.Since(generationStart)
	if err != nil {
		logger.Debug("query failed: %v", err)
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	answer := &domain.Answer{
		Text:           completion.Text,
		Sources:        Sources(results[:used], s.previewLength()),
		TokensUsed:     completion.TokensUsed,
		Model:          completion.Model,
		RetrievalTime:  retrievalTime,
		GenerationTime: generationTime,
	}

	logger.Debug("query done: %d sources, %d tokens, retrieval=%s generation=%s",
		len(answer.Sources), answer.TokensUsed, retrievalTime, generationTime)
	return answer, nil
}

// Search ranks chunks against query without generating an answer.
func (s *RAGService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is empty: %w", domain.ErrInvalidInput)
	}

	topK := firstPositive(opts.TopK, s.settings.SearchTopK, domain.DefaultSearchTopK)
	results, err := s.index.Search(ctx, query, topK, opts.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return results, nil
}

// ChunksForDocument returns a document's chunks in order.
func (s *RAGService) ChunksForDocument(ctx context.Context, documentID string) ([]domain.IndexEntry, error) {
	return s.index.ChunksForDocument(ctx, documentID)
}

// IsIndexed reports whether any chunks exist for documentID.
func (s *RAGService) IsIndexed(ctx context.Context, documentID string) (bool, error) {
	entries, err := s.index.ChunksForDocument(ctx, documentID)
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}

// DeleteDocument removes a document's chunks.
func (s *RAGService) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	unlock := s.locks.lock(documentID)
	defer unlock()

	n, err := s.index.DeleteDocument(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("delete document chunks: %w", err)
	}
	logger.Debug("Deleted %d chunks for %s", n, documentID)
	return n, nil
}

// Stats reports index contents.
func (s *RAGService) Stats(ctx context.Context) (domain.IndexStats, error) {
	return s.index.Stats(ctx)
}

// Reset drops every indexed chunk.
func (s *RAGService) Reset(ctx context.Context) error {
	if err := s.index.Clear(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	logger.Info("Index cleared")
	return nil
}

func (s *RAGService) systemPrompt(contextText string) string {
	tmpl := driven.DefaultRAGSystemPrompt
	if s.prompts != nil {
		if p, err := s.prompts.Load(driven.PromptRAGSystem); err == nil && strings.TrimSpace(p) != "" {
			tmpl = p
		}
	}
	if !strings.Contains(tmpl, "%s") {
		return tmpl + "\n\nContext:\n" + contextText
	}
	return strings.Replace(tmpl, "%s", contextText, 1)
}

func (s *RAGService) temperature() float64 {
	if s.settings.Temperature > 0 {
		return s.settings.Temperature
	}
	return DefaultTemperature
}

func (s *RAGService) maxContextChars() int {
	return firstPositive(s.settings.MaxContextChars, DefaultMaxContextChars)
}

func (s *RAGService) previewLength() int {
	return firstPositive(s.settings.PreviewLength, DefaultPreviewLength)
}

func validateDocument(doc *domain.Document) error {
	if doc == nil {
		return fmt.Errorf("document is nil: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(doc.ID) == "" {
		return fmt.Errorf("document id is empty: %w", domain.ErrInvalidInput)
	}
	return nil
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

// documentLocks hands out one mutex per document ID. Entries are dropped
// when the last holder unlocks.
type documentLocks struct {
	mu    sync.Mutex
	locks map[string]*documentLock
}

type documentLock struct {
	sync.Mutex
	refs int
}

func newDocumentLocks() *documentLocks {
	return &documentLocks{locks: make(map[string]*documentLock)}
}

func (l *documentLocks) lock(id string) func() {
	l.mu.Lock()
	dl, ok := l.locks[id]
	if !ok {
		dl = &documentLock{}
		l.locks[id] = dl
	}
	dl.refs++
	l.mu.Unlock()

	dl.Lock()
	return func() {
		dl.Unlock()
		l.mu.Lock()
		dl.refs--
		if dl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
