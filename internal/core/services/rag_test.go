package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/postprocessors"
	"github.com/custodia-labs/docchat/internal/postprocessors/chunker"
)

type fakeLLM struct {
	mu       sync.Mutex
	requests []driven.CompletionRequest
	reply    string
	tokens   int
	err      error
}

func (f *fakeLLM) Complete(_ context.Context, req driven.CompletionRequest) (*driven.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &driven.Completion{Text: f.reply, TokensUsed: f.tokens, Model: "fake-model"}, nil
}

func (f *fakeLLM) Summarise(_ context.Context, content string, _ int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "summary of " + content, nil
}

func (f *fakeLLM) ModelName() string            { return "fake-model" }
func (f *fakeLLM) Ping(_ context.Context) error { return nil }
func (f *fakeLLM) Close() error                 { return nil }

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type mapPrompts map[string]string

func (m mapPrompts) Load(name string) (string, error) {
	p, ok := m[name]
	if !ok {
		return "", errors.New("no prompt")
	}
	return p, nil
}

func (m mapPrompts) Reload() {}

func newTestRAG(t *testing.T, llm driven.LLMService, opts ...chunker.Option) (*RAGService, *memory.VectorIndex) {
	t.Helper()
	index := memory.NewVectorIndex(local.NewHashEmbedder(128))
	pipeline := postprocessors.NewPipeline(chunker.New(opts...))
	settings := domain.DefaultAppSettings().RAG
	return NewRAGService(index, pipeline, llm, nil, settings), index
}

func sentence(word string) string {
	return strings.TrimSpace(strings.Repeat(word+" ", 33)) + "."
}

func TestRAGService_Index_TextDocument(t *testing.T) {
	svc, _ := newTestRAG(t, nil)
	ctx := context.Background()

	doc := &domain.Document{
		ID:      "doc-1",
		Name:    "notes.txt",
		Kind:    domain.DocumentKindText,
		Content: sentence("alpha") + " " + sentence("beta") + " " + sentence("gamma"),
		Size:    600,
	}

	n, err := svc.Index(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	chunks, err := svc.ChunksForDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	words := strings.Fields(chunks[0].Content)
	tail := strings.Join(words[len(words)-chunker.DefaultOverlapWords:], " ")
	assert.True(t, strings.HasPrefix(chunks[1].Content, tail))
	assert.Contains(t, chunks[1].Content, "gamma")

	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 1, chunks[1].ChunkIndex)
	assert.Equal(t, "notes.txt", chunks[0].Metadata["source"])
	assert.Equal(t, "text", chunks[0].Metadata["type"])
	assert.Equal(t, int64(600), chunks[0].Metadata["size"])
}

func TestRAGService_Index_TabularDocument(t *testing.T) {
	svc, _ := newTestRAG(t, nil, chunker.WithRowsPerChunk(15))
	ctx := context.Background()

	rows := make([]map[string]any, 25)
	for i := range rows {
		rows[i] = map[string]any{"Name": fmt.Sprintf("student-%d", i), "Score": float64(i)}
	}
	doc := &domain.Document{
		ID:      "grades",
		Name:    "grades.csv",
		Kind:    domain.DocumentKindTabular,
		Columns: []string{"Name", "Score"},
		Rows:    rows,
	}

	n, err := svc.Index(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	chunks, err := svc.ChunksForDocument(ctx, "grades")
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	assert.Contains(t, chunks[0].Content, "Name")
	assert.Contains(t, chunks[0].Content, "Score")
	assert.Contains(t, chunks[0].Content, "Total Rows: 25")
	assert.Equal(t, 15, strings.Count(chunks[1].Content, "Row "))
	assert.Equal(t, 10, strings.Count(chunks[2].Content, "Row "))
	assert.True(t, strings.HasPrefix(chunks[3].Content, "Summary Statistics:"))
	assert.Equal(t, "tabular", chunks[0].Metadata["type"])
}

func TestRAGService_Index_Validation(t *testing.T) {
	svc, _ := newTestRAG(t, nil)
	ctx := context.Background()

	_, err := svc.Index(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Index(ctx, &domain.Document{ID: "  ", Content: "text."})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Reindex(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRAGService_Index_BlankDocument(t *testing.T) {
	svc, _ := newTestRAG(t, nil)

	n, err := svc.Index(context.Background(), &domain.Document{ID: "blank", Content: " \n\t "})

	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRAGService_Index_AppendsReindexReplaces(t *testing.T) {
	svc, _ := newTestRAG(t, nil)
	ctx := context.Background()
	doc := &domain.Document{ID: "doc-1", Name: "a", Content: "First sentence. Second sentence."}

	_, err := svc.Index(ctx, doc)
	require.NoError(t, err)
	_, err = svc.Index(ctx, doc)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalChunks)

	n, err := svc.Reindex(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalChunks)
	assert.Equal(t, 1, stats.TotalDocuments)
}

func TestRAGService_Query_EmptyIndex(t *testing.T) {
	llm := &fakeLLM{reply: "should not be used"}
	svc, _ := newTestRAG(t, llm)

	answer, err := svc.Query(context.Background(), "what is the capital of France?", domain.QueryOptions{})

	require.NoError(t, err)
	assert.Equal(t, domain.NoRelevantInformation, answer.Text)
	assert.NotNil(t, answer.Sources)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, answer.TokensUsed)
	assert.Zero(t, answer.GenerationTime)
	assert.Zero(t, llm.calls())
}

func TestRAGService_Query_NoLLMWithEmptyIndex(t *testing.T) {
	svc, _ := newTestRAG(t, nil)

	answer, err := svc.Query(context.Background(), "anything", domain.QueryOptions{})

	require.NoError(t, err)
	assert.Equal(t, domain.NoRelevantInformation, answer.Text)
}

func TestRAGService_Query_NoLLM(t *testing.T) {
	svc, _ := newTestRAG(t, nil)
	ctx := context.Background()
	_, err := svc.Index(ctx, &domain.Document{ID: "doc-1", Content: "Some indexed content here."})
	require.NoError(t, err)

	_, err = svc.Query(ctx, "indexed content", domain.QueryOptions{})

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestRAGService_Query_EmptyQuestion(t *testing.T) {
	svc, _ := newTestRAG(t, &fakeLLM{})

	_, err := svc.Query(context.Background(), "   ", domain.QueryOptions{})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func indexFruitAndCities(t *testing.T, svc *RAGService) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.Index(ctx, &domain.Document{
		ID: "doc-a", Name: "cities.txt",
		Content: "The capital of France is Paris. Paris hosts the Louvre museum.",
	})
	require.NoError(t, err)
	_, err = svc.Index(ctx, &domain.Document{
		ID: "doc-b", Name: "fruit.txt",
		Content: "bananas yellow fruit grow in bunches. Monkeys eat bananas.",
	})
	require.NoError(t, err)
}

func TestRAGService_Query_GeneratesGroundedAnswer(t *testing.T) {
	llm := &fakeLLM{reply: "Bananas are yellow [Source 1].", tokens: 42}
	svc, _ := newTestRAG(t, llm)
	indexFruitAndCities(t, svc)

	answer, err := svc.Query(context.Background(), "bananas yellow fruit", domain.QueryOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Bananas are yellow [Source 1].", answer.Text)
	assert.Equal(t, 42, answer.TokensUsed)
	assert.Equal(t, "fake-model", answer.Model)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, "doc-b", answer.Sources[0].DocumentID)
	assert.GreaterOrEqual(t, answer.Sources[0].Score, answer.Sources[1].Score)

	require.Equal(t, 1, llm.calls())
	req := llm.requests[0]
	assert.Equal(t, "bananas yellow fruit", req.UserMessage)
	assert.InDelta(t, 0.3, req.Temperature, 1e-9)
	assert.Contains(t, req.SystemPrompt, "ONLY on the provided context")
	assert.Contains(t, req.SystemPrompt, "[Source 1] (Relevance: ")
	assert.Contains(t, req.SystemPrompt, "[Source 2] (Relevance: ")
	assert.Contains(t, req.SystemPrompt, SourceDelimiter)
	assert.Less(t,
		strings.Index(req.SystemPrompt, "bananas yellow fruit grow"),
		strings.Index(req.SystemPrompt, "capital of France"))
}

func TestRAGService_Query_DocumentFilter(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	svc, _ := newTestRAG(t, llm)
	indexFruitAndCities(t, svc)

	answer, err := svc.Query(context.Background(), "bananas", domain.QueryOptions{DocumentID: "doc-a"})
	require.NoError(t, err)

	require.NotEmpty(t, answer.Sources)
	for _, s := range answer.Sources {
		assert.Equal(t, "doc-a", s.DocumentID)
	}
}

func TestRAGService_Query_UnknownDocumentIsEmpty(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	svc, _ := newTestRAG(t, llm)
	indexFruitAndCities(t, svc)

	answer, err := svc.Query(context.Background(), "bananas", domain.QueryOptions{DocumentID: "missing"})

	require.NoError(t, err)
	assert.Equal(t, domain.NoRelevantInformation, answer.Text)
	assert.Zero(t, llm.calls())
}

func TestRAGService_Query_GeneratorErrorPropagates(t *testing.T) {
	llm := &fakeLLM{err: fmt.Errorf("provider said no: %w", domain.ErrRateLimited)}
	svc, _ := newTestRAG(t, llm)
	indexFruitAndCities(t, svc)

	answer, err := svc.Query(context.Background(), "bananas", domain.QueryOptions{})

	require.Error(t, err)
	assert.Nil(t, answer)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, 1, llm.calls())
}

func TestRAGService_Query_ForwardsHistory(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	svc, _ := newTestRAG(t, llm)
	indexFruitAndCities(t, svc)

	history := []domain.ChatMessage{
		{Role: domain.ChatRoleUser, Content: "tell me about fruit"},
		{Role: domain.ChatRoleAssistant, Content: "bananas are fruit"},
	}
	_, err := svc.Query(context.Background(), "what colour are they?", domain.QueryOptions{History: history})
	require.NoError(t, err)

	require.Equal(t, 1, llm.calls())
	assert.Equal(t, history, llm.requests[0].History)
}

func TestRAGService_Query_TopK(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	svc, _ := newTestRAG(t, llm)
	indexFruitAndCities(t, svc)

	answer, err := svc.Query(context.Background(), "bananas", domain.QueryOptions{TopK: 1})

	require.NoError(t, err)
	assert.Len(t, answer.Sources, 1)
}

func TestRAGService_Query_PreviewTruncated(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	svc, _ := newTestRAG(t, llm)
	_, err := svc.Index(context.Background(), &domain.Document{ID: "long", Content: sentence("lengthy")})
	require.NoError(t, err)

	answer, err := svc.Query(context.Background(), "lengthy", domain.QueryOptions{})
	require.NoError(t, err)

	require.Len(t, answer.Sources, 1)
	assert.Len(t, answer.Sources[0].Content, DefaultPreviewLength+len("..."))
	assert.True(t, strings.HasSuffix(answer.Sources[0].Content, "..."))
}

func TestRAGService_Query_SourcesMatchBoundedContext(t *testing.T) {
	llm := &fakeLLM{reply: "Bananas are yellow [Source 1]."}
	index := memory.NewVectorIndex(local.NewHashEmbedder(128))
	settings := domain.DefaultAppSettings().RAG
	settings.MaxContextChars = 120
	svc := NewRAGService(index, postprocessors.NewPipeline(chunker.New()), llm, nil, settings)
	indexFruitAndCities(t, svc)

	answer, err := svc.Query(context.Background(), "bananas yellow fruit", domain.QueryOptions{TopK: 5})
	require.NoError(t, err)

	require.Equal(t, 1, llm.calls())
	prompt := llm.requests[0].SystemPrompt
	assert.Equal(t, 1, strings.Count(prompt, "(Relevance:"))
	assert.NotContains(t, prompt, "[Source 2]")

	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "doc-b", answer.Sources[0].DocumentID)
	assert.Contains(t, prompt, answer.Sources[0].Content)
}

func TestRAGService_Query_CustomPrompt(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{name: "with placeholder", prompt: "Use this:\n%s\nEnd.", want: "Use this:\n[Source 1]"},
		{name: "without placeholder", prompt: "Be brief.", want: "Be brief.\n\nContext:\n[Source 1]"},
		{name: "blank falls back", prompt: "   ", want: "ONLY on the provided context"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLM{reply: "ok"}
			index := memory.NewVectorIndex(local.NewHashEmbedder(64))
			svc := NewRAGService(index, postprocessors.NewPipeline(chunker.New()), llm,
				mapPrompts{driven.PromptRAGSystem: tt.prompt}, domain.RAGSettings{})

			_, err := svc.Index(context.Background(), &domain.Document{ID: "d", Content: "Hello world."})
			require.NoError(t, err)
			_, err = svc.Query(context.Background(), "hello", domain.QueryOptions{})
			require.NoError(t, err)

			require.Equal(t, 1, llm.calls())
			assert.Contains(t, llm.requests[0].SystemPrompt, tt.want)
		})
	}
}

func TestRAGService_Search(t *testing.T) {
	svc, index := newTestRAG(t, nil)
	ctx := context.Background()

	texts := make([]string, 12)
	for i := range texts {
		texts[i] = fmt.Sprintf("shared chunk number %d", i)
	}
	_, err := index.AddBatch(ctx, "many", texts, nil)
	require.NoError(t, err)

	results, err := svc.Search(ctx, "shared chunk", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, results, domain.DefaultSearchTopK)

	results, err = svc.Search(ctx, "shared chunk", domain.SearchOptions{TopK: 3})
	require.NoError(t, err)
	assert.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}

	_, err = svc.Search(ctx, "", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRAGService_Search_FewerThanTopK(t *testing.T) {
	svc, index := newTestRAG(t, nil)
	ctx := context.Background()
	_, err := index.AddBatch(ctx, "two", []string{"first entry", "second entry"}, nil)
	require.NoError(t, err)

	results, err := svc.Search(ctx, "anything", domain.SearchOptions{TopK: 5})

	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRAGService_DeleteDocument(t *testing.T) {
	svc, _ := newTestRAG(t, nil)
	ctx := context.Background()
	indexFruitAndCities(t, svc)

	before, err := svc.Stats(ctx)
	require.NoError(t, err)
	chunksA, err := svc.ChunksForDocument(ctx, "doc-a")
	require.NoError(t, err)

	n, err := svc.DeleteDocument(ctx, "doc-a")
	require.NoError(t, err)
	assert.Equal(t, len(chunksA), n)

	after, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.TotalChunks-n, after.TotalChunks)
	assert.Equal(t, 1, after.TotalDocuments)

	results, err := svc.Search(ctx, "Paris", domain.SearchOptions{DocumentID: "doc-a"})
	require.NoError(t, err)
	assert.Empty(t, results)

	indexed, err := svc.IsIndexed(ctx, "doc-a")
	require.NoError(t, err)
	assert.False(t, indexed)

	indexed, err = svc.IsIndexed(ctx, "doc-b")
	require.NoError(t, err)
	assert.True(t, indexed)

	n, err = svc.DeleteDocument(ctx, "doc-a")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRAGService_Reset(t *testing.T) {
	svc, _ := newTestRAG(t, nil)
	ctx := context.Background()
	indexFruitAndCities(t, svc)

	require.NoError(t, svc.Reset(ctx))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexStats{}, stats)
}

func TestRAGService_ConcurrentIndexing(t *testing.T) {
	svc, _ := newTestRAG(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc := &domain.Document{
				ID:      fmt.Sprintf("doc-%d", i%2),
				Content: fmt.Sprintf("Document body %d. Another sentence.", i),
			}
			_, err := svc.Reindex(ctx, doc)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, 2, stats.TotalChunks)
	assert.Empty(t, svc.locks.locks)
}
