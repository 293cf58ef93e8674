package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// mockRAGService is a mock implementation of driving.RAGService.
type mockRAGService struct {
	answer    *domain.Answer
	results   []domain.SearchResult
	chunks    []domain.IndexEntry
	stats     domain.IndexStats
	err       error
	lastQuery domain.QueryOptions
	lastOpts  domain.SearchOptions
}

func (m *mockRAGService) Index(_ context.Context, _ *domain.Document) (int, error) {
	return 0, m.err
}

func (m *mockRAGService) Reindex(_ context.Context, _ *domain.Document) (int, error) {
	return 0, m.err
}

func (m *mockRAGService) Query(_ context.Context, _ string, opts domain.QueryOptions) (*domain.Answer, error) {
	m.lastQuery = opts
	return m.answer, m.err
}

func (m *mockRAGService) Search(_ context.Context, _ string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.lastOpts = opts
	return m.results, m.err
}

func (m *mockRAGService) ChunksForDocument(_ context.Context, _ string) ([]domain.IndexEntry, error) {
	return m.chunks, m.err
}

func (m *mockRAGService) IsIndexed(_ context.Context, _ string) (bool, error) {
	return len(m.chunks) > 0, m.err
}

func (m *mockRAGService) DeleteDocument(_ context.Context, _ string) (int, error) {
	return len(m.chunks), m.err
}

func (m *mockRAGService) Stats(_ context.Context) (domain.IndexStats, error) {
	return m.stats, m.err
}

func (m *mockRAGService) Reset(_ context.Context) error {
	return m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	upload    *driving.UploadResult
	uploaded  *domain.RawDocument
	deleted   []string
	err       error
}

func (m *mockDocumentService) Upload(_ context.Context, raw *domain.RawDocument) (*driving.UploadResult, error) {
	m.uploaded = raw
	return m.upload, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	if m.document == nil && m.err == nil {
		return nil, domain.ErrNotFound
	}
	return m.document, m.err
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) GetDetails(_ context.Context, _ string) (*driving.DocumentDetails, error) {
	return nil, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockDocumentService) Summarise(_ context.Context, _ string, _ int) (string, error) {
	return "", m.err
}

func (m *mockDocumentService) Restore(_ context.Context) (int, error) {
	return 0, m.err
}

// mockIngestService reports a fixed set of events.
type mockIngestService struct {
	events []driving.IngestEvent
	report *driving.IngestReport
	err    error
	root   string
}

func (m *mockIngestService) Ingest(
	_ context.Context,
	src driven.DocumentSource,
	progress func(driving.IngestEvent),
) (*driving.IngestReport, error) {
	m.root = src.Root()
	for _, ev := range m.events {
		progress(ev)
	}
	return m.report, m.err
}

func (m *mockIngestService) Watch(_ context.Context, _ driven.DocumentSource, _ func(driving.IngestEvent)) error {
	return m.err
}

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	s, err := NewServer(ports)
	require.NoError(t, err)
	return s
}
