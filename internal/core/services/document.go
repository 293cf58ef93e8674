package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DefaultSummaryLength is the summary length used when none is requested.
const DefaultSummaryLength = 200

// DocumentService manages uploaded documents. The document store is the
// source of truth; the index is rebuilt from it by Restore.
type DocumentService struct {
	normalisers driven.NormaliserRegistry
	docStore    driven.DocumentStore
	rag         driving.RAGService
	llm         driven.LLMService
}

// NewDocumentService creates a new document service.
// The llm parameter is optional; without it Summarise returns
// domain.ErrLLMUnavailable.
func NewDocumentService(
	normalisers driven.NormaliserRegistry,
	docStore driven.DocumentStore,
	rag driving.RAGService,
	llm driven.LLMService,
) *DocumentService {
	return &DocumentService{
		normalisers: normalisers,
		docStore:    docStore,
		rag:         rag,
		llm:         llm,
	}
}

// SetLLMService replaces the summariser.
func (s *DocumentService) SetLLMService(llm driven.LLMService) {
	s.llm = llm
}

// Upload normalises raw, stores the document and indexes it. Uploading the
// ID of a stored document replaces it and its chunks, keeping its creation
// time. A new document that fails to index is removed from the store.
func (s *DocumentService) Upload(ctx context.Context, raw *domain.RawDocument) (*driving.UploadResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	result, err := s.normalisers.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", uploadName(raw), err)
	}
	doc := result.Document
	if isBlank(&doc) {
		return nil, fmt.Errorf("%s: %w", doc.Name, domain.ErrEmptyDocument)
	}

	replaced := false
	existing, err := s.docStore.GetDocument(ctx, doc.ID)
	switch {
	case err == nil:
		replaced = true
		doc.CreatedAt = existing.CreatedAt
		doc.UpdatedAt = time.Now()
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("look up %s: %w", doc.ID, err)
	}

	if err := s.docStore.SaveDocument(ctx, &doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	var chunks int
	if replaced {
		chunks, err = s.rag.Reindex(ctx, &doc)
	} else {
		chunks, err = s.rag.Index(ctx, &doc)
	}
	if err != nil {
		if !replaced {
			if delErr := s.docStore.DeleteDocument(ctx, doc.ID); delErr != nil {
				logger.Warn("Failed to remove unindexed document %s: %v", doc.ID, delErr)
			}
		}
		return nil, fmt.Errorf("index %s: %w", doc.Name, err)
	}

	logger.Debug("Uploaded %s (%s, replaced=%t)", doc.ID, doc.MIMEType, replaced)
	return &driving.UploadResult{Document: &doc, Chunks: chunks, Replaced: replaced}, nil
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.docStore.GetDocument(ctx, documentID)
}

// List returns all stored documents, oldest first.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx)
}

// GetDetails returns document metadata for display.
func (s *DocumentService) GetDetails(ctx context.Context, documentID string) (*driving.DocumentDetails, error) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	chunkCount := 0
	if chunks, err := s.rag.ChunksForDocument(ctx, documentID); err == nil {
		chunkCount = len(chunks)
	}

	// Flatten metadata to string map
	metadata := make(map[string]string, len(doc.Metadata))
	for key, value := range doc.Metadata {
		metadata[key] = fmt.Sprintf("%v", value)
	}

	return &driving.DocumentDetails{
		ID:         doc.ID,
		Name:       doc.Name,
		Kind:       doc.Kind,
		URI:        doc.URI,
		MIMEType:   doc.MIMEType,
		Size:       doc.Size,
		ChunkCount: chunkCount,
		Columns:    doc.Columns,
		RowCount:   len(doc.Rows),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
		Metadata:   metadata,
	}, nil
}

// Delete removes a document's chunks, then the document.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return err
	}

	if _, err := s.rag.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	logger.Debug("Deleted document %s", documentID)
	return nil
}

// Summarise asks the LLM to summarise a document from its indexed chunks,
// falling back to the stored content when it has none.
func (s *DocumentService) Summarise(ctx context.Context, documentID string, maxLength int) (string, error) {
	if s.llm == nil {
		return "", fmt.Errorf("summarise: %w", domain.ErrLLMUnavailable)
	}
	if maxLength <= 0 {
		maxLength = DefaultSummaryLength
	}

	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return "", err
	}

	content, err := s.summaryInput(ctx, doc)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%s: %w", doc.Name, domain.ErrEmptyDocument)
	}

	summary, err := s.llm.Summarise(ctx, content, maxLength)
	if err != nil {
		return "", fmt.Errorf("summarise %s: %w", doc.Name, err)
	}
	return strings.TrimSpace(summary), nil
}

func (s *DocumentService) summaryInput(ctx context.Context, doc *domain.Document) (string, error) {
	chunks, err := s.rag.ChunksForDocument(ctx, doc.ID)
	if err != nil {
		return "", fmt.Errorf("load chunks: %w", err)
	}
	if len(chunks) == 0 {
		return doc.Content, nil
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})

	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	return strings.Join(parts, "\n\n"), nil
}

// Restore indexes every stored document that has no chunks yet and returns
// how many it indexed. A document that fails is logged and skipped; the
// failures are returned together.
func (s *DocumentService) Restore(ctx context.Context) (int, error) {
	docs, err := s.docStore.ListDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}

	restored := 0
	var errs []error
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return restored, err
		}

		doc := &docs[i]
		indexed, err := s.rag.IsIndexed(ctx, doc.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", doc.ID, err))
			continue
		}
		if indexed {
			continue
		}

		if _, err := s.rag.Index(ctx, doc); err != nil {
			logger.Warn("Failed to restore %s: %v", doc.Name, err)
			errs = append(errs, fmt.Errorf("%s: %w", doc.ID, err))
			continue
		}
		restored++
	}

	if restored > 0 {
		logger.Info("Restored %d of %d documents into the index", restored, len(docs))
	}
	return restored, errors.Join(errs...)
}

// isBlank reports whether doc has nothing worth indexing. Text made only of
// whitespace counts as blank.
func isBlank(doc *domain.Document) bool {
	if doc.IsTabular() {
		return len(doc.Rows) == 0
	}
	return strings.TrimSpace(doc.Content) == ""
}

func uploadName(raw *domain.RawDocument) string {
	if raw.Name != "" {
		return raw.Name
	}
	if raw.URI != "" {
		return raw.URI
	}
	return "document"
}
