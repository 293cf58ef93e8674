package postprocessors

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// upperProcessor upper-cases chunk content, exercising chunk modification.
type upperProcessor struct{}

func (upperProcessor) Name() string { return "upper" }
func (upperProcessor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		chunks[i].Content = strings.ToUpper(chunks[i].Content)
	}
	return chunks, nil
}

// failingProcessor always errors.
type failingProcessor struct{ err error }

func (failingProcessor) Name() string { return "failing" }
func (f failingProcessor) Process(_ context.Context, _ *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	return nil, f.err
}

func TestPipeline_Process_NilDocument(t *testing.T) {
	_, err := NewPipeline().Process(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPipeline_Process_EmptyPipeline(t *testing.T) {
	chunks, err := NewPipeline().Process(context.Background(), &domain.Document{ID: "d"})

	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestPipeline_Process_ChunkThenModify(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)
	chunkerProc, err := r.Build("chunker", nil)
	require.NoError(t, err)

	p := NewPipeline(chunkerProc)
	p.Add(upperProcessor{})
	assert.Equal(t, 2, p.Len())

	chunks, err := p.Process(context.Background(), &domain.Document{
		ID:      "doc-1",
		Kind:    domain.DocumentKindText,
		Content: "Invoices are due in thirty days.",
	})

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "INVOICES ARE DUE IN THIRTY DAYS.", chunks[0].Content)
	assert.Equal(t, "doc-1", chunks[0].DocumentID)
}

func TestPipeline_Process_ProcessorError(t *testing.T) {
	cause := errors.New("boom")
	p := NewPipeline(failingProcessor{err: cause})

	_, err := p.Process(context.Background(), &domain.Document{ID: "d"})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "processor failing")
}
