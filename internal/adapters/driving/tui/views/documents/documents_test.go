package documents

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// MockDocumentService implements driving.DocumentService for testing.
type MockDocumentService struct {
	ListFunc       func(ctx context.Context) ([]domain.Document, error)
	GetDetailsFunc func(ctx context.Context, documentID string) (*driving.DocumentDetails, error)
	DeleteFunc     func(ctx context.Context, documentID string) error
}

func (m *MockDocumentService) Upload(_ context.Context, _ *domain.RawDocument) (*driving.UploadResult, error) {
	return nil, errors.New("not implemented")
}

func (m *MockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (m *MockDocumentService) List(ctx context.Context) ([]domain.Document, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []domain.Document{}, nil
}

func (m *MockDocumentService) GetDetails(ctx context.Context, documentID string) (*driving.DocumentDetails, error) {
	if m.GetDetailsFunc != nil {
		return m.GetDetailsFunc(ctx, documentID)
	}
	return nil, domain.ErrNotFound
}

func (m *MockDocumentService) Delete(ctx context.Context, documentID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, documentID)
	}
	return nil
}

func (m *MockDocumentService) Summarise(_ context.Context, _ string, _ int) (string, error) {
	return "", nil
}

func (m *MockDocumentService) Restore(_ context.Context) (int, error) {
	return 0, nil
}

func testDocuments() []domain.Document {
	return []domain.Document{
		{ID: "doc-2", Name: "zeta.csv", Kind: domain.DocumentKindTabular, Size: 2048},
		{ID: "doc-1", Name: "Alpha.md", Kind: domain.DocumentKindText, Size: 120},
	}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loadedView(t *testing.T, svc driving.DocumentService) *View {
	t.Helper()
	v := NewView(styles.DefaultStyles(), svc)
	v, _ = v.Update(messages.DocumentsLoaded{Documents: testDocuments()})
	require.Len(t, v.Documents(), 2)
	return v
}

func TestNewView(t *testing.T) {
	v := NewView(nil, nil)

	require.NotNil(t, v)
	assert.Empty(t, v.Documents())
	assert.Nil(t, v.SelectedDocument())
	assert.Nil(t, v.Details())
}

func TestView_Load(t *testing.T) {
	svc := &MockDocumentService{
		ListFunc: func(_ context.Context) ([]domain.Document, error) {
			return testDocuments(), nil
		},
	}
	v := NewView(styles.DefaultStyles(), svc)

	cmd := v.Init()
	require.NotNil(t, cmd)
	assert.Contains(t, v.View(), "Loading documents...")

	msg := cmd()
	loaded, ok := msg.(messages.DocumentsLoaded)
	require.True(t, ok)
	assert.Len(t, loaded.Documents, 2)

	v, _ = v.Update(msg)
	assert.NotContains(t, v.View(), "Loading documents...")
}

func TestView_Load_NoService(t *testing.T) {
	v := NewView(styles.DefaultStyles(), nil)

	msg := v.Load()()
	v, _ = v.Update(msg)

	require.Error(t, v.Err())
	assert.Contains(t, v.View(), "document service not available")
}

func TestView_DocumentsSortedByName(t *testing.T) {
	v := loadedView(t, &MockDocumentService{})

	assert.Equal(t, "Alpha.md", v.Documents()[0].Name)
	assert.Equal(t, "zeta.csv", v.Documents()[1].Name)
}

func TestView_Navigation(t *testing.T) {
	v := loadedView(t, &MockDocumentService{})

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, v.SelectedIndex())

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, v.SelectedIndex())

	v, _ = v.Update(keyRunes("k"))
	assert.Equal(t, 0, v.SelectedIndex())

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, v.SelectedIndex())
}

func TestView_SelectLoadsDetails(t *testing.T) {
	svc := &MockDocumentService{
		GetDetailsFunc: func(_ context.Context, id string) (*driving.DocumentDetails, error) {
			return &driving.DocumentDetails{
				ID:         id,
				Name:       "Alpha.md",
				Kind:       domain.DocumentKindText,
				MIMEType:   "text/markdown",
				ChunkCount: 4,
			}, nil
		},
	}
	v := loadedView(t, svc)

	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	msg := cmd()
	loaded, ok := msg.(messages.DocumentDetailsLoaded)
	require.True(t, ok)
	assert.Equal(t, "doc-1", loaded.DocumentID)

	v, _ = v.Update(msg)
	require.NotNil(t, v.Details())
	view := v.View()
	assert.Contains(t, view, "text/markdown")
	assert.Contains(t, view, "Chunks")

	v, cmd = v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.Nil(t, v.Details())
}

func TestView_EscReturnsToChat(t *testing.T) {
	v := loadedView(t, &MockDocumentService{})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)

	msg, ok := cmd().(messages.ViewChanged)
	require.True(t, ok)
	assert.Equal(t, messages.ViewChat, msg.View)
}

func TestView_DeleteConfirmed(t *testing.T) {
	var deleted string
	svc := &MockDocumentService{
		DeleteFunc: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	v := loadedView(t, svc)

	v, cmd := v.Update(keyRunes("d"))
	assert.Nil(t, cmd)
	assert.True(t, v.ConfirmingDelete())
	assert.Contains(t, v.View(), "Delete Alpha.md? [y/N]")

	v, cmd = v.Update(keyRunes("y"))
	require.NotNil(t, cmd)
	assert.False(t, v.ConfirmingDelete())

	msg := cmd()
	assert.Equal(t, "doc-1", deleted)

	_, cmd = v.Update(msg)
	require.NotNil(t, cmd, "deletion reloads the list")
	_, ok := cmd().(messages.DocumentsLoaded)
	assert.True(t, ok)
}

func TestView_DeleteCancelled(t *testing.T) {
	called := false
	svc := &MockDocumentService{
		DeleteFunc: func(_ context.Context, _ string) error {
			called = true
			return nil
		},
	}
	v := loadedView(t, svc)

	v, _ = v.Update(keyRunes("d"))
	v, cmd := v.Update(keyRunes("n"))

	assert.Nil(t, cmd)
	assert.False(t, v.ConfirmingDelete())
	assert.False(t, called)
}

func TestView_DeleteError(t *testing.T) {
	v := loadedView(t, &MockDocumentService{})

	v, cmd := v.Update(messages.DocumentDeleted{DocumentID: "doc-1", Err: errors.New("locked")})

	assert.Nil(t, cmd)
	assert.Contains(t, v.View(), "locked")
}

func TestView_EmptyState(t *testing.T) {
	v := NewView(styles.DefaultStyles(), &MockDocumentService{})
	v, _ = v.Update(messages.DocumentsLoaded{Documents: nil})

	assert.Contains(t, v.View(), "No documents indexed")
}

func TestView_RenderList(t *testing.T) {
	v := loadedView(t, &MockDocumentService{})
	view := v.View()

	assert.Contains(t, view, "Documents (2)")
	assert.Contains(t, view, "Alpha.md")
	assert.Contains(t, view, "tabular")
	assert.Contains(t, view, "2.0 KB")
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 << 20, "3.0 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatSize(tt.size))
	}
}
