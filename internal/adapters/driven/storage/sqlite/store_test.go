package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	return store
}

func textDocument(id string, created time.Time) *domain.Document {
	return &domain.Document{
		ID:        id,
		Name:      id + ".txt",
		URI:       "file:///tmp/" + id + ".txt",
		MIMEType:  "text/plain",
		Kind:      domain.DocumentKindText,
		Content:   "Hello from " + id + ".",
		Size:      42,
		Metadata:  map[string]any{"author": "test"},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// ==================== Store Creation ====================

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, DatabaseFile), store.Path())
	assert.FileExists(t, store.Path())
}

func TestNewStore_DocchatHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("DOCCHAT_HOME", home)

	store, err := NewStore("")
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(home, "data", DatabaseFile), store.Path())
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.DocumentStore().SaveDocument(ctx, textDocument("doc-1", now)))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	doc, err := reopened.DocumentStore().GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1.txt", doc.Name)
}

// ==================== Document Store ====================

func TestDocumentStore_SaveAndGet_Text(t *testing.T) {
	store := setupTestStore(t).DocumentStore()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	want := textDocument("doc-1", now)
	require.NoError(t, store.SaveDocument(ctx, want))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.URI, got.URI)
	assert.Equal(t, want.MIMEType, got.MIMEType)
	assert.Equal(t, domain.DocumentKindText, got.Kind)
	assert.Equal(t, want.Content, got.Content)
	assert.Equal(t, int64(42), got.Size)
	assert.Equal(t, "test", got.Metadata["author"])
	assert.Nil(t, got.Columns)
	assert.Nil(t, got.Rows)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
}

func TestDocumentStore_SaveAndGet_Tabular(t *testing.T) {
	store := setupTestStore(t).DocumentStore()
	ctx := context.Background()
	now := time.Now().UTC()

	doc := &domain.Document{
		ID:      "sheet",
		Name:    "grades.csv",
		Kind:    domain.DocumentKindTabular,
		Columns: []string{"Name", "Score"},
		Rows: []map[string]any{
			{"Name": "Ada", "Score": 91.5},
			{"Name": "Linus", "Score": 78.0},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.SaveDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "sheet")
	require.NoError(t, err)

	assert.True(t, got.IsTabular())
	assert.Equal(t, []string{"Name", "Score"}, got.Columns)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, "Ada", got.Rows[0]["Name"])
	assert.InDelta(t, 91.5, got.Rows[0]["Score"], 1e-9)
	assert.Nil(t, got.Metadata)
}

func TestDocumentStore_GetMissing(t *testing.T) {
	store := setupTestStore(t).DocumentStore()

	_, err := store.GetDocument(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SaveRequiresID(t *testing.T) {
	store := setupTestStore(t).DocumentStore()

	err := store.SaveDocument(context.Background(), &domain.Document{Name: "no id"})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentStore_ReplaceKeepsCreatedAt(t *testing.T) {
	store := setupTestStore(t).DocumentStore()
	ctx := context.Background()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, store.SaveDocument(ctx, textDocument("doc-1", created)))

	replacement := textDocument("doc-1", created.Add(time.Hour))
	replacement.Content = "Replaced."
	require.NoError(t, store.SaveDocument(ctx, replacement))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Replaced.", got.Content)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.True(t, created.Add(time.Hour).Equal(got.UpdatedAt))
}

func TestDocumentStore_Delete(t *testing.T) {
	store := setupTestStore(t).DocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, textDocument("doc-1", time.Now())))
	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))

	_, err := store.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting again is not an error.
	assert.NoError(t, store.DeleteDocument(ctx, "doc-1"))
}

func TestDocumentStore_ListOrderedByCreation(t *testing.T) {
	store := setupTestStore(t).DocumentStore()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveDocument(ctx, textDocument("c", base.Add(2*time.Minute))))
	require.NoError(t, store.SaveDocument(ctx, textDocument("a", base)))
	require.NoError(t, store.SaveDocument(ctx, textDocument("b", base.Add(time.Minute))))

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)

	require.Len(t, docs, 3)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
	assert.Equal(t, "c", docs[2].ID)
}

func TestDocumentStore_ListEmpty(t *testing.T) {
	store := setupTestStore(t).DocumentStore()

	docs, err := store.ListDocuments(context.Background())

	require.NoError(t, err)
	assert.Empty(t, docs)
}
