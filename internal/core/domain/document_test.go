package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestDocument_Fields tests Document structure fields
func TestDocument_Fields(t *testing.T) {
	now := time.Now()

	doc := Document{
		ID:        "doc-123",
		Name:      "report.txt",
		URI:       "file:///tmp/report.txt",
		MIMEType:  "text/plain",
		Kind:      DocumentKindText,
		Content:   "Quarterly revenue grew.",
		Size:      23,
		Metadata:  map[string]any{"author": "Jane"},
		CreatedAt: now,
		UpdatedAt: now,
	}

	assert.Equal(t, "doc-123", doc.ID)
	assert.Equal(t, "report.txt", doc.Name)
	assert.Equal(t, DocumentKindText, doc.Kind)
	assert.False(t, doc.IsTabular())
	assert.False(t, doc.IsEmpty())
	assert.Equal(t, "Jane", doc.Metadata["author"])
}

// TestDocument_IsEmpty tests emptiness for both document kinds
func TestDocument_IsEmpty(t *testing.T) {
	tests := []struct {
		name     string
		doc      Document
		expected bool
	}{
		{"empty text", Document{Kind: DocumentKindText}, true},
		{"text with content", Document{Kind: DocumentKindText, Content: "x"}, false},
		{"empty table", Document{Kind: DocumentKindTabular}, true},
		{"table with columns only", Document{Kind: DocumentKindTabular, Columns: []string{"a"}}, false},
		{
			"table with rows",
			Document{Kind: DocumentKindTabular, Columns: []string{"a"}, Rows: []map[string]any{{"a": 1}}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.doc.IsEmpty())
		})
	}
}

// TestDocumentKind_IsValid tests recognised kinds
func TestDocumentKind_IsValid(t *testing.T) {
	assert.True(t, DocumentKindText.IsValid())
	assert.True(t, DocumentKindTabular.IsValid())
	assert.False(t, DocumentKind("image").IsValid())
	assert.Equal(t, "tabular", DocumentKindTabular.String())
}

// TestChangeType_String tests change type labels
func TestChangeType_String(t *testing.T) {
	assert.Equal(t, "created", ChangeCreated.String())
	assert.Equal(t, "updated", ChangeUpdated.String())
	assert.Equal(t, "deleted", ChangeDeleted.String())
	assert.Equal(t, "unknown", ChangeType(42).String())
}
