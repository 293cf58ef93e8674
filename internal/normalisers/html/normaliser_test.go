package html

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()

	assert.Contains(t, mimeTypes, "text/html")
	assert.Contains(t, mimeTypes, "application/xhtml+xml")
	assert.Len(t, mimeTypes, 2)
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_Success(t *testing.T) {
	raw := &domain.RawDocument{
		ID:       "page",
		URI:      "/path/to/document.html",
		MIMEType: "text/html",
		Content:  []byte("<html><head><title>Test Page</title></head><body><p>Hello World</p></body></html>"),
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	require.NotNil(t, result)

	doc := result.Document
	assert.Equal(t, "page", doc.ID)
	assert.Equal(t, "document.html", doc.Name)
	assert.Equal(t, raw.URI, doc.URI)
	assert.Equal(t, domain.DocumentKindText, doc.Kind)
	assert.Equal(t, "Hello World", doc.Content)
	assert.Equal(t, "Test Page", doc.Metadata["title"])
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_EmptyContent(t *testing.T) {
	result, err := New().Normalise(context.Background(), &domain.RawDocument{URI: "/empty.html"})
	require.NoError(t, err)

	assert.Empty(t, result.Document.Content)
	assert.NotContains(t, result.Document.Metadata, "title")
}

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple paragraph",
			input:    "<p>Hello World</p>",
			expected: "Hello World",
		},
		{
			name:     "nested tags",
			input:    "<div><p><strong>Bold</strong> text</p></div>",
			expected: "Bold text",
		},
		{
			name:     "script removed",
			input:    "<p>Before</p><script>alert('evil');</script><p>After</p>",
			expected: "Before\nAfter",
		},
		{
			name:     "style removed",
			input:    "<style>.foo { color: red; }</style><p>Content</p>",
			expected: "Content",
		},
		{
			name:     "noscript removed",
			input:    "<p>Content</p><noscript>No JS fallback</noscript>",
			expected: "Content",
		},
		{
			name:     "head removed",
			input:    "<head><meta charset='utf-8'><title>Title</title></head><body>Content</body>",
			expected: "Content",
		},
		{
			name:     "br to newline",
			input:    "Line 1<br>Line 2<br/>Line 3",
			expected: "Line 1\nLine 2\nLine 3",
		},
		{
			name:     "block elements create newlines",
			input:    "<div>Block 1</div><div>Block 2</div>",
			expected: "Block 1\nBlock 2",
		},
		{
			name:     "entities decoded",
			input:    "<p>&lt;tag&gt; &amp; &quot;quotes&quot;</p>",
			expected: "<tag> & \"quotes\"",
		},
		{
			name:     "comments removed",
			input:    "<p>Before</p><!-- comment --><p>After</p>",
			expected: "Before\nAfter",
		},
		{
			name:     "list items",
			input:    "<ul><li>Item 1</li><li>Item 2</li></ul>",
			expected: "Item 1\nItem 2",
		},
		{
			name:     "headings",
			input:    "<h1>Title</h1><h2>Subtitle</h2><p>Content</p>",
			expected: "Title\nSubtitle\nContent",
		},
		{
			name:     "links keep text",
			input:    `<a href="https://example.com">Click here</a>`,
			expected: "Click here",
		},
		{
			name:     "images removed",
			input:    `<p>See <img src="image.png" alt="Image"> here</p>`,
			expected: "See here",
		},
		{
			name:     "table cells separated",
			input:    "<table><tr><td>Cell 1</td><td>Cell 2</td></tr><tr><td>Cell 3</td></tr></table>",
			expected: "Cell 1 Cell 2\nCell 3",
		},
		{
			name:     "svg removed",
			input:    `<p>Before</p><svg width="100"><text>drawn</text></svg><p>After</p>`,
			expected: "Before\nAfter",
		},
		{
			name:     "pre keeps lines",
			input:    "<pre>line a\nline b</pre>",
			expected: "line a\nline b",
		},
		{
			name:     "source whitespace collapsed",
			input:    "<p>  spread\n   over\tlines  </p>",
			expected: "spread over lines",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			page, err := goquery.NewDocumentFromReader(strings.NewReader(tc.input))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, Text(page.Selection))
		})
	}
}

func TestNormalise_ComplexHTML(t *testing.T) {
	complexHTML := `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Complex Page</title>
    <style>
        body { font-family: Arial; }
    </style>
</head>
<body>
    <header>
        <h1>Main Title</h1>
        <nav>
            <a href="/home">Home</a>
            <a href="/about">About</a>
        </nav>
    </header>

    <main>
        <article>
            <h2>Article Title</h2>
            <p>This is a <strong>paragraph</strong> with <em>emphasis</em>.</p>

            <ul>
                <li>First item</li>
                <li>Second item</li>
            </ul>
        </article>
    </main>

    <script>
        console.log('This should be removed');
    </script>

    <!-- This is a comment that should be removed -->

    <footer>
        <p>&copy; 2024 Example Corp</p>
    </footer>
</body>
</html>`

	raw := &domain.RawDocument{
		URI:      "/path/complex.html",
		MIMEType: "text/html",
		Content:  []byte(complexHTML),
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	doc := result.Document
	assert.Equal(t, "Complex Page", doc.Metadata["title"])
	assert.Equal(t, "Main Title\nHome About\nArticle Title\nThis is a paragraph with emphasis.\nFirst item\nSecond item\n© 2024 Example Corp", doc.Content)
}

func TestNormalise_MetadataPreserved(t *testing.T) {
	raw := &domain.RawDocument{
		URI:      "/path/document.html",
		MIMEType: "text/html",
		Content:  []byte("<html><body>Test</body></html>"),
		Metadata: map[string]any{
			"author": "test",
			"tags":   []string{"html", "test"},
		},
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	doc := result.Document
	assert.Equal(t, "test", doc.Metadata["author"])
	assert.Equal(t, []string{"html", "test"}, doc.Metadata["tags"])
	assert.Equal(t, "text/html", doc.Metadata["mime_type"])
	assert.Equal(t, "html", doc.Metadata["format"])
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}
