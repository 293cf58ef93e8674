// Package markdown normalises Markdown documents by rendering them with
// goldmark and extracting the text of the rendered HTML.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/normalisers/docbuild"
	htmltext "github.com/custodia-labs/docchat/internal/normalisers/html"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct {
	md goldmark.Markdown
}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise converts a markdown document to a text document. Formatting is
// dropped, code blocks keep their lines and the first level-one heading is
// kept in metadata["title"].
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	var buf bytes.Buffer
	if err := n.md.Convert([]byte(docbuild.DecodeText(raw.Content)), &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	page, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return nil, fmt.Errorf("parse rendered markdown: %w", err)
	}

	title := strings.TrimSpace(page.Find("h1").First().Text())
	result := docbuild.Text(raw, "markdown", htmltext.Text(page.Selection))
	if title != "" {
		result.Document.Metadata["title"] = title
	}
	return result, nil
}
