package html

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/normalisers/docbuild"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise converts an HTML document to a text document.
// The <title> is kept in metadata["title"].
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	page, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", domain.ErrInvalidInput)
	}

	title := strings.TrimSpace(page.Find("title").First().Text())
	result := docbuild.Text(raw, "html", Text(page.Selection))
	if title != "" {
		result.Document.Metadata["title"] = title
	}
	return result, nil
}

// Elements whose content is never readable text.
const skipped = "script, style, noscript, head, svg, template, iframe"

var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

// Block elements start and end a line.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "div": true, "dl": true, "dt": true, "figcaption": true,
	"figure": true, "footer": true, "form": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "header": true,
	"li": true, "main": true, "nav": true, "ol": true, "p": true,
	"pre": true, "section": true, "table": true, "tr": true, "ul": true,
}

// Text returns the readable text under sel. Non-content elements are
// removed from sel's document. Whitespace is collapsed, block elements are
// placed on their own lines and blank lines are dropped.
func Text(sel *goquery.Selection) string {
	sel.Find(skipped).Remove()

	var b strings.Builder
	walk(&b, sel, false)
	return tidy(b.String())
}

// walk writes the text under sel to b. Source line breaks only survive
// inside <pre>.
func walk(b *strings.Builder, sel *goquery.Selection, pre bool) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		switch name := goquery.NodeName(s); {
		case name == "#text":
			text := s.Text()
			if !pre {
				text = lineBreaks.Replace(text)
			}
			b.WriteString(text)
		case name == "#comment":
		case name == "br" || name == "hr":
			b.WriteByte('\n')
		case name == "td" || name == "th":
			b.WriteByte(' ')
			walk(b, s, pre)
			b.WriteByte(' ')
		case blockElements[name]:
			b.WriteByte('\n')
			walk(b, s, pre || name == "pre")
			b.WriteByte('\n')
		default:
			walk(b, s, pre)
		}
	})
}

func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
