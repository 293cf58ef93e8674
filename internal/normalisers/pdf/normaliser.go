// Package pdf extracts the text layer of PDF documents page by page.
// Scanned PDFs without a text layer normalise to an empty document.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/normalisers/docbuild"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// PageSeparator joins the text of consecutive pages.
const PageSeparator = "\n\n"

// Normaliser handles PDF documents.
type Normaliser struct{}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts a PDF to a text document. The page count is kept in
// metadata["pages"] and the Info dictionary title in metadata["title"].
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (result *driven.NormaliseResult, err error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	// The reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("read pdf: %v: %w", r, domain.ErrInvalidInput)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %v: %w", err, domain.ErrInvalidInput)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %v: %w", i, err, domain.ErrInvalidInput)
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}

	result = docbuild.Text(raw, "pdf", strings.Join(pages, PageSeparator))
	result.Document.Metadata["pages"] = numPages
	if title := strings.TrimSpace(reader.Trailer().Key("Info").Key("Title").Text()); title != "" {
		result.Document.Metadata["title"] = title
	}
	return result, nil
}
