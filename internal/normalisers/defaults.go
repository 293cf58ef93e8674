package normalisers

import (
	"github.com/custodia-labs/docchat/internal/normalisers/csv"
	"github.com/custodia-labs/docchat/internal/normalisers/docx"
	"github.com/custodia-labs/docchat/internal/normalisers/html"
	"github.com/custodia-labs/docchat/internal/normalisers/markdown"
	"github.com/custodia-labs/docchat/internal/normalisers/pdf"
	"github.com/custodia-labs/docchat/internal/normalisers/plaintext"
	"github.com/custodia-labs/docchat/internal/normalisers/xlsx"
)

// RegisterDefaults registers every built-in normaliser with r.
func RegisterDefaults(r *Registry) {
	r.Register(csv.New())
	r.Register(xlsx.New())
	r.Register(pdf.New())
	r.Register(docx.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(plaintext.New())
}

// NewDefaultRegistry returns a registry holding the built-in normalisers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
