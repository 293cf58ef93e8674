// Package csv normalises comma and tab separated files into tabular
// documents. The first record is the header.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/normalisers/docbuild"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const tsvMIMEType = "text/tab-separated-values"

// Normaliser handles CSV and TSV documents.
type Normaliser struct{}

// New creates a new CSV normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/csv", "application/csv", tsvMIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 60
}

// Normalise parses raw as delimited records. Ragged records are accepted:
// missing cells are left out of the row and extra cells are dropped.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	r := csv.NewReader(strings.NewReader(docbuild.DecodeText(raw.Content)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	if raw.MIMEType == tsvMIMEType {
		r.Comma = '\t'
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %v: %w", err, domain.ErrInvalidInput)
	}
	if len(records) == 0 {
		return docbuild.Tabular(raw, "csv", nil, nil), nil
	}

	columns, rows := docbuild.Table(records[0], records[1:])
	return docbuild.Tabular(raw, "csv", columns, rows), nil
}
