// Package xlsx normalises Excel workbooks into tabular documents using the
// first worksheet. The first non-empty row is the header.
package xlsx

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/normalisers/docbuild"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MIMEType is the Office Open XML spreadsheet type.
const MIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Normaliser handles XLSX workbooks.
type Normaliser struct{}

// New creates a new XLSX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 60
}

// Normalise reads the first worksheet of raw. The sheet name is kept in
// metadata["sheet"] and the workbook's sheet count in metadata["sheets"].
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %v: %w", err, domain.ErrInvalidInput)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return docbuild.Tabular(raw, "xlsx", nil, nil), nil
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %v: %w", sheets[0], err, domain.ErrInvalidInput)
	}

	for len(records) > 0 && isBlank(records[0]) {
		records = records[1:]
	}

	var result *driven.NormaliseResult
	if len(records) == 0 {
		result = docbuild.Tabular(raw, "xlsx", nil, nil)
	} else {
		columns, rows := docbuild.Table(records[0], records[1:])
		result = docbuild.Tabular(raw, "xlsx", columns, rows)
	}
	result.Document.Metadata["sheet"] = sheets[0]
	result.Document.Metadata["sheets"] = len(sheets)
	return result, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
