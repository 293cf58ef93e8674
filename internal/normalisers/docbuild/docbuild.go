// Package docbuild holds the document construction shared by normalisers.
package docbuild

import (
	"fmt"
	"maps"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Text builds a text document from raw carrying content.
func Text(raw *domain.RawDocument, format, content string) *driven.NormaliseResult {
	doc := base(raw, format)
	doc.Kind = domain.DocumentKindText
	doc.Content = content
	return &driven.NormaliseResult{Document: doc}
}

// Tabular builds a tabular document from raw.
func Tabular(raw *domain.RawDocument, format string, columns []string, rows []map[string]any) *driven.NormaliseResult {
	doc := base(raw, format)
	doc.Kind = domain.DocumentKindTabular
	doc.Columns = columns
	doc.Rows = rows
	return &driven.NormaliseResult{Document: doc}
}

func base(raw *domain.RawDocument, format string) domain.Document {
	id := raw.ID
	if id == "" {
		id = uuid.NewString()
	}

	meta := maps.Clone(raw.Metadata)
	if meta == nil {
		meta = make(map[string]any)
	}
	meta["mime_type"] = raw.MIMEType
	meta["format"] = format

	now := time.Now()
	return domain.Document{
		ID:        id,
		Name:      Name(raw),
		URI:       raw.URI,
		MIMEType:  raw.MIMEType,
		Size:      int64(len(raw.Content)),
		Metadata:  meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Name returns raw's display name: its Name, else the base of its URI.
func Name(raw *domain.RawDocument) string {
	if raw.Name != "" {
		return raw.Name
	}
	if raw.URI != "" {
		return filepath.Base(raw.URI)
	}
	return "untitled"
}

// DecodeText converts raw bytes to valid UTF-8 without a byte order mark.
func DecodeText(b []byte) string {
	s := strings.TrimPrefix(string(b), "\uFEFF")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	return s
}

// Table turns a header row and records into columns and row maps.
// Blank headers are named "Column N", duplicates get a numeric suffix,
// numeric cells become float64 and rows with no values are dropped.
func Table(header []string, records [][]string) ([]string, []map[string]any) {
	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Column %d", i+1)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 1
		}
		columns[i] = name
	}

	rows := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if i >= len(rec) {
				break
			}
			cell := strings.TrimSpace(rec[i])
			if cell == "" {
				continue
			}
			row[col] = Cell(cell)
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return columns, rows
}

// Cell converts a numeric string to float64 and returns anything else unchanged.
func Cell(s string) any {
	if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64); err == nil && looksNumeric(s) {
		return f
	}
	return s
}

// looksNumeric rejects strings ParseFloat accepts but people don't read as
// numbers, such as "NaN", "Inf" or hex floats.
func looksNumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return false
		}
	}
	return true
}
