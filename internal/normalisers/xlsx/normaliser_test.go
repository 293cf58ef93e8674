package xlsx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// workbook builds an xlsx file whose first sheet holds rows from A1 down.
func workbook(t *testing.T, rows [][]any, extraSheets ...string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	for _, name := range extraSheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func normalise(t *testing.T, content []byte) domain.Document {
	t.Helper()
	result, err := New().Normalise(context.Background(), &domain.RawDocument{
		Name:     "sales.xlsx",
		MIMEType: MIMEType,
		Content:  content,
	})
	require.NoError(t, err)
	return result.Document
}

func TestSupportedMIMETypes(t *testing.T) {
	assert.Equal(t, []string{MIMEType}, New().SupportedMIMETypes())
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_Invalid(t *testing.T) {
	result, err := New().Normalise(context.Background(), &domain.RawDocument{Content: []byte("not a workbook")})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_FirstSheet(t *testing.T) {
	content := workbook(t, [][]any{
		{"region", "units", "price"},
		{"North", 12, 9.5},
		{"South", 7, "n/a"},
	}, "Ignored")

	doc := normalise(t, content)

	assert.Equal(t, domain.DocumentKindTabular, doc.Kind)
	assert.Equal(t, []string{"region", "units", "price"}, doc.Columns)
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, map[string]any{"region": "North", "units": 12.0, "price": 9.5}, doc.Rows[0])
	assert.Equal(t, map[string]any{"region": "South", "units": 7.0, "price": "n/a"}, doc.Rows[1])
	assert.Equal(t, "Sheet1", doc.Metadata["sheet"])
	assert.Equal(t, 2, doc.Metadata["sheets"])
	assert.Equal(t, "xlsx", doc.Metadata["format"])
}

func TestNormalise_LeadingBlankRows(t *testing.T) {
	content := workbook(t, [][]any{
		{},
		{"name"},
		{"Ada"},
	})

	doc := normalise(t, content)

	assert.Equal(t, []string{"name"}, doc.Columns)
	assert.Equal(t, []map[string]any{{"name": "Ada"}}, doc.Rows)
}

func TestNormalise_EmptySheet(t *testing.T) {
	doc := normalise(t, workbook(t, nil))

	assert.True(t, doc.IsEmpty())
	assert.Equal(t, "Sheet1", doc.Metadata["sheet"])
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}
