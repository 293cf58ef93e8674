package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func TestIndexCmd_RequiresPath(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "index")

	require.Error(t, err)
}

func TestIndexCmd_Directory(t *testing.T) {
	env := setupTestServices(t)
	dir := writeFiles(t, map[string]string{
		"policy.md": "# Refunds\n\nRefunds are accepted within 30 days.",
		"notes.txt": "Shipping takes five days.",
	})

	out, err := execute(t, "index", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "policy.md")
	assert.Contains(t, out, "Indexed 2 documents")

	docs, err := env.docs.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestIndexCmd_JSONSkipsUnsupported(t *testing.T) {
	setupTestServices(t)
	dir := writeFiles(t, map[string]string{
		"notes.txt": "Shipping takes five days.",
		"blob.bin":  "\x00\x01\x02\x03\xff\xfe",
	})

	out, err := execute(t, "index", "--json", dir)

	require.NoError(t, err)
	var got ingestReportJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Indexed)
	assert.Equal(t, 1, got.Skipped)
	assert.Zero(t, got.Failed)
}

func TestIndexCmd_ReindexReplaces(t *testing.T) {
	setupTestServices(t)
	dir := writeFiles(t, map[string]string{"notes.txt": "Shipping takes five days."})

	_, err := execute(t, "index", dir)
	require.NoError(t, err)

	out, err := execute(t, "index", "--json", dir)
	require.NoError(t, err)

	var got ingestReportJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Replaced)
}

func TestIndexCmd_ServiceNotConfigured(t *testing.T) {
	SetServices(nil)

	_, err := execute(t, "index", t.TempDir())

	require.EqualError(t, err, "ingest service not configured")
}

func TestMergeReport(t *testing.T) {
	dst := &driving.IngestReport{Indexed: 1, Chunks: 2}
	mergeReport(dst, &driving.IngestReport{Indexed: 2, Replaced: 1, Skipped: 3, Chunks: 5, Errors: []error{errors.New("x")}})
	mergeReport(dst, nil)

	assert.Equal(t, 3, dst.Indexed)
	assert.Equal(t, 1, dst.Replaced)
	assert.Equal(t, 3, dst.Skipped)
	assert.Equal(t, 7, dst.Chunks)
	assert.Len(t, dst.Errors, 1)
}
