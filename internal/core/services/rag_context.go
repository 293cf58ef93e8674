package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Answer generation defaults used when RAG settings leave a value unset.
const (
	DefaultTemperature     = 0.3
	DefaultMaxContextChars = 12000
	DefaultPreviewLength   = 200
)

// SourceDelimiter separates sources in the composed context.
const SourceDelimiter = "\n\n---\n\n"

// ComposeContext renders ranked results as labelled sources in rank order,
// so "Source 1" is always the highest-scoring chunk. Sources that would push
// the context past maxChars runes are dropped from the bottom, but the first
// source is always kept. maxChars <= 0 disables the bound.
//
// It returns the context and the number of sources it contains.
func ComposeContext(results []domain.SearchResult, maxChars int) (string, int) {
	var b strings.Builder
	size := 0
	used := 0

	for i, r := range results {
		part := fmt.Sprintf("[Source %d] (Relevance: %.1f%%)\n%s", i+1, r.Score*100, r.Entry.Content)

		add := utf8.RuneCountInString(part)
		if i > 0 {
			add += len(SourceDelimiter)
		}
		if i > 0 && maxChars > 0 && size+add > maxChars {
			break
		}

		if i > 0 {
			b.WriteString(SourceDelimiter)
		}
		b.WriteString(part)
		size += add
		used++
	}

	return b.String(), used
}

// Sources converts ranked results to answer sources, truncating content
// to previewLength runes with a trailing "..." when cut.
func Sources(results []domain.SearchResult, previewLength int) []domain.Source {
	sources := make([]domain.Source, len(results))
	for i, r := range results {
		sources[i] = domain.Source{
			DocumentID: r.Entry.DocumentID,
			ChunkIndex: r.Entry.ChunkIndex,
			Content:    Preview(r.Entry.Content, previewLength),
			Score:      r.Score,
		}
	}
	return sources
}

// Preview truncates s to n runes, appending "..." when it was longer.
func Preview(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
