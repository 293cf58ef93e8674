// Package local provides a deterministic embedding computed without any
// network access. It stands in for a semantic model when no provider is
// configured or the provider is unreachable.
package local

import (
	"context"
	"strings"
	"unicode/utf16"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure HashEmbedder implements the interface.
var _ driven.Embedder = (*HashEmbedder)(nil)

// HashEmbedder maps whitespace tokens into hashed buckets.
//
// Each token at position idx adds 1/(idx+1) to bucket abs(hash) mod dims,
// so earlier tokens weigh more. The result is L2-normalised unless it is
// the zero vector (empty or blank input).
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hash embedder producing dims-sized vectors.
// Non-positive dims use domain.DefaultFallbackDimensions.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = domain.DefaultFallbackDimensions
	}
	return &HashEmbedder{dims: dims}
}

// Embed returns the hashed vector for text. It never fails.
func (e *HashEmbedder) Embed(_ context.Context, text string) []float32 {
	vec := make([]float32, e.dims)
	for idx, token := range strings.Fields(strings.ToLower(text)) {
		bucket := abs(int64(hashToken(token))) % int64(e.dims)
		vec[bucket] += float32(1.0 / float64(idx+1))
	}
	return domain.Normalize(vec)
}

// EmbedBatch embeds each text in order.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.Embed(ctx, text)
	}
	return out
}

// Dimensions returns the vector size.
func (e *HashEmbedder) Dimensions() int {
	return e.dims
}

// Name identifies the strategy.
func (e *HashEmbedder) Name() string {
	return "hash"
}

// hashToken computes h = h*31 + c over UTF-16 code units with 32-bit
// signed wrap-around, matching the classic string hash.
func hashToken(s string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	return h
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
