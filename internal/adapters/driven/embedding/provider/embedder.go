// Package provider wraps a remote embedding service so that it can never
// fail: provider errors fall back to a local embedder.
package provider

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure ProviderEmbedder implements the interface.
var _ driven.Embedder = (*ProviderEmbedder)(nil)

// Default configuration values.
const (
	DefaultMaxInputChars = 8000
	DefaultBatchSize     = 64
)

// Config holds ProviderEmbedder tuning.
type Config struct {
	// MaxInputChars truncates input before it is sent (default: 8000).
	MaxInputChars int

	// BatchSize is the number of texts per provider request (default: 64).
	BatchSize int

	// RequestsPerSecond throttles provider calls. Zero disables throttling.
	RequestsPerSecond float64

	// Burst is the limiter burst size (default: 1).
	Burst int
}

// ProviderEmbedder embeds through an EmbeddingService and falls back to a
// local Embedder on any provider error, including cancellation, rate
// limiting and vectors of the wrong size.
type ProviderEmbedder struct {
	service   driven.EmbeddingService
	fallback  driven.Embedder
	limiter   *rate.Limiter
	maxInput  int
	batchSize int
	fallbacks atomic.Int64
}

// New creates a ProviderEmbedder. A nil service makes every call use the fallback.
func New(service driven.EmbeddingService, fallback driven.Embedder, cfg Config) *ProviderEmbedder {
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = DefaultMaxInputChars
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &ProviderEmbedder{
		service:   service,
		fallback:  fallback,
		limiter:   rate.NewLimiter(limit, cfg.Burst),
		maxInput:  cfg.MaxInputChars,
		batchSize: cfg.BatchSize,
	}
}

// Embed returns the provider's vector for text, or the fallback's on error.
func (e *ProviderEmbedder) Embed(ctx context.Context, text string) []float32 {
	if e.service == nil {
		return e.fallback.Embed(ctx, text)
	}

	vec, err := e.call(ctx, func() ([][]float32, error) {
		v, err := e.service.Embed(ctx, e.truncate(text))
		return [][]float32{v}, err
	}, 1)
	if err != nil {
		e.fallbacks.Add(1)
		logger.Debug("embedding provider %s failed, using %s: %v", e.service.ModelName(), e.fallback.Name(), err)
		return e.fallback.Embed(ctx, text)
	}
	return vec[0]
}

// EmbedBatch embeds texts in provider-sized batches. A failed batch is
// embedded by the fallback; other batches are unaffected.
func (e *ProviderEmbedder) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	if e.service == nil {
		return e.fallback.EmbedBatch(ctx, texts)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		batch := texts[start:min(start+e.batchSize, len(texts))]

		inputs := make([]string, len(batch))
		for i, t := range batch {
			inputs[i] = e.truncate(t)
		}

		vecs, err := e.call(ctx, func() ([][]float32, error) {
			return e.service.EmbedBatch(ctx, inputs)
		}, len(batch))
		if err != nil {
			e.fallbacks.Add(int64(len(batch)))
			logger.Debug("embedding provider batch of %d failed, using %s: %v", len(batch), e.fallback.Name(), err)
			vecs = e.fallback.EmbedBatch(ctx, batch)
		}
		out = append(out, vecs...)
	}
	return out
}

// call waits for the limiter, invokes fn and validates the result shape.
func (e *ProviderEmbedder) call(ctx context.Context, fn func() ([][]float32, error), want int) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	vecs, err := fn()
	if err != nil {
		return nil, err
	}
	if len(vecs) != want {
		return nil, errShape
	}
	for _, v := range vecs {
		if len(v) == 0 || len(v) != e.Dimensions() {
			return nil, errShape
		}
		domain.Normalize(v)
	}
	return vecs, nil
}

// Dimensions returns the provider's vector size, or the fallback's when
// no provider is configured.
func (e *ProviderEmbedder) Dimensions() int {
	if e.service != nil && e.service.Dimensions() > 0 {
		return e.service.Dimensions()
	}
	return e.fallback.Dimensions()
}

// Name identifies the embedding strategy.
func (e *ProviderEmbedder) Name() string {
	if e.service == nil {
		return e.fallback.Name()
	}
	return "provider:" + e.service.ModelName()
}

// Fallbacks returns how many texts have been embedded by the fallback
// because the provider failed.
func (e *ProviderEmbedder) Fallbacks() int64 {
	return e.fallbacks.Load()
}

// truncate keeps at most maxInput characters.
func (e *ProviderEmbedder) truncate(text string) string {
	if len(text) <= e.maxInput {
		return text
	}
	runes := []rune(text)
	if len(runes) <= e.maxInput {
		return text
	}
	return string(runes[:e.maxInput])
}
