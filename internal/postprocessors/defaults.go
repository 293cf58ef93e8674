package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/postprocessors/chunker"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
}

// BuildPipeline builds the processors named in cfg, in order.
func BuildPipeline(r *Registry, cfg domain.PipelineConfig) (*Pipeline, error) {
	if len(cfg.Processors) == 0 {
		return nil, fmt.Errorf("pipeline has no processors: %w", domain.ErrInvalidInput)
	}

	p := NewPipeline()
	for _, name := range cfg.Processors {
		proc, err := r.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, err
		}
		p.Add(proc)
	}
	return p, nil
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Target characters per text chunk (default: 500)
//   - overlap (int): Character overlap between window slices (default: 50)
//   - overlap_words (int): Trailing words seeded into the next chunk (default: 10)
//   - rows_per_chunk (int): Table rows per chunk (default: 20)
//   - statistics (bool): Append a summary statistics chunk (default: true)
//   - max_chunks (int): Cap on chunks per document, 0 for none
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size, ok := getIntFromConfig(cfg, "chunk_size"); ok && size > 0 {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := getIntFromConfig(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}
	if words, ok := getIntFromConfig(cfg, "overlap_words"); ok {
		opts = append(opts, chunker.WithOverlapWords(words))
	}
	if rows, ok := getIntFromConfig(cfg, "rows_per_chunk"); ok {
		opts = append(opts, chunker.WithRowsPerChunk(rows))
	}
	if stats, ok := cfg["statistics"].(bool); ok {
		opts = append(opts, chunker.WithStatistics(stats))
	}
	if limit, ok := getIntFromConfig(cfg, "max_chunks"); ok {
		opts = append(opts, chunker.WithMaxChunks(limit))
	}

	return chunker.New(opts...), nil
}

// getIntFromConfig extracts an int from a generic config map.
// Handles int, int64, and float64 types that may come from TOML/YAML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
