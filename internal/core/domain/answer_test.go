package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestAnswer_Timings tests millisecond accessors
func TestAnswer_Timings(t *testing.T) {
	a := Answer{
		RetrievalTime:  12 * time.Millisecond,
		GenerationTime: 1500 * time.Millisecond,
	}

	assert.Equal(t, int64(12), a.RetrievalMs())
	assert.Equal(t, int64(1500), a.GenerationMs())
	assert.False(t, a.HasSources())

	a.Sources = []Source{{ChunkIndex: 0, Score: 0.9}}
	assert.True(t, a.HasSources())
}
