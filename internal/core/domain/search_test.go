package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIndexStats(t *testing.T) {
	s := NewIndexStats(4, 10)
	assert.Equal(t, 4, s.TotalDocuments)
	assert.Equal(t, 10, s.TotalChunks)
	assert.InDelta(t, 2.5, s.AvgChunksPerDocument, 1e-9)
}

func TestNewIndexStats_Empty(t *testing.T) {
	s := NewIndexStats(0, 0)
	assert.Zero(t, s.AvgChunksPerDocument)
}
