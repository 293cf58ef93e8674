package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCosineSimilarity tests similarity for aligned, opposite and degenerate vectors
func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scaled", []float32{1, 1}, []float32{3, 3}, 1},
		{"dimension mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"both empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

// TestNormalize tests unit length after normalisation
func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})

	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.InDelta(t, 1.0, Magnitude(v), 1e-6)
}

// TestNormalize_ZeroVector tests that zero vectors are left unchanged
func TestNormalize_ZeroVector(t *testing.T) {
	v := Normalize([]float32{0, 0, 0})

	assert.Equal(t, []float32{0, 0, 0}, v)
	assert.False(t, math.IsNaN(float64(v[0])))
}
