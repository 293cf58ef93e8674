package domain

import "math"

// CosineSimilarity returns the cosine of the angle between a and b.
// It returns 0 when the dimensions differ or either vector is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp rounding drift so callers can rely on [-1, 1].
	return math.Max(-1, math.Min(1, sim))
}

// Magnitude returns the L2 norm of v.
func Magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize scales v to unit length in place and returns it.
// A zero vector is left unchanged.
func Normalize(v []float32) []float32 {
	mag := Magnitude(v)
	if mag == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / mag)
	}
	return v
}
