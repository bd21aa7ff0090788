package embedding

import "math"

// Normalize L2-normalises v in place and returns it. A zero vector is
// returned unchanged (there is no direction to normalise to).
func Normalize(v []float64) []float64 {
	var sumSq float64
	for _, x := range v {
		sumSq += x * x
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	for i := range v {
		v[i] /= norm
	}
	return v
}

// Norm returns the L2 norm of v.
func Norm(v []float64) float64 {
	var sumSq float64
	for _, x := range v {
		sumSq += x * x
	}
	return math.Sqrt(sumSq)
}
