// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Clip clips a floating point to within a minimum and maximum value.
// If the floating point exceeds max, then the function returns the max
// If min exceeds the floating point, then the function returns the min
func Clip(value, min, max float64) float64 {
	clipped := math.Min(value, max)
	return math.Max(clipped, min)
}

// MaxSlice gets the maximum value and indices of the maximum values in
// a slice of float64.
func MaxSlice(values []float64) (max float64, indices []int) {
	max, indices = values[0], []int{0}

	for i, value := range values[1:] {
		if value > max {
			max = value
			indices = []int{i + 1}
		} else if value == max {
			indices = append(indices, i+1)
		}
	}
	return
}

// Softmax replaces logits with the probabilities of a categorical
// distribution, subtracting the maximum logit for stability
func Softmax(logits []float64) {
	floats.AddConst(-floats.Max(logits), logits)
	for i, l := range logits {
		logits[i] = math.Exp(l)
	}
	floats.Scale(1/floats.Sum(logits), logits)
}

// Sample returns the index of the category that the cumulative
// probability u in [0, 1) falls into
func Sample(probs []float64, u float64) int {
	var cum float64
	for i, p := range probs {
		cum += p
		if u < cum {
			return i
		}
	}
	return len(probs) - 1
}
