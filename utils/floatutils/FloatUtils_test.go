package floatutils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClip(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, Clip(3, -1, 1))
	assert.Equal(t, -1.0, Clip(-3, -1, 1))
	assert.Equal(t, 0.5, Clip(0.5, -1, 1))
}

func TestMaxSlice(t *testing.T) {
	t.Parallel()

	max, indices := MaxSlice([]float64{1, 3, 2, 3})
	assert.Equal(t, 3.0, max)
	assert.Equal(t, []int{1, 3}, indices)

	max, indices = MaxSlice([]float64{5, 1})
	assert.Equal(t, 5.0, max)
	assert.Equal(t, []int{0}, indices)
}

func TestSoftmax(t *testing.T) {
	t.Parallel()

	p := []float64{0, math.Log(3), 1000}
	Softmax(p)
	assert.InDeltaSlice(t, []float64{0, 0, 1}, p, 1e-12)

	p = []float64{0, math.Log(3)}
	Softmax(p)
	assert.InDeltaSlice(t, []float64{0.25, 0.75}, p, 1e-12)
}

func TestSample(t *testing.T) {
	t.Parallel()

	probs := []float64{0.25, 0.5, 0.25}
	assert.Equal(t, 0, Sample(probs, 0))
	assert.Equal(t, 1, Sample(probs, 0.25))
	assert.Equal(t, 2, Sample(probs, 0.8))
	assert.Equal(t, 2, Sample(probs, 0.9999999999))
}
