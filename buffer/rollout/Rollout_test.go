package rollout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestDiscountCumSum(t *testing.T) {
	t.Parallel()

	x := mat.NewVecDense(3, []float64{1, 2, 4})
	got := discountCumSum(x, 0.5)
	assert.InDeltaSlice(t, []float64{3, 4, 4}, got, 1e-12)
}

func fill(t *testing.T, b *Buffer, rewards [][]float64, dones [][]bool) {
	t.Helper()

	for step := range rewards {
		obs := mat.NewDense(2, 1, []float64{float64(step), float64(-step)})
		require.NoError(t, b.Insert(obs, []int{step, step + 1},
			rewards[step], dones[step]))
	}
}

func TestBuffer_ReturnsStopAtEpisodeEnd(t *testing.T) {
	t.Parallel()

	b := New(2, 3, 1, 0.5)
	fill(t, b,
		[][]float64{{1, 1}, {1, 2}, {1, 4}},
		[][]bool{{false, false}, {true, false}, {false, false}},
	)
	require.True(t, b.Full())

	// Env 0 ends its episode on step 1, env 1 is cut off
	want := []float64{
		1.5, 1 + 0.5*2 + 0.25*4,
		1, 2 + 0.5*4,
		1, 4,
	}
	assert.InDeltaSlice(t, want, b.Returns(), 1e-12)
}

func TestBuffer_Get(t *testing.T) {
	t.Parallel()

	b := New(2, 2, 1, 0.9)
	_, _, _, err := b.Get()
	require.Error(t, err)

	fill(t, b,
		[][]float64{{1, 0}, {0, 1}},
		[][]bool{{false, false}, {false, true}},
	)
	obs, actions, adv, err := b.Get()
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 1, 2}, actions)
	assert.True(t, mat.Equal(mat.NewDense(4, 1, []float64{0, 0, 1, -1}),
		obs))

	mean, std := stat.MeanStdDev(adv, nil)
	assert.InDelta(t, 0, mean, 1e-9)
	assert.InDelta(t, 1, std, 1e-6)
	assert.False(t, b.Full())
}

func TestBuffer_InsertErrors(t *testing.T) {
	t.Parallel()

	b := New(2, 1, 2, 0.9)
	err := b.Insert(mat.NewDense(2, 1, nil), []int{0, 0}, []float64{0, 0},
		[]bool{false, false})
	require.Error(t, err)

	err = b.Insert(mat.NewDense(2, 2, nil), []int{0}, []float64{0, 0},
		[]bool{false, false})
	require.Error(t, err)

	require.NoError(t, b.Insert(mat.NewDense(2, 2, nil), []int{0, 0},
		[]float64{0, 0}, []bool{false, false}))
	err = b.Insert(mat.NewDense(2, 2, nil), []int{0, 0}, []float64{0, 0},
		[]bool{false, false})
	require.Error(t, err)
}
