package trainer

import (
	"fmt"
	"image"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

// Pausable is a batch of environments whose members can be paused
type Pausable interface {
	NumEnvs() int
	PauseAt(index int)
}

// RolloutBatch holds the per-environment state of a rollout. Row i of
// every field belongs to the environment at index i, so every field has
// one row per active environment. Once all environments are paused the
// tensor and matrix fields are nil.
type RolloutBatch struct {
	// HiddenStates has shape (environments, layers, hidden size)
	HiddenStates         *tensor.Dense
	NotDoneMasks         []bool
	CurrentEpisodeReward []float64
	PrevActions          []int
	Observations         map[string]*mat.Dense
	Frames               [][]image.Image
}

// PauseEnvs pauses the environments at the indices in envsToPause and
// removes their rows from batch. Environments are paused in descending
// index order, so each index refers to the batch before any pausing.
// The surviving rows keep their relative order. PauseEnvs panics if an
// index is out of range or repeated.
func PauseEnvs(envsToPause []int, envs Pausable,
	batch RolloutBatch) RolloutBatch {
	if len(envsToPause) == 0 {
		return batch
	}

	n := envs.NumEnvs()
	paused := make([]bool, n)
	for _, idx := range envsToPause {
		if idx < 0 || idx >= n {
			panic(fmt.Sprintf("pauseEnvs: index %d out of range [0, %d)",
				idx, n))
		}
		if paused[idx] {
			panic(fmt.Sprintf("pauseEnvs: index %d paused twice", idx))
		}
		paused[idx] = true
	}

	descending := slices.Clone(envsToPause)
	slices.Sort(descending)
	slices.Reverse(descending)
	for _, idx := range descending {
		envs.PauseAt(idx)
	}

	keep := make([]int, 0, n-len(envsToPause))
	for i := 0; i < n; i++ {
		if !paused[i] {
			keep = append(keep, i)
		}
	}
	return batch.Select(keep)
}

// Select returns the batch made of the rows at indices keep, in order
func (b RolloutBatch) Select(keep []int) RolloutBatch {
	out := RolloutBatch{
		HiddenStates:         selectTensor(b.HiddenStates, keep),
		NotDoneMasks:         selectRows(b.NotDoneMasks, keep),
		CurrentEpisodeReward: selectRows(b.CurrentEpisodeReward, keep),
		PrevActions:          selectRows(b.PrevActions, keep),
		Frames:               selectRows(b.Frames, keep),
	}

	if b.Observations != nil {
		out.Observations = make(map[string]*mat.Dense, len(b.Observations))
		for name, obs := range b.Observations {
			out.Observations[name] = selectMatrix(obs, keep)
		}
	}
	return out
}

// Len returns the number of rows of the batch
func (b RolloutBatch) Len() int {
	return len(b.NotDoneMasks)
}

func selectRows[T any](rows []T, keep []int) []T {
	if rows == nil {
		return nil
	}

	out := make([]T, len(keep))
	for i, k := range keep {
		out[i] = rows[k]
	}
	return out
}

func selectMatrix(m *mat.Dense, keep []int) *mat.Dense {
	if m == nil || len(keep) == 0 {
		return nil
	}

	_, c := m.Dims()
	out := mat.NewDense(len(keep), c, nil)
	for i, k := range keep {
		out.SetRow(i, m.RawRowView(k))
	}
	return out
}

func selectTensor(t *tensor.Dense, keep []int) *tensor.Dense {
	if t == nil || len(keep) == 0 {
		return nil
	}

	shape := t.Shape().Clone()
	data := t.Data().([]float64)
	row := len(data) / shape[0]

	backing := make([]float64, 0, len(keep)*row)
	for _, k := range keep {
		backing = append(backing, data[k*row:(k+1)*row]...)
	}

	shape[0] = len(keep)
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing))
}
