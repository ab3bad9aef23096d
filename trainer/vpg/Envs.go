package vpg

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"

	"github.com/JelinR/habitat-lab/config"
	"github.com/JelinR/habitat-lab/environment"
	"github.com/JelinR/habitat-lab/environment/pointnav"
	"github.com/JelinR/habitat-lab/timestep"
	"github.com/JelinR/habitat-lab/trainer"
)

// Episode seeds of different splits are drawn from disjoint ranges
const splitSeedStride = 1 << 16

// makeEnvs returns num_environments navigation environments sharing
// the grid generated from environment.seed. Each environment gets
// episodesPerEnv episodes of its own, sampled from the configured
// split.
func makeEnvs(c *config.Config, episodesPerEnv int) ([]environment.Environment,
	error) {
	ec := c.Environment
	grid, err := pointnav.NewGrid(ec.Rows, ec.Cols, ec.ObstacleDensity,
		rand.New(rand.NewSource(ec.Seed)))
	if err != nil {
		return nil, fmt.Errorf("makeEnvs: %w", err)
	}

	base := ec.Seed * splitSeedStride * 2
	if ec.Split != "train" {
		base += splitSeedStride
	}

	envs := make([]environment.Environment, c.NumEnvironments)
	for i := range envs {
		rng := rand.New(rand.NewSource(base + uint64(i) + 1))
		episodes, err := pointnav.SampleEpisodes(grid, episodesPerEnv,
			ec.SuccessDistance, rng)
		if err != nil {
			return nil, fmt.Errorf("makeEnvs: %w", err)
		}

		envs[i], err = pointnav.NewWithEpisodes(grid, episodes,
			ec.MaxEpisodeSteps, ec.SuccessDistance)
		if err != nil {
			return nil, fmt.Errorf("makeEnvs: %w", err)
		}
	}
	return envs, nil
}

// numFeatures returns the length of the feature vector of a grid with
// the given number of cells: position, point goal, visitation trace and
// bias
func numFeatures(cells int) int {
	return 2*cells + 3
}

// newBatch returns the rollout state of n environments after reset
func newBatch(steps []timestep.TimeStep, cells int) trainer.RolloutBatch {
	n := len(steps)
	b := trainer.RolloutBatch{
		HiddenStates: tensor.New(tensor.WithShape(n, 1, cells),
			tensor.WithBacking(make([]float64, n*cells))),
		NotDoneMasks:         make([]bool, n),
		CurrentEpisodeReward: make([]float64, n),
		PrevActions:          make([]int, n),
		Observations: map[string]*mat.Dense{
			pointnav.PositionSensor:  mat.NewDense(n, cells, nil),
			pointnav.PointGoalSensor: mat.NewDense(n, 2, nil),
		},
	}
	for i, step := range steps {
		startEpisode(b, i, step)
	}
	return b
}

// features returns the (environments, features) input of the policy
func features(b trainer.RolloutBatch) *mat.Dense {
	pos := b.Observations[pointnav.PositionSensor]
	goal := b.Observations[pointnav.PointGoalSensor]
	n, cells := pos.Dims()
	hidden := b.HiddenStates.Data().([]float64)

	out := mat.NewDense(n, numFeatures(cells), nil)
	for i := 0; i < n; i++ {
		row := out.RawRowView(i)
		copy(row, pos.RawRowView(i))
		copy(row[cells:], goal.RawRowView(i))
		copy(row[cells+2:], hidden[i*cells:(i+1)*cells])
		row[len(row)-1] = 1
	}
	return out
}

// startEpisode sets row i of b to the first step of a new episode
func startEpisode(b trainer.RolloutBatch, i int, step timestep.TimeStep) {
	setObservation(b, i, step.Observation)

	cells := b.HiddenStates.Shape()[2]
	hidden := b.HiddenStates.Data().([]float64)[i*cells : (i+1)*cells]
	copy(hidden, b.Observations[pointnav.PositionSensor].RawRowView(i))

	b.NotDoneMasks[i] = false
	b.CurrentEpisodeReward[i] = 0
	b.PrevActions[i] = 0
}

// advance records in row i of b that action led to step. The
// visitation trace decays and adds the new position.
func advance(b trainer.RolloutBatch, i int, step timestep.TimeStep,
	action int, decay float64) {
	setObservation(b, i, step.Observation)

	cells := b.HiddenStates.Shape()[2]
	hidden := b.HiddenStates.Data().([]float64)[i*cells : (i+1)*cells]
	pos := b.Observations[pointnav.PositionSensor].RawRowView(i)
	for j := range hidden {
		hidden[j] = decay*hidden[j] + pos[j]
	}

	b.NotDoneMasks[i] = true
	b.CurrentEpisodeReward[i] += step.Reward
	b.PrevActions[i] = action
}

func setObservation(b trainer.RolloutBatch, i int, obs timestep.Observation) {
	for name, m := range b.Observations {
		v, ok := obs[name]
		if !ok {
			panic(fmt.Sprintf("setObservation: missing sensor %q", name))
		}
		m.SetRow(i, v.RawVector().Data)
	}
}
