package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/JelinR/habitat-lab/config"
)

func TestFromConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		optimizer string
		want      Type
		config    Config
	}{
		{"adam", Adam, AdamConfig{}},
		{"Adam", Adam, AdamConfig{}},
		{"sgd", Vanilla, VanillaConfig{}},
		{"rmsprop", RMSProp, RMSPropConfig{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.optimizer, func(t *testing.T) {
			t.Parallel()

			s, err := FromConfig(config.VPGConfig{
				LearningRate: 0.1,
				Optimizer:    tt.optimizer,
			}, 4)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Type)
			assert.IsType(t, tt.config, s.Config)
			assert.NotNil(t, s.Solver)
		})
	}
}

func TestFromConfig_Invalid(t *testing.T) {
	t.Parallel()

	_, err := FromConfig(config.VPGConfig{LearningRate: 0.1,
		Optimizer: "lbfgs"}, 1)
	require.Error(t, err)

	_, err = FromConfig(config.VPGConfig{LearningRate: 0,
		Optimizer: "adam"}, 1)
	require.Error(t, err)
}

func TestNewSolver_TypeMismatch(t *testing.T) {
	t.Parallel()

	_, err := newSolver(Adam, VanillaConfig{StepSize: 1, Batch: 1})
	require.Error(t, err)
}

func TestVanilla_Step(t *testing.T) {
	t.Parallel()

	g := G.NewGraph()
	w := G.NewVector(g, G.Float64, G.WithName("w"), G.WithShape(2),
		G.WithValue(tensor.New(tensor.WithBacking([]float64{3, -1}))))
	loss := G.Must(G.Sum(G.Must(G.Square(w))))
	_, err := G.Grad(loss, w)
	require.NoError(t, err)

	vm := G.NewTapeMachine(g, G.BindDualValues(w))
	defer vm.Close()
	require.NoError(t, vm.RunAll())

	s, err := NewVanilla(0.25, 1, -1)
	require.NoError(t, err)
	require.NoError(t, s.Step(G.NodesToValueGrads(G.Nodes{w})))

	// w - lr * 2w
	got := w.Value().Data().([]float64)
	assert.InDeltaSlice(t, []float64{1.5, -0.5}, got, 1e-9)
}
