package vpg

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/JelinR/habitat-lab/checkpointer"
	"github.com/JelinR/habitat-lab/solver"
	"github.com/JelinR/habitat-lab/utils/floatutils"
)

// weightKey is the name of the policy weights in a checkpoint
const weightKey = "policy.weight"

// Policy is a linear softmax policy over discrete actions. Its logits
// are the product of a feature vector and a (features, actions) weight
// matrix.
type Policy struct {
	numFeatures int
	numActions  int
	weights     []float64
	rng         *rand.Rand
}

// NewPolicy returns a uniform policy
func NewPolicy(numFeatures, numActions int, seed uint64) *Policy {
	return &Policy{
		numFeatures: numFeatures,
		numActions:  numActions,
		weights:     make([]float64, numFeatures*numActions),
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Probs returns the action probabilities given features
func (p *Policy) Probs(features []float64) []float64 {
	if len(features) != p.numFeatures {
		panic(fmt.Sprintf("probs: expected %d features, got %d",
			p.numFeatures, len(features)))
	}

	w := mat.NewDense(p.numFeatures, p.numActions, p.weights)
	logits := mat.NewVecDense(p.numActions, nil)
	logits.MulVec(w.T(), mat.NewVecDense(p.numFeatures, features))

	probs := logits.RawVector().Data
	floatutils.Softmax(probs)
	return probs
}

// SelectAction samples an action given features. If greedy, the most
// probable action is returned with ties broken at random.
func (p *Policy) SelectAction(features []float64, greedy bool) int {
	probs := p.Probs(features)
	if greedy {
		_, indices := floatutils.MaxSlice(probs)
		return indices[p.rng.Intn(len(indices))]
	}
	return floatutils.Sample(probs, p.rng.Float64())
}

// StateDict returns the parameters of the policy
func (p *Policy) StateDict() map[string]checkpointer.Tensor {
	return map[string]checkpointer.Tensor{
		weightKey: {
			Shape: []int{p.numFeatures, p.numActions},
			Data:  append([]float64(nil), p.weights...),
		},
	}
}

// LoadStateDict sets the parameters of the policy
func (p *Policy) LoadStateDict(sd map[string]checkpointer.Tensor) error {
	w, ok := sd[weightKey]
	if !ok {
		return fmt.Errorf("loadStateDict: missing %q", weightKey)
	}
	if len(w.Shape) != 2 || w.Shape[0] != p.numFeatures ||
		w.Shape[1] != p.numActions || len(w.Data) != len(p.weights) {
		return fmt.Errorf("loadStateDict: %q has shape %v, expected [%d %d]",
			weightKey, w.Shape, p.numFeatures, p.numActions)
	}

	copy(p.weights, w.Data)
	return nil
}

// learner updates a Policy with the policy gradient computed over a
// fixed size batch
type learner struct {
	policy *Policy
	batch  int

	obs        *G.Node
	actions    *G.Node
	advantages *G.Node
	weights    *G.Node
	loss       G.Value

	vm     G.VM
	solver *solver.Solver
}

// newLearner builds the policy gradient graph of p for batches of the
// given size
func newLearner(p *Policy, batch int, s *solver.Solver) (*learner, error) {
	g := G.NewGraph()

	obs := G.NewMatrix(g, tensor.Float64,
		G.WithShape(batch, p.numFeatures),
		G.WithName("Observations"),
		G.WithInit(G.Zeroes()),
	)
	weights := G.NewMatrix(g, tensor.Float64,
		G.WithShape(p.numFeatures, p.numActions),
		G.WithName(weightKey),
		G.WithValue(tensor.New(
			tensor.WithShape(p.numFeatures, p.numActions),
			tensor.WithBacking(append([]float64(nil), p.weights...)),
		)),
	)
	actions := G.NewMatrix(g, tensor.Float64,
		G.WithShape(batch, p.numActions),
		G.WithName("Action Indices"),
		G.WithInit(G.Zeroes()),
	)
	advantages := G.NewVector(g, tensor.Float64,
		G.WithShape(batch),
		G.WithName("Advantages"),
		G.WithInit(G.Zeroes()),
	)

	logits := G.Must(G.Mul(obs, weights))
	selected := G.Must(G.HadamardProd(actions, logits))
	selected = G.Must(G.Sum(selected, 1))
	logProb := G.Must(G.Sub(selected, logSumExp(logits, 1)))

	loss := G.Must(G.HadamardProd(logProb, advantages))
	loss = G.Must(G.Mean(loss))
	loss = G.Must(G.Neg(loss))

	if _, err := G.Grad(loss, weights); err != nil {
		return nil, fmt.Errorf("newLearner: %w", err)
	}

	l := &learner{
		policy:     p,
		batch:      batch,
		obs:        obs,
		actions:    actions,
		advantages: advantages,
		weights:    weights,
		solver:     s,
	}
	G.Read(loss, &l.loss)
	l.vm = G.NewTapeMachine(g, G.BindDualValues(weights))

	return l, nil
}

// logSumExp computes log Σ exp(logits) along an axis, subtracting the
// maximum logit for stability
func logSumExp(logits *G.Node, along int) *G.Node {
	max := G.Must(G.Max(logits, along))

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))
	sum := G.Must(G.Sum(exponent, along))

	return G.Must(G.Add(max, G.Must(G.Log(sum))))
}

// update takes one gradient step on the batch and returns the loss
// before the step
func (l *learner) update(obs *mat.Dense, actions []int,
	adv []float64) (float64, error) {
	r, c := obs.Dims()
	if r != l.batch || len(actions) != l.batch || len(adv) != l.batch {
		return 0, fmt.Errorf("update: expected a batch of %d, got %d", l.batch,
			r)
	}

	obsData := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		obsData = append(obsData, obs.RawRowView(i)...)
	}
	oneHot := make([]float64, l.batch*l.policy.numActions)
	for i, a := range actions {
		oneHot[i*l.policy.numActions+a] = 1
	}

	bindings := []struct {
		node *G.Node
		data []float64
	}{
		{l.obs, obsData},
		{l.actions, oneHot},
		{l.advantages, append([]float64(nil), adv...)},
	}
	for _, b := range bindings {
		t := tensor.New(tensor.WithShape(b.node.Shape()...),
			tensor.WithBacking(b.data))
		if err := G.Let(b.node, t); err != nil {
			return 0, fmt.Errorf("update: %w", err)
		}
	}

	defer l.vm.Reset()
	if err := l.vm.RunAll(); err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	loss := l.loss.Data().(float64)

	err := l.solver.Step(G.NodesToValueGrads(G.Nodes{l.weights}))
	if err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	copy(l.policy.weights, l.weights.Value().Data().([]float64))

	return loss, nil
}

// close releases the resources of the tape machine
func (l *learner) close() error {
	return l.vm.Close()
}
