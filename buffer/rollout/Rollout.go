// Package rollout implements the on-policy storage filled by a vector
// of environments between policy updates
package rollout

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Buffer stores numSteps transitions from each of numEnvs environments.
// Transitions are stored step-major: row t*numEnvs+e holds step t of
// environment e.
type Buffer struct {
	numEnvs  int
	numSteps int
	obsSize  int
	gamma    float64

	currentPos int

	obsBuffer  []float64
	actBuffer  []int
	rewBuffer  []float64
	doneBuffer []bool
}

// New creates and returns a new rollout buffer
func New(numEnvs, numSteps, obsSize int, gamma float64) *Buffer {
	size := numEnvs * numSteps
	return &Buffer{
		numEnvs:    numEnvs,
		numSteps:   numSteps,
		obsSize:    obsSize,
		gamma:      gamma,
		obsBuffer:  make([]float64, size*obsSize),
		actBuffer:  make([]int, size),
		rewBuffer:  make([]float64, size),
		doneBuffer: make([]bool, size),
	}
}

// Insert stores one step of every environment: the observations the
// actions were selected from, the actions, the rewards received and
// whether each episode ended on this step.
func (b *Buffer) Insert(obs *mat.Dense, actions []int, rewards []float64,
	dones []bool) error {
	if b.Full() {
		return fmt.Errorf("insert: cannot add new step, buffer at " +
			"maximum capacity")
	}
	r, c := obs.Dims()
	if r != b.numEnvs || c != b.obsSize {
		return fmt.Errorf("insert: illegal obs shape \n\twant(%v, %v)"+
			"\n\thave(%v, %v)", b.numEnvs, b.obsSize, r, c)
	}
	if len(actions) != b.numEnvs || len(rewards) != b.numEnvs ||
		len(dones) != b.numEnvs {
		return fmt.Errorf("insert: expected %d actions, rewards and "+
			"dones", b.numEnvs)
	}

	start := b.currentPos * b.numEnvs
	for e := 0; e < b.numEnvs; e++ {
		row := (start + e) * b.obsSize
		copy(b.obsBuffer[row:row+b.obsSize], obs.RawRowView(e))
	}
	copy(b.actBuffer[start:], actions)
	copy(b.rewBuffer[start:], rewards)
	copy(b.doneBuffer[start:], dones)

	b.currentPos++
	return nil
}

// Full returns whether numSteps steps have been inserted
func (b *Buffer) Full() bool {
	return b.currentPos == b.numSteps
}

// Len returns the number of transitions the buffer holds when full
func (b *Buffer) Len() int {
	return b.numEnvs * b.numSteps
}

// Returns computes the discounted rewards-to-go of every stored
// transition. Returns do not cross episode boundaries, and episodes
// cut off by the end of the rollout are not bootstrapped.
func (b *Buffer) Returns() []float64 {
	returns := make([]float64, b.Len())

	for e := 0; e < b.numEnvs; e++ {
		start := 0
		for t := 0; t < b.currentPos; t++ {
			if b.doneBuffer[t*b.numEnvs+e] || t == b.currentPos-1 {
				b.finishPath(returns, e, start, t+1)
				start = t + 1
			}
		}
	}
	return returns
}

// finishPath writes the rewards-to-go of steps [start, stop) of
// environment e into returns
func (b *Buffer) finishPath(returns []float64, e, start, stop int) {
	rews := make([]float64, stop-start)
	for t := start; t < stop; t++ {
		rews[t-start] = b.rewBuffer[t*b.numEnvs+e]
	}

	toGo := discountCumSum(mat.NewVecDense(len(rews), rews), b.gamma)
	for t := start; t < stop; t++ {
		returns[t*b.numEnvs+e] = toGo[t-start]
	}
}

// Get returns the observations as a (numSteps*numEnvs, obsSize) matrix,
// the actions and the advantages stored in the buffer, then empties the
// buffer. Advantages are the rewards-to-go standardized to mean 0 and
// standard deviation 1.
func (b *Buffer) Get() (*mat.Dense, []int, []float64, error) {
	if !b.Full() {
		return nil, nil, nil, fmt.Errorf("get: buffer must be full " +
			"before sampling")
	}

	adv := b.Returns()
	mean, std := stat.MeanStdDev(adv, nil)
	floats.AddConst(-mean, adv)
	floats.Scale(1/(std+1e-8), adv)

	obs := mat.NewDense(b.Len(), b.obsSize,
		append([]float64(nil), b.obsBuffer...))
	actions := append([]int(nil), b.actBuffer...)

	b.currentPos = 0
	return obs, actions, adv, nil
}

// discountCumSum computes and returns the discounted cumulative sum
// of all elements of a vector. Given a vector v = [x0 x1 x2 ... xN]
// and discount ℽ, this function computes and returns:
//
//	[
//		x0 + ℽ x1 + ℽ^2 x2 + ... + ℽ^N xN
//		x1 + ℽ x2 + ... + ℽ^(N-1) xN
//		...
//		xN
//	]
func discountCumSum(x *mat.VecDense, discount float64) []float64 {
	discounts := mat.NewVecDense(x.Len(), nil)
	cumSums := make([]float64, x.Len())
	nextScaledRews := mat.NewVecDense(x.Len(), nil)
	backing := nextScaledRews.RawVector().Data

	for i := 0; i < x.Len(); i++ {
		discounts.ScaleVec(discount, discounts)
		discounts.SetVec(x.Len()-i-1, 1)

		nextScaledRews.MulElemVec(discounts, x)
		cumSums[x.Len()-i-1] = floats.Sum(backing[x.Len()-i-1:])
	}

	return cumSums
}
