// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either the
// first environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType denotes how an episode ended
type EndType int

const (
	Running EndType = iota
	Stopped         // the agent called the stop action
	Timeout         // the episode step limit was reached
)

func (e EndType) String() string {
	switch e {
	case Stopped:
		return "Stopped"
	case Timeout:
		return "Timeout"
	default:
		return "Running"
	}
}

// Observation maps sensor names to their readings
type Observation map[string]*mat.VecDense

// TimeStep packages together a single timestep in an environment
type TimeStep struct {
	StepType
	EndType
	Reward      float64
	Observation Observation
	Number      int
}

// New returns a new TimeStep
func New(t StepType, r float64, o Observation, n int) TimeStep {
	return TimeStep{StepType: t, Reward: r, Observation: o, Number: n}
}

// First returns whether a TimeStep is the first in an episode
func (t *TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an episode
func (t *TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an episode
func (t *TimeStep) Last() bool {
	return t.StepType == Last
}

// SetEnd sets the way the episode ended
func (t *TimeStep) SetEnd(e EndType) {
	t.EndType = e
}

// TerminalEnd returns whether the episode was ended by the agent rather
// than cut off by a step limit
func (t *TimeStep) TerminalEnd() bool {
	return t.EndType == Stopped
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  End: %v  |  Reward:  %.2f  |  " +
		"Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.EndType, t.Reward, t.Number)
}
