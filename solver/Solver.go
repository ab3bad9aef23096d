// Package solver wraps Gorgonia solvers so that they can be selected by
// name from a training configuration.
package solver

import (
	"fmt"
	"strings"

	G "gorgonia.org/gorgonia"

	"github.com/JelinR/habitat-lab/config"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "adam"
	Vanilla Type = "sgd"
	RMSProp Type = "rmsprop"
)

// Solver wraps a Gorgonia Solver together with the configuration that
// created it
type Solver struct {
	G.Solver
	Type
	Config
}

// Config implements a Gorgonia Solver configuration and can be used to
// create the Gorgonia Solvers it describes.
type Config interface {
	Create() G.Solver

	// ValidType returns whether a specific Solver type can be created
	// with the Config
	ValidType(Type) bool
}

// newSolver returns a new solver with the given type and configuration.
func newSolver(t Type, c Config) (*Solver, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newSolver: invalid solver type %v for "+
			"configuration %T", t, c)
	}
	return &Solver{Solver: c.Create(), Type: t, Config: c}, nil
}

// FromConfig returns the solver named by the optimizer of c with its
// learning rate, averaging gradients over batchSize samples
func FromConfig(c config.VPGConfig, batchSize int) (*Solver, error) {
	if c.LearningRate <= 0 {
		return nil, fmt.Errorf("fromConfig: learning rate must be "+
			"positive, got %v", c.LearningRate)
	}

	switch Type(strings.ToLower(c.Optimizer)) {
	case Adam:
		return NewDefaultAdam(c.LearningRate, batchSize)
	case Vanilla:
		return NewVanilla(c.LearningRate, batchSize, -1)
	case RMSProp:
		return NewDefaultRMSProp(c.LearningRate, batchSize)
	}
	return nil, fmt.Errorf("fromConfig: unknown optimizer %q", c.Optimizer)
}
