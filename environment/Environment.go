// Package environment outlines the interfaces and structs needed to
// implement concrete navigation environments
package environment

import (
	"image"

	"github.com/JelinR/habitat-lab/timestep"
)

// Ender determines when episodes end
type Ender interface {
	End(*timestep.TimeStep) bool
}

// Environment implements a simulated environment that iterates over a
// fixed set of episodes.
//
// Reset starts the next episode. Once HasNextEpisode returns false,
// Reset cycles back to the first episode.
type Environment interface {
	Reset() timestep.TimeStep
	Step(action int) (timestep.TimeStep, bool)
	HasNextEpisode() bool
	CurrentEpisodeID() int

	// Metrics returns the measurements of the current episode
	Metrics() map[string]float64
	Render() image.Image

	ObservationSpec() map[string]Spec
	ActionSpec() Spec
	Close() error
}
