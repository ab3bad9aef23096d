// Package vector implements a batch of environments stepped
// concurrently, some of which may be paused
package vector

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/sync/errgroup"

	"github.com/JelinR/habitat-lab/environment"
	"github.com/JelinR/habitat-lab/timestep"
)

// pausedEnv is a paused environment together with its position in the
// original batch
type pausedEnv struct {
	id  int
	env environment.Environment
}

// Env is a vector of environments. Active environments are addressed
// by their current index in [0, NumEnvs()), which shifts as
// environments are paused.
type Env struct {
	envs   []environment.Environment
	ids    []int
	paused []pausedEnv
}

// New returns a vector environment over envs
func New(envs []environment.Environment) (*Env, error) {
	if len(envs) == 0 {
		return nil, fmt.Errorf("new: at least one environment is required")
	}

	ids := make([]int, len(envs))
	for i := range ids {
		ids[i] = i
	}
	return &Env{envs: envs, ids: ids}, nil
}

// NumEnvs returns the number of active environments
func (v *Env) NumEnvs() int {
	return len(v.envs)
}

// ID returns the original batch position of the environment at
// index
func (v *Env) ID(index int) int {
	return v.ids[index]
}

// Reset resets all active environments concurrently
func (v *Env) Reset() ([]timestep.TimeStep, error) {
	steps := make([]timestep.TimeStep, len(v.envs))

	var g errgroup.Group
	for i, env := range v.envs {
		i, env := i, env
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("environment %d: %v", v.ids[i], r)
				}
			}()
			steps[i] = env.Reset()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}

	return steps, nil
}

// ResetAt resets the environment at index
func (v *Env) ResetAt(index int) timestep.TimeStep {
	return v.envs[index].Reset()
}

// Step steps every active environment with its action concurrently and
// returns the timesteps and episode end flags once all environments
// have stepped. Environments are not reset when their episode ends.
func (v *Env) Step(actions []int) ([]timestep.TimeStep, []bool, error) {
	if len(actions) != len(v.envs) {
		return nil, nil, fmt.Errorf("step: got %d actions for %d "+
			"environments", len(actions), len(v.envs))
	}

	steps := make([]timestep.TimeStep, len(v.envs))
	dones := make([]bool, len(v.envs))

	var g errgroup.Group
	for i, env := range v.envs {
		i, env := i, env
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("environment %d: %v", v.ids[i], r)
				}
			}()
			steps[i], dones[i] = env.Step(actions[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("step: %w", err)
	}

	return steps, dones, nil
}

// PauseAt pauses the environment at index. Environments after index
// shift down by one.
func (v *Env) PauseAt(index int) {
	if index < 0 || index >= len(v.envs) {
		panic(fmt.Sprintf("pauseAt: index %d out of range [0, %d)", index,
			len(v.envs)))
	}

	v.paused = append(v.paused, pausedEnv{v.ids[index], v.envs[index]})
	v.envs = append(v.envs[:index], v.envs[index+1:]...)
	v.ids = append(v.ids[:index], v.ids[index+1:]...)
}

// ResumeAll resumes all paused environments, restoring the original
// batch order
func (v *Env) ResumeAll() {
	for _, p := range v.paused {
		at := 0
		for at < len(v.ids) && v.ids[at] < p.id {
			at++
		}

		v.envs = append(v.envs, nil)
		copy(v.envs[at+1:], v.envs[at:])
		v.envs[at] = p.env

		v.ids = append(v.ids, 0)
		copy(v.ids[at+1:], v.ids[at:])
		v.ids[at] = p.id
	}
	v.paused = nil
}

// HasNextEpisode returns whether the environment at index has an
// unvisited episode
func (v *Env) HasNextEpisode(index int) bool {
	return v.envs[index].HasNextEpisode()
}

// CurrentEpisodeID returns the current episode of the environment at
// index
func (v *Env) CurrentEpisodeID(index int) int {
	return v.envs[index].CurrentEpisodeID()
}

// Metrics returns the measurements of the environment at index
func (v *Env) Metrics(index int) map[string]float64 {
	return v.envs[index].Metrics()
}

// Render renders the environment at index
func (v *Env) Render(index int) image.Image {
	return v.envs[index].Render()
}

// ObservationSpec returns the observation specification shared by the
// environments
func (v *Env) ObservationSpec() map[string]environment.Spec {
	if len(v.envs) > 0 {
		return v.envs[0].ObservationSpec()
	}
	return v.paused[0].env.ObservationSpec()
}

// Close closes all active and paused environments
func (v *Env) Close() error {
	var errs []error
	for _, env := range v.envs {
		errs = append(errs, env.Close())
	}
	for _, p := range v.paused {
		errs = append(errs, p.env.Close())
	}
	return errors.Join(errs...)
}
