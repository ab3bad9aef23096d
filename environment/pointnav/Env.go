package pointnav

import (
	"fmt"
	"image"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/JelinR/habitat-lab/environment"
	"github.com/JelinR/habitat-lab/timestep"
)

// Observation names
const (
	PositionSensor  = "position"
	PointGoalSensor = "pointgoal"
)

// Measurement names
const (
	Success        = "success"
	SPL            = "spl"
	DistanceToGoal = "distance_to_goal"
	NumSteps       = "num_steps"
)

// Rewards
const (
	SlackReward         = -0.01
	SuccessReward       = 2.5
	DistanceRewardScale = 0.1
)

// renderCellSize is the width in pixels of a cell in rendered frames
const renderCellSize = 16

// Config configures a navigation environment
type Config struct {
	Rows, Cols      int
	ObstacleDensity float64
	MaxEpisodeSteps int
	SuccessDistance int
	NumEpisodes     int
	Seed            uint64
}

// Env is a point-goal navigation environment. The agent observes its
// one-hot position and the offset to its goal, and must call Stop
// within SuccessDistance moves of the goal.
type Env struct {
	grid     *Grid
	episodes []Episode
	next     int

	episode   Episode
	position  Point
	distances []int
	shortest  int
	pathLen   int

	successDistance int
	stopped         bool
	enders          []environment.Ender
	currentStep     timestep.TimeStep
	started         bool
}

// New returns a navigation environment with a randomly generated grid
// and randomly sampled episodes
func New(c Config) (*Env, error) {
	rng := rand.New(rand.NewSource(c.Seed))

	grid, err := NewGrid(c.Rows, c.Cols, c.ObstacleDensity, rng)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	episodes, err := SampleEpisodes(grid, c.NumEpisodes, c.SuccessDistance,
		rng)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	return NewWithEpisodes(grid, episodes, c.MaxEpisodeSteps,
		c.SuccessDistance)
}

// NewWithEpisodes returns a navigation environment over a fixed grid
// and list of episodes
func NewWithEpisodes(grid *Grid, episodes []Episode, maxSteps,
	successDistance int) (*Env, error) {
	if len(episodes) == 0 {
		return nil, fmt.Errorf("newWithEpisodes: at least one episode " +
			"is required")
	}
	if maxSteps <= 0 {
		return nil, fmt.Errorf("newWithEpisodes: max episode steps must be "+
			"positive, got %d", maxSteps)
	}
	for _, e := range episodes {
		if grid.GeodesicDistance(e.Start, e.Goal) < 0 {
			return nil, fmt.Errorf("newWithEpisodes: episode %d goal %v is "+
				"unreachable from %v", e.ID, e.Goal, e.Start)
		}
	}

	e := &Env{
		grid:            grid,
		episodes:        episodes,
		successDistance: successDistance,
	}
	e.enders = []environment.Ender{
		environment.NewFunctionEnder(func(*timestep.TimeStep) bool {
			return e.stopped
		}, timestep.Stopped),
		environment.NewStepLimit(maxSteps),
	}
	return e, nil
}

// Reset starts the next episode
func (e *Env) Reset() timestep.TimeStep {
	e.episode = e.episodes[e.next%len(e.episodes)]
	e.next++

	e.position = e.episode.Start
	e.distances = e.grid.Distances(e.episode.Goal)
	e.shortest = e.distance()
	e.pathLen = 0
	e.started = true

	e.currentStep = timestep.New(timestep.First, 0, e.observation(), 0)
	return e.currentStep
}

// Step takes action in the environment, returning the next timestep
// and whether the episode is over
func (e *Env) Step(action int) (timestep.TimeStep, bool) {
	if action < 0 || action >= NumActions {
		panic(fmt.Sprintf("step: invalid action %d", action))
	}
	if !e.started || e.currentStep.Last() {
		panic("step: episode is over, call Reset first")
	}

	prevDistance := e.distance()
	step := timestep.New(timestep.Mid, SlackReward, nil,
		e.currentStep.Number+1)

	e.stopped = action == Stop
	if !e.stopped {
		next := e.grid.Move(e.position, action)
		if next != e.position {
			e.pathLen++
		}
		e.position = next
	}
	for _, ender := range e.enders {
		if ender.End(&step) {
			break
		}
	}

	step.Reward += float64(prevDistance-e.distance()) * DistanceRewardScale
	if step.Last() && e.success() {
		step.Reward += SuccessReward
	}

	step.Observation = e.observation()
	e.currentStep = step
	return step, step.Last()
}

// HasNextEpisode returns whether Reset would start an episode that has
// not been visited yet
func (e *Env) HasNextEpisode() bool {
	return e.next < len(e.episodes)
}

// CurrentEpisodeID returns the ID of the current episode
func (e *Env) CurrentEpisodeID() int {
	return e.episode.ID
}

// Metrics returns the measurements of the current episode
func (e *Env) Metrics() map[string]float64 {
	success := 0.0
	if e.currentStep.Last() && e.success() {
		success = 1.0
	}

	spl := 0.0
	if success > 0 {
		spl = float64(e.shortest) / float64(max(e.shortest, e.pathLen))
	}

	return map[string]float64{
		Success:        success,
		SPL:            spl,
		DistanceToGoal: float64(e.distance()),
		NumSteps:       float64(e.currentStep.Number),
	}
}

// Render returns a top-down map of the current state
func (e *Env) Render() image.Image {
	return TopDownMap(e.grid, e.position, e.episode.Goal, renderCellSize)
}

// ObservationSpec returns the specification of each sensor
func (e *Env) ObservationSpec() map[string]environment.Spec {
	cells := float64(e.grid.Size())
	position := environment.NewSpec(
		mat.NewVecDense(1, []float64{cells}),
		environment.Observation,
		mat.NewVecDense(1, []float64{0}),
		mat.NewVecDense(1, []float64{1}),
		environment.Discrete,
	)
	pointgoal := environment.NewSpec(
		mat.NewVecDense(1, []float64{2}),
		environment.Observation,
		mat.NewVecDense(1, []float64{-1}),
		mat.NewVecDense(1, []float64{1}),
		environment.Continuous,
	)

	return map[string]environment.Spec{
		PositionSensor:  position,
		PointGoalSensor: pointgoal,
	}
}

// ActionSpec returns the specification of the discrete actions
func (e *Env) ActionSpec() environment.Spec {
	return environment.NewSpec(
		mat.NewVecDense(1, []float64{1}),
		environment.Action,
		mat.NewVecDense(1, []float64{0}),
		mat.NewVecDense(1, []float64{NumActions - 1}),
		environment.Discrete,
	)
}

// Close releases the environment's resources
func (e *Env) Close() error {
	return nil
}

// Grid returns the environment's grid
func (e *Env) Grid() *Grid { return e.grid }

// Position returns the agent's current cell
func (e *Env) Position() Point { return e.position }

// Goal returns the goal of the current episode
func (e *Env) Goal() Point { return e.episode.Goal }

// SuccessDistance returns the number of moves from the goal within
// which stopping counts as success
func (e *Env) SuccessDistance() int { return e.successDistance }

func (e *Env) String() string {
	str := "PointNav | At: %v  |  Goal: %v  |  Bounds: (%d, %d)"
	r, c := e.grid.Dims()
	return fmt.Sprintf(str, e.position, e.episode.Goal, r, c)
}

func (e *Env) distance() int {
	if e.distances == nil {
		return -1
	}
	return e.grid.DistanceAt(e.distances, e.position)
}

func (e *Env) success() bool {
	d := e.distance()
	return d >= 0 && d <= e.successDistance
}

func (e *Env) observation() timestep.Observation {
	position := mat.NewVecDense(e.grid.Size(), nil)
	position.SetVec(e.grid.index(e.position), 1.0)

	r, c := e.grid.Dims()
	pointgoal := mat.NewVecDense(2, []float64{
		float64(e.episode.Goal.X-e.position.X) / float64(c),
		float64(e.episode.Goal.Y-e.position.Y) / float64(r),
	})

	return timestep.Observation{
		PositionSensor:  position,
		PointGoalSensor: pointgoal,
	}
}
