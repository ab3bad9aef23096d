package pointnav

// ShortestPathFollower returns the next action on a shortest path from
// the agent to the goal of an environment's current episode
type ShortestPathFollower struct {
	env *Env
}

// NewShortestPathFollower returns a follower for env
func NewShortestPathFollower(env *Env) *ShortestPathFollower {
	return &ShortestPathFollower{env}
}

// GetNextAction returns the next action on a shortest path to the
// goal, or Stop once the agent is within the success distance
func (f *ShortestPathFollower) GetNextAction() int {
	return NextAction(f.env.grid, f.env.distances, f.env.position,
		f.env.successDistance)
}

// NextAction returns the action that moves from one step closer to the
// goal whose distance map is dist. Stop is returned within
// successDistance of the goal or when the goal cannot be reached.
func NextAction(g *Grid, dist []int, from Point, successDistance int) int {
	d := g.DistanceAt(dist, from)
	if d <= successDistance {
		return Stop
	}

	for _, action := range moves {
		next := g.Move(from, action)
		if next != from && g.DistanceAt(dist, next) == d-1 {
			return action
		}
	}
	return Stop
}
