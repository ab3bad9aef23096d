package pointnav

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// maxSampleTries bounds the attempts made per sampled episode
const maxSampleTries = 1000

// Episode is a single navigation task: reach Goal from Start
type Episode struct {
	ID    int
	Start Point
	Goal  Point
}

// SampleEpisodes samples n episodes on g whose goal is reachable from
// their start and further than successDistance moves away
func SampleEpisodes(g *Grid, n, successDistance int,
	rng *rand.Rand) ([]Episode, error) {
	free := g.FreeCells()
	if len(free) < 2 {
		return nil, fmt.Errorf("sampleEpisodes: %w", ErrNoFreeSpace)
	}

	episodes := make([]Episode, 0, n)
	for id := 0; id < n; id++ {
		var (
			episode Episode
			found   bool
		)
		for try := 0; try < maxSampleTries && !found; try++ {
			start := free[rng.Intn(len(free))]
			goal := free[rng.Intn(len(free))]

			d := g.GeodesicDistance(start, goal)
			if d > successDistance {
				episode = Episode{ID: id, Start: start, Goal: goal}
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("sampleEpisodes: could not sample episode "+
				"%d with a reachable goal further than %d moves",
				id, successDistance)
		}
		episodes = append(episodes, episode)
	}

	return episodes, nil
}
