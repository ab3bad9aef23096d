package pointnav_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/JelinR/habitat-lab/environment/pointnav"
)

var corridor = []string{
	".....",
	".###.",
	".....",
}

func TestGrid_Layout(t *testing.T) {
	t.Parallel()

	g, err := pointnav.NewGridFromLayout(corridor)
	require.NoError(t, err)

	r, c := g.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 5, c)
	assert.True(t, g.Blocked(pointnav.Point{X: 1, Y: 1}))
	assert.True(t, g.Blocked(pointnav.Point{X: -1, Y: 0}))
	assert.False(t, g.Blocked(pointnav.Point{X: 0, Y: 1}))
	assert.Len(t, g.FreeCells(), 12)
	assert.Equal(t, ".....\n.###.\n.....", g.String())
}

func TestGrid_LayoutRaggedRows(t *testing.T) {
	t.Parallel()

	_, err := pointnav.NewGridFromLayout([]string{"...", ".."})
	require.Error(t, err)
}

func TestGrid_Move(t *testing.T) {
	t.Parallel()

	g, err := pointnav.NewGridFromLayout(corridor)
	require.NoError(t, err)

	origin := pointnav.Point{X: 0, Y: 0}
	assert.Equal(t, origin, g.Move(origin, pointnav.Up))
	assert.Equal(t, origin, g.Move(origin, pointnav.Left))
	assert.Equal(t, pointnav.Point{X: 1, Y: 0}, g.Move(origin, pointnav.Right))
	assert.Equal(t, pointnav.Point{X: 0, Y: 1}, g.Move(origin, pointnav.Down))

	// Obstacles block movement
	top := pointnav.Point{X: 1, Y: 0}
	assert.Equal(t, top, g.Move(top, pointnav.Down))
}

func TestGrid_GeodesicDistance(t *testing.T) {
	t.Parallel()

	g, err := pointnav.NewGridFromLayout(corridor)
	require.NoError(t, err)

	// Around the wall rather than through it
	assert.Equal(t, 6, g.GeodesicDistance(
		pointnav.Point{X: 2, Y: 0}, pointnav.Point{X: 2, Y: 2}))
	assert.Equal(t, 0, g.GeodesicDistance(
		pointnav.Point{X: 0, Y: 0}, pointnav.Point{X: 0, Y: 0}))
	assert.Equal(t, -1, g.GeodesicDistance(
		pointnav.Point{X: 1, Y: 1}, pointnav.Point{X: 0, Y: 0}))
}

func TestGrid_Unreachable(t *testing.T) {
	t.Parallel()

	g, err := pointnav.NewGridFromLayout([]string{
		".#.",
		".#.",
	})
	require.NoError(t, err)
	assert.Equal(t, -1, g.GeodesicDistance(
		pointnav.Point{X: 0, Y: 0}, pointnav.Point{X: 2, Y: 0}))
}

func TestNewGrid_InvalidDensity(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	_, err := pointnav.NewGrid(4, 4, 1.0, rng)
	require.Error(t, err)
}

func TestSampleEpisodes_Reachable(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(3))
	g, err := pointnav.NewGrid(10, 10, 0.2, rng)
	require.NoError(t, err)

	episodes, err := pointnav.SampleEpisodes(g, 50, 1, rng)
	require.NoError(t, err)
	require.Len(t, episodes, 50)

	for i, e := range episodes {
		assert.Equal(t, i, e.ID)
		assert.Greater(t, g.GeodesicDistance(e.Start, e.Goal), 1)
	}
}
