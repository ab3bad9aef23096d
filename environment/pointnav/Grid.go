// Package pointnav implements point-goal navigation on 2D occupancy grids
package pointnav

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/rand"
)

// ErrNoFreeSpace is returned when a grid does not have enough free cells
// to place an agent and a goal
var ErrNoFreeSpace = errors.New("not enough free cells")

// Point is a cell in a Grid, X is the column and Y is the row
type Point struct {
	X, Y int
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Grid is an occupancy grid. Only the dimensions and the blocked cells
// are tracked.
type Grid struct {
	r, c    int
	blocked []bool
}

// NewGrid returns a grid with r rows and c columns where each cell is
// blocked with probability density
func NewGrid(r, c int, density float64, rng *rand.Rand) (*Grid, error) {
	if r <= 0 || c <= 0 {
		return nil, fmt.Errorf("newGrid: invalid dimensions (%d, %d)", r, c)
	}
	if density < 0 || density >= 1 {
		return nil, fmt.Errorf("newGrid: obstacle density must be in [0, 1)"+
			", got %v", density)
	}

	g := &Grid{r: r, c: c, blocked: make([]bool, r*c)}
	free := len(g.blocked)
	for i := range g.blocked {
		if rng.Float64() < density {
			g.blocked[i] = true
			free--
		}
	}

	if free < 2 {
		return nil, fmt.Errorf("newGrid: %w", ErrNoFreeSpace)
	}
	return g, nil
}

// NewGridFromLayout returns a grid from rows of text, where '#' marks a
// blocked cell and any other character a free cell
func NewGridFromLayout(layout []string) (*Grid, error) {
	if len(layout) == 0 || len(layout[0]) == 0 {
		return nil, fmt.Errorf("newGridFromLayout: empty layout")
	}

	r, c := len(layout), len(layout[0])
	g := &Grid{r: r, c: c, blocked: make([]bool, r*c)}
	for y, row := range layout {
		if len(row) != c {
			return nil, fmt.Errorf("newGridFromLayout: row %d has length %d, "+
				"want %d", y, len(row), c)
		}
		for x, cell := range row {
			g.blocked[g.index(Point{x, y})] = cell == '#'
		}
	}
	return g, nil
}

// Dims gets the rows and columns of the Grid
func (g *Grid) Dims() (r, c int) {
	return g.r, g.c
}

// Size returns the number of cells in the Grid
func (g *Grid) Size() int {
	return g.r * g.c
}

// Contains returns whether p lies within the Grid
func (g *Grid) Contains(p Point) bool {
	return p.X >= 0 && p.X < g.c && p.Y >= 0 && p.Y < g.r
}

// Blocked returns whether p is an obstacle. Points outside the Grid are
// considered blocked.
func (g *Grid) Blocked(p Point) bool {
	if !g.Contains(p) {
		return true
	}
	return g.blocked[g.index(p)]
}

// FreeCells returns all cells that are not blocked in row-major order
func (g *Grid) FreeCells() []Point {
	var free []Point
	for i, blocked := range g.blocked {
		if !blocked {
			free = append(free, g.point(i))
		}
	}
	return free
}

// Move returns the cell reached by taking action at p. Moves into
// obstacles or out of the Grid leave the agent in place.
func (g *Grid) Move(p Point, action int) Point {
	next := p
	switch action {
	case Up:
		next.Y--
	case Down:
		next.Y++
	case Left:
		next.X--
	case Right:
		next.X++
	}

	if g.Blocked(next) {
		return p
	}
	return next
}

// Distances returns the geodesic distance from every cell to goal,
// indexed in row-major order. Unreachable cells have distance -1.
func (g *Grid) Distances(goal Point) []int {
	dist := make([]int, g.Size())
	for i := range dist {
		dist[i] = -1
	}
	if g.Blocked(goal) {
		return dist
	}

	queue := []Point{goal}
	dist[g.index(goal)] = 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, action := range moves {
			next := g.Move(current, action)
			if next == current || dist[g.index(next)] >= 0 {
				continue
			}
			dist[g.index(next)] = dist[g.index(current)] + 1
			queue = append(queue, next)
		}
	}
	return dist
}

// GeodesicDistance returns the number of moves on a shortest path
// between a and b, or -1 if b cannot be reached from a
func (g *Grid) GeodesicDistance(a, b Point) int {
	if g.Blocked(a) {
		return -1
	}
	return g.Distances(b)[g.index(a)]
}

// DistanceAt returns the entry of dist for cell p
func (g *Grid) DistanceAt(dist []int, p Point) int {
	return dist[g.index(p)]
}

func (g *Grid) String() string {
	var b strings.Builder
	for y := 0; y < g.r; y++ {
		for x := 0; x < g.c; x++ {
			if g.Blocked(Point{x, y}) {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		if y < g.r-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (g *Grid) index(p Point) int {
	return p.Y*g.c + p.X
}

func (g *Grid) point(i int) Point {
	y := i / g.c
	return Point{X: i - y*g.c, Y: y}
}
