package pointnav

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
)

// TopDownMap renders the grid with the agent and goal, using cellSize
// pixels per cell
func TopDownMap(g *Grid, agent, goal Point, cellSize int) image.Image {
	r, c := g.Dims()
	size := float64(cellSize)

	dc := gg.NewContext(c*cellSize, r*cellSize)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetRGB(0.2, 0.2, 0.2)
	for y := 0; y < r; y++ {
		for x := 0; x < c; x++ {
			if g.Blocked(Point{x, y}) {
				dc.DrawRectangle(float64(x)*size, float64(y)*size, size, size)
			}
		}
	}
	dc.Fill()

	dc.SetRGB(0.85, 0.85, 0.85)
	dc.SetLineWidth(1)
	for x := 1; x < c; x++ {
		dc.DrawLine(float64(x)*size, 0, float64(x)*size, float64(r)*size)
	}
	for y := 1; y < r; y++ {
		dc.DrawLine(0, float64(y)*size, float64(c)*size, float64(y)*size)
	}
	dc.Stroke()

	dc.SetRGB(0.1, 0.7, 0.2)
	dc.DrawCircle(center(goal.X, size), center(goal.Y, size), size*0.35)
	dc.Fill()

	dc.SetRGB(0.85, 0.1, 0.1)
	dc.DrawCircle(center(agent.X, size), center(agent.Y, size), size*0.3)
	dc.Fill()

	return dc.Image()
}

// WriteFrames saves frames as numbered PNG files named
// <name>_<i>.png in dir
func WriteFrames(dir, name string, frames []image.Image) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("writeFrames: %w", err)
	}

	for i, frame := range frames {
		path := filepath.Join(dir, fmt.Sprintf("%s_%04d.png", name, i))
		if err := gg.SavePNG(path, frame); err != nil {
			return fmt.Errorf("writeFrames: %w", err)
		}
	}
	return nil
}

func center(i int, size float64) float64 {
	return float64(i)*size + size/2
}
