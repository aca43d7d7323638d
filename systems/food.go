package systems

import (
	"math/rand"

	"github.com/pthm-cable/plankton/components"
)

// Rect is an axis-aligned region.
type Rect struct {
	MinX, MinY, MaxX, MaxY float32
}

// RandomPoint returns a uniform point inside r.
func (r Rect) RandomPoint(rng *rand.Rand) components.Position {
	return components.Position{
		X: r.MinX + rng.Float32()*(r.MaxX-r.MinX),
		Y: r.MinY + rng.Float32()*(r.MaxY-r.MinY),
	}
}

// FoodDeficit returns how many items to spawn to reach target. It never
// suggests exceeding the target.
func FoodDeficit(current, target int) int {
	if current >= target {
		return 0
	}
	return target - current
}

// FoodSpawnPoints returns n uniform positions inside the walkable interior.
func FoodSpawnPoints(n int, interior Rect, rng *rand.Rand) []components.Position {
	out := make([]components.Position, n)
	for i := range out {
		out[i] = interior.RandomPoint(rng)
	}
	return out
}

// WallRing lays obstacles of the given radius every spacing units along a
// rectangle inset by margin from the world edge.
func WallRing(width, height, margin, spacing, radius float32) []Circle {
	innerW := width - 2*margin
	innerH := height - 2*margin
	if innerW <= 0 || innerH <= 0 || spacing <= 0 {
		return nil
	}

	numH := int(innerW / spacing)
	numV := int(innerH / spacing)
	walls := make([]Circle, 0, 2*(numH+numV))

	for i := 0; i < numH; i++ {
		x := margin + float32(i)*spacing + spacing/2
		walls = append(walls,
			Circle{X: x, Y: margin + spacing/2, Radius: radius},
			Circle{X: x, Y: margin + innerH - spacing/2, Radius: radius},
		)
	}
	for i := 0; i < numV; i++ {
		y := margin + float32(i)*spacing + spacing/2
		walls = append(walls,
			Circle{X: margin + spacing/2, Y: y, Radius: radius},
			Circle{X: margin + innerW - spacing/2, Y: y, Radius: radius},
		)
	}
	return walls
}
