// Package systems provides the per-tick simulation systems: perception,
// physics, collision resolution and affect dynamics.
package systems

import "slices"

// SpatialGrid buckets target indices by position for radius queries.
// Positions outside the world are clamped into the border cells.
type SpatialGrid struct {
	cellSize float32
	cols     int
	rows     int
	cells    [][]int
}

// NewSpatialGrid creates a spatial grid covering the given world size.
func NewSpatialGrid(width, height, cellSize float32) *SpatialGrid {
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1

	cells := make([][]int, cols*rows)
	for i := range cells {
		cells[i] = make([]int, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// Clear removes all entries from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds an index to the grid at the given position.
func (g *SpatialGrid) Insert(idx int, x, y float32) {
	ci := g.cellIndex(x, y)
	g.cells[ci] = append(g.cells[ci], idx)
}

// Build clears the grid and inserts every target.
func (g *SpatialGrid) Build(targets []Target) {
	g.Clear()
	for i := range targets {
		g.Insert(i, targets[i].X, targets[i].Y)
	}
}

// QueryInto appends the indices in every cell touched by the square of
// half-size radius around (x, y) and returns them sorted ascending. The
// result is a superset of the entries within radius; callers filter by
// exact distance. Reuse dst across calls to avoid allocations.
func (g *SpatialGrid) QueryInto(dst []int, x, y, radius float32) []int {
	dst = dst[:0]

	minCol := g.clampCol(int(floorDiv(x-radius, g.cellSize)))
	maxCol := g.clampCol(int(floorDiv(x+radius, g.cellSize)))
	minRow := g.clampRow(int(floorDiv(y-radius, g.cellSize)))
	maxRow := g.clampRow(int(floorDiv(y+radius, g.cellSize)))

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			dst = append(dst, g.cells[row*g.cols+col]...)
		}
	}

	slices.Sort(dst)
	return dst
}

// cellIndex returns the flat index for a world position.
func (g *SpatialGrid) cellIndex(x, y float32) int {
	col := g.clampCol(int(floorDiv(x, g.cellSize)))
	row := g.clampRow(int(floorDiv(y, g.cellSize)))
	return row*g.cols + col
}

func (g *SpatialGrid) clampCol(col int) int {
	return min(max(col, 0), g.cols-1)
}

func (g *SpatialGrid) clampRow(row int) int {
	return min(max(row, 0), g.rows-1)
}

// floorDiv returns floor(v / d) for positive d.
func floorDiv(v, d float32) float32 {
	q := v / d
	if q < 0 && q != float32(int(q)) {
		return float32(int(q) - 1)
	}
	return float32(int(q))
}
