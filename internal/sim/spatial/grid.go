// Package spatial provides a cache-friendly uniform grid for bounded
// radius queries over tagged entities.
//
// Entities are tracked by uint64 id plus a class tag, so a single grid
// can index parasites, workers and defenders together and filter query
// results by class without touching the entities themselves.
package spatial

import (
	"math"
)

type entry struct {
	x, z  float64
	class uint8
	cell  int
}

// Grid is a fixed-cell spatial index over the XZ plane. Unlike a
// rebuild-per-tick grid, entities persist and are moved between cells
// via UpdatePosition, matching the write-back contract of the scheduler.
//
// Cells are stored in row-major order (cells[row*cols+col]).
type Grid struct {
	cellSize    float64
	invCellSize float64
	originX     float64
	originZ     float64
	cols, rows  int
	cells       [][]uint64
	entries     map[uint64]entry
	scratch     []uint64 // reusable buffer for query results
}

// NewGrid creates a grid covering [originX, originX+width) x
// [originZ, originZ+depth). cellSize should be close to the largest
// expected query radius. Positions outside the bounds clamp to the edge
// cells.
func NewGrid(originX, originZ, width, depth, cellSize float64) *Grid {
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(depth / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]uint64, cols*rows)
	for i := range cells {
		cells[i] = make([]uint64, 0, 8)
	}

	return &Grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		originX:     originX,
		originZ:     originZ,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		entries:     make(map[uint64]entry),
		scratch:     make([]uint64, 0, 64),
	}
}

func (g *Grid) cellIndex(x, z float64) int {
	col := int((x - g.originX) * g.invCellSize)
	row := int((z - g.originZ) * g.invCellSize)

	if col < 0 {
		col = 0
	}
	if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	}
	if row >= g.rows {
		row = g.rows - 1
	}
	return row*g.cols + col
}

// Insert adds an entity with a class tag at (x, z). Re-inserting an
// existing id moves it instead.
func (g *Grid) Insert(id uint64, class uint8, x, z float64) {
	if old, ok := g.entries[id]; ok {
		g.removeFromCell(id, old.cell)
	}
	cell := g.cellIndex(x, z)
	g.cells[cell] = append(g.cells[cell], id)
	g.entries[id] = entry{x: x, z: z, class: class, cell: cell}
}

// Remove deletes an entity from the index. Unknown ids are a no-op.
func (g *Grid) Remove(id uint64) {
	e, ok := g.entries[id]
	if !ok {
		return
	}
	g.removeFromCell(id, e.cell)
	delete(g.entries, id)
}

// UpdatePosition moves an entity. Unknown ids are a no-op; the caller
// inserts on spawn and we tolerate stale write-backs after removal.
func (g *Grid) UpdatePosition(id uint64, x, z float64) {
	e, ok := g.entries[id]
	if !ok {
		return
	}
	cell := g.cellIndex(x, z)
	if cell != e.cell {
		g.removeFromCell(id, e.cell)
		g.cells[cell] = append(g.cells[cell], id)
	}
	e.x, e.z, e.cell = x, z, cell
	g.entries[id] = e
}

func (g *Grid) removeFromCell(id uint64, cell int) {
	bucket := g.cells[cell]
	for i, other := range bucket {
		if other == id {
			bucket[i] = bucket[len(bucket)-1]
			g.cells[cell] = bucket[:len(bucket)-1]
			return
		}
	}
}

// QueryRadius returns ids of entities within radius of (cx, cz) whose
// class tag is in classes. A nil classes slice matches every class.
// The precise distance check is performed here (narrow phase included).
//
// The returned slice is reused on subsequent calls; copy it if it must
// outlive the next query.
func (g *Grid) QueryRadius(cx, cz, radius float64, classes []uint8) []uint64 {
	g.scratch = g.scratch[:0]

	minCol := int((cx - radius - g.originX) * g.invCellSize)
	maxCol := int((cx + radius - g.originX) * g.invCellSize)
	minRow := int((cz - radius - g.originZ) * g.invCellSize)
	maxRow := int((cz + radius - g.originZ) * g.invCellSize)

	if minCol < 0 {
		minCol = 0
	}
	if maxCol >= g.cols {
		maxCol = g.cols - 1
	}
	if minRow < 0 {
		minRow = 0
	}
	if maxRow >= g.rows {
		maxRow = g.rows - 1
	}

	radiusSq := radius * radius
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			for _, id := range g.cells[row*g.cols+col] {
				e := g.entries[id]
				if !classMatch(e.class, classes) {
					continue
				}
				dx := e.x - cx
				dz := e.z - cz
				if dx*dx+dz*dz <= radiusSq {
					g.scratch = append(g.scratch, id)
				}
			}
		}
	}
	return g.scratch
}

func classMatch(class uint8, classes []uint8) bool {
	if len(classes) == 0 {
		return true
	}
	for _, c := range classes {
		if c == class {
			return true
		}
	}
	return false
}

// Len returns the number of indexed entities.
func (g *Grid) Len() int { return len(g.entries) }

// Stats returns grid occupancy statistics for debugging/profiling.
func (g *Grid) Stats() GridStats {
	var total, maxInCell, nonEmpty int
	for _, cell := range g.cells {
		n := len(cell)
		total += n
		if n > maxInCell {
			maxInCell = n
		}
		if n > 0 {
			nonEmpty++
		}
	}
	return GridStats{
		TotalCells:    len(g.cells),
		NonEmptyCells: nonEmpty,
		TotalEntities: total,
		MaxInCell:     maxInCell,
	}
}

// GridStats contains grid occupancy statistics.
type GridStats struct {
	TotalCells    int
	NonEmptyCells int
	TotalEntities int
	MaxInCell     int
}
