// Package grid provides the 2-D multi-occupancy cell grid the simulation
// runs on: placement, movement, Moore-neighborhood queries, and legal
// single-step moves. Distances are Euclidean; neighborhoods are Chebyshev.
package grid

import (
	"fmt"
	"math"
	"sort"
)

// Cell is a position on the grid.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DistanceTo returns the Euclidean distance to another cell.
func (c Cell) DistanceTo(o Cell) float64 {
	dx := float64(c.X - o.X)
	dy := float64(c.Y - o.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Occupant is anything that can be placed on the grid. Keys must be unique
// across all occupants for the lifetime of a run.
type Occupant interface {
	Key() string
}

// Grid holds occupant placements on a bounded rectangle. Cells may hold any
// number of occupants.
type Grid struct {
	Width  int
	Height int

	positions map[string]Cell
	cells     map[Cell]map[string]Occupant
}

// New creates an empty grid of the given dimensions.
func New(width, height int) *Grid {
	return &Grid{
		Width:     width,
		Height:    height,
		positions: make(map[string]Cell),
		cells:     make(map[Cell]map[string]Occupant),
	}
}

// InBounds returns true if the cell lies on the grid.
func (g *Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < g.Width && c.Y >= 0 && c.Y < g.Height
}

// Place puts an occupant on the grid at the given cell.
func (g *Grid) Place(o Occupant, c Cell) error {
	if !g.InBounds(c) {
		return fmt.Errorf("place %s: cell (%d,%d) out of bounds", o.Key(), c.X, c.Y)
	}
	if _, ok := g.positions[o.Key()]; ok {
		return fmt.Errorf("place %s: already on grid", o.Key())
	}
	g.positions[o.Key()] = c
	g.cellAt(c)[o.Key()] = o
	return nil
}

// Move relocates an already-placed occupant. Out-of-bounds targets are
// ignored (the occupant stays put).
func (g *Grid) Move(o Occupant, c Cell) {
	if !g.InBounds(c) {
		return
	}
	prev, ok := g.positions[o.Key()]
	if !ok {
		return
	}
	delete(g.cells[prev], o.Key())
	g.positions[o.Key()] = c
	g.cellAt(c)[o.Key()] = o
}

// Remove takes an occupant off the grid. Removing an absent occupant is a no-op.
func (g *Grid) Remove(o Occupant) {
	c, ok := g.positions[o.Key()]
	if !ok {
		return
	}
	delete(g.cells[c], o.Key())
	delete(g.positions, o.Key())
}

// At returns the occupant's current cell.
func (g *Grid) At(o Occupant) (Cell, bool) {
	c, ok := g.positions[o.Key()]
	return c, ok
}

// Neighbors returns every occupant within the Moore neighborhood of radius r
// around the center cell, including occupants sharing the center. Iteration
// is by cell coordinate then occupant key, so the order is deterministic.
func (g *Grid) Neighbors(center Cell, radius int) []Occupant {
	var result []Occupant
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			c := Cell{X: center.X + dx, Y: center.Y + dy}
			if !g.InBounds(c) {
				continue
			}
			occ := g.cells[c]
			if len(occ) == 0 {
				continue
			}
			keys := make([]string, 0, len(occ))
			for k := range occ {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				result = append(result, occ[k])
			}
		}
	}
	return result
}

// LegalMoves returns the in-bounds cells adjacent to c (the eight Moore
// neighbors), in a fixed scan order.
func (g *Grid) LegalMoves(c Cell) []Cell {
	moves := make([]Cell, 0, 8)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			n := Cell{X: c.X + dx, Y: c.Y + dy}
			if g.InBounds(n) {
				moves = append(moves, n)
			}
		}
	}
	return moves
}

// Count returns the number of occupants currently placed.
func (g *Grid) Count() int {
	return len(g.positions)
}

func (g *Grid) cellAt(c Cell) map[string]Occupant {
	m := g.cells[c]
	if m == nil {
		m = make(map[string]Occupant)
		g.cells[c] = m
	}
	return m
}
