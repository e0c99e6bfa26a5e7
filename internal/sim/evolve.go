package sim

import (
	"lifeworld/server/internal/color"
	"lifeworld/server/internal/grid"
)

// Advance computes the next generation of g. Every cell is evaluated against
// g only, so the result does not depend on iteration order and g is left
// untouched. The returned change set lists the cells whose state flipped in
// row-major order.
func Advance(g *grid.Grid) (*grid.Grid, []grid.Cell) {
	next := g.Map(func(cell grid.Cell) grid.Cell {
		return evolveCell(cell, g.Neighbors(cell.X, cell.Y))
	})
	return next, Diff(g, next)
}

func evolveCell(cell grid.Cell, neighbors []grid.Cell) grid.Cell {
	parents := make([]color.HSL, 0, len(neighbors))
	for _, n := range neighbors {
		if n.State == grid.Alive {
			parents = append(parents, n.Color)
		}
	}

	out := grid.DeadCell(cell.X, cell.Y)
	switch live := len(parents); {
	case cell.State == grid.Dead && live == 3:
		avg, err := color.Average(parents)
		if err != nil {
			return out
		}
		out.State = grid.Alive
		out.Color = avg
	case cell.State == grid.Alive && (live == 2 || live == 3):
		out.State = grid.Alive
		out.Color = cell.Color
	}
	return out
}

// Diff lists the cells of next whose state differs from prev, in row-major
// order. Grids of different sizes differ everywhere.
func Diff(prev, next *grid.Grid) []grid.Cell {
	if prev.Size() != next.Size() {
		return next.Cells()
	}
	changed := []grid.Cell{}
	before := prev.Cells()
	for i, cell := range next.Cells() {
		if before[i].State != cell.State {
			changed = append(changed, cell)
		}
	}
	return changed
}
