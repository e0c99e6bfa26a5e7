package sim

import (
	"time"

	"lifeworld/server/internal/grid"
)

// Layout is a full copy of the current generation.
type Layout struct {
	Size       int
	Rows       [][]grid.Cell
	EvolvedAt  time.Time
	Generation uint64
}

// Evolution is published after every tick.
type Evolution struct {
	Cells      []grid.Cell
	EvolvedAt  time.Time
	Generation uint64
}

// CellsUpdate is published after a successful mutation. EvolvedAt is the
// timestamp of the generation the cells were written into.
type CellsUpdate struct {
	Cells      []grid.Cell
	EvolvedAt  time.Time
	Generation uint64
}

// Observer receives world notifications. Callbacks run on the goroutine that
// caused them and receive values owned by the observer.
type Observer interface {
	WorldStarted(Layout)
	Evolved(Evolution)
	CellsUpdated(CellsUpdate)
}

// ObserverFuncs adapts optional callbacks into an Observer.
type ObserverFuncs struct {
	OnStarted      func(Layout)
	OnEvolved      func(Evolution)
	OnCellsUpdated func(CellsUpdate)
}

func (o ObserverFuncs) WorldStarted(layout Layout) {
	if o.OnStarted != nil {
		o.OnStarted(layout)
	}
}

func (o ObserverFuncs) Evolved(evolution Evolution) {
	if o.OnEvolved != nil {
		o.OnEvolved(evolution)
	}
}

func (o ObserverFuncs) CellsUpdated(update CellsUpdate) {
	if o.OnCellsUpdated != nil {
		o.OnCellsUpdated(update)
	}
}

func cloneCells(cells []grid.Cell) []grid.Cell {
	if cells == nil {
		return []grid.Cell{}
	}
	out := make([]grid.Cell, len(cells))
	copy(out, cells)
	return out
}
