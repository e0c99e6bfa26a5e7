package grid

import (
	"errors"
	"fmt"

	"lifeworld/server/internal/color"
)

// ErrOutOfBounds reports coordinates outside the grid.
var ErrOutOfBounds = errors.New("OUT_OF_BOUNDS")

// State is the life state of a cell. The numeric values are part of the
// wire and snapshot formats.
type State int

const (
	Dead  State = 0
	Alive State = 1
)

// Valid reports whether s is Dead or Alive.
func (s State) Valid() bool {
	return s == Dead || s == Alive
}

func (s State) String() string {
	switch s {
	case Dead:
		return "dead"
	case Alive:
		return "alive"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Cell is a value describing one grid position.
type Cell struct {
	X     int       `json:"x" jsonschema:"minimum=0"`
	Y     int       `json:"y" jsonschema:"minimum=0"`
	State State     `json:"state" jsonschema:"enum=0,enum=1"`
	Color color.HSL `json:"color"`
}

// DeadCell returns a dead cell with the background color at (x, y).
func DeadCell(x, y int) Cell {
	return Cell{X: x, Y: y, State: Dead, Color: color.Background}
}

// Equal compares position, state and color.
func (c Cell) Equal(other Cell) bool {
	return c.X == other.X && c.Y == other.Y && c.State == other.State && c.Color.Equal(other.Color)
}

// Grid is a square, non-wrapping matrix of cells stored in row-major order.
// The size is fixed at construction.
type Grid struct {
	size  int
	cells []Cell
}

// New allocates a size x size grid of dead cells. When seed is non-nil and no
// larger than size, every alive seed cell is copied to the same coordinates.
// A larger seed is ignored.
func New(size int, seed *Grid) *Grid {
	if size < 0 {
		size = 0
	}
	g := &Grid{size: size, cells: make([]Cell, size*size)}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			g.cells[y*size+x] = DeadCell(x, y)
		}
	}
	if seed == nil || seed.size > size {
		return g
	}
	for _, cell := range seed.cells {
		if cell.State != Alive {
			continue
		}
		g.cells[cell.Y*size+cell.X] = cell
	}
	return g
}

// FromRows rebuilds a grid from a decoded layout. Every row must have the same
// length as the number of rows and every cell must carry its own position and
// a known state.
func FromRows(rows [][]Cell) (*Grid, error) {
	size := len(rows)
	g := &Grid{size: size, cells: make([]Cell, size*size)}
	for y, row := range rows {
		if len(row) != size {
			return nil, fmt.Errorf("row %d has %d cells, want %d", y, len(row), size)
		}
		for x, cell := range row {
			if cell.X != x || cell.Y != y {
				return nil, fmt.Errorf("cell at (%d,%d) claims position (%d,%d)", x, y, cell.X, cell.Y)
			}
			if !cell.State.Valid() {
				return nil, fmt.Errorf("cell at (%d,%d) has %s", x, y, cell.State)
			}
			g.cells[y*size+x] = cell
		}
	}
	return g, nil
}

// Size returns the edge length.
func (g *Grid) Size() int {
	if g == nil {
		return 0
	}
	return g.size
}

func (g *Grid) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.size && y < g.size
}

// Get returns the cell at (x, y).
func (g *Grid) Get(x, y int) (Cell, error) {
	if g == nil || !g.inBounds(x, y) {
		return Cell{}, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	}
	return g.cells[y*g.size+x], nil
}

// Set stores cell at (x, y). The stored cell always carries (x, y) as its
// position.
func (g *Grid) Set(x, y int, cell Cell) error {
	if g == nil || !g.inBounds(x, y) {
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	}
	cell.X, cell.Y = x, y
	g.cells[y*g.size+x] = cell
	return nil
}

// neighborOffsets lists the directions clockwise from top.
var neighborOffsets = [8][2]int{
	{0, -1},  // top
	{1, -1},  // top-right
	{1, 0},   // right
	{1, 1},   // bottom-right
	{0, 1},   // bottom
	{-1, 1},  // bottom-left
	{-1, 0},  // left
	{-1, -1}, // top-left
}

// Neighbors returns the cells around (x, y) in clockwise order starting at the
// top: top, top-right, right, bottom-right, bottom, bottom-left, left,
// top-left. Positions outside the grid are omitted.
func (g *Grid) Neighbors(x, y int) []Cell {
	if g == nil || !g.inBounds(x, y) {
		return nil
	}
	out := make([]Cell, 0, len(neighborOffsets))
	for _, offset := range neighborOffsets {
		nx, ny := x+offset[0], y+offset[1]
		if !g.inBounds(nx, ny) {
			continue
		}
		out = append(out, g.cells[ny*g.size+nx])
	}
	return out
}

// Clone returns an independent copy.
func (g *Grid) Clone() *Grid {
	if g == nil {
		return nil
	}
	cells := make([]Cell, len(g.cells))
	copy(cells, g.cells)
	return &Grid{size: g.size, cells: cells}
}

// Map builds a grid of the same size whose cells are fn applied to each cell
// of g, visited in row-major order. The result keeps every cell at its own
// position whatever fn returns.
func (g *Grid) Map(fn func(Cell) Cell) *Grid {
	if g == nil {
		return nil
	}
	cells := make([]Cell, len(g.cells))
	for i, cell := range g.cells {
		out := fn(cell)
		out.X, out.Y = cell.X, cell.Y
		cells[i] = out
	}
	return &Grid{size: g.size, cells: cells}
}

// Cells returns a row-major copy of every cell.
func (g *Grid) Cells() []Cell {
	if g == nil {
		return nil
	}
	cells := make([]Cell, len(g.cells))
	copy(cells, g.cells)
	return cells
}

// Rows returns a copy of the grid as rows indexed [y][x].
func (g *Grid) Rows() [][]Cell {
	if g == nil {
		return nil
	}
	rows := make([][]Cell, g.size)
	for y := range rows {
		row := make([]Cell, g.size)
		copy(row, g.cells[y*g.size:(y+1)*g.size])
		rows[y] = row
	}
	return rows
}

// AliveCount reports the number of alive cells.
func (g *Grid) AliveCount() int {
	if g == nil {
		return 0
	}
	count := 0
	for _, cell := range g.cells {
		if cell.State == Alive {
			count++
		}
	}
	return count
}

// Equal reports whether both grids have the same size and equal cells.
func (g *Grid) Equal(other *Grid) bool {
	if g == nil || other == nil {
		return g == other
	}
	if g.size != other.size {
		return false
	}
	for i := range g.cells {
		if !g.cells[i].Equal(other.cells[i]) {
			return false
		}
	}
	return true
}
