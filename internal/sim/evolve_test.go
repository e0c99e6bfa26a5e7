package sim

import (
	"testing"

	"lifeworld/server/internal/color"
	"lifeworld/server/internal/grid"
)

var (
	red   = color.HSL{H: 0, S: 100, L: 50}
	green = color.HSL{H: 120, S: 60, L: 40}
	blue  = color.HSL{H: 240, S: 80, L: 60}
)

func alive(x, y int, c color.HSL) grid.Cell {
	return grid.Cell{X: x, Y: y, State: grid.Alive, Color: c}
}

func gridWith(t *testing.T, size int, cells ...grid.Cell) *grid.Grid {
	t.Helper()
	g := grid.New(size, nil)
	for _, cell := range cells {
		if err := g.Set(cell.X, cell.Y, cell); err != nil {
			t.Fatalf("Set(%d,%d) failed: %v", cell.X, cell.Y, err)
		}
	}
	return g
}

func mustGet(t *testing.T, g *grid.Grid, x, y int) grid.Cell {
	t.Helper()
	cell, err := g.Get(x, y)
	if err != nil {
		t.Fatalf("Get(%d,%d) failed: %v", x, y, err)
	}
	return cell
}

func TestAdvanceBlinkerOscillates(t *testing.T) {
	vertical := gridWith(t, 3, alive(1, 0, red), alive(1, 1, green), alive(1, 2, blue))

	next, changes := Advance(vertical)

	wantChanges := []struct {
		x, y  int
		state grid.State
	}{
		{1, 0, grid.Dead},
		{0, 1, grid.Alive},
		{2, 1, grid.Alive},
		{1, 2, grid.Dead},
	}
	if len(changes) != len(wantChanges) {
		t.Fatalf("expected %d changes, got %d: %+v", len(wantChanges), len(changes), changes)
	}
	for i, want := range wantChanges {
		got := changes[i]
		if got.X != want.x || got.Y != want.y || got.State != want.state {
			t.Fatalf("change %d: expected (%d,%d,%s), got (%d,%d,%s)", i, want.x, want.y, want.state, got.X, got.Y, got.State)
		}
	}

	if center := mustGet(t, next, 1, 1); center.State != grid.Alive || !center.Color.Equal(green) {
		t.Fatalf("expected center to survive with its color, got %+v", center)
	}
	parents, _ := color.Average([]color.HSL{red, green, blue})
	for _, x := range []int{0, 2} {
		born := mustGet(t, next, x, 1)
		if born.State != grid.Alive || !born.Color.Equal(parents) {
			t.Fatalf("expected (%d,1) born with %s, got %+v", x, parents, born)
		}
	}
	if top := mustGet(t, next, 1, 0); top.State != grid.Dead || top.Color != color.Background {
		t.Fatalf("expected (1,0) to die with background color, got %+v", top)
	}

	again, _ := Advance(next)
	if again.AliveCount() != 3 {
		t.Fatalf("expected 3 alive cells after second tick, got %d", again.AliveCount())
	}
	for y := 0; y < 3; y++ {
		if cell := mustGet(t, again, 1, y); cell.State != grid.Alive {
			t.Fatalf("expected (1,%d) alive after second tick", y)
		}
	}
}

func TestAdvanceLeavesInputUntouched(t *testing.T) {
	g := gridWith(t, 3, alive(1, 0, red), alive(1, 1, red), alive(1, 2, red))
	before := g.Clone()

	Advance(g)

	if !g.Equal(before) {
		t.Fatalf("expected Advance not to mutate its input")
	}
}

func TestAdvanceTopRowTriggersBirthBelow(t *testing.T) {
	row := gridWith(t, 3, alive(0, 0, red), alive(1, 0, green), alive(2, 0, blue))

	next, changes := Advance(row)

	wantChanges := []struct {
		x, y  int
		state grid.State
	}{
		{0, 0, grid.Dead},
		{2, 0, grid.Dead},
		{1, 1, grid.Alive},
	}
	if len(changes) != len(wantChanges) {
		t.Fatalf("expected %d changes, got %d: %+v", len(wantChanges), len(changes), changes)
	}
	for i, want := range wantChanges {
		got := changes[i]
		if got.X != want.x || got.Y != want.y || got.State != want.state {
			t.Fatalf("change %d: expected (%d,%d,%s), got (%d,%d,%s)", i, want.x, want.y, want.state, got.X, got.Y, got.State)
		}
	}

	if survivor := mustGet(t, next, 1, 0); survivor.State != grid.Alive || !survivor.Color.Equal(green) {
		t.Fatalf("expected (1,0) to survive with its color, got %+v", survivor)
	}
	parents, _ := color.Average([]color.HSL{red, green, blue})
	if born := mustGet(t, next, 1, 1); born.State != grid.Alive || !born.Color.Equal(parents) {
		t.Fatalf("expected (1,1) born with %s, got %+v", parents, born)
	}
	if next.AliveCount() != 2 {
		t.Fatalf("expected 2 alive cells, got %d", next.AliveCount())
	}
}

func TestAdvanceIsDeterministic(t *testing.T) {
	g := gridWith(t, 4, alive(0, 0, red), alive(1, 0, green), alive(2, 0, blue), alive(1, 2, red), alive(3, 3, green))

	first, firstChanges := Advance(g)
	second, secondChanges := Advance(g)

	if !first.Equal(second) {
		t.Fatalf("expected identical grids from the same input")
	}
	if len(firstChanges) != len(secondChanges) {
		t.Fatalf("expected identical change sets, got %d and %d cells", len(firstChanges), len(secondChanges))
	}
	for i := range firstChanges {
		if !firstChanges[i].Equal(secondChanges[i]) {
			t.Fatalf("change %d differs: %+v vs %+v", i, firstChanges[i], secondChanges[i])
		}
	}
}

func TestAdvanceCrowdedDeadCellStaysDead(t *testing.T) {
	tests := []struct {
		name  string
		cells []grid.Cell
	}{
		{name: "four neighbors", cells: []grid.Cell{
			alive(0, 0, red), alive(1, 0, red), alive(2, 0, red), alive(0, 1, red),
		}},
		{name: "eight neighbors", cells: []grid.Cell{
			alive(0, 0, red), alive(1, 0, red), alive(2, 0, red), alive(0, 1, red),
			alive(2, 1, red), alive(0, 2, red), alive(1, 2, red), alive(2, 2, red),
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, _ := Advance(gridWith(t, 3, tc.cells...))
			center := mustGet(t, next, 1, 1)
			if center.State != grid.Dead || center.Color != color.Background {
				t.Fatalf("expected crowded center to stay dead, got %+v", center)
			}
		})
	}
}

func TestAdvanceDeathRules(t *testing.T) {
	tests := []struct {
		name  string
		cells []grid.Cell
	}{
		{name: "underpopulation", cells: []grid.Cell{alive(1, 1, red), alive(0, 0, red)}},
		{name: "overcrowding", cells: []grid.Cell{
			alive(1, 1, red), alive(0, 0, red), alive(1, 0, red), alive(2, 0, red), alive(0, 1, red),
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, _ := Advance(gridWith(t, 3, tc.cells...))
			center := mustGet(t, next, 1, 1)
			if center.State != grid.Dead || center.Color != color.Background {
				t.Fatalf("expected center to die, got %+v", center)
			}
		})
	}
}

func TestAdvanceDeadCellWithTwoNeighborsStaysDead(t *testing.T) {
	next, changes := Advance(gridWith(t, 3, alive(0, 0, red), alive(2, 2, red)))
	if next.AliveCount() != 0 {
		t.Fatalf("expected empty grid, got %d alive", next.AliveCount())
	}
	if len(changes) != 2 {
		t.Fatalf("expected the two isolated cells to change, got %+v", changes)
	}
}

func TestAdvanceEmptyGridHasNoChanges(t *testing.T) {
	_, changes := Advance(grid.New(4, nil))
	if changes == nil || len(changes) != 0 {
		t.Fatalf("expected empty non-nil change set, got %#v", changes)
	}
}

func TestAdvanceBlockIsStable(t *testing.T) {
	block := gridWith(t, 4, alive(1, 1, red), alive(2, 1, green), alive(1, 2, blue), alive(2, 2, red))
	next, changes := Advance(block)
	if len(changes) != 0 {
		t.Fatalf("expected still life, got changes %+v", changes)
	}
	if !next.Equal(block) {
		t.Fatalf("expected block to keep cells and colors")
	}
}

func TestDiffDifferentSizesReturnsEveryCell(t *testing.T) {
	changes := Diff(grid.New(2, nil), grid.New(3, nil))
	if len(changes) != 9 {
		t.Fatalf("expected all 9 cells, got %d", len(changes))
	}
}
