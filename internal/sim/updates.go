package sim

import (
	"bytes"
	"encoding/json"
	"math"

	"lifeworld/server/internal/color"
	"lifeworld/server/internal/grid"
)

// ParseUpdateRequest validates a raw {"cells": [...]} request against a grid
// of the given size. Each cell is checked in the order: record shape, x, y,
// state, color. The first failing cell rejects the whole request.
func ParseUpdateRequest(raw []byte, size int) ([]grid.Cell, error) {
	var request map[string]json.RawMessage
	if !isJSONObject(raw) || json.Unmarshal(raw, &request) != nil {
		return nil, requestError(ErrInvalidData)
	}

	var entries []json.RawMessage
	cellsRaw, ok := request["cells"]
	if !ok || json.Unmarshal(cellsRaw, &entries) != nil || len(entries) == 0 {
		return nil, requestError(ErrInvalidCellsArray)
	}

	cells := make([]grid.Cell, 0, len(entries))
	for i, entry := range entries {
		cell, err := parseCell(entry, size)
		if err != nil {
			return nil, cellError(err, i)
		}
		cells = append(cells, cell)
	}
	return cells, nil
}

func parseCell(raw json.RawMessage, size int) (grid.Cell, error) {
	var fields map[string]json.RawMessage
	if !isJSONObject(raw) || json.Unmarshal(raw, &fields) != nil {
		return grid.Cell{}, ErrInvalidCell
	}

	x, ok := coordinate(fields["x"], size)
	if !ok {
		return grid.Cell{}, ErrInvalidX
	}
	y, ok := coordinate(fields["y"], size)
	if !ok {
		return grid.Cell{}, ErrInvalidY
	}

	var state float64
	if json.Unmarshal(fields["state"], &state) != nil || !isNumber(fields["state"]) {
		return grid.Cell{}, ErrInvalidState
	}
	if s := grid.State(state); float64(s) != state || !s.Valid() {
		return grid.Cell{}, ErrInvalidState
	}

	var text string
	if json.Unmarshal(fields["color"], &text) != nil {
		return grid.Cell{}, ErrInvalidColor
	}
	hsl, err := color.Parse(text)
	if err != nil {
		return grid.Cell{}, ErrInvalidColor
	}

	return grid.Cell{X: x, Y: y, State: grid.State(state), Color: hsl}, nil
}

func coordinate(raw json.RawMessage, size int) (int, bool) {
	if !isNumber(raw) {
		return 0, false
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, false
	}
	if value != math.Trunc(value) || value < 0 || value >= float64(size) {
		return 0, false
	}
	return int(value), true
}

func isJSONObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func isNumber(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	c := trimmed[0]
	return c == '-' || (c >= '0' && c <= '9')
}

// ValidateCells checks already-typed updates against a grid of the given
// size. It applies the same order as ParseUpdateRequest.
func ValidateCells(cells []grid.Cell, size int) error {
	if len(cells) == 0 {
		return requestError(ErrInvalidCellsArray)
	}
	for i, cell := range cells {
		switch {
		case cell.X < 0 || cell.X >= size:
			return cellError(ErrInvalidX, i)
		case cell.Y < 0 || cell.Y >= size:
			return cellError(ErrInvalidY, i)
		case !cell.State.Valid():
			return cellError(ErrInvalidState, i)
		}
	}
	return nil
}

// ApplyUpdates validates cells and writes them into a copy of g. Either every
// update is applied or g is returned unchanged with an error.
func ApplyUpdates(g *grid.Grid, cells []grid.Cell) (*grid.Grid, error) {
	if err := ValidateCells(cells, g.Size()); err != nil {
		return g, err
	}
	next := g.Clone()
	for i, cell := range cells {
		if err := next.Set(cell.X, cell.Y, cell); err != nil {
			return g, cellError(grid.ErrOutOfBounds, i)
		}
	}
	return next, nil
}
