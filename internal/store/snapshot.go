package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lifeworld/server/internal/grid"
)

// SnapshotVersion is the revision written by EncodeSnapshot.
const SnapshotVersion = 1

var (
	// ErrMalformedSnapshot reports stored data that cannot be decoded into a grid.
	ErrMalformedSnapshot = errors.New("store: malformed snapshot")
	// ErrUnsupportedSnapshotVersion reports an envelope written by an unknown revision.
	ErrUnsupportedSnapshotVersion = errors.New("store: unsupported snapshot version")
)

// Snapshot is the persisted form of a generation.
type Snapshot struct {
	Version   int           `json:"version" jsonschema:"title=Format version,description=Snapshot format revision,enum=1"`
	Size      int           `json:"size" jsonschema:"title=Grid size,description=Edge length of the square grid,minimum=0"`
	EvolvedAt int64         `json:"evolvedAt,omitempty" jsonschema:"title=Evolved at,description=Unix milliseconds of the last generation advance"`
	Layout    [][]grid.Cell `json:"layout" jsonschema:"title=Layout,description=Rows of cells indexed [y][x]"`
}

// EncodeSnapshot serializes g and its generation timestamp.
func EncodeSnapshot(g *grid.Grid, evolvedAt time.Time) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("encode snapshot: nil grid")
	}
	snap := Snapshot{
		Version: SnapshotVersion,
		Size:    g.Size(),
		Layout:  g.Rows(),
	}
	if !evolvedAt.IsZero() {
		snap.EvolvedAt = evolvedAt.UnixMilli()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses data written by EncodeSnapshot. A bare JSON array of
// rows, as written by earlier servers, is accepted as an unversioned layout.
func DecodeSnapshot(data []byte) (*grid.Grid, time.Time, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, time.Time{}, fmt.Errorf("%w: empty", ErrMalformedSnapshot)
	}

	if trimmed[0] == '[' {
		var rows [][]grid.Cell
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, time.Time{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
		}
		g, err := grid.FromRows(rows)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
		}
		return g, time.Time{}, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if snap.Version != SnapshotVersion {
		return nil, time.Time{}, fmt.Errorf("%w: %d", ErrUnsupportedSnapshotVersion, snap.Version)
	}
	if snap.Size != len(snap.Layout) {
		return nil, time.Time{}, fmt.Errorf("%w: size %d does not match %d rows", ErrMalformedSnapshot, snap.Size, len(snap.Layout))
	}
	g, err := grid.FromRows(snap.Layout)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	var evolvedAt time.Time
	if snap.EvolvedAt > 0 {
		evolvedAt = time.UnixMilli(snap.EvolvedAt)
	}
	return g, evolvedAt, nil
}
