package proto

import (
	"encoding/json"
	"fmt"
	"time"

	"lifeworld/server/internal/grid"
	"lifeworld/server/internal/sim"
)

// Event names carried in the envelope "event" field.
const (
	EventServerRestarted     = "SERVER_RESTARTED"
	EventWorldStarted        = "WORLD_STARTED"
	EventEvolution           = "EVOLUTION"
	EventCellsUpdated        = "CELLS_UPDATED"
	EventNewClient           = "NEW_CLIENT"
	EventNewClientResponse   = EventNewClient + responseSuffix
	EventUpdateCells         = "UPDATE_CELLS"
	EventUpdateCellsResponse = EventUpdateCells + responseSuffix

	responseSuffix = "_RESPONSE"
)

// Envelope is the frame shared by every message in both directions.
type Envelope struct {
	Event   string          `json:"event"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// LayoutData is the full grid as sent on connect and to new clients.
type LayoutData struct {
	Size      int           `json:"size"`
	Layout    [][]grid.Cell `json:"layout"`
	EvolvedAt *int64        `json:"evolvedAt"`
}

// CellsData carries a change set or an applied mutation.
type CellsData struct {
	Cells     []grid.Cell `json:"cells"`
	EvolvedAt *int64      `json:"evolvedAt,omitempty"`
}

// NewClientRequest is sent by a client announcing itself.
type NewClientRequest struct {
	Address string `json:"address"`
}

// NewClientResponse assigns the client its color and username.
type NewClientResponse struct {
	LayoutData
	Color    string `json:"color"`
	Username string `json:"username"`
}

// DecodeEnvelope parses a client frame. The event name is required.
func DecodeEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return env, err
	}
	if env.Event == "" {
		return env, fmt.Errorf("missing event name")
	}
	return env, nil
}

// Encode renders a successful envelope for event with data.
func Encode(event string, data any) ([]byte, error) {
	env := Envelope{Event: event, Success: true}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

// EncodeFailure renders an unsuccessful response carrying an error code.
func EncodeFailure(event, code string) ([]byte, error) {
	return json.Marshal(Envelope{Event: event, Success: false, Error: code})
}

// Millis renders t as epoch milliseconds; the zero time has no value.
func Millis(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

// Layout converts a world layout into its wire form.
func Layout(layout sim.Layout) LayoutData {
	rows := layout.Rows
	if rows == nil {
		rows = [][]grid.Cell{}
	}
	return LayoutData{Size: layout.Size, Layout: rows, EvolvedAt: Millis(layout.EvolvedAt)}
}

// Evolution converts a tick notification into its wire form.
func Evolution(evolution sim.Evolution) CellsData {
	return CellsData{Cells: nonNil(evolution.Cells), EvolvedAt: Millis(evolution.EvolvedAt)}
}

// CellsUpdated converts a mutation notification into its wire form.
func CellsUpdated(update sim.CellsUpdate) CellsData {
	return CellsData{Cells: nonNil(update.Cells), EvolvedAt: Millis(update.EvolvedAt)}
}

func nonNil(cells []grid.Cell) []grid.Cell {
	if cells == nil {
		return []grid.Cell{}
	}
	return cells
}
