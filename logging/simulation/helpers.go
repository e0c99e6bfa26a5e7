package simulation

import (
	"context"

	"lifeworld/server/logging"
)

const (
	// EventGenerationEvolved is emitted after every tick.
	EventGenerationEvolved logging.EventType = "simulation.generation_evolved"
	// EventCellsUpdated is emitted after a client mutation has been applied.
	EventCellsUpdated logging.EventType = "simulation.cells_updated"
	// EventTickBudgetOverrun is emitted when a tick takes longer than the refresh interval.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
)

// GenerationEvolvedPayload summarises a tick.
type GenerationEvolvedPayload struct {
	Changed    int   `json:"changed"`
	AliveCells int   `json:"aliveCells"`
	EvolvedAt  int64 `json:"evolvedAt"`
}

// CellsUpdatedPayload summarises an applied mutation.
type CellsUpdatedPayload struct {
	Cells int `json:"cells"`
}

// TickBudgetOverrunPayload captures timing details for a slow tick.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
}

// GenerationEvolved publishes a debug event for a tick.
func GenerationEvolved(ctx context.Context, pub logging.Publisher, generation uint64, payload GenerationEvolvedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:       EventGenerationEvolved,
		Generation: generation,
		Actor:      logging.WorldRef(),
		Severity:   logging.SeverityDebug,
		Category:   logging.CategorySimulation,
		Payload:    payload,
		Extra:      extra,
	})
}

// CellsUpdated publishes an info event for an applied mutation.
func CellsUpdated(ctx context.Context, pub logging.Publisher, generation uint64, payload CellsUpdatedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:       EventCellsUpdated,
		Generation: generation,
		Actor:      logging.WorldRef(),
		Severity:   logging.SeverityInfo,
		Category:   logging.CategorySimulation,
		Payload:    payload,
		Extra:      extra,
	})
}

// TickBudgetOverrun publishes a warning when a tick exceeds the refresh interval.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, generation uint64, payload TickBudgetOverrunPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:       EventTickBudgetOverrun,
		Generation: generation,
		Actor:      logging.WorldRef(),
		Severity:   logging.SeverityWarn,
		Category:   logging.CategorySimulation,
		Payload:    payload,
		Extra:      extra,
	})
}
