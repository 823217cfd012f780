package simulation

import (
	"context"

	"rift-and-ruin/server/logging"
)

const (
	// EventTickBudgetOverrun is emitted when the simulation loop exceeds the allotted tick budget.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventBacklogTrimmed is emitted when the loop discards pending ticks after a stall.
	EventBacklogTrimmed logging.EventType = "simulation.backlog_trimmed"
	// EventDesync is emitted when a state hash comparison fails between engines.
	EventDesync logging.EventType = "simulation.desync"
)

// TickBudgetOverrunPayload captures timing details for a tick budget breach.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Streak         uint64  `json:"streak"`
}

// TickBudgetOverrun publishes a warning when the simulation exceeds the configured tick budget.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// BacklogTrimmedPayload records how many queued ticks were discarded.
type BacklogTrimmedPayload struct {
	Pending int `json:"pending"`
	Kept    int `json:"kept"`
}

// BacklogTrimmed publishes a warning when the loop cannot catch up and drops backlog.
func BacklogTrimmed(ctx context.Context, pub logging.Publisher, tick uint64, payload BacklogTrimmedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventBacklogTrimmed,
		Tick:     tick,
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// DesyncPayload carries both hashes so operators can line up diverging runs.
type DesyncPayload struct {
	LocalHash  string `json:"localHash"`
	RemoteHash string `json:"remoteHash"`
}

// Desync publishes an error when two engines disagree on the state hash for a tick.
func Desync(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload DesyncPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventDesync,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityError,
		Category: logging.CategorySimulation,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
