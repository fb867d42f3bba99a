package simulation

import (
	"context"
	"fmt"

	"kosmos-worm/server/logging"
)

const (
	// EventTickBudgetOverrun is emitted when the simulation loop exceeds the allotted tick budget.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventPhasePanic is emitted when a tick phase panics and is recovered.
	EventPhasePanic logging.EventType = "simulation.phase_panic"
	// EventCommandDropped is emitted when an input is rejected before reaching the tick.
	EventCommandDropped logging.EventType = "simulation.command_dropped"
)

// TickBudgetOverrunPayload captures timing details for a tick budget breach.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Streak         uint64  `json:"streak"`
}

// PhasePanicPayload names the phase that failed and the recovered value.
type PhasePanicPayload struct {
	Phase string `json:"phase"`
	Value string `json:"value"`
}

// CommandDroppedPayload captures why an input was rejected.
type CommandDroppedPayload struct {
	Reason string `json:"reason"`
	Kind   string `json:"kind"`
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
		Category: "simulation",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// PhasePanic publishes an error event for a recovered phase panic.
func PhasePanic(ctx context.Context, pub logging.Publisher, tick uint64, phase string, recovered any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventPhasePanic,
		Tick:     tick,
		Severity: logging.SeverityError,
		Category: "simulation",
		Payload:  PhasePanicPayload{Phase: phase, Value: fmt.Sprint(recovered)},
	}
	pub.Publish(ctx, event)
}

// CommandDropped publishes a debug event for a rejected input.
func CommandDropped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CommandDroppedPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventCommandDropped,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: "simulation",
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}
