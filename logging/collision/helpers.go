package collision

import (
	"context"

	"kosmos-worm/server/logging"
)

const (
	// EventPlayerKilled is emitted when a head rams another worm's body.
	EventPlayerKilled logging.EventType = "collision.player_killed"
	// EventGhostPassed is emitted when a ghosted head overlaps a body and survives.
	EventGhostPassed logging.EventType = "collision.ghost_passed"
)

// PlayerKilledPayload captures the outcome of a fatal collision.
type PlayerKilledPayload struct {
	Score       int     `json:"score"`
	Reason      string  `json:"reason"`
	Length      int     `json:"length"`
	MeatDropped int     `json:"meatDropped"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

// PlayerKilled publishes a kill with the rammed worm as the single target.
func PlayerKilled(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, killer logging.EntityRef, payload PlayerKilledPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventPlayerKilled,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCollision,
		Payload:  payload,
		Extra:    extra,
	}
	if killer.ID != "" {
		event.Targets = []logging.EntityRef{killer}
	}
	pub.Publish(ctx, event)
}

// GhostPassed publishes a debug event for a collision the ghost buff absorbed.
func GhostPassed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, other logging.EntityRef) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventGhostPassed,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{other},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCollision,
	}
	pub.Publish(ctx, event)
}
