package pickups

import (
	"context"

	"kosmos-worm/server/logging"
)

const (
	// EventPowerCollected is emitted whenever a worm takes a power-up.
	EventPowerCollected logging.EventType = "pickups.power_collected"
	// EventMeatEaten is emitted when a worm eats meat left by a dead worm.
	EventMeatEaten logging.EventType = "pickups.meat_eaten"
)

// PowerCollectedPayload describes the buff granted by a power-up.
type PowerCollectedPayload struct {
	Kind          string `json:"kind"`
	DurationMilli int64  `json:"durationMillis"`
	Refreshed     bool   `json:"refreshed"`
}

// MeatEatenPayload describes a meat item consumed by a worm.
type MeatEatenPayload struct {
	Value int `json:"value"`
	Score int `json:"score"`
}

// PowerCollected publishes a power-up pickup.
func PowerCollected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, power logging.EntityRef, payload PowerCollectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventPowerCollected,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{power},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// MeatEaten publishes a debug event for meat consumption.
func MeatEaten(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, food logging.EntityRef, payload MeatEatenPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventMeatEaten,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{food},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}
