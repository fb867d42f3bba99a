package lifecycle

import (
	"context"

	"kosmos-worm/server/logging"
)

const (
	// EventPlayerJoined is emitted when a session joins the arena.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerRespawned is emitted when a dead player's session spawns a fresh worm.
	EventPlayerRespawned logging.EventType = "lifecycle.player_respawned"
	// EventPlayerDisconnected is emitted when a player leaves the arena.
	EventPlayerDisconnected logging.EventType = "lifecycle.player_disconnected"
)

// PlayerJoinedPayload captures spawn metadata for a new worm.
type PlayerJoinedPayload struct {
	Name   string  `json:"name"`
	Color  string  `json:"color"`
	SpawnX float64 `json:"spawnX"`
	SpawnY float64 `json:"spawnY"`
}

// PlayerRespawnedPayload links the fresh worm to the one it replaces.
type PlayerRespawnedPayload struct {
	PreviousID string  `json:"previousId"`
	Name       string  `json:"name"`
	SpawnX     float64 `json:"spawnX"`
	SpawnY     float64 `json:"spawnY"`
}

// PlayerDisconnectedPayload captures the reason a player left.
type PlayerDisconnectedPayload struct {
	Reason string `json:"reason"`
	Score  int    `json:"score"`
}

// PlayerJoined publishes a player join event.
func PlayerJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerJoinedPayload, extra map[string]any) {
	publish(ctx, pub, EventPlayerJoined, tick, actor, payload, extra)
}

// PlayerRespawned publishes a respawn event.
func PlayerRespawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerRespawnedPayload, extra map[string]any) {
	publish(ctx, pub, EventPlayerRespawned, tick, actor, payload, extra)
}

// PlayerDisconnected publishes a player disconnect event.
func PlayerDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerDisconnectedPayload, extra map[string]any) {
	publish(ctx, pub, EventPlayerDisconnected, tick, actor, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, tick uint64, actor logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
		Extra:    extra,
	})
}
