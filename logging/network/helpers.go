package network

import (
	"context"

	"kosmos-worm/server/logging"
)

const (
	// EventFrameDiscarded is emitted when an inbound frame is dropped without effect.
	EventFrameDiscarded logging.EventType = "network.frame_discarded"
	// EventSendQueueOverflow is emitted when a session cannot keep up with outbound frames.
	EventSendQueueOverflow logging.EventType = "network.send_queue_overflow"
)

// FrameDiscardedPayload explains why an inbound frame was ignored.
type FrameDiscardedPayload struct {
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason"`
	Bytes  int    `json:"bytes"`
}

// SendQueueOverflowPayload captures the frame that did not fit.
type SendQueueOverflowPayload struct {
	Kind     string `json:"kind"`
	Capacity int    `json:"capacity"`
	Closed   bool   `json:"closed"`
}

// FrameDiscarded publishes a debug event for an ignored inbound frame.
func FrameDiscarded(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload FrameDiscardedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventFrameDiscarded,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: "network",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// SendQueueOverflow publishes a warning when a session's outbound queue is full.
func SendQueueOverflow(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SendQueueOverflowPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventSendQueueOverflow,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: "network",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
