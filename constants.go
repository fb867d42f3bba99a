package server

import "time"

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	defaultSendQueue = 64
	maxFrameBytes    = 4096
)

// PongWait is how long a session may stay silent before its read deadline
// expires. Every pong or frame extends it.
func PongWait() time.Duration { return pongWait }

// MaxFrameBytes bounds inbound websocket frames.
func MaxFrameBytes() int64 { return maxFrameBytes }
