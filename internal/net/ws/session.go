package ws

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"kosmos-worm/server"
	"kosmos-worm/server/internal/net/proto"
)

// Serve runs the read side of a session until the connection closes. The
// hub owns the write side.
func (h *Handler) Serve(sessionID string, codec proto.Codec, conn *websocket.Conn) {
	if h == nil || h.hub == nil || conn == nil {
		return
	}

	conn.SetReadLimit(server.MaxFrameBytes())
	extendDeadline := func() {
		conn.SetReadDeadline(time.Now().Add(server.PongWait()))
	}
	extendDeadline()
	conn.SetPongHandler(func(string) error {
		extendDeadline()
		return nil
	})

	h.hub.Attach(sessionID, conn, codec)
	defer h.hub.Disconnect(sessionID, server.DisconnectClosed)

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.logger.Printf("session %s closed: %v", sessionID, err)
			}
			return
		}
		extendDeadline()

		frameCodec := proto.CodecJSON
		if messageType == websocket.BinaryMessage {
			frameCodec = proto.CodecMsgpack
		}
		msg, err := proto.DecodeClientMessage(frameCodec, payload)
		if err != nil {
			h.hub.Discard(sessionID, "", server.DiscardMalformed, len(payload))
			continue
		}
		h.dispatch(sessionID, msg, len(payload))
	}
}

func (h *Handler) dispatch(sessionID string, msg proto.ClientMessage, size int) {
	switch msg.Type {
	case proto.TypeJoin:
		if _, err := h.hub.Join(sessionID, msg.Name, msg.Color); err != nil {
			h.logger.Printf("join failed for session %s: %v", sessionID, err)
		}
	case proto.TypeRespawn:
		if _, err := h.hub.Respawn(sessionID, msg.Name, msg.Color); err != nil {
			reason := server.DiscardNotJoined
			if errors.Is(err, server.ErrStillAlive) {
				reason = server.DiscardStillAlive
			}
			h.hub.Discard(sessionID, msg.Type, reason, size)
		}
	case proto.TypeInput:
		if !h.hub.QueueInput(sessionID, msg) {
			h.hub.Discard(sessionID, msg.Type, server.DiscardQueueFull, size)
		}
	default:
		h.hub.Discard(sessionID, msg.Type, server.DiscardUnknownType, size)
	}
}
