package proto

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"kosmos-worm/server/internal/sim"
	"kosmos-worm/server/internal/world"
)

// Client message type identifiers.
const (
	TypeJoin    = "join"
	TypeInput   = "input"
	TypeRespawn = "respawn"
)

// Server message type identifiers.
const (
	TypeInit  = "init"
	TypeState = "state"
	TypeDead  = "dead"
)

// Codec selects the frame encoding negotiated for a session.
type Codec string

const (
	CodecJSON    Codec = "json"
	CodecMsgpack Codec = "msgpack"
)

// ParseCodec maps the ?codec= query value onto a codec, defaulting to JSON.
func ParseCodec(raw string) Codec {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(CodecMsgpack), "mp", "binary":
		return CodecMsgpack
	default:
		return CodecJSON
	}
}

// Codecs lists every supported codec in broadcast order.
var Codecs = []Codec{CodecJSON, CodecMsgpack}

var (
	ErrEmptyFrame  = errors.New("proto: empty frame")
	ErrMissingType = errors.New("proto: missing message type")
)

// InitMessage is sent after a successful join or respawn.
type InitMessage struct {
	Type   string             `json:"t" msgpack:"t"`
	ID     string             `json:"id" msgpack:"id"`
	World  world.Bounds       `json:"world" msgpack:"world"`
	You    world.PlayerView   `json:"you" msgpack:"you"`
	Foods  []world.FoodView   `json:"foods" msgpack:"foods"`
	Powers []world.PowerView  `json:"powers" msgpack:"powers"`
	Others []world.PlayerView `json:"others" msgpack:"others"`
}

// StateMessage carries the per-tick broadcast.
type StateMessage struct {
	Type        string                   `json:"t" msgpack:"t"`
	Time        int64                    `json:"time" msgpack:"time"`
	Players     []world.PlayerView       `json:"players" msgpack:"players"`
	Foods       []world.FoodView         `json:"foods" msgpack:"foods"`
	Powers      []world.PowerView        `json:"powers" msgpack:"powers"`
	Leaderboard []world.LeaderboardEntry `json:"lb" msgpack:"lb"`
}

// DeadMessage tells a session its worm died.
type DeadMessage struct {
	Type   string `json:"t" msgpack:"t"`
	Score  int    `json:"score" msgpack:"score"`
	Reason string `json:"reason" msgpack:"reason"`
}

// NewInit wraps an init view in its wire envelope.
func NewInit(view world.InitView) InitMessage {
	return InitMessage{
		Type:   TypeInit,
		ID:     view.ID,
		World:  view.World,
		You:    view.You,
		Foods:  nonNil(view.Foods),
		Powers: nonNil(view.Powers),
		Others: nonNil(view.Others),
	}
}

// NewState wraps a snapshot in its wire envelope.
func NewState(snapshot world.Snapshot) StateMessage {
	return StateMessage{
		Type:        TypeState,
		Time:        snapshot.Time,
		Players:     nonNil(snapshot.Players),
		Foods:       nonNil(snapshot.Foods),
		Powers:      nonNil(snapshot.Powers),
		Leaderboard: nonNil(snapshot.Leaderboard),
	}
}

// NewDead builds the death notice for a session.
func NewDead(score int, reason string) DeadMessage {
	return DeadMessage{Type: TypeDead, Score: score, Reason: reason}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// Encode renders msg with the given codec.
func Encode(codec Codec, msg any) ([]byte, error) {
	switch codec {
	case CodecMsgpack:
		data, err := msgpack.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("proto: encode msgpack: %w", err)
		}
		return data, nil
	default:
		data, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("proto: encode json: %w", err)
		}
		return data, nil
	}
}

// ClientMessage captures an inbound frame after lenient field coercion.
// Fields absent from the frame keep their zero value and the Has flags
// stay false.
type ClientMessage struct {
	Type     string
	Name     string
	Color    string
	Angle    float64
	HasAngle bool
	Boosting bool
	ViewX    float64
	ViewY    float64
	HasView  bool
}

// DecodeClientMessage converts a raw frame into a structured message. Field
// types are coerced loosely: numeric strings count as numbers and boosting
// follows truthiness.
func DecodeClientMessage(codec Codec, payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if len(payload) == 0 {
		return msg, ErrEmptyFrame
	}
	raw := make(map[string]any)
	switch codec {
	case CodecMsgpack:
		if err := msgpack.Unmarshal(payload, &raw); err != nil {
			return msg, fmt.Errorf("proto: decode msgpack: %w", err)
		}
	default:
		if err := json.Unmarshal(payload, &raw); err != nil {
			return msg, fmt.Errorf("proto: decode json: %w", err)
		}
	}

	kind, ok := raw["t"].(string)
	if !ok || kind == "" {
		return msg, ErrMissingType
	}
	msg.Type = kind
	msg.Name = stringField(raw["name"])
	msg.Color = stringField(raw["color"])
	if angle, ok := numberField(raw["ang"]); ok {
		msg.Angle = angle
		msg.HasAngle = true
	}
	msg.Boosting = truthy(raw["boosting"])
	viewX, okX := numberField(raw["viewX"])
	viewY, okY := numberField(raw["viewY"])
	if okX && okY {
		msg.ViewX, msg.ViewY, msg.HasView = viewX, viewY, true
	}
	return msg, nil
}

// ClientCommand converts an input frame into the simulation command queued
// for the next tick. Other message kinds are handled synchronously by the
// gateway and report false.
func ClientCommand(msg ClientMessage) (sim.Command, bool) {
	if msg.Type != TypeInput {
		return sim.Command{}, false
	}
	return sim.Command{
		Type: sim.CommandInput,
		Input: &sim.InputCommand{
			Angle:    msg.Angle,
			HasAngle: msg.HasAngle,
			Boosting: msg.Boosting,
			HasView:  msg.HasView,
			ViewX:    msg.ViewX,
			ViewY:    msg.ViewY,
		},
	}, true
}

func stringField(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		if f, ok := numberField(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return ""
	}
}

// numberField reports finite numeric values only.
func numberField(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	default:
		f, ok := numberField(v)
		if !ok {
			// Non-numeric values such as objects count as set.
			_, isNumber := value.(float64)
			return !isNumber
		}
		return f != 0
	}
}
