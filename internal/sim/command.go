package sim

import "time"

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	// CommandInput carries steering state from a client session.
	CommandInput CommandType = "Input"
)

// InputCommand is the steering state a session last reported. Fields the
// client omitted are flagged so the tick keeps the previous value.
type InputCommand struct {
	Angle    float64 `json:"ang"`
	HasAngle bool    `json:"hasAng"`
	Boosting bool    `json:"boosting"`
	HasView  bool    `json:"hasView"`
	ViewX    float64 `json:"viewX"`
	ViewY    float64 `json:"viewY"`
}

// Command represents an intent captured for processing on the next tick.
// ActorID is the gateway session id; the tick resolves it to a worm.
type Command struct {
	OriginTick uint64        `json:"originTick"`
	ActorID    string        `json:"actorId"`
	Type       CommandType   `json:"type"`
	IssuedAt   time.Time     `json:"issuedAt"`
	Input      *InputCommand `json:"input,omitempty"`
}
