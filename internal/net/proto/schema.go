package proto

// ClientFrame models the canonical shape of inbound frames for schema
// generation. DecodeClientMessage is looser than this document: it coerces
// numeric strings and truthy values.
type ClientFrame struct {
	Type     string   `json:"t" jsonschema:"required,enum=join,enum=input,enum=respawn,description=Message kind"`
	Name     string   `json:"name,omitempty" jsonschema:"description=Display name for join and respawn"`
	Color    string   `json:"color,omitempty" jsonschema:"description=Worm color for join and respawn"`
	Angle    *float64 `json:"ang,omitempty" jsonschema:"description=Desired heading in radians"`
	Boosting bool     `json:"boosting,omitempty" jsonschema:"description=Speed boost while held"`
	ViewX    *float64 `json:"viewX,omitempty" jsonschema:"description=Camera center x, ignored unless viewY is present"`
	ViewY    *float64 `json:"viewY,omitempty" jsonschema:"description=Camera center y, ignored unless viewX is present"`
}

// ServerFrames lists the outbound message documents by kind.
func ServerFrames() map[string]any {
	return map[string]any{
		TypeInit:  InitMessage{},
		TypeState: StateMessage{},
		TypeDead:  DeadMessage{},
	}
}
