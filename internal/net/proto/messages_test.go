package proto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"kosmos-worm/server/internal/sim"
	"kosmos-worm/server/internal/world"
)

func TestParseCodec(t *testing.T) {
	assert.Equal(t, CodecJSON, ParseCodec(""))
	assert.Equal(t, CodecJSON, ParseCodec("json"))
	assert.Equal(t, CodecJSON, ParseCodec("xml"))
	assert.Equal(t, CodecMsgpack, ParseCodec(" MsgPack "))
}

func TestDecodeClientMessageJSON(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    ClientMessage
	}{
		{
			name:    "join",
			payload: `{"t":"join","name":"Nova","color":"#fff"}`,
			want:    ClientMessage{Type: TypeJoin, Name: "Nova", Color: "#fff"},
		},
		{
			name:    "input with view",
			payload: `{"t":"input","ang":1.25,"boosting":true,"viewX":10,"viewY":20}`,
			want:    ClientMessage{Type: TypeInput, Angle: 1.25, HasAngle: true, Boosting: true, ViewX: 10, ViewY: 20, HasView: true},
		},
		{
			name:    "numeric string angle and truthy boost",
			payload: `{"t":"input","ang":"0.5","boosting":1}`,
			want:    ClientMessage{Type: TypeInput, Angle: 0.5, HasAngle: true, Boosting: true},
		},
		{
			name:    "garbage angle is ignored",
			payload: `{"t":"input","ang":"north","boosting":0,"viewX":3}`,
			want:    ClientMessage{Type: TypeInput},
		},
		{
			name:    "empty string is falsy",
			payload: `{"t":"input","boosting":""}`,
			want:    ClientMessage{Type: TypeInput},
		},
		{
			name:    "respawn without fields",
			payload: `{"t":"respawn"}`,
			want:    ClientMessage{Type: TypeRespawn},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := DecodeClientMessage(CodecJSON, []byte(tc.payload))
			require.NoError(t, err)
			assert.Equal(t, tc.want, msg)
		})
	}
}

func TestDecodeClientMessageRejectsMalformedFrames(t *testing.T) {
	_, err := DecodeClientMessage(CodecJSON, nil)
	assert.ErrorIs(t, err, ErrEmptyFrame)

	_, err = DecodeClientMessage(CodecJSON, []byte(`{not json`))
	assert.Error(t, err)

	_, err = DecodeClientMessage(CodecJSON, []byte(`[1,2,3]`))
	assert.Error(t, err)

	_, err = DecodeClientMessage(CodecJSON, []byte(`{"name":"Nova"}`))
	assert.ErrorIs(t, err, ErrMissingType)

	_, err = DecodeClientMessage(CodecJSON, []byte(`{"t":7}`))
	assert.ErrorIs(t, err, ErrMissingType)
}

func TestDecodeClientMessageMsgpack(t *testing.T) {
	payload, err := msgpack.Marshal(map[string]any{
		"t":        "input",
		"ang":      int8(2),
		"boosting": true,
		"viewX":    float32(1.5),
		"viewY":    uint16(4),
	})
	require.NoError(t, err)

	msg, err := DecodeClientMessage(CodecMsgpack, payload)
	require.NoError(t, err)
	assert.Equal(t, TypeInput, msg.Type)
	assert.True(t, msg.HasAngle)
	assert.Equal(t, 2.0, msg.Angle)
	assert.True(t, msg.Boosting)
	assert.True(t, msg.HasView)
	assert.Equal(t, 1.5, msg.ViewX)
	assert.Equal(t, 4.0, msg.ViewY)
}

func TestClientCommand(t *testing.T) {
	cmd, ok := ClientCommand(ClientMessage{Type: TypeInput, Angle: 1, HasAngle: true, Boosting: true})
	require.True(t, ok)
	assert.Equal(t, sim.CommandInput, cmd.Type)
	require.NotNil(t, cmd.Input)
	assert.Equal(t, 1.0, cmd.Input.Angle)
	assert.True(t, cmd.Input.Boosting)
	assert.False(t, cmd.Input.HasView)

	_, ok = ClientCommand(ClientMessage{Type: TypeJoin})
	assert.False(t, ok)
}

func TestEncodeStateJSONUsesWireNames(t *testing.T) {
	msg := NewState(world.Snapshot{
		Time: 1234,
		Players: []world.PlayerView{{
			ID: "u1", Name: "Nova", Color: "#fff", Alive: true, Radius: 12,
			Segments: []world.Vec2{{X: 1, Y: 2}},
		}},
		Leaderboard: []world.LeaderboardEntry{{ID: "u1", Name: "Nova", Score: 3}},
	})

	data, err := Encode(CodecJSON, msg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "state", decoded["t"])
	assert.EqualValues(t, 1234, decoded["time"])
	assert.Equal(t, []any{}, decoded["foods"], "empty collections encode as arrays")
	assert.Equal(t, []any{}, decoded["powers"])

	players := decoded["players"].([]any)
	require.Len(t, players, 1)
	player := players[0].(map[string]any)
	assert.EqualValues(t, 12, player["r"])
	assert.Len(t, player["seg"], 1)

	lb := decoded["lb"].([]any)
	assert.Equal(t, map[string]any{"id": "u1", "name": "Nova", "score": float64(3)}, lb[0])
}

func TestEncodeInitOmitsOwnSegments(t *testing.T) {
	msg := NewInit(world.InitView{
		ID:    "u1",
		World: world.Bounds{W: 6000, H: 6000},
		You:   world.PlayerView{ID: "u1", Name: "Nova"},
	})

	data, err := Encode(CodecJSON, msg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "init", decoded["t"])
	assert.Equal(t, map[string]any{"w": float64(6000), "h": float64(6000)}, decoded["world"])
	you := decoded["you"].(map[string]any)
	assert.NotContains(t, you, "seg")
	assert.Equal(t, []any{}, decoded["others"])
}

func TestEncodeDeadMsgpack(t *testing.T) {
	data, err := Encode(CodecMsgpack, NewDead(17, world.DeathReasonCrash))
	require.NoError(t, err)

	var decoded DeadMessage
	require.NoError(t, msgpack.Unmarshal(data, &decoded))
	assert.Equal(t, DeadMessage{Type: TypeDead, Score: 17, Reason: "crash"}, decoded)
}
