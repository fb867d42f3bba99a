package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"kosmos-worm/server"
	"kosmos-worm/server/logging"
	"kosmos-worm/server/logging/lifecycle"
	"kosmos-worm/server/logging/network"
	"kosmos-worm/server/logging/sinks"
)

func newTestHub(t *testing.T) (*server.Hub, *sinks.MemorySink) {
	t.Helper()

	memory := sinks.NewMemorySink()
	routerCfg := logging.DefaultConfig()
	routerCfg.MinimumSeverity = logging.SeverityDebug
	router, err := logging.NewRouter(logging.ClockFunc(time.Now), routerCfg, []logging.NamedSink{{Name: "memory", Sink: memory}})
	require.NoError(t, err)
	t.Cleanup(func() { router.Close(context.Background()) })

	cfg := server.DefaultHubConfig()
	cfg.World.Seed = 7
	cfg.World.BotCount = 0
	cfg.World.FoodTarget = 3
	cfg.World.PowerTarget = 1
	cfg.Logger = log.New(io.Discard, "", 0)

	hub, err := server.NewHubWithConfig(cfg, router)
	require.NoError(t, err)
	return hub, memory
}

func startServer(t *testing.T, hub *server.Hub) *httptest.Server {
	t.Helper()
	handler := NewHandler(hub, HandlerConfig{Logger: log.New(io.Discard, "", 0)})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	parsed, err := url.Parse(srv.URL)
	require.NoError(t, err)
	parsed.Scheme = "ws"
	parsed.RawQuery = query

	conn, resp, err := websocket.DefaultDialer.Dial(parsed.String(), nil)
	if resp != nil {
		resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	messageType, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, messageType)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	return decoded
}

func joinAs(t *testing.T, conn *websocket.Conn, name string) map[string]any {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"t":"join","name":"`+name+`","color":"#fff"}`)))
	frame := readJSON(t, conn)
	require.Equal(t, "init", frame["t"])
	return frame
}

func TestJoinSendsInitFrame(t *testing.T) {
	hub, _ := newTestHub(t)
	conn := dial(t, startServer(t, hub), "")

	initFrame := joinAs(t, conn, "Nova")

	you := initFrame["you"].(map[string]any)
	assert.Equal(t, initFrame["id"], you["id"])
	assert.Equal(t, "Nova", you["name"])
	assert.Equal(t, "#fff", you["color"])
	assert.EqualValues(t, 0, you["score"])
	assert.Equal(t, true, you["alive"])
	assert.NotContains(t, you, "seg")
	assert.Equal(t, map[string]any{"w": float64(6000), "h": float64(6000)}, initFrame["world"])
	assert.Len(t, initFrame["foods"], 3)
	assert.Len(t, initFrame["powers"], 1)
	assert.Len(t, initFrame["others"], 1, "others includes the joining worm")
}

func TestStepBroadcastsStateToJoinedSessions(t *testing.T) {
	hub, _ := newTestHub(t)
	srv := startServer(t, hub)
	joined := dial(t, srv, "")
	initFrame := joinAs(t, joined, "Nova")

	hub.Step(time.Now())

	state := readJSON(t, joined)
	assert.Equal(t, "state", state["t"])
	players := state["players"].([]any)
	require.Len(t, players, 1)
	player := players[0].(map[string]any)
	assert.Equal(t, initFrame["id"], player["id"])
	assert.NotEmpty(t, player["seg"])
	lb := state["lb"].([]any)
	require.Len(t, lb, 1)
	assert.Equal(t, "Nova", lb[0].(map[string]any)["name"])
}

func TestInputIsAppliedOnNextTick(t *testing.T) {
	hub, _ := newTestHub(t)
	conn := dial(t, startServer(t, hub), "")
	joinAs(t, conn, "Nova")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"t":"input","ang":1,"boosting":false,"viewX":5,"viewY":6}`)))
	require.Eventually(t, func() bool {
		return hub.DiagnosticsSnapshot().PendingCommands == 1
	}, 2*time.Second, 5*time.Millisecond)

	hub.Step(time.Now())

	state := readJSON(t, conn)
	player := state["players"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 1, player["dir"])
}

func TestMsgpackSessionsReceiveBinaryFrames(t *testing.T) {
	hub, _ := newTestHub(t)
	conn := dial(t, startServer(t, hub), "codec=msgpack")

	join, err := msgpack.Marshal(map[string]any{"t": "join", "name": "Orbit"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, join))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	messageType, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, messageType)

	var decoded map[string]any
	require.NoError(t, msgpack.Unmarshal(payload, &decoded))
	assert.Equal(t, "init", decoded["t"])
	assert.Equal(t, "Orbit", decoded["you"].(map[string]any)["name"])
}

func TestInvalidFramesAreDiscarded(t *testing.T) {
	hub, memory := newTestHub(t)
	conn := dial(t, startServer(t, hub), "")

	for _, frame := range []string{`not json`, `{"t":"respawn"}`, `{"t":"warp"}`, `{"name":"x"}`} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
	}
	// The session keeps working after garbage.
	joinAs(t, conn, "Nova")

	require.Eventually(t, func() bool {
		return len(memory.EventsOfType(network.EventFrameDiscarded)) == 4
	}, 2*time.Second, 5*time.Millisecond)

	reasons := make(map[string]int)
	for _, event := range memory.EventsOfType(network.EventFrameDiscarded) {
		reasons[event.Payload.(network.FrameDiscardedPayload).Reason]++
	}
	assert.Equal(t, map[string]int{
		server.DiscardMalformed:   2,
		server.DiscardNotJoined:   1,
		server.DiscardUnknownType: 1,
	}, reasons)
}

func TestCloseRemovesPlayer(t *testing.T) {
	hub, memory := newTestHub(t)
	conn := dial(t, startServer(t, hub), "")
	joinAs(t, conn, "Nova")
	require.Equal(t, 1, hub.DiagnosticsSnapshot().Humans)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	require.Eventually(t, func() bool {
		diag := hub.DiagnosticsSnapshot()
		return diag.Humans == 0 && diag.Sessions == 0
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return len(memory.EventsOfType(lifecycle.EventPlayerDisconnected)) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSessionIDsAreUnique(t *testing.T) {
	hub, _ := newTestHub(t)
	srv := startServer(t, hub)
	first := joinAs(t, dial(t, srv, ""), "A")
	second := joinAs(t, dial(t, srv, ""), "B")

	assert.NotEqual(t, first["id"], second["id"])
	assert.Equal(t, 2, hub.DiagnosticsSnapshot().Sessions)
}
