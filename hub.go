package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sasha-s/go-deadlock"

	"kosmos-worm/server/internal/net/proto"
	"kosmos-worm/server/internal/sim"
	"kosmos-worm/server/internal/telemetry"
	"kosmos-worm/server/internal/world"
	"kosmos-worm/server/logging"
	"kosmos-worm/server/logging/lifecycle"
	"kosmos-worm/server/logging/network"
	"kosmos-worm/server/logging/simulation"
)

// Disconnect reasons reported in lifecycle events.
const (
	DisconnectClosed        = "closed"
	DisconnectWriteFailed   = "write_failed"
	DisconnectQueueOverflow = "send_queue_overflow"
	DisconnectShutdown      = "server_shutdown"
)

// Reasons attached to discarded inbound frames.
const (
	DiscardNotJoined   = "not_joined"
	DiscardNotAlive    = "not_alive"
	DiscardStillAlive  = "still_alive"
	DiscardUnknownType = "unknown_type"
	DiscardMalformed   = "malformed"
	DiscardQueueFull   = "queue_full"
)

var (
	ErrUnknownSession = errors.New("server: unknown session")
	ErrNotJoined      = errors.New("server: session has not joined")
	ErrStillAlive     = errors.New("server: worm is still alive")
)

// Hub owns the arena, the connected sessions and the tick loop. One coarse
// mutex guards the world; it is held for the whole tick and for every
// join, respawn and disconnect.
type Hub struct {
	mu       deadlock.Mutex
	config   HubConfig
	world    *world.World
	sessions map[string]*sessionState

	loop      *sim.Loop
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher
	clock     logging.Clock
	telemetry *telemetryCounters

	// Touched only from the tick goroutine.
	overrunStreak uint64
}

type sessionState struct {
	sub      *subscriber
	playerID string
}

type clockSource interface {
	Clock() logging.Clock
}

type metricsSource interface {
	Metrics() *logging.Metrics
}

// NewHubWithConfig builds a hub, seeds the arena and prepares the tick loop.
// The publisher receives gameplay and lifecycle events; when it also exposes
// a clock or metrics registry those are shared with the loop.
func NewHubWithConfig(cfg HubConfig, pub logging.Publisher) (*Hub, error) {
	cfg = cfg.normalized()
	if pub == nil {
		pub = logging.NopPublisher()
	}

	var clock logging.Clock = logging.ClockFunc(time.Now)
	if source, ok := pub.(clockSource); ok && source.Clock() != nil {
		clock = source.Clock()
	}

	metrics := cfg.Metrics
	if metrics == nil {
		if source, ok := pub.(metricsSource); ok && source.Metrics() != nil {
			metrics = telemetry.WrapMetrics(source.Metrics())
		}
	}

	w, err := world.New(cfg.World, world.Deps{Publisher: pub, RNG: cfg.RNG})
	if err != nil {
		return nil, fmt.Errorf("build world: %w", err)
	}

	logger := telemetry.WrapLogger(cfg.Logger)
	h := &Hub{
		config:    cfg,
		world:     w,
		sessions:  make(map[string]*sessionState),
		logger:    logger,
		metrics:   metrics,
		publisher: pub,
		clock:     clock,
		telemetry: newTelemetryCounters(metrics, logger, cfg.DebugTelemetry),
	}
	h.loop = sim.NewLoop(h, cfg.loopConfig(), sim.Deps{Logger: logger, Metrics: metrics, Clock: clock}, sim.LoopHooks{
		AfterStep:      h.afterStep,
		OnCommandDrop:  h.onCommandDrop,
		OnQueueWarning: h.onQueueWarning,
		OnPanic:        h.onTickPanic,
	})

	w.Seed(clock.Now())
	return h, nil
}

// Run drives the tick loop until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	return h.loop.Run(ctx)
}

// Step runs a single tick immediately, outside the ticker.
func (h *Hub) Step(now time.Time) sim.LoopStepResult {
	return h.loop.Step(now)
}

// TickRate reports the nominal ticks per second.
func (h *Hub) TickRate() int {
	return h.config.World.TickRate()
}

// Attach registers a freshly upgraded connection. The session has no worm
// until it sends join.
func (h *Hub) Attach(sessionID string, conn SubscriberConn, codec proto.Codec) {
	sub := newSubscriber(sessionID, conn, codec, subscriberOptions{
		QueueSize:    h.config.SendQueueSize,
		WriteWait:    h.config.WriteWait,
		PingInterval: h.config.PingInterval,
		Clock:        h.clock,
		OnFailure:    h.onWriteFailure,
	})

	h.mu.Lock()
	previous := h.sessions[sessionID]
	if previous != nil && previous.playerID != "" {
		h.world.RemovePlayer(previous.playerID)
	}
	h.sessions[sessionID] = &sessionState{sub: sub}
	h.mu.Unlock()

	if previous != nil {
		previous.sub.Close()
	}
	sub.start()
}

// Join spawns a fresh worm for the session, replacing any worm it already
// controls, and queues the init frame.
func (h *Hub) Join(sessionID, name, color string) (string, error) {
	now := h.clock.Now()

	h.mu.Lock()
	sess, ok := h.sessions[sessionID]
	if !ok {
		h.mu.Unlock()
		return "", ErrUnknownSession
	}
	if sess.playerID != "" {
		h.world.RemovePlayer(sess.playerID)
	}
	cfg := h.world.Config()
	player := h.world.SpawnPlayer(world.SpawnOptions{
		Name:      cfg.SanitizeName(name, ""),
		Color:     color,
		SessionID: sessionID,
	}, now)
	sess.playerID = player.ID
	view, _ := h.world.InitView(player.ID)
	payload := lifecycle.PlayerJoinedPayload{
		Name:   player.Name,
		Color:  player.Color,
		SpawnX: player.X,
		SpawnY: player.Y,
	}
	tick := h.world.Tick()
	// Queued under the lock so no state frame can precede the init.
	kind, overflowed := h.queueControl(sess.sub, proto.NewInit(view))
	h.mu.Unlock()

	lifecycle.PlayerJoined(context.Background(), h.publisher, tick, logging.PlayerRef(view.ID, false), payload, map[string]any{"session": sessionID})

	if overflowed {
		h.controlOverflow(sess.sub, kind)
	}
	return view.ID, nil
}

// Respawn replaces a dead worm with a fresh one. Omitted name and color fall
// back to the previous worm's.
func (h *Hub) Respawn(sessionID, name, color string) (string, error) {
	now := h.clock.Now()

	h.mu.Lock()
	sess, ok := h.sessions[sessionID]
	if !ok {
		h.mu.Unlock()
		return "", ErrUnknownSession
	}
	previous, ok := h.world.Store().Player(sess.playerID)
	if !ok {
		h.mu.Unlock()
		return "", ErrNotJoined
	}
	if previous.Alive {
		h.mu.Unlock()
		return "", ErrStillAlive
	}
	cfg := h.world.Config()
	if color == "" {
		color = previous.Color
	}
	h.world.RemovePlayer(previous.ID)
	player := h.world.SpawnPlayer(world.SpawnOptions{
		Name:      cfg.SanitizeName(name, previous.Name),
		Color:     color,
		SessionID: sessionID,
	}, now)
	sess.playerID = player.ID
	view, _ := h.world.InitView(player.ID)
	payload := lifecycle.PlayerRespawnedPayload{
		PreviousID: previous.ID,
		Name:       player.Name,
		SpawnX:     player.X,
		SpawnY:     player.Y,
	}
	tick := h.world.Tick()
	kind, overflowed := h.queueControl(sess.sub, proto.NewInit(view))
	h.mu.Unlock()

	lifecycle.PlayerRespawned(context.Background(), h.publisher, tick, logging.PlayerRef(view.ID, false), payload, map[string]any{"session": sessionID})

	if overflowed {
		h.controlOverflow(sess.sub, kind)
	}
	return view.ID, nil
}

// QueueInput stages an input frame for the next tick. The session is
// resolved to its worm when the tick drains the queue.
func (h *Hub) QueueInput(sessionID string, msg proto.ClientMessage) bool {
	cmd, ok := proto.ClientCommand(msg)
	if !ok {
		return false
	}
	cmd.ActorID = sessionID
	cmd.IssuedAt = h.clock.Now()
	accepted, _ := h.loop.Enqueue(cmd)
	return accepted
}

// Disconnect forgets the session, deletes its worm and closes the
// connection. Unknown sessions are ignored.
func (h *Hub) Disconnect(sessionID, reason string) {
	h.mu.Lock()
	sess, ok := h.sessions[sessionID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, sessionID)
	var (
		playerID string
		score    int
		removed  bool
	)
	if sess.playerID != "" {
		if player, ok := h.world.Store().Player(sess.playerID); ok {
			playerID = player.ID
			score = player.Score
			removed = h.world.RemovePlayer(player.ID)
		}
	}
	tick := h.world.Tick()
	h.mu.Unlock()

	h.loop.Forget(sessionID)
	sess.sub.Close()

	if removed {
		lifecycle.PlayerDisconnected(context.Background(), h.publisher, tick, logging.PlayerRef(playerID, false), lifecycle.PlayerDisconnectedPayload{
			Reason: reason,
			Score:  score,
		}, map[string]any{"session": sessionID})
	}
}

// Shutdown disconnects every session. Called once the tick loop has stopped.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		h.Disconnect(id, DisconnectShutdown)
	}
}

// Discard records an inbound frame that had no effect.
func (h *Hub) Discard(sessionID, kind, reason string, size int) {
	network.FrameDiscarded(context.Background(), h.publisher, 0, logging.SessionRef(sessionID), network.FrameDiscardedPayload{
		Kind:   kind,
		Reason: reason,
		Bytes:  size,
	}, nil)
}

type pendingDeath struct {
	sub *subscriber
	msg proto.DeadMessage
}

type tickOutcome struct {
	result   world.StepResult
	deaths   []pendingDeath
	snapshot world.Snapshot
	targets  []*subscriber
}

// Advance implements sim.Core: it applies staged inputs, steps the world and
// pushes the resulting frames.
func (h *Hub) Advance(ctx sim.LoopTickContext, commands []sim.Command) {
	outcome := h.step(ctx, commands)
	h.reportStep(outcome.result)

	for _, death := range outcome.deaths {
		h.sendControl(death.sub, death.msg)
	}
	h.broadcastState(outcome.snapshot, outcome.targets)
}

func (h *Hub) step(ctx sim.LoopTickContext, commands []sim.Command) tickOutcome {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.applyCommandsLocked(ctx, commands)
	result := h.world.Step(ctx.Now, ctx.Delta)

	outcome := tickOutcome{result: result}
	for _, death := range result.Deaths {
		if death.IsBot || death.SessionID == "" {
			continue
		}
		sess, ok := h.sessions[death.SessionID]
		if !ok || sess.playerID != death.PlayerID {
			continue
		}
		outcome.deaths = append(outcome.deaths, pendingDeath{sub: sess.sub, msg: proto.NewDead(death.Score, death.Reason)})
	}

	outcome.snapshot = h.world.Snapshot(ctx.Now)
	outcome.targets = make([]*subscriber, 0, len(h.sessions))
	for _, sess := range h.sessions {
		if sess.playerID != "" {
			outcome.targets = append(outcome.targets, sess.sub)
		}
	}
	return outcome
}

func (h *Hub) applyCommandsLocked(ctx sim.LoopTickContext, commands []sim.Command) {
	for _, cmd := range commands {
		if cmd.Type != sim.CommandInput || cmd.Input == nil {
			continue
		}
		sess, ok := h.sessions[cmd.ActorID]
		if !ok || sess.playerID == "" {
			h.Discard(cmd.ActorID, proto.TypeInput, DiscardNotJoined, 0)
			continue
		}
		input := world.Input{
			Dir:      cmd.Input.Angle,
			HasDir:   cmd.Input.HasAngle,
			Boosting: cmd.Input.Boosting,
		}
		if cmd.Input.HasView {
			input.View = &world.Vec2{X: cmd.Input.ViewX, Y: cmd.Input.ViewY}
		}
		if !h.world.ApplyInput(sess.playerID, input, ctx.Now) {
			h.Discard(cmd.ActorID, proto.TypeInput, DiscardNotAlive, 0)
		}
	}
}

func (h *Hub) reportStep(result world.StepResult) {
	h.telemetry.RecordStep(len(result.Deaths), result.FoodEaten, result.PowersTaken, len(result.Panics))
	for _, p := range result.Panics {
		h.logger.Printf("[sim] tick %d phase %s panicked: %v", result.Tick, p.Phase, p.Value)
		simulation.PhasePanic(context.Background(), h.publisher, result.Tick, p.Phase, p.Value)
	}
}

// broadcastState encodes the snapshot once per codec and queues it for
// every joined session.
func (h *Hub) broadcastState(snapshot world.Snapshot, targets []*subscriber) {
	if len(targets) == 0 {
		return
	}
	msg := proto.NewState(snapshot)
	encoded := make(map[proto.Codec][]byte, len(proto.Codecs))
	failed := make(map[proto.Codec]bool)

	sent := 0
	for _, sub := range targets {
		if failed[sub.codec] {
			continue
		}
		data, ok := encoded[sub.codec]
		if !ok {
			var err error
			data, err = proto.Encode(sub.codec, msg)
			if err != nil {
				h.logger.Printf("failed to encode state for codec %s: %v", sub.codec, err)
				failed[sub.codec] = true
				continue
			}
			encoded[sub.codec] = data
		}
		if h.sendState(sub, data) {
			sent += len(data)
		}
	}
	entities := len(msg.Players) + len(msg.Foods) + len(msg.Powers)
	h.telemetry.RecordBroadcast(sent, entities)
}

// sendState queues a state frame. A full queue drops the frame; the next
// tick's snapshot supersedes it.
func (h *Hub) sendState(sub *subscriber, data []byte) bool {
	frame := outboundFrame{kind: proto.TypeState, messageType: frameMessageType(sub.codec), data: data}
	if sub.enqueue(frame) {
		return true
	}
	if sub.closed() {
		return false
	}
	h.telemetry.IncrementFramesDropped()
	if count := sub.recordDrop(); count&(count-1) == 0 {
		network.SendQueueOverflow(context.Background(), h.publisher, 0, logging.SessionRef(sub.id), network.SendQueueOverflowPayload{
			Kind:     proto.TypeState,
			Capacity: sub.capacity(),
		}, map[string]any{"dropped": count})
	}
	return false
}

// sendControl queues an init or dead frame. These cannot be skipped, so a
// session whose queue is full is closed.
func (h *Hub) sendControl(sub *subscriber, msg any) bool {
	kind, overflowed := h.queueControl(sub, msg)
	if overflowed {
		h.controlOverflow(sub, kind)
		return false
	}
	return true
}

// queueControl encodes and enqueues a control frame without blocking, so it
// is safe to call with h.mu held. overflowed reports a full queue on a live
// session.
func (h *Hub) queueControl(sub *subscriber, msg any) (kind string, overflowed bool) {
	kind = controlKind(msg)
	data, err := proto.Encode(sub.codec, msg)
	if err != nil {
		h.logger.Printf("failed to encode %s for %s: %v", kind, sub.id, err)
		return kind, false
	}
	if sub.enqueue(outboundFrame{kind: kind, messageType: frameMessageType(sub.codec), data: data}) {
		return kind, false
	}
	return kind, !sub.closed()
}

// controlOverflow closes a session that could not take a control frame.
// Must be called without h.mu held.
func (h *Hub) controlOverflow(sub *subscriber, kind string) {
	h.telemetry.IncrementSessionsOverflowed()
	network.SendQueueOverflow(context.Background(), h.publisher, 0, logging.SessionRef(sub.id), network.SendQueueOverflowPayload{
		Kind:     kind,
		Capacity: sub.capacity(),
		Closed:   true,
	}, nil)
	h.Disconnect(sub.id, DisconnectQueueOverflow)
}

func controlKind(msg any) string {
	switch m := msg.(type) {
	case proto.InitMessage:
		return m.Type
	case proto.DeadMessage:
		return m.Type
	default:
		return "control"
	}
}

func (h *Hub) onWriteFailure(sessionID string, err error) {
	h.logger.Printf("failed to write to session %s: %v", sessionID, err)
	h.Disconnect(sessionID, DisconnectWriteFailed)
}

func (h *Hub) afterStep(result sim.LoopStepResult) {
	h.telemetry.RecordTickDuration(result.Duration)
	if result.Budget <= 0 || result.Duration <= result.Budget {
		h.overrunStreak = 0
		return
	}
	h.overrunStreak++
	h.telemetry.RecordTickOverrun()
	simulation.TickBudgetOverrun(context.Background(), h.publisher, result.Tick, simulation.TickBudgetOverrunPayload{
		DurationMillis: result.Duration.Milliseconds(),
		BudgetMillis:   result.Budget.Milliseconds(),
		Ratio:          float64(result.Duration) / float64(result.Budget),
		Streak:         h.overrunStreak,
	}, nil)
}

func (h *Hub) onCommandDrop(reason string, cmd sim.Command) {
	h.telemetry.IncrementCommandsDropped()
	simulation.CommandDropped(context.Background(), h.publisher, 0, logging.SessionRef(cmd.ActorID), simulation.CommandDroppedPayload{
		Reason: reason,
		Kind:   string(cmd.Type),
	})
}

func (h *Hub) onQueueWarning(length int) {
	h.logger.Printf("[backpressure] command queue length=%d", length)
}

func (h *Hub) onTickPanic(tick uint64, recovered any) {
	simulation.PhasePanic(context.Background(), h.publisher, tick, "tick", recovered)
}

type diagnosticsSnapshot struct {
	Tick            uint64 `json:"tick"`
	Sessions        int    `json:"sessions"`
	Players         int    `json:"players"`
	Humans          int    `json:"humans"`
	Bots            int    `json:"bots"`
	Alive           int    `json:"alive"`
	Food            int    `json:"food"`
	Powers          int    `json:"powers"`
	PendingCommands int    `json:"pendingCommands"`
}

// DiagnosticsSnapshot summarizes the arena for the diagnostics endpoint.
func (h *Hub) DiagnosticsSnapshot() diagnosticsSnapshot {
	h.mu.Lock()
	counts := h.world.Counts()
	snapshot := diagnosticsSnapshot{
		Tick:     h.world.Tick(),
		Sessions: len(h.sessions),
		Players:  counts.Players,
		Humans:   counts.Humans,
		Bots:     counts.Bots,
		Alive:    counts.Alive,
		Food:     counts.Food,
		Powers:   counts.Powers,
	}
	h.mu.Unlock()
	snapshot.PendingCommands = h.loop.Pending()
	return snapshot
}

// TelemetrySnapshot exposes the broadcast and tick counters.
func (h *Hub) TelemetrySnapshot() telemetrySnapshot {
	return h.telemetry.Snapshot()
}
