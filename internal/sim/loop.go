package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kosmos-worm/server/internal/telemetry"
	"kosmos-worm/server/logging"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-actor
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"
)

// Core is advanced once per tick with the commands staged since the
// previous tick.
type Core interface {
	Advance(ctx LoopTickContext, commands []Command)
}

// LoopConfig tunes the command buffer and tick loop orchestration.
type LoopConfig struct {
	TickPeriod      time.Duration
	MinDelta        time.Duration
	MaxDelta        time.Duration
	CommandCapacity int
	PerActorLimit   int
	WarningStep     int
}

// DefaultLoopConfig matches a 33 ms tick with a 1-66 ms delta window.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		TickPeriod:      33 * time.Millisecond,
		MinDelta:        time.Millisecond,
		MaxDelta:        66 * time.Millisecond,
		CommandCapacity: 4096,
		PerActorLimit:   16,
		WarningStep:     1024,
	}
}

func (cfg LoopConfig) normalized() LoopConfig {
	def := DefaultLoopConfig()
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = def.TickPeriod
	}
	if cfg.MinDelta <= 0 {
		cfg.MinDelta = def.MinDelta
	}
	if cfg.MaxDelta < cfg.MinDelta {
		cfg.MaxDelta = cfg.MinDelta
	}
	if cfg.CommandCapacity <= 0 {
		cfg.CommandCapacity = def.CommandCapacity
	}
	return cfg
}

// LoopTickContext describes the tick being executed.
type LoopTickContext struct {
	Tick         uint64
	Now          time.Time
	Delta        time.Duration
	ClampedDelta bool
}

// LoopStepResult summarizes one executed tick for AfterStep observers.
type LoopStepResult struct {
	Tick         uint64
	Now          time.Time
	Delta        time.Duration
	ClampedDelta bool
	Commands     int
	Duration     time.Duration
	Budget       time.Duration
	Panicked     bool
}

// LoopHooks lets the owner observe loop activity.
type LoopHooks struct {
	AfterStep      func(LoopStepResult)
	OnCommandDrop  func(reason string, cmd Command)
	OnQueueWarning func(length int)
	OnPanic        func(tick uint64, recovered any)
}

// Loop coordinates command ingestion and the fixed-period tick.
type Loop struct {
	core    Core
	buffer  *CommandBuffer
	hooks   LoopHooks
	config  LoopConfig
	logger  telemetry.Logger
	metrics telemetry.Metrics
	clock   logging.Clock

	queueMu       sync.Mutex
	perActorCount map[string]int
	dropCounts    map[string]uint64

	tick uint64
	last time.Time
}

// NewLoop wraps core with a bounded command batch and a ticker.
func NewLoop(core Core, cfg LoopConfig, deps Deps, hooks LoopHooks) *Loop {
	if core == nil {
		return nil
	}
	clock := deps.Clock
	if clock == nil {
		clock = logging.ClockFunc(time.Now)
	}
	cfg = cfg.normalized()
	return &Loop{
		core:          core,
		buffer:        NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		hooks:         hooks,
		config:        cfg,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		clock:         clock,
		perActorCount: make(map[string]int),
		dropCounts:    make(map[string]uint64),
	}
}

// Config reports the normalized loop configuration.
func (l *Loop) Config() LoopConfig {
	if l == nil {
		return LoopConfig{}
	}
	return l.config
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Enqueue stages a command, enforcing per-actor throttling and capacity limits.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	reason := ""
	var dropCount uint64
	warnAt := 0
	l.queueMu.Lock()
	if l.config.PerActorLimit > 0 && cmd.ActorID != "" {
		count := l.perActorCount[cmd.ActorID]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else {
			l.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" {
		if !l.buffer.Push(cmd) {
			reason = CommandRejectQueueFull
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else if l.config.WarningStep > 0 {
			length := l.buffer.Len()
			if length >= l.config.WarningStep && length%l.config.WarningStep == 0 {
				warnAt = length
			}
		}
	}
	l.queueMu.Unlock()

	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	if warnAt > 0 && l.hooks.OnQueueWarning != nil {
		l.hooks.OnQueueWarning(warnAt)
	}
	return true, ""
}

// Step runs one tick at now. The delta since the previous tick is clamped to
// the configured window; the first tick uses the nominal period.
func (l *Loop) Step(now time.Time) LoopStepResult {
	if l == nil {
		return LoopStepResult{}
	}
	delta := l.config.TickPeriod
	if !l.last.IsZero() {
		delta = now.Sub(l.last)
	}
	l.last = now

	clamped := false
	if delta < l.config.MinDelta {
		delta = l.config.MinDelta
		clamped = true
	} else if delta > l.config.MaxDelta {
		delta = l.config.MaxDelta
		clamped = true
	}

	l.tick++
	return l.Advance(LoopTickContext{Tick: l.tick, Now: now, Delta: delta, ClampedDelta: clamped})
}

// Advance executes a single tick using the staged commands.
func (l *Loop) Advance(ctx LoopTickContext) LoopStepResult {
	if l == nil {
		return LoopStepResult{}
	}
	commands := l.drainCommands()
	start := l.clock.Now()
	panicked := l.runCore(ctx, commands)
	result := LoopStepResult{
		Tick:         ctx.Tick,
		Now:          ctx.Now,
		Delta:        ctx.Delta,
		ClampedDelta: ctx.ClampedDelta,
		Commands:     len(commands),
		Duration:     l.clock.Now().Sub(start),
		Budget:       l.config.TickPeriod,
		Panicked:     panicked,
	}
	if l.metrics != nil {
		l.metrics.Store("sim.tick", ctx.Tick)
		l.metrics.Store("sim.tick_duration_us", uint64(result.Duration.Microseconds()))
	}
	if l.hooks.AfterStep != nil {
		l.hooks.AfterStep(result)
	}
	return result
}

func (l *Loop) runCore(ctx LoopTickContext, commands []Command) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			if l.logger != nil {
				l.logger.Printf("[sim] tick %d panicked: %v", ctx.Tick, r)
			}
			if l.hooks.OnPanic != nil {
				l.hooks.OnPanic(ctx.Tick, r)
			}
		}
	}()
	l.core.Advance(ctx, commands)
	return false
}

// Run drives the fixed-period loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if l == nil {
		return fmt.Errorf("sim: nil loop")
	}
	ticker := time.NewTicker(l.config.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Step(l.clock.Now())
		}
	}
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.perActorCount) > 0 {
		l.perActorCount = make(map[string]int)
	}
	return commands
}

// Forget drops per-actor bookkeeping for a closed session.
func (l *Loop) Forget(actorID string) {
	if l == nil || actorID == "" {
		return
	}
	l.queueMu.Lock()
	delete(l.dropCounts, actorID)
	l.queueMu.Unlock()
}

func (l *Loop) incrementDropLocked(actorID string) uint64 {
	if actorID == "" {
		return 0
	}
	count := l.dropCounts[actorID] + 1
	l.dropCounts[actorID] = count
	return count
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.metrics != nil {
		l.metrics.Add("sim.commands_dropped."+reason, 1)
	}
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	if count > 0 && count&(count-1) == 0 && l.logger != nil {
		l.logger.Printf(
			"[backpressure] dropping command actor=%s type=%s reason=%s count=%d limit=%d",
			cmd.ActorID,
			cmd.Type,
			reason,
			count,
			l.config.PerActorLimit,
		)
	}
}
