package server

import (
	"sync/atomic"
	"time"

	"kosmos-worm/server/internal/telemetry"
)

const (
	metricKeyBroadcastTotal     = "hub.broadcast_total"
	metricKeyBroadcastBytes     = "hub.broadcast_bytes"
	metricKeyFramesDropped      = "hub.frames_dropped"
	metricKeySessionsOverflowed = "hub.sessions_overflowed"
	metricKeyDeathsTotal        = "hub.deaths_total"
	metricKeyTickOverruns       = "hub.tick_overruns"
)

type telemetryCounters struct {
	bytesSent             atomic.Uint64
	entitiesSent          atomic.Uint64
	tickDurationMicros    atomic.Int64
	lastBroadcastBytes    atomic.Uint64
	lastBroadcastEntities atomic.Uint64
	commandsDropped       atomic.Uint64
	framesDropped         atomic.Uint64
	sessionsOverflowed    atomic.Uint64
	deaths                atomic.Uint64
	foodEaten             atomic.Uint64
	powersTaken           atomic.Uint64
	tickOverruns          atomic.Uint64
	phasePanics           atomic.Uint64
	debug                 bool
	logger                telemetry.Logger
	metrics               telemetry.Metrics
}

type telemetrySnapshot struct {
	BytesSent          uint64 `json:"bytesSent"`
	EntitiesSent       uint64 `json:"entitiesSent"`
	TickDurationMicros int64  `json:"tickDurationMicros"`
	CommandsDropped    uint64 `json:"commandsDropped"`
	FramesDropped      uint64 `json:"framesDropped"`
	SessionsOverflowed uint64 `json:"sessionsOverflowed"`
	Deaths             uint64 `json:"deaths"`
	FoodEaten          uint64 `json:"foodEaten"`
	PowersTaken        uint64 `json:"powersTaken"`
	TickOverruns       uint64 `json:"tickOverruns"`
	PhasePanics        uint64 `json:"phasePanics"`
}

func newTelemetryCounters(metrics telemetry.Metrics, logger telemetry.Logger, debug bool) *telemetryCounters {
	return &telemetryCounters{debug: debug, logger: logger, metrics: metrics}
}

func (t *telemetryCounters) RecordBroadcast(bytes, entities int) {
	if bytes < 0 {
		bytes = 0
	}
	if entities < 0 {
		entities = 0
	}
	t.bytesSent.Add(uint64(bytes))
	t.entitiesSent.Add(uint64(entities))
	t.lastBroadcastBytes.Store(uint64(bytes))
	t.lastBroadcastEntities.Store(uint64(entities))
	if t.metrics != nil {
		t.metrics.Add(metricKeyBroadcastTotal, 1)
		t.metrics.Add(metricKeyBroadcastBytes, uint64(bytes))
	}
}

func (t *telemetryCounters) RecordTickDuration(duration time.Duration) {
	micros := duration.Microseconds()
	if micros < 0 {
		micros = 0
	}
	t.tickDurationMicros.Store(micros)
	if t.debug && t.logger != nil {
		t.logger.Printf(
			"[telemetry] tick=%dus bytes=%d totalBytes=%d entities=%d totalEntities=%d",
			micros,
			t.lastBroadcastBytes.Load(),
			t.bytesSent.Load(),
			t.lastBroadcastEntities.Load(),
			t.entitiesSent.Load(),
		)
	}
}

func (t *telemetryCounters) RecordTickOverrun() {
	t.tickOverruns.Add(1)
	if t.metrics != nil {
		t.metrics.Add(metricKeyTickOverruns, 1)
	}
}

func (t *telemetryCounters) RecordStep(deaths, foodEaten, powersTaken, panics int) {
	if deaths > 0 {
		t.deaths.Add(uint64(deaths))
		if t.metrics != nil {
			t.metrics.Add(metricKeyDeathsTotal, uint64(deaths))
		}
	}
	if foodEaten > 0 {
		t.foodEaten.Add(uint64(foodEaten))
	}
	if powersTaken > 0 {
		t.powersTaken.Add(uint64(powersTaken))
	}
	if panics > 0 {
		t.phasePanics.Add(uint64(panics))
	}
}

func (t *telemetryCounters) IncrementCommandsDropped() {
	t.commandsDropped.Add(1)
}

func (t *telemetryCounters) IncrementFramesDropped() {
	t.framesDropped.Add(1)
	if t.metrics != nil {
		t.metrics.Add(metricKeyFramesDropped, 1)
	}
}

func (t *telemetryCounters) IncrementSessionsOverflowed() {
	t.sessionsOverflowed.Add(1)
	if t.metrics != nil {
		t.metrics.Add(metricKeySessionsOverflowed, 1)
	}
}

func (t *telemetryCounters) DebugEnabled() bool {
	return t.debug
}

func (t *telemetryCounters) Snapshot() telemetrySnapshot {
	return telemetrySnapshot{
		BytesSent:          t.bytesSent.Load(),
		EntitiesSent:       t.entitiesSent.Load(),
		TickDurationMicros: t.tickDurationMicros.Load(),
		CommandsDropped:    t.commandsDropped.Load(),
		FramesDropped:      t.framesDropped.Load(),
		SessionsOverflowed: t.sessionsOverflowed.Load(),
		Deaths:             t.deaths.Load(),
		FoodEaten:          t.foodEaten.Load(),
		PowersTaken:        t.powersTaken.Load(),
		TickOverruns:       t.tickOverruns.Load(),
		PhasePanics:        t.phasePanics.Load(),
	}
}
