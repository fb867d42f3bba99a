package server

import (
	"log"
	"time"

	"kosmos-worm/server/internal/sim"
	"kosmos-worm/server/internal/telemetry"
	"kosmos-worm/server/internal/world"
)

// HubConfig captures the tunables needed to construct a Hub.
type HubConfig struct {
	World world.Config

	// SendQueueSize bounds the per-session outbound queue.
	SendQueueSize int
	WriteWait     time.Duration
	PingInterval  time.Duration

	CommandCapacity  int
	PerSessionLimit  int
	QueueWarningStep int

	Logger         *log.Logger
	Metrics        telemetry.Metrics
	RNG            world.RNGFactory
	DebugTelemetry bool
}

// DefaultHubConfig returns the standard arena tuning.
func DefaultHubConfig() HubConfig {
	loop := sim.DefaultLoopConfig()
	return HubConfig{
		World:            world.DefaultConfig(),
		SendQueueSize:    defaultSendQueue,
		WriteWait:        writeWait,
		PingInterval:     pingPeriod,
		CommandCapacity:  loop.CommandCapacity,
		PerSessionLimit:  loop.PerActorLimit,
		QueueWarningStep: loop.WarningStep,
	}
}

func (cfg HubConfig) normalized() HubConfig {
	def := DefaultHubConfig()
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = def.SendQueueSize
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.CommandCapacity <= 0 {
		cfg.CommandCapacity = def.CommandCapacity
	}
	if cfg.PerSessionLimit < 0 {
		cfg.PerSessionLimit = 0
	}
	if cfg.QueueWarningStep < 0 {
		cfg.QueueWarningStep = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	cfg.World = cfg.World.Normalized()
	return cfg
}

func (cfg HubConfig) loopConfig() sim.LoopConfig {
	return sim.LoopConfig{
		TickPeriod:      cfg.World.TickPeriod,
		MinDelta:        cfg.World.MinDelta,
		MaxDelta:        cfg.World.MaxDelta,
		CommandCapacity: cfg.CommandCapacity,
		PerActorLimit:   cfg.PerSessionLimit,
		WarningStep:     cfg.QueueWarningStep,
	}
}
