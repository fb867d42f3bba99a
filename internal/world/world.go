package world

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"kosmos-worm/server/logging"
)

// Palette is the set of colors handed to players that do not pick one.
var Palette = []string{"#6bf2ff", "#7eff6b", "#ff6be6", "#ffaa6b", "#7aa3ff", "#ffd86b"}

// Deps bundles runtime dependencies required to construct a World instance.
type Deps struct {
	Publisher logging.Publisher
	RNG       RNGFactory
}

// World owns the entity store, the random source and the per-tick phases.
// It is not safe for concurrent use.
type World struct {
	config    Config
	rng       *rand.Rand
	publisher logging.Publisher
	store     *Store

	nextID uint64
	tick   uint64
}

// New constructs a world with normalized configuration and a seeded RNG.
func New(cfg Config, deps Deps) (*World, error) {
	normalized := cfg.normalized()

	factory := deps.RNG
	if factory == nil {
		factory = NewRNG
	}
	rng := factory(normalized.Seed)
	if rng == nil {
		return nil, fmt.Errorf("world: rng factory returned nil for seed %d", normalized.Seed)
	}

	publisher := deps.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	return &World{
		config:    normalized,
		rng:       rng,
		publisher: publisher,
		store:     NewStore(),
	}, nil
}

// Config returns the normalized configuration captured at construction time.
func (w *World) Config() Config {
	if w == nil {
		return Config{}
	}
	return w.config
}

// Store exposes the entity store to the tick owner.
func (w *World) Store() *Store {
	if w == nil {
		return nil
	}
	return w.store
}

// Tick reports the number of completed steps.
func (w *World) Tick() uint64 {
	if w == nil {
		return 0
	}
	return w.tick
}

// nextEntityID hands out ids from one counter shared by every entity kind.
func (w *World) nextEntityID(prefix string) string {
	w.nextID++
	return fmt.Sprintf("%s%d", prefix, w.nextID)
}

func (w *World) publish(event logging.Event) {
	if w.publisher == nil {
		return
	}
	w.publisher.Publish(context.Background(), event)
}

// SpawnOptions describes a new worm.
type SpawnOptions struct {
	Name      string
	Color     string
	SessionID string
	IsBot     bool
}

// SpawnPlayer creates a worm at a random interior position and adds it to the
// store. Its body trails straight behind the head.
func (w *World) SpawnPlayer(opts SpawnOptions, now time.Time) *Player {
	cfg := w.config
	color := strings.TrimSpace(opts.Color)
	if color == "" {
		color = RandomChoice(w.rng, Palette)
	}
	name := opts.Name
	if name == "" {
		name = cfg.DefaultName
	}

	head := RandomInset(w.rng, cfg, cfg.SpawnMargin)
	dir := RandomAngle(w.rng)
	segments := make([]Vec2, cfg.InitialSegments, cfg.InitialSegments+cfg.GrowthPerFood)
	for i := range segments {
		back := float64(i) * cfg.SegmentSpacing
		segments[i] = cfg.WrapPoint(Vec2{
			X: head.X - back*math.Cos(dir),
			Y: head.Y - back*math.Sin(dir),
		})
	}

	player := &Player{
		ID:           w.nextEntityID("u"),
		Name:         name,
		Color:        color,
		IsBot:        opts.IsBot,
		Alive:        true,
		X:            head.X,
		Y:            head.Y,
		Dir:          dir,
		Segments:     segments,
		TargetLength: cfg.InitialSegments,
		Radius:       cfg.radiusFor(len(segments)),
		View:         head,
		LastInput:    now,
		SessionID:    opts.SessionID,
	}
	if opts.IsBot {
		player.Brain = &BotBrain{}
	}
	w.store.AddPlayer(player)
	return player
}

// RemovePlayer deletes a worm outright. Used when a session closes.
func (w *World) RemovePlayer(id string) bool {
	return w.store.RemovePlayer(id)
}

// SanitizeName trims raw and caps it at the configured rune count. An empty
// result falls back to previous, then to the default name.
func (cfg Config) SanitizeName(raw, previous string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		name = strings.TrimSpace(previous)
	}
	if name == "" {
		name = cfg.DefaultName
	}
	limit := cfg.NameMaxLength
	if limit <= 0 {
		limit = DefaultConfig().NameMaxLength
	}
	if utf8.RuneCountInString(name) > limit {
		runes := []rune(name)
		name = string(runes[:limit])
	}
	return name
}

// Input is the control state a session submits for its worm.
type Input struct {
	Dir      float64
	HasDir   bool
	Boosting bool
	View     *Vec2
}

// ApplyInput updates heading, boost and view hint of a live human worm.
// A missing or non-finite heading keeps the previous one.
func (w *World) ApplyInput(playerID string, in Input, now time.Time) bool {
	player, ok := w.store.Player(playerID)
	if !ok || player.IsBot || !player.Alive {
		return false
	}
	if in.HasDir && !math.IsNaN(in.Dir) && !math.IsInf(in.Dir, 0) {
		player.Dir = in.Dir
	}
	player.Boosting = in.Boosting
	if in.View != nil {
		player.View = *in.View
	}
	player.LastInput = now
	return true
}

// Death describes one Alive to Dead transition.
type Death struct {
	PlayerID    string
	SessionID   string
	Name        string
	IsBot       bool
	Score       int
	Reason      string
	KillerID    string
	MeatDropped int
}

// PhasePanic records a recovered panic inside one tick phase.
type PhasePanic struct {
	Phase string
	Value any
}

// StepResult summarizes one tick.
type StepResult struct {
	Tick        uint64
	Deaths      []Death
	FoodEaten   int
	PowersTaken int
	FoodSpawned int
	BotsSpawned int
	Panics      []PhasePanic
}

const (
	PhaseBots      = "bots"
	PhaseMovement  = "movement"
	PhasePickups   = "pickups"
	PhaseCollision = "collision"
	PhaseSpawner   = "spawner"
)

// Step advances the arena by one tick. dt is the elapsed wall-clock time
// used by time-scaled effects; the caller clamps it.
func (w *World) Step(now time.Time, dt time.Duration) StepResult {
	w.tick++
	result := StepResult{Tick: w.tick}

	w.runPhase(&result, PhaseBots, func() { w.driveBots(now) })
	w.runPhase(&result, PhaseMovement, func() { w.advancePlayers(now) })
	w.runPhase(&result, PhasePickups, func() {
		result.FoodEaten, result.PowersTaken = w.resolvePickups(now, dt)
	})
	w.runPhase(&result, PhaseCollision, func() { result.Deaths = w.resolveCollisions(now) })
	w.runPhase(&result, PhaseSpawner, func() {
		result.BotsSpawned = w.EnsureBotPopulation(now)
		result.FoodSpawned = w.EnsureFoodPopulation()
		w.EnsurePowerupPopulation()
	})

	return result
}

func (w *World) runPhase(result *StepResult, phase string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			result.Panics = append(result.Panics, PhasePanic{Phase: phase, Value: r})
		}
	}()
	fn()
}

// Seed populates food, power-ups and bots before the first tick.
func (w *World) Seed(now time.Time) {
	w.EnsureFoodPopulation()
	w.EnsurePowerupPopulation()
	w.EnsureBotPopulation(now)
}
