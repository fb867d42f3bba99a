package world

import "time"

type FoodKind string

const (
	FoodPellet FoodKind = "pellet"
	FoodMeat   FoodKind = "meat"
)

// Food is a consumable pellet or a piece of meat left by a dead worm.
type Food struct {
	ID    string
	Pos   Vec2
	Kind  FoodKind
	Value int
}

type PowerKind string

const (
	PowerGhost  PowerKind = "ghost"
	PowerMagnet PowerKind = "magnet"
	PowerTurbo  PowerKind = "turbo"
)

// PowerKinds lists the kinds the spawner draws from.
var PowerKinds = []PowerKind{PowerGhost, PowerMagnet, PowerTurbo}

// PowerUp grants a timed buff to the first head that reaches it.
type PowerUp struct {
	ID   string
	Pos  Vec2
	Kind PowerKind
}

// BotBrain carries the decision state of a computer-controlled worm.
type BotBrain struct {
	NextDecision time.Time
	// TargetFood is looked up by id every tick; a consumed target simply
	// stops resolving.
	TargetFood string
}

// Player is one worm, human or bot. Segments[0] is the head.
type Player struct {
	ID       string
	Name     string
	Color    string
	IsBot    bool
	Alive    bool
	X, Y     float64
	Dir      float64
	Boosting bool

	Segments     []Vec2
	TargetLength int
	Radius       float64
	Score        int

	GhostUntil  time.Time
	MagnetUntil time.Time
	TurboUntil  time.Time

	View      Vec2
	LastInput time.Time

	// SessionID names the gateway session controlling this worm. Empty for bots.
	SessionID string

	Brain *BotBrain
}

// Head returns the current head position.
func (p *Player) Head() Vec2 {
	if len(p.Segments) > 0 {
		return p.Segments[0]
	}
	return Vec2{X: p.X, Y: p.Y}
}

func (p *Player) Ghosted(now time.Time) bool  { return now.Before(p.GhostUntil) }
func (p *Player) Magnetic(now time.Time) bool { return now.Before(p.MagnetUntil) }
func (p *Player) Turbo(now time.Time) bool    { return now.Before(p.TurboUntil) }

// applyBuff refreshes the expiry for kind. Buffs never stack.
func (p *Player) applyBuff(kind PowerKind, now time.Time, cfg Config) {
	switch kind {
	case PowerGhost:
		p.GhostUntil = now.Add(cfg.GhostDuration)
	case PowerMagnet:
		p.MagnetUntil = now.Add(cfg.MagnetDuration)
	case PowerTurbo:
		p.TurboUntil = now.Add(cfg.TurboDuration)
	}
}
