package world

import (
	"math"
	"time"
)

// massFactor slows long worms down linearly, floored at MinMassFactor.
func (cfg Config) massFactor(length int) float64 {
	extra := float64(length - cfg.InitialSegments)
	return Clamp(1-extra/cfg.MassSlowdownSpan, cfg.MinMassFactor, 1)
}

func (cfg Config) radiusFor(length int) float64 {
	extra := float64(length - cfg.InitialSegments)
	return Clamp(cfg.BaseRadius+extra*cfg.GrowthFactor, cfg.MinRadius, cfg.MaxRadius)
}

// Speed is the distance p covers this tick.
func (cfg Config) Speed(p *Player, now time.Time) float64 {
	speed := cfg.BaseSpeed * cfg.massFactor(len(p.Segments))
	if p.Turbo(now) {
		speed *= cfg.TurboMultiplier
	}
	if p.Boosting {
		speed *= cfg.BoostMultiplier
	}
	return speed
}

func (w *World) advancePlayers(now time.Time) {
	w.store.EachAlivePlayer(func(p *Player) bool {
		w.advance(p, now)
		return true
	})
}

// advance moves one worm a single step and regrows its radius. The radius
// is refreshed before pickups and collisions read it.
func (w *World) advance(p *Player, now time.Time) {
	cfg := w.config
	if math.IsNaN(p.Dir) || math.IsInf(p.Dir, 0) {
		p.Dir = 0
	}
	speed := cfg.Speed(p, now)
	head := cfg.WrapPoint(Vec2{
		X: p.X + math.Cos(p.Dir)*speed,
		Y: p.Y + math.Sin(p.Dir)*speed,
	})
	p.X, p.Y = head.X, head.Y
	p.Segments = prependSegment(p.Segments, head, p.TargetLength)
	p.Radius = cfg.radiusFor(len(p.Segments))
}

// prependSegment shifts the chain back by one, growing it while it is
// shorter than limit and dropping the tail otherwise.
func prependSegment(segments []Vec2, head Vec2, limit int) []Vec2 {
	if limit < 1 {
		limit = 1
	}
	if len(segments) < limit {
		segments = append(segments, Vec2{})
	} else if len(segments) > limit {
		segments = segments[:limit]
	}
	copy(segments[1:], segments[:len(segments)-1])
	segments[0] = head
	return segments
}
