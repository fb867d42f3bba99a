package world

import (
	"context"
	"math"
	"time"

	"kosmos-worm/server/logging"
	"kosmos-worm/server/logging/pickups"
)

// resolvePickups lets every live head eat food and take power-ups within
// reach. Magnetized heads also pull nearby food in. It returns the number
// of food items and power-ups consumed.
func (w *World) resolvePickups(now time.Time, dt time.Duration) (int, int) {
	eaten, taken := 0, 0
	w.store.EachAlivePlayer(func(p *Player) bool {
		eaten += w.eatFood(p, now, dt)
		taken += w.takePowers(p, now)
		return true
	})
	return eaten, taken
}

func (w *World) eatFood(p *Player, now time.Time, dt time.Duration) int {
	cfg := w.config
	head := p.Head()
	reach := p.Radius + cfg.FoodPickupMargin
	reach2 := reach * reach
	magnetic := p.Magnetic(now)
	magnet2 := cfg.MagnetRadius * cfg.MagnetRadius
	pull := cfg.MagnetPullSpeed * dt.Seconds()

	eaten := 0
	w.store.EachFood(func(f *Food) bool {
		d2 := cfg.Dist2(head, f.Pos)
		if d2 <= reach2 {
			w.store.RemoveFood(f.ID)
			p.TargetLength += cfg.GrowthPerFood
			p.Score += f.Value
			eaten++
			if f.Kind == FoodMeat {
				pickups.MeatEaten(context.Background(), w.publisher, w.tick,
					logging.PlayerRef(p.ID, p.IsBot),
					logging.EntityRef{ID: f.ID, Kind: logging.EntityKindFood},
					pickups.MeatEatenPayload{Value: f.Value, Score: p.Score})
			}
			return true
		}
		if magnetic && d2 < magnet2 {
			f.Pos = cfg.pullToward(f.Pos, head, math.Sqrt(d2), pull)
		}
		return true
	})
	return eaten
}

// pullToward moves from toward target by step along the shortest toroidal
// path, stopping at target instead of passing it.
func (cfg Config) pullToward(from, target Vec2, dist, step float64) Vec2 {
	if step <= 0 || dist <= 0 {
		return from
	}
	if step >= dist {
		return cfg.WrapPoint(target)
	}
	d := cfg.Delta(from, target)
	scale := step / dist
	return cfg.WrapPoint(Vec2{X: from.X + d.X*scale, Y: from.Y + d.Y*scale})
}

func (w *World) takePowers(p *Player, now time.Time) int {
	cfg := w.config
	head := p.Head()
	reach := p.Radius + cfg.PowerPickupMargin
	reach2 := reach * reach

	taken := 0
	w.store.EachPower(func(pw *PowerUp) bool {
		if cfg.Dist2(head, pw.Pos) > reach2 {
			return true
		}
		refreshed := p.buffActive(pw.Kind, now)
		p.applyBuff(pw.Kind, now, cfg)
		w.store.RemovePower(pw.ID)
		taken++
		pickups.PowerCollected(context.Background(), w.publisher, w.tick,
			logging.PlayerRef(p.ID, p.IsBot),
			logging.EntityRef{ID: pw.ID, Kind: logging.EntityKindPower},
			pickups.PowerCollectedPayload{
				Kind:          string(pw.Kind),
				DurationMilli: cfg.buffDuration(pw.Kind).Milliseconds(),
				Refreshed:     refreshed,
			}, nil)
		return true
	})
	return taken
}

func (p *Player) buffActive(kind PowerKind, now time.Time) bool {
	switch kind {
	case PowerGhost:
		return p.Ghosted(now)
	case PowerMagnet:
		return p.Magnetic(now)
	case PowerTurbo:
		return p.Turbo(now)
	}
	return false
}

func (cfg Config) buffDuration(kind PowerKind) time.Duration {
	switch kind {
	case PowerGhost:
		return cfg.GhostDuration
	case PowerMagnet:
		return cfg.MagnetDuration
	case PowerTurbo:
		return cfg.TurboDuration
	}
	return 0
}
