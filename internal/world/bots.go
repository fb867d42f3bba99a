package world

import (
	"math"
	"time"
)

// driveBots steers every live bot. Decisions are redrawn on a jittered
// interval; between decisions the bot keeps homing on its target food.
func (w *World) driveBots(now time.Time) {
	cfg := w.config
	w.store.EachAlivePlayer(func(p *Player) bool {
		if !p.IsBot {
			return true
		}
		if p.Brain == nil {
			p.Brain = &BotBrain{}
		}
		brain := p.Brain

		if !now.Before(brain.NextDecision) {
			brain.NextDecision = now.Add(RandomDuration(w.rng, cfg.BotDecisionMin, cfg.BotDecisionMax))
			brain.TargetFood = w.nearestFood(p.Head())
			if RandomFloat(w.rng) < cfg.BotBoostToggleChance {
				p.Boosting = !p.Boosting
			}
		}

		if target, ok := w.store.Food(brain.TargetFood); ok && brain.TargetFood != "" {
			d := cfg.Delta(p.Head(), target.Pos)
			if d.X != 0 || d.Y != 0 {
				p.Dir = math.Atan2(d.Y, d.X)
			}
		} else {
			brain.TargetFood = ""
			p.Dir += RandomRange(w.rng, -cfg.BotDrift, cfg.BotDrift)
		}
		return true
	})
}

// nearestFood returns the id of the closest food to from. Ties keep the
// earliest inserted item.
func (w *World) nearestFood(from Vec2) string {
	best := math.Inf(1)
	nearest := ""
	w.store.EachFood(func(f *Food) bool {
		if d := w.config.Dist2(from, f.Pos); d < best {
			best = d
			nearest = f.ID
		}
		return true
	})
	return nearest
}
