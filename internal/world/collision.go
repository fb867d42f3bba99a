package world

import (
	"context"
	"time"

	"kosmos-worm/server/logging"
	"kosmos-worm/server/logging/collision"
)

// DeathReasonCrash is the only cause of death in the arena.
const DeathReasonCrash = "crash"

// resolveCollisions kills every head that rammed another worm's body. The
// set of obstacles is fixed when the phase starts, so a worm killed earlier
// in the same pass still blocks heads evaluated after it.
func (w *World) resolveCollisions(now time.Time) []Death {
	cfg := w.config
	alive := make([]*Player, 0, w.store.PlayerCount())
	w.store.EachAlivePlayer(func(p *Player) bool {
		alive = append(alive, p)
		return true
	})

	var deaths []Death
	for _, a := range alive {
		if !a.Alive {
			continue
		}
		killer := w.findRammed(a, alive)
		if killer == nil {
			continue
		}
		if a.Ghosted(now) {
			collision.GhostPassed(context.Background(), w.publisher, w.tick,
				logging.PlayerRef(a.ID, a.IsBot), logging.PlayerRef(killer.ID, killer.IsBot))
			continue
		}
		deaths = append(deaths, w.kill(a, killer))
		if cfg.CollisionPolicy == CollisionFirstOnly {
			break
		}
	}
	return deaths
}

// findRammed returns the first other worm whose body a's head overlaps.
// The first HeadSkipSegments of each body are ignored so two heads touching
// do not count.
func (w *World) findRammed(a *Player, candidates []*Player) *Player {
	cfg := w.config
	head := a.Head()
	for _, b := range candidates {
		if b == a {
			continue
		}
		reach := a.Radius + b.Radius*cfg.BodyRadiusScale
		reach2 := reach * reach
		for i := cfg.HeadSkipSegments; i < len(b.Segments); i++ {
			if cfg.Dist2(head, b.Segments[i]) <= reach2 {
				return b
			}
		}
	}
	return nil
}

// kill marks p dead and scatters meat along every other segment.
func (w *World) kill(p, killer *Player) Death {
	cfg := w.config
	p.Alive = false
	p.Boosting = false

	dropped := 0
	for k := 0; k < len(p.Segments); k += cfg.MeatSampleStride {
		w.SpawnMeat(p.Segments[k], cfg.MeatValue)
		dropped++
	}

	death := Death{
		PlayerID:    p.ID,
		SessionID:   p.SessionID,
		Name:        p.Name,
		IsBot:       p.IsBot,
		Score:       p.Score,
		Reason:      DeathReasonCrash,
		MeatDropped: dropped,
	}
	var killerRef logging.EntityRef
	if killer != nil {
		death.KillerID = killer.ID
		killerRef = logging.PlayerRef(killer.ID, killer.IsBot)
	}

	head := p.Head()
	collision.PlayerKilled(context.Background(), w.publisher, w.tick,
		logging.PlayerRef(p.ID, p.IsBot), killerRef,
		collision.PlayerKilledPayload{
			Score:       p.Score,
			Reason:      DeathReasonCrash,
			Length:      len(p.Segments),
			MeatDropped: dropped,
			X:           head.X,
			Y:           head.Y,
		}, nil)
	return death
}
