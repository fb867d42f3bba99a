package world

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestWorld builds an empty arena: no bots, no food, no power-ups, fixed
// seed. mutate may adjust the config before construction.
func newTestWorld(t *testing.T, mutate func(*Config)) *World {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.BotCount = 0
	cfg.FoodTarget = 0
	cfg.PowerTarget = 0
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := New(cfg, Deps{})
	require.NoError(t, err)
	return w
}

// placeWorm spawns a human worm and lays it out in a straight line from
// head, trailing opposite to dir.
func placeWorm(w *World, name string, head Vec2, dir float64, length int) *Player {
	p := w.SpawnPlayer(SpawnOptions{Name: name, SessionID: "session-" + name}, testNow)
	cfg := w.Config()
	p.X, p.Y = head.X, head.Y
	p.Dir = dir
	p.Segments = make([]Vec2, length)
	for i := range p.Segments {
		back := float64(i) * cfg.SegmentSpacing
		p.Segments[i] = cfg.WrapPoint(Vec2{X: head.X - back*math.Cos(dir), Y: head.Y - back*math.Sin(dir)})
	}
	p.TargetLength = length
	p.Radius = cfg.radiusFor(length)
	return p
}

func addFood(w *World, pos Vec2, kind FoodKind, value int) *Food {
	f := &Food{ID: w.nextEntityID("f"), Pos: pos, Kind: kind, Value: value}
	w.store.AddFood(f)
	return f
}

func addPower(w *World, pos Vec2, kind PowerKind) *PowerUp {
	p := &PowerUp{ID: w.nextEntityID("p"), Pos: pos, Kind: kind}
	w.store.AddPower(p)
	return p
}
