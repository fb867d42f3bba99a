package world

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoodWithinReachIsConsumed(t *testing.T) {
	w := newTestWorld(t, nil)
	cfg := w.Config()
	p := placeWorm(w, "eater", Vec2{X: 3000, Y: 3000}, 0, cfg.InitialSegments)

	near := addFood(w, Vec2{X: 3000 + p.Radius + cfg.FoodPickupMargin, Y: 3000}, FoodPellet, 1)
	meat := addFood(w, Vec2{X: 2995, Y: 3000}, FoodMeat, 2)
	far := addFood(w, Vec2{X: 3100, Y: 3000}, FoodPellet, 1)

	eaten, taken := w.resolvePickups(testNow, 33*time.Millisecond)

	assert.Equal(t, 2, eaten)
	assert.Equal(t, 0, taken)
	assert.Equal(t, 3, p.Score)
	assert.Equal(t, cfg.InitialSegments+2*cfg.GrowthPerFood, p.TargetLength)
	_, ok := w.store.Food(near.ID)
	assert.False(t, ok)
	_, ok = w.store.Food(meat.ID)
	assert.False(t, ok)
	_, ok = w.store.Food(far.ID)
	assert.True(t, ok)
}

func TestFoodAcrossSeamIsConsumed(t *testing.T) {
	w := newTestWorld(t, nil)
	cfg := w.Config()
	p := placeWorm(w, "seam", Vec2{X: 2, Y: 3000}, math.Pi, cfg.InitialSegments)
	addFood(w, Vec2{X: cfg.Width - 3, Y: 3000}, FoodPellet, 1)

	eaten, _ := w.resolvePickups(testNow, 33*time.Millisecond)

	assert.Equal(t, 1, eaten)
	assert.Equal(t, 1, p.Score)
}

func TestMagnetPullsFoodWithoutOvershoot(t *testing.T) {
	w := newTestWorld(t, nil)
	cfg := w.Config()
	p := placeWorm(w, "magnet", Vec2{X: 3000, Y: 3000}, 0, cfg.InitialSegments)
	p.MagnetUntil = testNow.Add(cfg.MagnetDuration)

	f := addFood(w, Vec2{X: 3100, Y: 3000}, FoodPellet, 1)
	outside := addFood(w, Vec2{X: 3000, Y: 3000 + cfg.MagnetRadius + 5}, FoodPellet, 1)

	dt := 33 * time.Millisecond
	w.resolvePickups(testNow, dt)

	want := 100 - cfg.MagnetPullSpeed*dt.Seconds()
	assert.InDelta(t, 3000+want, f.Pos.X, 1e-9)
	assert.InDelta(t, 3000.0, f.Pos.Y, 1e-9)
	assert.InDelta(t, 3000+cfg.MagnetRadius+5, outside.Pos.Y, 1e-9, "food outside the radius stays put")
	assert.Equal(t, 0, p.Score)
}

func TestMagnetNeverPassesTheHead(t *testing.T) {
	w := newTestWorld(t, func(cfg *Config) { cfg.MagnetPullSpeed = 1e6 })
	cfg := w.Config()
	p := placeWorm(w, "magnet", Vec2{X: 3000, Y: 3000}, 0, cfg.InitialSegments)
	p.MagnetUntil = testNow.Add(time.Second)
	f := addFood(w, Vec2{X: 3000, Y: 3150}, FoodPellet, 1)

	eaten, _ := w.resolvePickups(testNow, 66*time.Millisecond)
	require.Equal(t, 0, eaten, "pull happens after the reach check")
	assert.InDelta(t, 3000.0, f.Pos.X, 1e-9)
	assert.InDelta(t, 3000.0, f.Pos.Y, 1e-9)

	eaten, _ = w.resolvePickups(testNow, 66*time.Millisecond)
	assert.Equal(t, 1, eaten)
}

func TestExpiredMagnetDoesNotPull(t *testing.T) {
	w := newTestWorld(t, nil)
	cfg := w.Config()
	p := placeWorm(w, "magnet", Vec2{X: 3000, Y: 3000}, 0, cfg.InitialSegments)
	p.MagnetUntil = testNow
	f := addFood(w, Vec2{X: 3100, Y: 3000}, FoodPellet, 1)

	w.resolvePickups(testNow, 33*time.Millisecond)

	assert.Equal(t, 3100.0, f.Pos.X)
}

func TestPowerUpRefreshesInsteadOfStacking(t *testing.T) {
	w := newTestWorld(t, nil)
	cfg := w.Config()
	p := placeWorm(w, "buffed", Vec2{X: 3000, Y: 3000}, 0, cfg.InitialSegments)

	addPower(w, Vec2{X: 3000 + p.Radius + cfg.PowerPickupMargin, Y: 3000}, PowerGhost)
	_, taken := w.resolvePickups(testNow, 33*time.Millisecond)
	require.Equal(t, 1, taken)
	assert.Equal(t, testNow.Add(cfg.GhostDuration), p.GhostUntil)

	later := testNow.Add(2 * time.Second)
	addPower(w, Vec2{X: 3001, Y: 3000}, PowerGhost)
	_, taken = w.resolvePickups(later, 33*time.Millisecond)
	require.Equal(t, 1, taken)
	assert.Equal(t, later.Add(cfg.GhostDuration), p.GhostUntil)
	assert.Equal(t, 0, w.store.PowerCount())
}

func TestEachPowerKindSetsItsBuff(t *testing.T) {
	w := newTestWorld(t, nil)
	cfg := w.Config()
	p := placeWorm(w, "buffed", Vec2{X: 3000, Y: 3000}, 0, cfg.InitialSegments)

	for _, kind := range PowerKinds {
		addPower(w, Vec2{X: 3000, Y: 3000}, kind)
	}
	w.resolvePickups(testNow, 33*time.Millisecond)

	assert.True(t, p.Ghosted(testNow))
	assert.True(t, p.Magnetic(testNow))
	assert.True(t, p.Turbo(testNow))
	assert.Equal(t, testNow.Add(cfg.MagnetDuration), p.MagnetUntil)
	assert.Equal(t, testNow.Add(cfg.TurboDuration), p.TurboUntil)
}
