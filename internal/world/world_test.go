package world

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kosmos-worm/server/logging"
	"kosmos-worm/server/logging/collision"
	"kosmos-worm/server/logging/pickups"
)

func TestNewNormalizesConfig(t *testing.T) {
	w, err := New(Config{}, Deps{RNG: func(int64) *rand.Rand { return rand.New(rand.NewSource(1)) }})
	require.NoError(t, err)

	cfg := w.Config()
	assert.Equal(t, DefaultWidth, cfg.Width)
	assert.Equal(t, DefaultTickPeriod, cfg.TickPeriod)
	assert.Equal(t, CollisionResolveAll, cfg.CollisionPolicy)
	assert.Equal(t, DefaultName, cfg.DefaultName)
	assert.Equal(t, 0, cfg.BotCount, "explicit zero counts are kept")
	assert.Equal(t, 30, cfg.TickRate())
}

func TestNewRejectsNilRNG(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{RNG: func(int64) *rand.Rand { return nil }})
	assert.Error(t, err)
}

func TestNormalizedRepairsInvalidValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width = -5
	cfg.MaxDelta = time.Microsecond
	cfg.MaxRadius = 1
	cfg.BotDecisionMax = time.Millisecond
	cfg.CollisionPolicy = " FIRST "
	cfg.BotBoostToggleChance = 3

	n := cfg.Normalized()

	assert.Equal(t, DefaultWidth, n.Width)
	assert.Equal(t, n.MinDelta, n.MaxDelta)
	assert.Equal(t, n.MinRadius, n.MaxRadius)
	assert.Equal(t, n.BotDecisionMin, n.BotDecisionMax)
	assert.Equal(t, CollisionFirstOnly, n.CollisionPolicy)
	assert.Equal(t, 1.0, n.BotBoostToggleChance)
}

func TestJoinScenarioSpawnsFreshWorm(t *testing.T) {
	w := newTestWorld(t, nil)
	cfg := w.Config()

	p := w.SpawnPlayer(SpawnOptions{Name: cfg.SanitizeName("Nova", ""), Color: "#fff", SessionID: "s1"}, testNow)

	assert.True(t, strings.HasPrefix(p.ID, "u"))
	assert.Equal(t, "Nova", p.Name)
	assert.Equal(t, "#fff", p.Color)
	assert.Equal(t, "s1", p.SessionID)
	assert.Equal(t, 0, p.Score)
	assert.True(t, p.Alive)
	assert.False(t, p.IsBot)
	assert.Len(t, p.Segments, cfg.InitialSegments)
	assert.Equal(t, cfg.InitialSegments, p.TargetLength)
	assert.Equal(t, cfg.BaseRadius, p.Radius)
	assert.GreaterOrEqual(t, p.X, cfg.SpawnMargin)
	assert.LessOrEqual(t, p.X, cfg.Width-cfg.SpawnMargin)

	for i := 1; i < len(p.Segments); i++ {
		gap := math.Sqrt(cfg.Dist2(p.Segments[i-1], p.Segments[i]))
		assert.InDelta(t, cfg.SegmentSpacing, gap, 1e-6)
	}
}

func TestSpawnPicksPaletteColor(t *testing.T) {
	w := newTestWorld(t, nil)
	p := w.SpawnPlayer(SpawnOptions{}, testNow)

	assert.Contains(t, Palette, p.Color)
	assert.Equal(t, DefaultName, p.Name)
}

func TestEntityIDsShareOneCounter(t *testing.T) {
	w := newTestWorld(t, func(cfg *Config) {
		cfg.FoodTarget = 1
		cfg.PowerTarget = 1
	})
	w.EnsureFoodPopulation()
	w.EnsurePowerupPopulation()
	p := w.SpawnPlayer(SpawnOptions{}, testNow)

	assert.Equal(t, "u3", p.ID)
	_, ok := w.store.Food("f1")
	assert.True(t, ok)
	_, ok = w.store.Power("p2")
	assert.True(t, ok)
}

func TestSanitizeName(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		name     string
		raw      string
		previous string
		want     string
	}{
		{name: "plain", raw: "Nova", want: "Nova"},
		{name: "trimmed", raw: "  Nova  ", want: "Nova"},
		{name: "empty falls back to default", raw: "", want: DefaultName},
		{name: "empty keeps previous", raw: " ", previous: "Old", want: "Old"},
		{name: "capped by runes", raw: "Андромеда-Туманность-Большая", want: "Андромеда-Туманн"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cfg.SanitizeName(tc.raw, tc.previous))
		})
	}
}

func TestApplyInput(t *testing.T) {
	w := newTestWorld(t, nil)
	p := placeWorm(w, "pilot", Vec2{X: 100, Y: 100}, 0.25, 26)
	later := testNow.Add(time.Second)

	ok := w.ApplyInput(p.ID, Input{Dir: 1.5, HasDir: true, Boosting: true, View: &Vec2{X: 7, Y: 8}}, later)
	require.True(t, ok)
	assert.Equal(t, 1.5, p.Dir)
	assert.True(t, p.Boosting)
	assert.Equal(t, Vec2{X: 7, Y: 8}, p.View)
	assert.Equal(t, later, p.LastInput)

	w.ApplyInput(p.ID, Input{Dir: math.NaN(), HasDir: true}, later)
	assert.Equal(t, 1.5, p.Dir, "non-finite heading keeps previous")
	assert.False(t, p.Boosting)
	assert.Equal(t, Vec2{X: 7, Y: 8}, p.View, "missing view keeps previous")

	p.Alive = false
	assert.False(t, w.ApplyInput(p.ID, Input{Dir: 2, HasDir: true}, later))
	assert.False(t, w.ApplyInput("u999", Input{}, later))
}

func TestStepRunsPhasesInOrder(t *testing.T) {
	w := newTestWorld(t, func(cfg *Config) { cfg.FoodTarget = 10 })
	cfg := w.Config()
	victim, _ := ramScenario(w, Vec2{X: 1000, Y: 1000}, "")
	victim.Dir = 0
	// Park food where the victim's head will land after moving.
	addFood(w, Vec2{X: victim.X + cfg.BaseSpeed, Y: victim.Y}, FoodPellet, 1)

	result := w.Step(testNow, 33*time.Millisecond)

	assert.Equal(t, uint64(1), result.Tick)
	assert.Equal(t, 1, result.FoodEaten)
	require.Len(t, result.Deaths, 1)
	assert.Equal(t, victim.ID, result.Deaths[0].PlayerID)
	assert.Equal(t, 1, result.Deaths[0].Score, "death reports the score after this tick's pickups")
	assert.GreaterOrEqual(t, w.store.FoodCount(), cfg.FoodTarget)
	assert.Empty(t, result.Panics)
}

func TestRunPhaseRecoversPanics(t *testing.T) {
	w := newTestWorld(t, nil)
	var result StepResult

	require.NotPanics(t, func() {
		w.runPhase(&result, PhaseMovement, func() { panic("kaboom") })
		w.runPhase(&result, PhaseSpawner, func() {})
	})

	require.Len(t, result.Panics, 1)
	assert.Equal(t, PhaseMovement, result.Panics[0].Phase)
	assert.Equal(t, "kaboom", result.Panics[0].Value)
}

type recordingPublisher struct {
	events []logging.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event logging.Event) {
	p.events = append(p.events, event)
}

func TestWorldPublishesGameplayEvents(t *testing.T) {
	pub := &recordingPublisher{}
	cfg := DefaultConfig()
	cfg.Seed = 7
	cfg.BotCount, cfg.FoodTarget, cfg.PowerTarget = 0, 0, 0
	w, err := New(cfg, Deps{Publisher: pub})
	require.NoError(t, err)

	victim, _ := ramScenario(w, Vec2{X: 1000, Y: 1000}, "")
	addPower(w, victim.Head(), PowerTurbo)
	addFood(w, victim.Head(), FoodMeat, 2)

	w.resolvePickups(testNow, 33*time.Millisecond)
	w.resolveCollisions(testNow)

	var types []logging.EventType
	for _, event := range pub.events {
		types = append(types, event.Type)
	}
	assert.Equal(t, []logging.EventType{pickups.EventMeatEaten, pickups.EventPowerCollected, collision.EventPlayerKilled}, types)
	killed := pub.events[2]
	assert.Equal(t, victim.ID, killed.Actor.ID)
	assert.Equal(t, logging.EntityKindPlayer, killed.Actor.Kind)
	require.Len(t, killed.Targets, 1)
}
