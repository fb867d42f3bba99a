package world

import (
	"strings"
	"time"
)

// CollisionPolicy selects how many collisions the resolver settles per tick.
type CollisionPolicy string

const (
	// CollisionResolveAll kills every head that rammed a body this tick,
	// judged against the players alive when the phase started.
	CollisionResolveAll CollisionPolicy = "all"
	// CollisionFirstOnly stops after the first collision found; the rest
	// resolve on later ticks.
	CollisionFirstOnly CollisionPolicy = "first"
)

const (
	DefaultWidth       = 6000.0
	DefaultHeight      = 6000.0
	DefaultTickPeriod  = 33 * time.Millisecond
	DefaultName        = "Kosmos"
	DefaultFoodTarget  = 900
	DefaultPowerTarget = 20
	DefaultBotCount    = 14
)

// Config is the static world model. It is read-only once a World is built.
type Config struct {
	Width      float64       `json:"width" yaml:"width"`
	Height     float64       `json:"height" yaml:"height"`
	TickPeriod time.Duration `json:"tickPeriod" yaml:"tickPeriod"`
	MinDelta   time.Duration `json:"minDelta" yaml:"minDelta"`
	MaxDelta   time.Duration `json:"maxDelta" yaml:"maxDelta"`

	FoodTarget  int     `json:"foodTarget" yaml:"foodTarget"`
	PowerTarget int     `json:"powerTarget" yaml:"powerTarget"`
	BotCount    int     `json:"botCount" yaml:"botCount"`
	FoodMargin  float64 `json:"foodMargin" yaml:"foodMargin"`
	PowerMargin float64 `json:"powerMargin" yaml:"powerMargin"`
	SpawnMargin float64 `json:"spawnMargin" yaml:"spawnMargin"`

	InitialSegments  int     `json:"initialSegments" yaml:"initialSegments"`
	SegmentSpacing   float64 `json:"segmentSpacing" yaml:"segmentSpacing"`
	BaseSpeed        float64 `json:"baseSpeed" yaml:"baseSpeed"`
	BoostMultiplier  float64 `json:"boostMultiplier" yaml:"boostMultiplier"`
	TurboMultiplier  float64 `json:"turboMultiplier" yaml:"turboMultiplier"`
	MassSlowdownSpan float64 `json:"massSlowdownSpan" yaml:"massSlowdownSpan"`
	MinMassFactor    float64 `json:"minMassFactor" yaml:"minMassFactor"`

	BaseRadius    float64 `json:"baseRadius" yaml:"baseRadius"`
	MinRadius     float64 `json:"minRadius" yaml:"minRadius"`
	MaxRadius     float64 `json:"maxRadius" yaml:"maxRadius"`
	GrowthFactor  float64 `json:"growthFactor" yaml:"growthFactor"`
	GrowthPerFood int     `json:"growthPerFood" yaml:"growthPerFood"`

	FoodPickupMargin  float64 `json:"foodPickupMargin" yaml:"foodPickupMargin"`
	PowerPickupMargin float64 `json:"powerPickupMargin" yaml:"powerPickupMargin"`
	MagnetRadius      float64 `json:"magnetRadius" yaml:"magnetRadius"`
	MagnetPullSpeed   float64 `json:"magnetPullSpeed" yaml:"magnetPullSpeed"`

	GhostDuration  time.Duration `json:"ghostDuration" yaml:"ghostDuration"`
	MagnetDuration time.Duration `json:"magnetDuration" yaml:"magnetDuration"`
	TurboDuration  time.Duration `json:"turboDuration" yaml:"turboDuration"`

	BodyRadiusScale  float64         `json:"bodyRadiusScale" yaml:"bodyRadiusScale"`
	HeadSkipSegments int             `json:"headSkipSegments" yaml:"headSkipSegments"`
	CollisionPolicy  CollisionPolicy `json:"collisionPolicy" yaml:"collisionPolicy"`

	PelletValue      int `json:"pelletValue" yaml:"pelletValue"`
	MeatValue        int `json:"meatValue" yaml:"meatValue"`
	MeatSampleStride int `json:"meatSampleStride" yaml:"meatSampleStride"`

	BotDecisionMin       time.Duration `json:"botDecisionMin" yaml:"botDecisionMin"`
	BotDecisionMax       time.Duration `json:"botDecisionMax" yaml:"botDecisionMax"`
	BotBoostToggleChance float64       `json:"botBoostToggleChance" yaml:"botBoostToggleChance"`
	BotDrift             float64       `json:"botDrift" yaml:"botDrift"`

	NameMaxLength int    `json:"nameMaxLength" yaml:"nameMaxLength"`
	DefaultName   string `json:"defaultName" yaml:"defaultName"`

	SnapshotSegmentStride int `json:"snapshotSegmentStride" yaml:"snapshotSegmentStride"`
	SnapshotSegmentCap    int `json:"snapshotSegmentCap" yaml:"snapshotSegmentCap"`
	SnapshotFoodCap       int `json:"snapshotFoodCap" yaml:"snapshotFoodCap"`
	LeaderboardSize       int `json:"leaderboardSize" yaml:"leaderboardSize"`

	// Seed fixes the random source; zero seeds from the wall clock.
	Seed int64 `json:"seed" yaml:"seed"`
}

// DefaultConfig mirrors the tuning the game shipped with.
func DefaultConfig() Config {
	return Config{
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		TickPeriod: DefaultTickPeriod,
		MinDelta:   time.Millisecond,
		MaxDelta:   66 * time.Millisecond,

		FoodTarget:  DefaultFoodTarget,
		PowerTarget: DefaultPowerTarget,
		BotCount:    DefaultBotCount,
		FoodMargin:  40,
		PowerMargin: 80,
		SpawnMargin: 1000,

		InitialSegments:  26,
		SegmentSpacing:   8,
		BaseSpeed:        2.35,
		BoostMultiplier:  1.55,
		TurboMultiplier:  1.6,
		MassSlowdownSpan: 300,
		MinMassFactor:    0.6,

		BaseRadius:    7,
		MinRadius:     6,
		MaxRadius:     30,
		GrowthFactor:  0.12,
		GrowthPerFood: 3,

		FoodPickupMargin:  6,
		PowerPickupMargin: 12,
		MagnetRadius:      180,
		MagnetPullSpeed:   130,

		GhostDuration:  6 * time.Second,
		MagnetDuration: 8 * time.Second,
		TurboDuration:  6 * time.Second,

		BodyRadiusScale:  0.85,
		HeadSkipSegments: 2,
		CollisionPolicy:  CollisionResolveAll,

		PelletValue:      1,
		MeatValue:        2,
		MeatSampleStride: 2,

		BotDecisionMin:       1200 * time.Millisecond,
		BotDecisionMax:       2400 * time.Millisecond,
		BotBoostToggleChance: 0.2,
		BotDrift:             0.2,

		NameMaxLength: 16,
		DefaultName:   DefaultName,

		SnapshotSegmentStride: 2,
		SnapshotSegmentCap:    60,
		SnapshotFoodCap:       700,
		LeaderboardSize:       10,
	}
}

// Normalized replaces unusable values with defaults. Counts may be zero;
// geometry, speeds and durations may not.
func (cfg Config) Normalized() Config {
	return cfg.normalized()
}

func (cfg Config) normalized() Config {
	def := DefaultConfig()
	n := cfg

	positive := func(v *float64, fallback float64) {
		if *v <= 0 {
			*v = fallback
		}
	}
	positiveDuration := func(v *time.Duration, fallback time.Duration) {
		if *v <= 0 {
			*v = fallback
		}
	}
	nonNegative := func(v *int) {
		if *v < 0 {
			*v = 0
		}
	}
	atLeastOne := func(v *int, fallback int) {
		if *v < 1 {
			*v = fallback
		}
	}

	positive(&n.Width, def.Width)
	positive(&n.Height, def.Height)
	positiveDuration(&n.TickPeriod, def.TickPeriod)
	positiveDuration(&n.MinDelta, def.MinDelta)
	positiveDuration(&n.MaxDelta, def.MaxDelta)
	if n.MaxDelta < n.MinDelta {
		n.MaxDelta = n.MinDelta
	}

	nonNegative(&n.FoodTarget)
	nonNegative(&n.PowerTarget)
	nonNegative(&n.BotCount)
	if n.FoodMargin < 0 {
		n.FoodMargin = 0
	}
	if n.PowerMargin < 0 {
		n.PowerMargin = 0
	}
	if n.SpawnMargin < 0 {
		n.SpawnMargin = 0
	}

	atLeastOne(&n.InitialSegments, def.InitialSegments)
	positive(&n.SegmentSpacing, def.SegmentSpacing)
	positive(&n.BaseSpeed, def.BaseSpeed)
	positive(&n.BoostMultiplier, def.BoostMultiplier)
	positive(&n.TurboMultiplier, def.TurboMultiplier)
	positive(&n.MassSlowdownSpan, def.MassSlowdownSpan)
	positive(&n.MinMassFactor, def.MinMassFactor)
	if n.MinMassFactor > 1 {
		n.MinMassFactor = 1
	}

	positive(&n.BaseRadius, def.BaseRadius)
	positive(&n.MinRadius, def.MinRadius)
	positive(&n.MaxRadius, def.MaxRadius)
	if n.MaxRadius < n.MinRadius {
		n.MaxRadius = n.MinRadius
	}
	if n.GrowthFactor < 0 {
		n.GrowthFactor = def.GrowthFactor
	}
	nonNegative(&n.GrowthPerFood)

	if n.FoodPickupMargin < 0 {
		n.FoodPickupMargin = def.FoodPickupMargin
	}
	if n.PowerPickupMargin < 0 {
		n.PowerPickupMargin = def.PowerPickupMargin
	}
	positive(&n.MagnetRadius, def.MagnetRadius)
	positive(&n.MagnetPullSpeed, def.MagnetPullSpeed)

	positiveDuration(&n.GhostDuration, def.GhostDuration)
	positiveDuration(&n.MagnetDuration, def.MagnetDuration)
	positiveDuration(&n.TurboDuration, def.TurboDuration)

	positive(&n.BodyRadiusScale, def.BodyRadiusScale)
	nonNegative(&n.HeadSkipSegments)
	switch CollisionPolicy(strings.ToLower(strings.TrimSpace(string(n.CollisionPolicy)))) {
	case CollisionFirstOnly:
		n.CollisionPolicy = CollisionFirstOnly
	default:
		n.CollisionPolicy = CollisionResolveAll
	}

	atLeastOne(&n.PelletValue, def.PelletValue)
	atLeastOne(&n.MeatValue, def.MeatValue)
	atLeastOne(&n.MeatSampleStride, def.MeatSampleStride)

	positiveDuration(&n.BotDecisionMin, def.BotDecisionMin)
	positiveDuration(&n.BotDecisionMax, def.BotDecisionMax)
	if n.BotDecisionMax < n.BotDecisionMin {
		n.BotDecisionMax = n.BotDecisionMin
	}
	if n.BotBoostToggleChance < 0 {
		n.BotBoostToggleChance = 0
	}
	if n.BotBoostToggleChance > 1 {
		n.BotBoostToggleChance = 1
	}
	if n.BotDrift < 0 {
		n.BotDrift = -n.BotDrift
	}

	atLeastOne(&n.NameMaxLength, def.NameMaxLength)
	n.DefaultName = strings.TrimSpace(n.DefaultName)
	if n.DefaultName == "" {
		n.DefaultName = def.DefaultName
	}

	atLeastOne(&n.SnapshotSegmentStride, def.SnapshotSegmentStride)
	atLeastOne(&n.SnapshotSegmentCap, def.SnapshotSegmentCap)
	nonNegative(&n.SnapshotFoodCap)
	nonNegative(&n.LeaderboardSize)

	return n
}

// TickRate reports the nominal number of ticks per second.
func (cfg Config) TickRate() int {
	period := cfg.TickPeriod
	if period <= 0 {
		period = DefaultTickPeriod
	}
	rate := int(time.Second / period)
	if rate < 1 {
		rate = 1
	}
	return rate
}
