package world

import (
	"math"
	"math/rand"
	"time"
)

// RNGFactory produces the random source a World draws from.
type RNGFactory func(seed int64) *rand.Rand

// NewRNG seeds a source from seed, or from the wall clock when seed is zero.
func NewRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func RandomFloat(rng *rand.Rand) float64 {
	if rng == nil {
		return rand.Float64()
	}
	return rng.Float64()
}

func RandomAngle(rng *rand.Rand) float64 {
	return RandomFloat(rng) * 2 * math.Pi
}

// RandomRange draws uniformly from [min, max).
func RandomRange(rng *rand.Rand, min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + RandomFloat(rng)*(max-min)
}

// RandomDuration draws uniformly from [min, max).
func RandomDuration(rng *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(RandomFloat(rng)*float64(max-min))
}

// RandomInset draws a point uniformly from the rectangle inset by margin on
// each side. A margin that swallows an axis collapses to its centre.
func RandomInset(rng *rand.Rand, cfg Config, margin float64) Vec2 {
	w, h := Dimensions(cfg)
	return Vec2{
		X: insetCoord(rng, w, margin),
		Y: insetCoord(rng, h, margin),
	}
}

func insetCoord(rng *rand.Rand, size, margin float64) float64 {
	if margin*2 >= size {
		return size / 2
	}
	return RandomRange(rng, margin, size-margin)
}

// RandomChoice picks one element of options uniformly.
func RandomChoice[T any](rng *rand.Rand, options []T) T {
	var zero T
	if len(options) == 0 {
		return zero
	}
	idx := int(RandomFloat(rng) * float64(len(options)))
	if idx >= len(options) {
		idx = len(options) - 1
	}
	return options[idx]
}
