package world

import "math"

// Vec2 is a point or offset in world units.
type Vec2 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Clamp limits value to the range [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Wrap folds value into [0, size). Floating point remainders that land
// exactly on size fold to zero.
func Wrap(value, size float64) float64 {
	if size <= 0 {
		return 0
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	wrapped := math.Mod(value, size)
	if wrapped < 0 {
		wrapped += size
	}
	if wrapped >= size {
		wrapped = 0
	}
	return wrapped
}

// WrapDelta returns the shortest signed offset from a to b on an axis of
// length size.
func WrapDelta(a, b, size float64) float64 {
	d := b - a
	if size <= 0 {
		return d
	}
	half := size / 2
	if d > half {
		d -= size
	} else if d < -half {
		d += size
	}
	return d
}

// Dimensions reports the world bounds.
func Dimensions(cfg Config) (float64, float64) {
	w, h := cfg.Width, cfg.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}

// Delta is the shortest toroidal offset from a to b.
func (cfg Config) Delta(a, b Vec2) Vec2 {
	w, h := Dimensions(cfg)
	return Vec2{X: WrapDelta(a.X, b.X, w), Y: WrapDelta(a.Y, b.Y, h)}
}

// Dist2 is the squared toroidal distance between a and b.
func (cfg Config) Dist2(a, b Vec2) float64 {
	d := cfg.Delta(a, b)
	return d.X*d.X + d.Y*d.Y
}

// WrapPoint folds p into the world rectangle.
func (cfg Config) WrapPoint(p Vec2) Vec2 {
	w, h := Dimensions(cfg)
	return Vec2{X: Wrap(p.X, w), Y: Wrap(p.Y, h)}
}
