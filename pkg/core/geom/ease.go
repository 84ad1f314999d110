package geom

import "cogentcore.org/core/math32"

// EaseOutCubic decelerates toward 1. Input is clamped into [0, 1].
func EaseOutCubic(t float32) float32 {
	t = Clamp01(t)
	u := 1 - t
	return 1 - u*u*u
}

// EaseInOutSine is a symmetric ease used for slow ambient motion.
func EaseInOutSine(t float32) float32 {
	t = Clamp01(t)
	return -(math32.Cos(math32.Pi*t) - 1) / 2
}

// Cycle maps t onto [0, 1] following a sine wave with the given period:
// (sin(2π·t/period)+1)/2. A non-positive period yields 0.5.
func Cycle(t, period float32) float32 {
	if period <= 0 {
		return 0.5
	}
	return (math32.Sin(TwoPi*t/period) + 1) / 2
}
