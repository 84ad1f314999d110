// Package geom provides the small amount of 3D math shared by the layout
// engines and the reveal engine.
//
// Vectors and boxes are [math32.Vector3] and [math32.Box3] from Cogent Core;
// this package only adds the clamped interpolation and polar helpers that the
// layouts use over and over. All functions are pure.
package geom

import (
	"cogentcore.org/core/math32"
)

// Vec3 is the vector type used throughout kinship.
type Vec3 = math32.Vector3

// Box3 is the axis-aligned bounding box type used throughout kinship.
type Box3 = math32.Box3

// TwoPi is 2π as float32.
const TwoPi = 2 * math32.Pi

// V constructs a Vec3.
func V(x, y, z float32) Vec3 { return math32.Vec3(x, y, z) }

// Clamp01 clamps x into [0, 1].
func Clamp01(x float32) float32 {
	return Clamp(x, 0, 1)
}

// Clamp clamps x into [lo, hi].
func Clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Lerp interpolates between a and b by t without clamping.
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// LerpClamped interpolates between a and b with t clamped into [0, 1].
func LerpClamped(a, b, t float32) float32 {
	return Lerp(a, b, Clamp01(t))
}

// LerpVec interpolates component-wise between a and b by t.
func LerpVec(a, b Vec3, t float32) Vec3 {
	return V(Lerp(a.X, b.X, t), Lerp(a.Y, b.Y, t), Lerp(a.Z, b.Z, t))
}

// Polar returns the point at angle theta on a horizontal circle of radius r,
// lifted to height y.
func Polar(r, theta, y float32) Vec3 {
	return V(r*math32.Cos(theta), y, r*math32.Sin(theta))
}

// Bounds returns the bounding box of points. The box of no points is empty.
func Bounds(points []Vec3) Box3 {
	b := math32.B3Empty()
	for _, p := range points {
		b.ExpandByPoint(p)
	}
	return b
}

// NearlyEqual reports whether a and b differ by at most eps.
func NearlyEqual(a, b, eps float32) bool {
	return math32.Abs(a-b) <= eps
}
