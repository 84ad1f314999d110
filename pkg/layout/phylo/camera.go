package phylo

import (
	"cogentcore.org/core/math32"

	"github.com/matzehuels/kinship/pkg/core/geom"
)

// FrameOptions tunes camera auto-framing.
type FrameOptions struct {
	// Padding is added on every side of the box before fitting.
	Padding float32
	// Margin is added to the fitted distance.
	Margin float32
}

// DefaultFrameOptions returns the standard framing options.
func DefaultFrameOptions() FrameOptions {
	return FrameOptions{Padding: 4, Margin: 6}
}

// Default camera parameters.
const (
	DefaultFOV    = 50
	DefaultAspect = 16.0 / 9.0

	minDistanceFactor = 0.25
	maxDistanceFactor = 3.0
)

// Camera is the framing result: where the camera sits, what it looks at, its
// clip planes and the orbit-control distance limits.
type Camera struct {
	Position    geom.Vec3
	Target      geom.Vec3
	FOV         float32
	Distance    float32
	Near        float32
	Far         float32
	MinDistance float32
	MaxDistance float32
}

// Frame computes the minimal camera distance along +Z that fits box in a view
// with vertical field of view fovDeg (degrees) and viewport aspect ratio
// (width/height). The height fit is (h/2)/tan(vfov/2); the width fit uses the
// horizontal field of view implied by the aspect. The larger fit plus a fixed
// margin wins.
func Frame(box geom.Box3, fovDeg, aspect float32, opts FrameOptions) Camera {
	if fovDeg <= 0 || fovDeg >= 180 {
		fovDeg = DefaultFOV
	}
	if aspect <= 0 {
		aspect = DefaultAspect
	}
	if opts.Padding < 0 {
		opts.Padding = 0
	}

	var size, center geom.Vec3
	if !box.IsEmpty() {
		size = box.Size()
		center = box.Center()
	}
	w := size.X + 2*opts.Padding
	h := size.Y + 2*opts.Padding

	halfV := math32.DegToRad(fovDeg) / 2
	tanV := math32.Tan(halfV)
	distH := (h / 2) / tanV
	tanH := tanV * aspect // tan(hfov/2)
	distW := (w / 2) / tanH

	dist := max(distH, distW) + opts.Margin
	return Camera{
		Position:    center.Add(geom.V(0, 0, dist+size.Z/2)),
		Target:      center,
		FOV:         fovDeg,
		Distance:    dist,
		Near:        max(0.1, dist/100),
		Far:         dist*10 + size.Z,
		MinDistance: dist * minDistanceFactor,
		MaxDistance: dist * maxDistanceFactor,
	}
}

// HorizontalFOV returns the horizontal field of view in degrees implied by a
// vertical field of view and an aspect ratio.
func HorizontalFOV(fovDeg, aspect float32) float32 {
	half := math32.Atan(math32.Tan(math32.DegToRad(fovDeg)/2) * aspect)
	return 2 * half / math32.DegToRadFactor
}

// Motion is the whole-scene transform applied every frame in phylogeny mode.
type Motion struct {
	RotationY float32
	OffsetY   float32
}

// SceneMotion returns the slow rotation and bob at time t (seconds). Every
// node moves with the scene; there is no per-node progress.
func SceneMotion(t float32) Motion {
	return Motion{
		RotationY: 0.25 * math32.Sin(t*0.1),
		OffsetY:   0.15 * math32.Sin(t*0.6),
	}
}

// Apply rotates p about the Y axis and lifts it by the bob offset.
func (m Motion) Apply(p geom.Vec3) geom.Vec3 {
	c, s := math32.Cos(m.RotationY), math32.Sin(m.RotationY)
	return geom.V(p.X*c+p.Z*s, p.Y+m.OffsetY, -p.X*s+p.Z*c)
}
