// Package telemetry observes the animation loop without touching layout
// state: a frame-rate sampler, a debounced camera tracker, and the preset
// applier for externally supplied camera positions.
package telemetry

import (
	"cogentcore.org/core/math32"

	"github.com/matzehuels/kinship/pkg/core/geom"
)

// Defaults.
const (
	DefaultFPSWindow       = 0.5
	DefaultCameraThreshold = 0.01
)

// FPSSampler averages frame rate over a sliding window and reports only when
// the rounded value changes.
type FPSSampler struct {
	// Window is the minimum accumulation time in seconds before a sample.
	Window float32
	// OnUpdate receives each new rounded rate.
	OnUpdate func(fps float32)

	frames  int
	elapsed float32
	last    float32
	emitted bool
}

// NewFPSSampler returns a sampler with the default window.
func NewFPSSampler(onUpdate func(float32)) *FPSSampler {
	return &FPSSampler{Window: DefaultFPSWindow, OnUpdate: onUpdate}
}

// Sample records one frame that took dt seconds. It returns the rounded rate
// and true when a new value was emitted.
func (s *FPSSampler) Sample(dt float32) (float32, bool) {
	if dt < 0 {
		return s.last, false
	}
	s.frames++
	s.elapsed += dt
	window := s.Window
	if window <= 0 {
		window = DefaultFPSWindow
	}
	// float32 sums of frame times land a hair short of the window.
	if s.elapsed < window-1e-5 {
		return s.last, false
	}

	fps := RoundTenth(float32(s.frames) / s.elapsed)
	s.frames, s.elapsed = 0, 0
	if s.emitted && fps == s.last {
		return fps, false
	}
	s.last, s.emitted = fps, true
	if s.OnUpdate != nil {
		s.OnUpdate(fps)
	}
	return fps, true
}

// Last returns the last emitted rate.
func (s *FPSSampler) Last() float32 { return s.last }

// RoundTenth rounds x to one decimal place.
func RoundTenth(x float32) float32 {
	return math32.Round(x*10) / 10
}

// CameraState is the observable camera pose.
type CameraState struct {
	Position geom.Vec3 `json:"position"`
	Target   geom.Vec3 `json:"target"`
}

// Differs reports whether any component of a and b differs by more than eps.
func (a CameraState) Differs(b CameraState, eps float32) bool {
	d := [...]float32{
		a.Position.X - b.Position.X, a.Position.Y - b.Position.Y, a.Position.Z - b.Position.Z,
		a.Target.X - b.Target.X, a.Target.Y - b.Target.Y, a.Target.Z - b.Target.Z,
	}
	for _, v := range d {
		if math32.Abs(v) > eps {
			return true
		}
	}
	return false
}

// CameraTracker emits camera states only when they move noticeably from the
// last emitted snapshot. The first observation always emits.
type CameraTracker struct {
	Threshold float32
	OnUpdate  func(CameraState)

	last    CameraState
	emitted bool
}

// NewCameraTracker returns a tracker with the default threshold.
func NewCameraTracker(onUpdate func(CameraState)) *CameraTracker {
	return &CameraTracker{Threshold: DefaultCameraThreshold, OnUpdate: onUpdate}
}

// Observe reports a camera state. It returns true when the state was emitted.
func (c *CameraTracker) Observe(s CameraState) bool {
	if c.emitted && !s.Differs(c.last, c.Threshold) {
		return false
	}
	c.last, c.emitted = s, true
	if c.OnUpdate != nil {
		c.OnUpdate(s)
	}
	return true
}

// Last returns the last emitted state and whether one exists.
func (c *CameraTracker) Last() (CameraState, bool) { return c.last, c.emitted }

// Controls is the camera control surface a preset is applied to.
type Controls interface {
	SetPosition(p geom.Vec3)
	SetTarget(t geom.Vec3)
	// Update forces the controls to recompute from the new pose.
	Update()
}

// Preset is an externally supplied camera pose.
type Preset = CameraState

// ApplyPreset moves the camera to p immediately and forces a control update.
// There is no interpolation.
func ApplyPreset(c Controls, p Preset) {
	c.SetPosition(p.Position)
	c.SetTarget(p.Target)
	c.Update()
}

// Camera is a minimal Controls implementation holding a pose, used by the
// live server and the CLI.
type Camera struct {
	State   CameraState
	Updates int
}

func (c *Camera) SetPosition(p geom.Vec3) { c.State.Position = p }
func (c *Camera) SetTarget(t geom.Vec3)   { c.State.Target = t }
func (c *Camera) Update()                 { c.Updates++ }
