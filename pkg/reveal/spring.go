package reveal

import "cogentcore.org/core/math32"

// Spring defaults.
const (
	DefaultStiffness = 170
	DefaultDamping   = 26
	DefaultMass      = 1

	// substep is the fixed integration step in seconds.
	substep = float32(1.0 / 240)

	settleDistance = 1e-3
	settleVelocity = 1e-2
)

// Spring is a damped spring driving a scalar toward Target.
type Spring struct {
	Value    float32
	Velocity float32
	Target   float32

	Stiffness float32
	Damping   float32
	Mass      float32
}

// NewSpring returns a spring at rest at 0 with the default constants.
func NewSpring() Spring {
	return Spring{Stiffness: DefaultStiffness, Damping: DefaultDamping, Mass: DefaultMass}
}

// Step advances the spring by dt seconds using fixed semi-implicit Euler
// sub-steps, so the result does not depend on how dt is chopped up by the
// caller's frame rate beyond the sub-step size.
func (s *Spring) Step(dt float32) {
	if dt <= 0 {
		return
	}
	mass := s.Mass
	if mass <= 0 {
		mass = DefaultMass
	}
	n := int(math32.Ceil(dt / substep))
	h := dt / float32(n)
	for range n {
		accel := (-s.Stiffness*(s.Value-s.Target) - s.Damping*s.Velocity) / mass
		s.Velocity += accel * h
		s.Value += s.Velocity * h
	}
}

// Settled reports whether the spring has come to rest at its target.
func (s Spring) Settled() bool {
	return math32.Abs(s.Value-s.Target) < settleDistance && math32.Abs(s.Velocity) < settleVelocity
}

// Reset puts the spring back at rest at 0 with target 0.
func (s *Spring) Reset() {
	s.Value, s.Velocity, s.Target = 0, 0, 0
}
