package telemetry

import (
	"testing"

	"github.com/matzehuels/kinship/pkg/core/geom"
)

func TestFPSSamplerEmitsOnChangeOnly(t *testing.T) {
	var got []float32
	s := NewFPSSampler(func(fps float32) { got = append(got, fps) })

	// Two seconds at 64Hz, then one second at 32Hz. The frame times are
	// exact in float32 so the windows line up.
	for range 128 {
		s.Sample(1.0 / 64)
	}
	for range 32 {
		s.Sample(1.0 / 32)
	}

	if len(got) != 2 {
		t.Fatalf("emitted %v, want exactly two values", got)
	}
	if got[0] != 64 || got[1] != 32 {
		t.Errorf("emitted %v, want [64 32]", got)
	}
}

func TestFPSSamplerThirtyFramesInHalfSecond(t *testing.T) {
	var got []float32
	s := NewFPSSampler(func(fps float32) { got = append(got, fps) })

	dt := float32(0.5) / 30
	for i := range 30 {
		_, ok := s.Sample(dt)
		if ok != (i == 29) {
			t.Fatalf("frame %d: emitted=%v", i+1, ok)
		}
	}
	if len(got) != 1 || got[0] != 60 {
		t.Fatalf("emitted %v, want [60]", got)
	}

	for range 30 {
		s.Sample(dt)
	}
	if len(got) != 1 {
		t.Errorf("identical window re-emitted: %v", got)
	}
	if s.Last() != 60 {
		t.Errorf("Last() = %v, want 60", s.Last())
	}
}

func TestFPSSamplerWindow(t *testing.T) {
	s := NewFPSSampler(nil)
	for range 29 {
		if _, ok := s.Sample(1.0 / 60); ok {
			t.Fatal("emitted before the window filled")
		}
	}
	for range 10 {
		if _, ok := s.Sample(1.0 / 60); ok {
			return
		}
	}
	t.Error("never emitted after the window filled")
}

func TestRoundTenth(t *testing.T) {
	tests := map[float32]float32{
		59.94: 59.9,
		59.96: 60,
		0:     0,
		12.25: 12.3,
	}
	for in, want := range tests {
		if got := RoundTenth(in); !geom.NearlyEqual(got, want, 1e-4) {
			t.Errorf("RoundTenth(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestCameraTrackerDebounce(t *testing.T) {
	var emitted int
	c := NewCameraTracker(func(CameraState) { emitted++ })
	base := CameraState{Position: geom.V(0, 0, 10), Target: geom.V(0, 0, 0)}

	if !c.Observe(base) {
		t.Fatal("first observation must emit")
	}

	small := base
	small.Position.X += 0.005
	small.Target.Y -= 0.009
	if c.Observe(small) {
		t.Error("changes of at most 0.01 must not emit")
	}

	// Drift is measured from the last emitted state, not the last observed.
	drift := base
	drift.Position.X += 0.02
	if !c.Observe(drift) {
		t.Error("a component change above 0.01 must emit")
	}

	moved := drift
	moved.Target.Z += 0.5
	if !c.Observe(moved) {
		t.Error("target change must emit")
	}
	if emitted != 3 {
		t.Errorf("emitted %d times, want 3", emitted)
	}
	if last, ok := c.Last(); !ok || last != moved {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}

func TestApplyPreset(t *testing.T) {
	cam := &Camera{}
	p := Preset{Position: geom.V(1, 2, 3), Target: geom.V(4, 5, 6)}
	ApplyPreset(cam, p)
	if cam.State != p {
		t.Errorf("state = %+v, want %+v", cam.State, p)
	}
	if cam.Updates != 1 {
		t.Errorf("updates = %d, want 1", cam.Updates)
	}
}
