package reveal

import (
	"testing"
	"time"

	"github.com/matzehuels/kinship/pkg/observability"
)

const frame = float32(1.0 / 60)

func threeStages() []Stage {
	return []Stage{{Kind: StageCenter}, {Kind: StageParents}, {Kind: StageChildren}}
}

func TestSpringSettles(t *testing.T) {
	s := NewSpring()
	s.Target = 1
	for range 120 {
		s.Step(frame)
	}
	if !s.Settled() {
		t.Errorf("spring not settled after 2s: value=%v velocity=%v", s.Value, s.Velocity)
	}
	if s.Value > 1.05 {
		t.Errorf("spring overshoots to %v", s.Value)
	}

	s.Reset()
	if s.Value != 0 || s.Velocity != 0 || s.Target != 0 {
		t.Errorf("Reset left %+v", s)
	}
}

func TestSpringStepIsFrameRateIndependent(t *testing.T) {
	a, b := NewSpring(), NewSpring()
	a.Target, b.Target = 1, 1
	for range 60 {
		a.Step(frame)
	}
	for range 240 {
		b.Step(1.0 / 240)
	}
	if d := a.Value - b.Value; d > 1e-3 || d < -1e-3 {
		t.Errorf("60Hz=%v 240Hz=%v", a.Value, b.Value)
	}
}

func TestSequenceCenterDelay(t *testing.T) {
	s := NewSequence()
	s.Start("A", threeStages())
	for range 9 { // 150ms
		s.Tick(frame)
	}
	if s.Target(0) != 0 {
		t.Fatal("center started before its delay")
	}
	s.Tick(frame) // 166ms
	if s.Target(0) != 1 {
		t.Fatal("center did not start after its delay")
	}
	if s.Target(1) != 0 {
		t.Fatal("parents started together with the center")
	}
}

func TestSequenceRunsStagesInOrder(t *testing.T) {
	s := NewSequence()
	stages := threeStages()
	s.Start("A", stages)

	started := make([]float32, len(stages))
	var now float32
	for !s.Done() && now < 10 {
		before := s.Fired()
		s.Tick(frame)
		now += frame
		if s.Fired() != before {
			i := s.Fired() - 1
			started[i] = now
			if i > 0 && s.Progress(i-1) < 0.99 {
				t.Errorf("stage %d started before stage %d settled (%v)", i, i-1, s.Progress(i-1))
			}
		}
	}
	if !s.Done() {
		t.Fatal("sequence did not finish within 10s")
	}
	for i := 1; i < len(started); i++ {
		if gap := started[i] - started[i-1]; gap < float32(RingDelay.Seconds()) {
			t.Errorf("stage %d started %vs after stage %d, want at least %v", i, gap, i-1, RingDelay)
		}
	}
	for i := range stages {
		if p := s.Progress(i); p < 0.99 {
			t.Errorf("stage %d progress = %v after completion", i, p)
		}
	}
}

func TestSequenceNewIdentityCancelsAndRestarts(t *testing.T) {
	s := NewSequence()
	s.Start("A", threeStages())
	for range 30 {
		s.Tick(frame)
	}
	if s.Progress(0) == 0 {
		t.Fatal("A should have made progress")
	}
	genA := s.Generation()

	if !s.Start("B", threeStages()) {
		t.Fatal("Start with a new identity should restart")
	}
	if s.Generation() <= genA {
		t.Errorf("generation %d not advanced past %d", s.Generation(), genA)
	}
	for i := range 3 {
		if s.Progress(i) != 0 || s.Target(i) != 0 {
			t.Errorf("stage %d not reset: progress=%v target=%v", i, s.Progress(i), s.Target(i))
		}
	}

	// B's center must wait its own full delay.
	for range 9 {
		s.Tick(frame)
	}
	if s.Target(0) != 0 {
		t.Error("B's center started early")
	}
	if s.Identity() != "B" {
		t.Errorf("identity = %q, want B", s.Identity())
	}
}

func TestSequenceDiscardsStaleActions(t *testing.T) {
	s := NewSequence()
	s.Start("A", threeStages())
	s.Tick(0.1)
	// A's center action is due in 60ms. B replaces it with one due in 160ms.
	s.Start("B", threeStages())
	s.Tick(0.1)
	if s.Target(0) != 0 {
		t.Error("a stale action from A fired into B")
	}
	s.Tick(0.07)
	if s.Target(0) != 1 {
		t.Error("B's own center action did not fire")
	}
}

func TestSequenceSameIdentityKeepsRunning(t *testing.T) {
	s := NewSequence()
	s.Start("A", threeStages())
	for range 30 {
		s.Tick(frame)
	}
	gen, p := s.Generation(), s.Progress(0)
	if s.Start("A", threeStages()) {
		t.Error("Start with the same identity should be a no-op")
	}
	if s.Generation() != gen || s.Progress(0) != p {
		t.Error("same-identity Start disturbed the running sequence")
	}
}

func TestSequenceStop(t *testing.T) {
	s := NewSequence()
	s.Start("A", threeStages())
	s.Tick(0.5)
	gen := s.Generation()
	s.Stop()
	if s.Identity() != "" || s.Progress(0) != 0 || s.Generation() == gen {
		t.Errorf("Stop left identity=%q progress=%v gen=%d", s.Identity(), s.Progress(0), s.Generation())
	}
	s.Tick(1)
	if s.Fired() != 0 {
		t.Error("stopped sequence kept firing")
	}
}

func TestDelayBefore(t *testing.T) {
	stages := []Stage{
		{Kind: StageCenter},
		{Kind: StageParents},
		{Kind: StageAncestors, Level: 1},
		{Kind: StageAncestors, Level: 2},
	}
	want := []time.Duration{CenterDelay, RingDelay, RingDelay, AncestorDelay}
	for i, w := range want {
		if got := delayBefore(stages, i); got != w {
			t.Errorf("delayBefore(%d) = %v, want %v", i, got, w)
		}
	}
}

type recordingHooks struct {
	observability.NoopRevealHooks
	starts, stages, cancels, completes int
}

func (h *recordingHooks) OnSequenceStart(string, uint64, int)              { h.starts++ }
func (h *recordingHooks) OnStageStart(string, uint64, string)              { h.stages++ }
func (h *recordingHooks) OnSequenceCancel(string, uint64)                  { h.cancels++ }
func (h *recordingHooks) OnSequenceComplete(string, uint64, time.Duration) { h.completes++ }

func TestSequenceHooks(t *testing.T) {
	h := &recordingHooks{}
	observability.SetRevealHooks(h)
	defer observability.Reset()

	s := NewSequence()
	s.Start("A", threeStages())
	s.Tick(0.2)
	s.Start("B", threeStages())
	for range 600 {
		s.Tick(frame)
	}
	if h.starts != 2 || h.cancels != 1 || h.completes != 1 {
		t.Errorf("hooks = %+v", h)
	}
	if h.stages != 4 { // A's center, then B's three stages
		t.Errorf("stage events = %d, want 4", h.stages)
	}
}
