package reveal

import (
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/kinship/pkg/core/geom"
	"github.com/matzehuels/kinship/pkg/core/seed"
	"github.com/matzehuels/kinship/pkg/layout/ring"
	"github.com/matzehuels/kinship/pkg/observability"
)

// StageKind identifies a step of the ring reveal.
type StageKind uint8

const (
	StageCenter StageKind = iota
	StageParents
	StageSiblings
	StageChildren
	StageAncestors
)

// Stage is one step of a reveal sequence. Level is the ancestor ring level
// for StageAncestors and 0 otherwise.
type Stage struct {
	Kind  StageKind
	Level int
}

func (s Stage) String() string {
	switch s.Kind {
	case StageCenter:
		return "center"
	case StageParents:
		return "parents"
	case StageSiblings:
		return "siblings"
	case StageChildren:
		return "children"
	default:
		return "ancestors-" + strconv.Itoa(s.Level)
	}
}

// Stage delays.
const (
	CenterDelay   = 160 * time.Millisecond
	RingDelay     = 220 * time.Millisecond
	AncestorDelay = 240 * time.Millisecond
)

// StagesFor returns the stage list for a cluster: the center, then one stage
// per populated ring in ring order. Empty rings never appear in a cluster, so
// they are skipped automatically.
func StagesFor(c ring.Cluster) []Stage {
	stages := make([]Stage, 0, len(c.Rings)+1)
	stages = append(stages, Stage{Kind: StageCenter})
	for _, r := range c.Rings {
		switch r.Class {
		case ring.ClassParents:
			stages = append(stages, Stage{Kind: StageParents})
		case ring.ClassSiblings:
			stages = append(stages, Stage{Kind: StageSiblings})
		case ring.ClassChildren:
			stages = append(stages, Stage{Kind: StageChildren})
		default:
			stages = append(stages, Stage{Kind: StageAncestors, Level: r.Level})
		}
	}
	return stages
}

// ClusterIdentity returns the sequence identity of c: its ID plus a hash of
// the anchor, the center and every ring's class, level and members. Two
// clusters share an identity only if they reveal the same thing from the
// same place.
func ClusterIdentity(c ring.Cluster) string {
	var b strings.Builder
	for _, f := range []float32{c.Anchor.X, c.Anchor.Y, c.Anchor.Z} {
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
		b.WriteByte(',')
	}
	b.WriteString(c.Center)
	for _, r := range c.Rings {
		b.WriteByte('|')
		b.WriteString(r.Class.String())
		b.WriteString(strconv.Itoa(r.Level))
		for _, n := range r.Nodes {
			b.WriteByte(':')
			b.WriteString(n.Name)
		}
	}
	return c.ID + "#" + strconv.FormatUint(seed.Hash(b.String(), "cluster"), 36)
}

// delayBefore returns the wait before stage i starts.
func delayBefore(stages []Stage, i int) time.Duration {
	switch {
	case i == 0:
		return CenterDelay
	case stages[i].Kind == StageAncestors && stages[i-1].Kind == StageAncestors:
		return AncestorDelay
	default:
		return RingDelay
	}
}

// action is a scheduled stage start. It only fires while gen matches the
// sequence's current generation.
type action struct {
	gen       uint64
	stage     int
	remaining float32
}

// Sequence runs a staged reveal: stage i's spring target rises to 1 only
// after stage i-1 has settled and the stage delay has elapsed.
//
// Every scheduled action carries the generation it was created under. Start
// with a new identity and Stop both bump the generation, so anything still
// pending from an older sequence is discarded instead of firing.
type Sequence struct {
	identity string
	gen      uint64
	stages   []Stage
	springs  []Spring
	pending  []action
	fired    int
	elapsed  float32
	done     bool
}

// NewSequence returns an idle sequence.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Start begins a sequence for identity. Starting the identity that is already
// loaded is a no-op and returns false; any other identity cancels the running
// sequence, resets every stage to 0 and schedules the first stage.
func (s *Sequence) Start(identity string, stages []Stage) bool {
	if s.identity != "" && identity == s.identity {
		return false
	}
	s.cancel()
	s.gen++
	s.identity = identity
	s.stages = append([]Stage(nil), stages...)
	s.springs = make([]Spring, len(stages))
	for i := range s.springs {
		s.springs[i] = NewSpring()
	}
	s.fired = 0
	s.elapsed = 0
	s.done = len(stages) == 0
	if !s.done {
		s.schedule(0)
	}
	observability.Reveal().OnSequenceStart(identity, s.gen, len(stages))
	return true
}

// Stop cancels the running sequence and resets it to idle.
func (s *Sequence) Stop() {
	s.cancel()
	s.gen++
	s.identity = ""
	s.stages = nil
	s.springs = nil
	s.fired = 0
	s.elapsed = 0
	s.done = false
}

func (s *Sequence) cancel() {
	if s.identity != "" && !s.done {
		observability.Reveal().OnSequenceCancel(s.identity, s.gen)
	}
}

func (s *Sequence) schedule(stage int) {
	s.pending = append(s.pending, action{
		gen:       s.gen,
		stage:     stage,
		remaining: float32(delayBefore(s.stages, stage).Seconds()),
	})
}

// Tick advances the sequence by dt seconds.
func (s *Sequence) Tick(dt float32) {
	if dt <= 0 {
		return
	}
	s.elapsed += dt
	for i := range s.springs {
		s.springs[i].Step(dt)
	}

	kept := s.pending[:0]
	for _, a := range s.pending {
		if a.gen != s.gen {
			continue
		}
		a.remaining -= dt
		if a.remaining > 0 {
			kept = append(kept, a)
			continue
		}
		s.springs[a.stage].Target = 1
		s.fired = a.stage + 1
		observability.Reveal().OnStageStart(s.identity, s.gen, s.stages[a.stage].String())
	}
	s.pending = kept

	if s.done || s.fired == 0 || len(s.pending) > 0 || !s.springs[s.fired-1].Settled() {
		return
	}
	if s.fired < len(s.stages) {
		s.schedule(s.fired)
		return
	}
	s.done = true
	elapsed := time.Duration(float64(s.elapsed) * float64(time.Second))
	observability.Reveal().OnSequenceComplete(s.identity, s.gen, elapsed)
}

// Progress returns the clamped value of stage i, or 0 when out of range.
func (s *Sequence) Progress(i int) float32 {
	if i < 0 || i >= len(s.springs) {
		return 0
	}
	return geom.Clamp01(s.springs[i].Value)
}

// Target returns the spring target of stage i.
func (s *Sequence) Target(i int) float32 {
	if i < 0 || i >= len(s.springs) {
		return 0
	}
	return s.springs[i].Target
}

// Generation returns the current generation counter.
func (s *Sequence) Generation() uint64 { return s.gen }

// Identity returns the loaded cluster identity, or "" when idle.
func (s *Sequence) Identity() string { return s.identity }

// Stages returns the loaded stage list.
func (s *Sequence) Stages() []Stage { return s.stages }

// Fired returns how many stages have started.
func (s *Sequence) Fired() int { return s.fired }

// Done reports whether every stage has started and settled.
func (s *Sequence) Done() bool { return s.done }
