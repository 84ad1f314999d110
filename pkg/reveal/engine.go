// Package reveal computes per-frame progress, position, opacity and
// visibility for every node and edge of the active visualization.
//
// An [Engine] owns one arena of node and edge entries. Loading a layout
// rebuilds the arena wholesale; [Engine.Frame] then writes every entry in
// place. Nothing else mutates the arena, so callers must drive the engine
// from a single goroutine (the frame loop) and treat the slices returned by
// [Engine.Nodes] and [Engine.Edges] as read-only views valid until the next
// call.
//
// The three modes animate differently:
//
//   - ring: a staged [Sequence] of damped springs reveals the center, then
//     each relation ring, then each ancestor ring
//   - incubator: each node grows along its spawn schedule; no sequence
//   - phylogeny: no reveal, only a slow whole-scene motion
package reveal

import (
	"cogentcore.org/core/math32"

	"github.com/matzehuels/kinship/pkg/core/geom"
	"github.com/matzehuels/kinship/pkg/core/lineage"
	"github.com/matzehuels/kinship/pkg/layout"
	"github.com/matzehuels/kinship/pkg/layout/incubator"
	"github.com/matzehuels/kinship/pkg/layout/phylo"
	"github.com/matzehuels/kinship/pkg/layout/ring"
)

// HiddenThreshold is the progress at or below which an entry is hidden.
const HiddenThreshold = 0.001

// PhyloEdgeOpacity is the constant edge opacity in phylogeny mode.
const PhyloEdgeOpacity = 0.5

// NodeState is the per-frame state of one node.
type NodeState struct {
	Name     string       `json:"name"`
	Kind     lineage.Kind `json:"kind"`
	Position geom.Vec3    `json:"position"`
	Progress float32      `json:"progress"`
	// ScaleX and ScaleY are the aspect-corrected billboard size. They are
	// only meaningful once Ready.
	ScaleX  float32 `json:"scale_x"`
	ScaleY  float32 `json:"scale_y"`
	Ready   bool    `json:"ready"`
	Visible bool    `json:"visible"`
}

// EdgeState is the per-frame state of one edge.
type EdgeState struct {
	Source   string    `json:"source"`
	Target   string    `json:"target"`
	From     geom.Vec3 `json:"from"`
	To       geom.Vec3 `json:"to"`
	Progress float32   `json:"progress"`
	Opacity  float32   `json:"opacity"`
	Visible  bool      `json:"visible"`
}

// Options configures an Engine.
type Options struct {
	// LongCycle is the period in seconds of the slow field-intensity cycle.
	LongCycle float32
	// NodeSize is the larger billboard dimension of a resolved node.
	NodeSize float32
	// Ungated treats every node as resolved to the default square scale, for
	// callers that never load images.
	Ungated bool
	// OnPick is called by Pick with the name of an activated node.
	OnPick func(name string)
}

// DefaultOptions returns the standard engine options.
func DefaultOptions() Options {
	return Options{LongCycle: 24, NodeSize: 1.6}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.LongCycle <= 0 {
		o.LongCycle = d.LongCycle
	}
	if o.NodeSize <= 0 {
		o.NodeSize = d.NodeSize
	}
	return o
}

// Engine drives the reveal of one visualization instance.
type Engine struct {
	opts Options
	mode layout.Mode
	now  float32

	nodes []NodeState
	edges []EdgeState
	// ends holds the arena indices of each edge's endpoints.
	ends [][2]int
	// aspects survive arena rebuilds: an image resolved once stays resolved.
	aspects map[string]float32

	seq     *Sequence
	cluster ring.Cluster
	members []ring.Node
	stageOf []int

	inc   incubator.Layout
	phy   phylo.Layout
	field float32
}

// NewEngine returns an empty engine.
func NewEngine(opts Options) *Engine {
	return &Engine{
		opts:    opts.withDefaults(),
		aspects: make(map[string]float32),
		seq:     NewSequence(),
	}
}

// Mode returns the loaded mode, or "" when nothing is loaded.
func (e *Engine) Mode() layout.Mode { return e.mode }

// Time returns the engine clock in seconds.
func (e *Engine) Time() float32 { return e.now }

// Sequence returns the ring-mode reveal sequence.
func (e *Engine) Sequence() *Sequence { return e.seq }

// Nodes returns the node arena.
func (e *Engine) Nodes() []NodeState { return e.nodes }

// Edges returns the edge arena.
func (e *Engine) Edges() []EdgeState { return e.edges }

// Field returns the incubator field intensity of the last frame.
func (e *Engine) Field() float32 { return e.field }

// Node returns the state of the named node.
func (e *Engine) Node(name string) (NodeState, bool) {
	for _, n := range e.nodes {
		if n.Name == name {
			return n, true
		}
	}
	return NodeState{}, false
}

// LoadRing loads a ring cluster and starts its reveal sequence. Reloading an
// unchanged cluster keeps the running sequence; a new ID, anchor or ring
// membership restarts it (see ClusterIdentity).
func (e *Engine) LoadRing(c ring.Cluster) {
	if e.mode != layout.ModeRing {
		e.seq.Stop()
		e.now = 0
	}
	e.mode = layout.ModeRing
	e.cluster = c
	e.members = c.Nodes()

	e.resetArena(len(e.members)+1, len(e.members))
	e.nodes = append(e.nodes, e.newNode(c.Center, lineage.KindOriginal))
	e.stageOf = e.stageOf[:0]
	for _, m := range e.members {
		e.nodes = append(e.nodes, e.newNode(m.Name, classKind(m.Class)))
		e.stageOf = append(e.stageOf, m.Ring+1)
		e.edges = append(e.edges, EdgeState{Source: c.Center, Target: m.Name})
		e.ends = append(e.ends, [2]int{0, len(e.nodes) - 1})
	}
	if e.seq.Start(ClusterIdentity(c), StagesFor(c)) {
		e.now = 0
	}
	e.render()
}

// LoadIncubator loads an incubator layout. The clock restarts at 0. Edges
// naming a node the layout does not hold are dropped.
func (e *Engine) LoadIncubator(l incubator.Layout) {
	e.seq.Stop()
	e.mode = layout.ModeIncubator
	e.now = 0

	idx := l.Index()
	e.resetArena(len(l.Nodes), len(l.Edges))
	for _, n := range l.Nodes {
		e.nodes = append(e.nodes, e.newNode(n.Name, n.Kind))
	}
	edges := make([]incubator.Edge, 0, len(l.Edges))
	for _, ed := range l.Edges {
		src, ok1 := idx[ed.Source]
		dst, ok2 := idx[ed.Target]
		if !ok1 || !ok2 {
			continue
		}
		edges = append(edges, ed)
		e.edges = append(e.edges, EdgeState{Source: ed.Source, Target: ed.Target})
		e.ends = append(e.ends, [2]int{src, dst})
	}
	l.Edges = edges
	e.inc = l
	e.render()
}

// LoadPhylogeny loads a phylogeny layout.
func (e *Engine) LoadPhylogeny(l phylo.Layout) {
	e.seq.Stop()
	e.mode = layout.ModePhylogeny
	e.now = 0
	e.phy = l

	idx := make(map[string]int, len(l.Nodes))
	e.resetArena(len(l.Nodes), len(l.Edges))
	for i, n := range l.Nodes {
		idx[n.Name] = i
		e.nodes = append(e.nodes, e.newNode(n.Name, n.Kind))
	}
	for _, ed := range l.Edges {
		src, ok1 := idx[ed.Source]
		dst, ok2 := idx[ed.Target]
		if !ok1 || !ok2 {
			continue
		}
		e.edges = append(e.edges, EdgeState{Source: ed.Source, Target: ed.Target})
		e.ends = append(e.ends, [2]int{src, dst})
	}
	e.render()
}

// Unload cancels any running sequence and empties the arena.
func (e *Engine) Unload() {
	e.seq.Stop()
	e.mode = ""
	e.now = 0
	e.field = 0
	e.resetArena(0, 0)
}

func (e *Engine) resetArena(nodes, edges int) {
	e.nodes = make([]NodeState, 0, nodes)
	e.edges = make([]EdgeState, 0, edges)
	e.ends = make([][2]int, 0, edges)
}

func (e *Engine) newNode(name string, kind lineage.Kind) NodeState {
	n := NodeState{Name: name, Kind: kind}
	if aspect, ok := e.aspects[name]; ok {
		e.applyAspect(&n, aspect)
	} else if e.opts.Ungated {
		e.applyAspect(&n, 1)
	}
	return n
}

// ResolveImage opens the ready gate of a node once its image dimensions are
// known. A failed load (err != nil) or an unusable aspect resolves to the
// default square scale. Until resolved a node stays hidden.
func (e *Engine) ResolveImage(name string, aspect float32, err error) {
	if err != nil || !(aspect > 0) || math32.IsInf(aspect, 0) {
		aspect = 1
	}
	e.aspects[name] = aspect
	for i := range e.nodes {
		if e.nodes[i].Name == name {
			e.applyAspect(&e.nodes[i], aspect)
		}
	}
}

// ResolveAll resolves every unresolved node to the default square scale.
func (e *Engine) ResolveAll() {
	for i := range e.nodes {
		if !e.nodes[i].Ready {
			e.ResolveImage(e.nodes[i].Name, 1, nil)
		}
	}
}

func (e *Engine) applyAspect(n *NodeState, aspect float32) {
	size := e.opts.NodeSize
	if aspect >= 1 {
		n.ScaleX, n.ScaleY = size, size/aspect
	} else {
		n.ScaleX, n.ScaleY = size*aspect, size
	}
	n.Ready = true
}

// Step advances the clock by dt seconds and renders a frame.
func (e *Engine) Step(dt float32) {
	e.Frame(e.now + dt)
}

// Frame renders the arena at time t (seconds since the layout was loaded).
// The ring sequence only moves forward: a t earlier than the current clock
// repositions wobble and motion but does not rewind the springs.
func (e *Engine) Frame(t float32) {
	if dt := t - e.now; dt > 0 && e.mode == layout.ModeRing {
		e.seq.Tick(dt)
	}
	e.now = t
	e.render()
}

func (e *Engine) render() {
	switch e.mode {
	case layout.ModeRing:
		e.renderRing()
	case layout.ModeIncubator:
		e.renderIncubator()
	case layout.ModePhylogeny:
		e.renderPhylogeny()
	}
}

// Settled reports whether the reveal has finished: the ring sequence is done,
// every incubator node has grown, or the layout is a phylogeny.
func (e *Engine) Settled() bool {
	switch e.mode {
	case layout.ModeRing:
		return e.seq.Done()
	case layout.ModeIncubator:
		return e.now >= e.inc.Duration()
	default:
		return true
	}
}

// Pick reports whether name is a visible node and, if so, passes it to the
// OnPick callback.
func (e *Engine) Pick(name string) bool {
	n, ok := e.Node(name)
	if !ok || !n.Visible {
		return false
	}
	if e.opts.OnPick != nil {
		e.opts.OnPick(name)
	}
	return true
}

func classKind(c ring.Class) lineage.Kind {
	switch c {
	case ring.ClassParents:
		return lineage.KindParent
	case ring.ClassSiblings:
		return lineage.KindSibling
	case ring.ClassChildren:
		return lineage.KindChild
	default:
		return lineage.KindAncestor
	}
}
