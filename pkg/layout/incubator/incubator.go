// Package incubator computes the radial "incubator" layout: every node gets a
// final polar position around the original, a set of motion parameters, and a
// spawn delay so that kind groups bloom one after another.
//
// Every parameter is drawn from the seeded generator keyed by "name:index"
// with one salt per parameter, so a graph always yields the same layout.
// The layout is capped at Options.MaxNodes; excess nodes are dropped in
// (kind rank, level, name) order, never sampled.
package incubator

import (
	"cmp"
	"slices"

	"github.com/matzehuels/kinship/pkg/core/geom"
	"github.com/matzehuels/kinship/pkg/core/lineage"
	"github.com/matzehuels/kinship/pkg/core/seed"
)

// Edge base opacities.
const (
	TightOpacity = 0.6
	LooseOpacity = 0.35
)

// Seeded parameter salts.
const (
	saltAngle       = "inc-angle"
	saltRadius      = "inc-radius"
	saltHeight      = "inc-height"
	saltOrbit       = "inc-orbit"
	saltFloatAmp    = "inc-float-amp"
	saltFloatSpeed  = "inc-float-speed"
	saltFloatPhase  = "inc-float-phase"
	saltWobbleAmp   = "inc-wobble-amp"
	saltWobbleSpeed = "inc-wobble-speed"
	saltGrowth      = "inc-growth"
)

// Options tunes the incubator layout.
type Options struct {
	MaxNodes    int
	BaseRadius  float32
	RadiusStep  float32
	LevelHeight float32

	// Spawn schedule, in seconds.
	GroupStep float32
	GroupGap  float32
	SizeStep  float32
}

// DefaultOptions returns the standard incubator options.
func DefaultOptions() Options {
	return Options{
		MaxNodes:    60,
		BaseRadius:  6,
		RadiusStep:  3.5,
		LevelHeight: 2.5,
		GroupStep:   0.12,
		GroupGap:    0.6,
		SizeStep:    0.04,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxNodes <= 0 {
		o.MaxNodes = d.MaxNodes
	}
	if o.BaseRadius <= 0 {
		o.BaseRadius = d.BaseRadius
	}
	if o.RadiusStep <= 0 {
		o.RadiusStep = d.RadiusStep
	}
	if o.LevelHeight <= 0 {
		o.LevelHeight = d.LevelHeight
	}
	if o.GroupStep <= 0 {
		o.GroupStep = d.GroupStep
	}
	if o.GroupGap <= 0 {
		o.GroupGap = d.GroupGap
	}
	if o.SizeStep < 0 {
		o.SizeStep = d.SizeStep
	}
	return o
}

// Node is a laid-out node with its animation parameters.
type Node struct {
	Name  string
	Kind  lineage.Kind
	Level int
	Index int

	Angle  float32
	Radius float32
	BaseY  float32

	OrbitSpeed  float32
	FloatAmp    float32
	FloatSpeed  float32
	FloatPhase  float32
	WobbleAmp   float32
	WobbleSpeed float32

	Growth     float32
	SpawnDelay float32
}

// Final returns the node's resting position before orbit and float motion.
func (n Node) Final() geom.Vec3 {
	return geom.Polar(n.Radius, n.Angle, n.BaseY)
}

// Edge is a resolved edge between two laid-out nodes.
type Edge struct {
	Source  string
	Target  string
	Tight   bool
	Opacity float32
}

// Layout is a computed incubator layout.
type Layout struct {
	Nodes []Node
	Edges []Edge
	// Dropped counts the nodes removed by the capacity bound.
	Dropped int
}

// Index returns the position of each node in Nodes by name.
func (l Layout) Index() map[string]int {
	idx := make(map[string]int, len(l.Nodes))
	for i, n := range l.Nodes {
		idx[n.Name] = i
	}
	return idx
}

// Duration returns the time at which the last node finishes growing.
func (l Layout) Duration() float32 {
	var d float32
	for _, n := range l.Nodes {
		d = max(d, n.SpawnDelay+n.Growth)
	}
	return d
}

// Build lays out g.
func Build(g lineage.Graph, opts Options) Layout {
	opts = opts.withDefaults()

	sorted := slices.Clone(g.Nodes)
	slices.SortFunc(sorted, compareNodes)
	var l Layout
	if len(sorted) > opts.MaxNodes {
		l.Dropped = len(sorted) - opts.MaxNodes
		sorted = sorted[:opts.MaxNodes]
	}

	l.Nodes = make([]Node, len(sorted))
	for i, n := range sorted {
		l.Nodes[i] = place(n, i, opts)
	}
	schedule(l.Nodes, opts)
	l.Edges = resolveEdges(g.Edges, l.Nodes)
	return l
}

func compareNodes(a, b lineage.Node) int {
	if c := cmp.Compare(a.Kind.Rank(), b.Kind.Rank()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Level, b.Level); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}

func place(n lineage.Node, i int, opts Options) Node {
	src := seed.For(seed.Key(n.Name, i))
	absLevel := float32(abs(n.Level))
	jitter := src.Float(saltRadius)
	hjitter := src.Float(saltHeight)

	out := Node{
		Name:        n.Name,
		Kind:        n.Kind,
		Level:       n.Level,
		Index:       i,
		Angle:       src.Range(saltAngle, 0, geom.TwoPi),
		Radius:      (opts.BaseRadius + absLevel*opts.RadiusStep) * KindMultiplier(n.Kind, n.Level) * (0.85 + jitter*0.55),
		OrbitSpeed:  src.Range(saltOrbit, 0.03, 0.09),
		FloatAmp:    src.Range(saltFloatAmp, 0.15, 0.45),
		FloatSpeed:  src.Range(saltFloatSpeed, 0.4, 1.0),
		FloatPhase:  src.Range(saltFloatPhase, 0, geom.TwoPi),
		WobbleAmp:   src.Range(saltWobbleAmp, 0.05, 0.2),
		WobbleSpeed: src.Range(saltWobbleSpeed, 0.8, 1.6),
		Growth:      src.Range(saltGrowth, 0.9, 1.8),
	}

	switch dir := direction(n.Kind, n.Level); dir {
	case 0:
		if n.Kind == lineage.KindSibling {
			out.BaseY = (hjitter - 0.5) * 0.8
		}
	default:
		out.BaseY = dir * absLevel * opts.LevelHeight * (0.75 + hjitter*0.5)
	}
	return out
}

// KindMultiplier scales a node's radius by kind. Ancestors spread further out
// the older they are; the original sits at the center.
func KindMultiplier(k lineage.Kind, level int) float32 {
	switch k {
	case lineage.KindOriginal:
		return 0
	case lineage.KindParent:
		return 0.85
	case lineage.KindChild:
		return 0.95
	case lineage.KindSibling:
		return 1.35
	default:
		return 1.4 + 0.28*float32(abs(level))
	}
}

// direction is +1 for nodes above the original, -1 for nodes below.
func direction(k lineage.Kind, level int) float32 {
	switch {
	case k == lineage.KindParent:
		return 1
	case k == lineage.KindChild:
		return -1
	case k == lineage.KindAncestor && level < 0:
		return 1
	case k == lineage.KindAncestor && level > 0:
		return -1
	}
	return 0
}

// schedule assigns spawn delays group by group in kind order.
func schedule(nodes []Node, opts Options) {
	var cursor float32
	for _, kind := range lineage.Kinds {
		size := 0
		for i := range nodes {
			if nodes[i].Kind != kind {
				continue
			}
			nodes[i].SpawnDelay = cursor + float32(size)*opts.GroupStep
			size++
		}
		if size > 0 {
			cursor += opts.GroupGap + float32(size)*opts.SizeStep
		}
	}
}

func resolveEdges(edges []lineage.Edge, nodes []Node) []Edge {
	kinds := make(map[string]lineage.Kind, len(nodes))
	for _, n := range nodes {
		kinds[n.Name] = n.Kind
	}
	seen := make(map[string]bool, len(edges))
	var out []Edge
	for _, e := range edges {
		ks, okS := kinds[e.Source]
		kt, okT := kinds[e.Target]
		if !okS || !okT || seen[e.Key()] {
			continue
		}
		seen[e.Key()] = true
		tight := ks == lineage.KindOriginal || kt == lineage.KindOriginal ||
			(ks == lineage.KindParent && kt == lineage.KindChild) ||
			(ks == lineage.KindChild && kt == lineage.KindParent)
		opacity := float32(LooseOpacity)
		if tight {
			opacity = TightOpacity
		}
		out = append(out, Edge{Source: e.Source, Target: e.Target, Tight: tight, Opacity: opacity})
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
