// Package phylo computes the phylogeny layout: one horizontal row per level,
// ancestors on top, the whole layout recentered on the origin.
//
// The package also provides [Frame], the closed-form camera auto-framing for
// a phylogeny bounding box, and [SceneMotion], the slow whole-scene drift that
// replaces a per-node reveal in this mode.
package phylo

import (
	"cmp"
	"slices"

	"cogentcore.org/core/math32"

	"github.com/matzehuels/kinship/pkg/core/geom"
	"github.com/matzehuels/kinship/pkg/core/lineage"
)

// Options tunes row placement.
type Options struct {
	// LevelGap is the vertical distance between consecutive rows.
	LevelGap float32
	// Spacing is the horizontal distance between neighbours in a row.
	Spacing float32
}

// DefaultOptions returns the standard phylogeny options.
func DefaultOptions() Options {
	return Options{LevelGap: 6, Spacing: 5}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.LevelGap <= 0 {
		o.LevelGap = d.LevelGap
	}
	if o.Spacing <= 0 {
		o.Spacing = d.Spacing
	}
	return o
}

// Node is a placed graph node.
type Node struct {
	Name     string
	Kind     lineage.Kind
	Level    int
	Row      int
	Position geom.Vec3
}

// Edge carries the placed positions of its endpoints.
type Edge struct {
	Source string
	Target string
	From   geom.Vec3
	To     geom.Vec3
}

// Layout is a computed phylogeny layout. Box is the bounding box of all node
// positions after recentering, so its center is the origin.
type Layout struct {
	Nodes []Node
	Edges []Edge
	Box   geom.Box3
}

// Build places the graph's nodes on rows by level. Rows are ordered by level
// ascending from top to bottom; level 0 (or the first level when no node sits
// at 0) is the reference row at y = 0 before recentering. Within a row nodes
// are sorted by name and spread symmetrically around x = 0.
func Build(g lineage.Graph, opts Options) Layout {
	opts = opts.withDefaults()
	levels := g.Levels()
	ref := slices.Index(levels, 0)
	if ref < 0 {
		ref = 0
	}

	rows := make(map[int][]lineage.Node, len(levels))
	for _, n := range g.Nodes {
		rows[n.Level] = append(rows[n.Level], n)
	}

	var l Layout
	for rowIdx, level := range levels {
		row := rows[level]
		slices.SortFunc(row, func(a, b lineage.Node) int { return cmp.Compare(a.Name, b.Name) })
		y := float32(ref-rowIdx) * opts.LevelGap
		half := float32(len(row)-1) / 2
		for i, n := range row {
			l.Nodes = append(l.Nodes, Node{
				Name:     n.Name,
				Kind:     n.Kind,
				Level:    n.Level,
				Row:      rowIdx,
				Position: geom.V((float32(i)-half)*opts.Spacing, y, 0),
			})
		}
	}

	recenter(&l)

	pos := make(map[string]geom.Vec3, len(l.Nodes))
	for _, n := range l.Nodes {
		pos[n.Name] = n.Position
	}
	for _, e := range g.Edges {
		from, okF := pos[e.Source]
		to, okT := pos[e.Target]
		if !okF || !okT {
			continue
		}
		l.Edges = append(l.Edges, Edge{Source: e.Source, Target: e.Target, From: from, To: to})
	}
	return l
}

// recenter shifts every position so the bounding box is centered on the origin.
func recenter(l *Layout) {
	if len(l.Nodes) == 0 {
		l.Box = math32.B3(0, 0, 0, 0, 0, 0)
		return
	}
	points := make([]geom.Vec3, len(l.Nodes))
	for i, n := range l.Nodes {
		points[i] = n.Position
	}
	center := geom.Bounds(points).Center()
	for i := range l.Nodes {
		l.Nodes[i].Position = l.Nodes[i].Position.Sub(center)
		points[i] = l.Nodes[i].Position
	}
	l.Box = geom.Bounds(points)
}

// Position returns the placed position of the named node.
func (l Layout) Position(name string) (geom.Vec3, bool) {
	for _, n := range l.Nodes {
		if n.Name == name {
			return n.Position, true
		}
	}
	return geom.Vec3{}, false
}
