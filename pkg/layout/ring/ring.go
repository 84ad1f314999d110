// Package ring computes the "flower" layout: relatives placed on circles
// around a cluster anchor.
//
// A cluster has up to three relation rings (parents, siblings, children) and
// any number of ancestor rings. Only names carrying the offspring tag prefix
// are placed; every other relative is excluded from this mode. Placement is
// fully deterministic: angles are evenly spaced and the vertical jitter is a
// sine of the index, not a random draw.
package ring

import (
	"strings"

	"cogentcore.org/core/math32"

	"github.com/matzehuels/kinship/pkg/core/geom"
	"github.com/matzehuels/kinship/pkg/core/lineage"
	"github.com/matzehuels/kinship/pkg/core/seed"
)

// DefaultTagPrefix is the name prefix a relative must carry to be placed.
const DefaultTagPrefix = "offspring_"

// Class is the relation class of a ring.
type Class uint8

const (
	ClassParents Class = iota
	ClassSiblings
	ClassChildren
	ClassAncestors
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassParents:
		return "parents"
	case ClassSiblings:
		return "siblings"
	case ClassChildren:
		return "children"
	default:
		return "ancestors"
	}
}

// ParseClass is the inverse of String.
func ParseClass(s string) (Class, bool) {
	for _, c := range []Class{ClassParents, ClassSiblings, ClassChildren, ClassAncestors} {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// EdgeOpacity is the base opacity of an edge from the anchor to a node of
// this class.
func (c Class) EdgeOpacity() float32 {
	switch c {
	case ClassParents, ClassChildren:
		return 0.8
	case ClassSiblings:
		return 0.4
	default:
		return 0.35
	}
}

// Ring geometry.
const (
	ParentRadius  = 8
	ParentHeight  = 3
	SiblingRadius = 10
	SiblingHeight = 0
	ChildRadius   = 8
	ChildHeight   = -3

	AncestorBaseRadius = 11
	AncestorRadiusStep = 3
	AncestorBaseHeight = 4
	AncestorHeightStep = 1
)

// Relatives are the flat relation lists a cluster is built from.
// AncestorsByLevel[i] holds the ancestors at level -(i+1).
type Relatives struct {
	Parents          []string
	Siblings         []string
	Children         []string
	AncestorsByLevel [][]string
}

// RelativesFromRecord copies the relation lists of a record.
func RelativesFromRecord(rec *lineage.Record) Relatives {
	if rec == nil {
		return Relatives{}
	}
	rel := Relatives{
		Parents:  rec.Parents,
		Siblings: rec.Siblings,
		Children: rec.Children,
	}
	for _, row := range rec.AncestorsByLevel {
		rel.AncestorsByLevel = append(rel.AncestorsByLevel, row)
	}
	return rel
}

// RelativesFromGraph derives relation lists from a canonical graph. Nodes of
// kind parent or ancestor at level -d land in AncestorsByLevel[d-1], so the
// numbering matches records.
func RelativesFromGraph(g lineage.Graph) Relatives {
	var rel Relatives
	for _, n := range g.Nodes {
		switch n.Kind {
		case lineage.KindParent:
			rel.Parents = append(rel.Parents, n.Name)
		case lineage.KindSibling:
			rel.Siblings = append(rel.Siblings, n.Name)
		case lineage.KindChild:
			rel.Children = append(rel.Children, n.Name)
		}
		if (n.Kind == lineage.KindParent || n.Kind == lineage.KindAncestor) && n.Level < 0 {
			i := -n.Level - 1
			for len(rel.AncestorsByLevel) <= i {
				rel.AncestorsByLevel = append(rel.AncestorsByLevel, nil)
			}
			rel.AncestorsByLevel[i] = append(rel.AncestorsByLevel[i], n.Name)
		}
	}
	return rel
}

// Options tunes the ring layout.
type Options struct {
	// TagPrefix is the prefix a name must carry to be placed.
	TagPrefix string
	// Jitter scales the deterministic vertical jitter 0.4·Jitter·sin(1.3·i).
	Jitter float32
	// Wobble scales the continuous wobble amplitude used by the reveal engine.
	Wobble float32
}

// DefaultOptions returns the standard ring options.
func DefaultOptions() Options {
	return Options{TagPrefix: DefaultTagPrefix, Jitter: 1, Wobble: 0.35}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TagPrefix == "" {
		o.TagPrefix = d.TagPrefix
	}
	if o.Jitter == 0 {
		o.Jitter = d.Jitter
	}
	if o.Wobble == 0 {
		o.Wobble = d.Wobble
	}
	return o
}

// Node is a placed relative.
type Node struct {
	Name  string
	Class Class
	// Ring is the index of the node's ring in Cluster.Rings.
	Ring  int
	Index int
	Base  geom.Vec3

	// Wobble parameters, derived from the seeded generator.
	Phase     float32
	Speed     float32
	Amplitude float32
}

// Ring is one populated circle of relatives.
type Ring struct {
	Class Class
	// Level is the ancestor level (i+1) for ancestor rings, 0 otherwise.
	Level  int
	Radius float32
	Height float32
	Nodes  []Node
}

// Cluster is the ring layout around one anchor.
type Cluster struct {
	ID     string
	Anchor geom.Vec3
	Center string
	Rings  []Ring
}

// Nodes returns every placed node, ring by ring.
func (c Cluster) Nodes() []Node {
	var out []Node
	for _, r := range c.Rings {
		out = append(out, r.Nodes...)
	}
	return out
}

// NodeCount returns the number of placed nodes.
func (c Cluster) NodeCount() int {
	n := 0
	for _, r := range c.Rings {
		n += len(r.Nodes)
	}
	return n
}

// Build lays out a cluster of relatives around anchor. Empty rings are
// omitted. A name placed in an earlier ring (or the center itself) is not
// placed again.
func Build(id string, anchor geom.Vec3, center string, rel Relatives, opts Options) Cluster {
	opts = opts.withDefaults()
	c := Cluster{ID: id, Anchor: anchor, Center: center}
	placed := map[string]bool{}
	if center != "" {
		placed[center] = true
	}

	add := func(r Ring, names []string) {
		var keep []string
		for _, name := range names {
			if !strings.HasPrefix(name, opts.TagPrefix) || placed[name] {
				continue
			}
			placed[name] = true
			keep = append(keep, name)
		}
		if len(keep) == 0 {
			return
		}
		r.Nodes = placeRing(len(c.Rings), r, keep, anchor, opts)
		c.Rings = append(c.Rings, r)
	}

	add(Ring{Class: ClassParents, Radius: ParentRadius, Height: ParentHeight}, rel.Parents)
	add(Ring{Class: ClassSiblings, Radius: SiblingRadius, Height: SiblingHeight}, rel.Siblings)
	add(Ring{Class: ClassChildren, Radius: ChildRadius, Height: ChildHeight}, rel.Children)
	for i, row := range rel.AncestorsByLevel {
		add(Ring{
			Class:  ClassAncestors,
			Level:  i + 1,
			Radius: AncestorBaseRadius + AncestorRadiusStep*float32(i),
			Height: AncestorBaseHeight + AncestorHeightStep*float32(i),
		}, row)
	}
	return c
}

func placeRing(ringIdx int, r Ring, names []string, anchor geom.Vec3, opts Options) []Node {
	nodes := make([]Node, len(names))
	count := float32(len(names))
	for i, name := range names {
		theta := geom.TwoPi * float32(i) / count
		offset := geom.V(
			r.Radius*math32.Cos(theta),
			r.Height+Jitter(i, opts.Jitter),
			r.Radius*math32.Sin(theta),
		)
		src := seed.For(seed.Key(name, i))
		nodes[i] = Node{
			Name:      name,
			Class:     r.Class,
			Ring:      ringIdx,
			Index:     i,
			Base:      anchor.Add(offset),
			Phase:     src.Range("ring-phase", 0, geom.TwoPi),
			Speed:     src.Range("ring-speed", 0.35, 0.75),
			Amplitude: opts.Wobble * src.Range("ring-amp", 0.6, 1),
		}
	}
	return nodes
}

// Jitter is the deterministic vertical offset of the i-th node in a ring.
func Jitter(i int, amplitude float32) float32 {
	return 0.4 * amplitude * math32.Sin(1.3*float32(i))
}

// Wobble returns the live position of n at time t: a continuous oscillation
// around its base position.
func Wobble(n Node, t float32) geom.Vec3 {
	a := n.Amplitude
	w := t*n.Speed + n.Phase
	return n.Base.Add(geom.V(
		a*math32.Sin(w),
		a*0.6*math32.Cos(w*0.8),
		a*math32.Sin(w*0.6+1.7),
	))
}
