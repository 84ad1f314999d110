package graph

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/matzehuels/kinship/pkg/core/geom"
	"github.com/matzehuels/kinship/pkg/core/lineage"
	"github.com/matzehuels/kinship/pkg/layout"
	"github.com/matzehuels/kinship/pkg/layout/incubator"
	"github.com/matzehuels/kinship/pkg/layout/phylo"
	"github.com/matzehuels/kinship/pkg/layout/ring"
)

// Layout is the serialized form of any computed layout. Mode selects which
// section is populated:
//
//	ring:      Ring
//	incubator: Incubator
//	phylogeny: Phylogeny
type Layout struct {
	Mode layout.Mode `json:"mode" bson:"mode"`

	Ring      *RingLayout      `json:"ring,omitempty" bson:"ring,omitempty"`
	Incubator *IncubatorLayout `json:"incubator,omitempty" bson:"incubator,omitempty"`
	Phylogeny *PhyloLayout     `json:"phylogeny,omitempty" bson:"phylogeny,omitempty"`
}

// NodeCount returns the number of laid-out nodes, whatever the mode.
func (l Layout) NodeCount() int {
	switch {
	case l.Ring != nil:
		n := 0
		for _, r := range l.Ring.Rings {
			n += len(r.Nodes)
		}
		return n
	case l.Incubator != nil:
		return len(l.Incubator.Nodes)
	case l.Phylogeny != nil:
		return len(l.Phylogeny.Nodes)
	}
	return 0
}

// RingLayout is a ring cluster.
type RingLayout struct {
	ClusterID string        `json:"cluster_id" bson:"cluster_id"`
	Center    string        `json:"center" bson:"center"`
	Anchor    Vec           `json:"anchor" bson:"anchor"`
	Rings     []RingSection `json:"rings" bson:"rings"`
}

// RingSection is one circle of relatives.
type RingSection struct {
	Class  string     `json:"class" bson:"class"`
	Level  int        `json:"level,omitempty" bson:"level,omitempty"`
	Radius float32    `json:"radius" bson:"radius"`
	Height float32    `json:"height" bson:"height"`
	Nodes  []RingNode `json:"nodes" bson:"nodes"`
}

// RingNode is a placed relative with its wobble parameters.
type RingNode struct {
	Name      string  `json:"name" bson:"name"`
	Index     int     `json:"index" bson:"index"`
	Position  Vec     `json:"position" bson:"position"`
	Phase     float32 `json:"phase" bson:"phase"`
	Speed     float32 `json:"speed" bson:"speed"`
	Amplitude float32 `json:"amplitude" bson:"amplitude"`
}

// IncubatorLayout is a radial incubator layout.
type IncubatorLayout struct {
	Nodes   []IncubatorNode `json:"nodes" bson:"nodes"`
	Edges   []IncubatorEdge `json:"edges" bson:"edges"`
	Dropped int             `json:"dropped,omitempty" bson:"dropped,omitempty"`
}

// IncubatorNode carries the resting placement and animation parameters.
type IncubatorNode struct {
	Name        string  `json:"name" bson:"name"`
	Kind        string  `json:"kind" bson:"kind"`
	Level       int     `json:"level" bson:"level"`
	Angle       float32 `json:"angle" bson:"angle"`
	Radius      float32 `json:"radius" bson:"radius"`
	BaseY       float32 `json:"base_y" bson:"base_y"`
	OrbitSpeed  float32 `json:"orbit_speed" bson:"orbit_speed"`
	FloatAmp    float32 `json:"float_amp" bson:"float_amp"`
	FloatSpeed  float32 `json:"float_speed" bson:"float_speed"`
	FloatPhase  float32 `json:"float_phase" bson:"float_phase"`
	WobbleAmp   float32 `json:"wobble_amp" bson:"wobble_amp"`
	WobbleSpeed float32 `json:"wobble_speed" bson:"wobble_speed"`
	Growth      float32 `json:"growth" bson:"growth"`
	SpawnDelay  float32 `json:"spawn_delay" bson:"spawn_delay"`
}

// IncubatorEdge is a resolved incubator edge.
type IncubatorEdge struct {
	Source  string  `json:"source" bson:"source"`
	Target  string  `json:"target" bson:"target"`
	Tight   bool    `json:"tight,omitempty" bson:"tight,omitempty"`
	Opacity float32 `json:"opacity" bson:"opacity"`
}

// PhyloLayout is a leveled phylogeny layout with its framing camera.
type PhyloLayout struct {
	Nodes  []PhyloNode `json:"nodes" bson:"nodes"`
	Edges  []Edge      `json:"edges" bson:"edges"`
	Box    Box         `json:"box" bson:"box"`
	Camera *Camera     `json:"camera,omitempty" bson:"camera,omitempty"`
}

// PhyloNode is a node placed on its level row.
type PhyloNode struct {
	Name     string `json:"name" bson:"name"`
	Kind     string `json:"kind" bson:"kind"`
	Level    int    `json:"level" bson:"level"`
	Row      int    `json:"row" bson:"row"`
	Position Vec    `json:"position" bson:"position"`
}

// Camera is a framed camera.
type Camera struct {
	Position    Vec     `json:"position" bson:"position"`
	Target      Vec     `json:"target" bson:"target"`
	FOV         float32 `json:"fov" bson:"fov"`
	Distance    float32 `json:"distance" bson:"distance"`
	Near        float32 `json:"near" bson:"near"`
	Far         float32 `json:"far" bson:"far"`
	MinDistance float32 `json:"min_distance" bson:"min_distance"`
	MaxDistance float32 `json:"max_distance" bson:"max_distance"`
}

// =============================================================================
// Export
// =============================================================================

// FromRing serializes a ring cluster.
func FromRing(c ring.Cluster) Layout {
	rl := &RingLayout{
		ClusterID: c.ID,
		Center:    c.Center,
		Anchor:    VecOf(c.Anchor),
		Rings:     make([]RingSection, len(c.Rings)),
	}
	for i, r := range c.Rings {
		sec := RingSection{
			Class:  r.Class.String(),
			Level:  r.Level,
			Radius: r.Radius,
			Height: r.Height,
			Nodes:  make([]RingNode, len(r.Nodes)),
		}
		for j, n := range r.Nodes {
			sec.Nodes[j] = RingNode{
				Name:      n.Name,
				Index:     n.Index,
				Position:  VecOf(n.Base),
				Phase:     n.Phase,
				Speed:     n.Speed,
				Amplitude: n.Amplitude,
			}
		}
		rl.Rings[i] = sec
	}
	return Layout{Mode: layout.ModeRing, Ring: rl}
}

// FromIncubator serializes an incubator layout.
func FromIncubator(l incubator.Layout) Layout {
	il := &IncubatorLayout{
		Nodes:   make([]IncubatorNode, len(l.Nodes)),
		Edges:   make([]IncubatorEdge, len(l.Edges)),
		Dropped: l.Dropped,
	}
	for i, n := range l.Nodes {
		il.Nodes[i] = IncubatorNode{
			Name:        n.Name,
			Kind:        n.Kind.String(),
			Level:       n.Level,
			Angle:       n.Angle,
			Radius:      n.Radius,
			BaseY:       n.BaseY,
			OrbitSpeed:  n.OrbitSpeed,
			FloatAmp:    n.FloatAmp,
			FloatSpeed:  n.FloatSpeed,
			FloatPhase:  n.FloatPhase,
			WobbleAmp:   n.WobbleAmp,
			WobbleSpeed: n.WobbleSpeed,
			Growth:      n.Growth,
			SpawnDelay:  n.SpawnDelay,
		}
	}
	for i, e := range l.Edges {
		il.Edges[i] = IncubatorEdge(e)
	}
	return Layout{Mode: layout.ModeIncubator, Incubator: il}
}

// FromPhylo serializes a phylogeny layout. cam may be nil.
func FromPhylo(l phylo.Layout, cam *phylo.Camera) Layout {
	pl := &PhyloLayout{
		Nodes: make([]PhyloNode, len(l.Nodes)),
		Edges: make([]Edge, len(l.Edges)),
		Box:   Box{Min: VecOf(l.Box.Min), Max: VecOf(l.Box.Max)},
	}
	for i, n := range l.Nodes {
		pl.Nodes[i] = PhyloNode{
			Name:     n.Name,
			Kind:     n.Kind.String(),
			Level:    n.Level,
			Row:      n.Row,
			Position: VecOf(n.Position),
		}
	}
	for i, e := range l.Edges {
		pl.Edges[i] = Edge{Source: e.Source, Target: e.Target}
	}
	if cam != nil {
		pl.Camera = &Camera{
			Position:    VecOf(cam.Position),
			Target:      VecOf(cam.Target),
			FOV:         cam.FOV,
			Distance:    cam.Distance,
			Near:        cam.Near,
			Far:         cam.Far,
			MinDistance: cam.MinDistance,
			MaxDistance: cam.MaxDistance,
		}
	}
	return Layout{Mode: layout.ModePhylogeny, Phylogeny: pl}
}

// =============================================================================
// Import
// =============================================================================

// RingCluster rebuilds the ring cluster of a ring layout.
func (l Layout) RingCluster() (ring.Cluster, error) {
	if l.Mode != layout.ModeRing || l.Ring == nil {
		return ring.Cluster{}, fmt.Errorf("layout mode %q has no ring section", l.Mode)
	}
	c := ring.Cluster{
		ID:     l.Ring.ClusterID,
		Center: l.Ring.Center,
		Anchor: l.Ring.Anchor.Vec3(),
		Rings:  make([]ring.Ring, len(l.Ring.Rings)),
	}
	for i, sec := range l.Ring.Rings {
		class, ok := ring.ParseClass(sec.Class)
		if !ok {
			return ring.Cluster{}, fmt.Errorf("ring %d: unknown class %q", i, sec.Class)
		}
		r := ring.Ring{
			Class:  class,
			Level:  sec.Level,
			Radius: sec.Radius,
			Height: sec.Height,
			Nodes:  make([]ring.Node, len(sec.Nodes)),
		}
		for j, n := range sec.Nodes {
			r.Nodes[j] = ring.Node{
				Name:      n.Name,
				Class:     class,
				Ring:      i,
				Index:     n.Index,
				Base:      n.Position.Vec3(),
				Phase:     n.Phase,
				Speed:     n.Speed,
				Amplitude: n.Amplitude,
			}
		}
		c.Rings[i] = r
	}
	return c, nil
}

// IncubatorLayout rebuilds the incubator layout.
func (l Layout) IncubatorLayout() (incubator.Layout, error) {
	if l.Mode != layout.ModeIncubator || l.Incubator == nil {
		return incubator.Layout{}, fmt.Errorf("layout mode %q has no incubator section", l.Mode)
	}
	out := incubator.Layout{
		Nodes:   make([]incubator.Node, len(l.Incubator.Nodes)),
		Dropped: l.Incubator.Dropped,
	}
	known := make(map[string]bool, len(l.Incubator.Nodes))
	for i, n := range l.Incubator.Nodes {
		k, ok := lineage.ParseKind(n.Kind)
		if !ok {
			return incubator.Layout{}, fmt.Errorf("node %s: unknown kind %q", n.Name, n.Kind)
		}
		out.Nodes[i] = incubator.Node{
			Name:        n.Name,
			Kind:        k,
			Level:       n.Level,
			Index:       i,
			Angle:       n.Angle,
			Radius:      n.Radius,
			BaseY:       n.BaseY,
			OrbitSpeed:  n.OrbitSpeed,
			FloatAmp:    n.FloatAmp,
			FloatSpeed:  n.FloatSpeed,
			FloatPhase:  n.FloatPhase,
			WobbleAmp:   n.WobbleAmp,
			WobbleSpeed: n.WobbleSpeed,
			Growth:      n.Growth,
			SpawnDelay:  n.SpawnDelay,
		}
		known[n.Name] = true
	}
	for _, e := range l.Incubator.Edges {
		if known[e.Source] && known[e.Target] {
			out.Edges = append(out.Edges, incubator.Edge(e))
		}
	}
	return out, nil
}

// PhyloLayout rebuilds the phylogeny layout and its camera, if any.
func (l Layout) PhyloLayout() (phylo.Layout, *phylo.Camera, error) {
	if l.Mode != layout.ModePhylogeny || l.Phylogeny == nil {
		return phylo.Layout{}, nil, fmt.Errorf("layout mode %q has no phylogeny section", l.Mode)
	}
	p := l.Phylogeny
	out := phylo.Layout{
		Nodes: make([]phylo.Node, len(p.Nodes)),
		Box:   geom.Box3{Min: p.Box.Min.Vec3(), Max: p.Box.Max.Vec3()},
	}
	pos := make(map[string]geom.Vec3, len(p.Nodes))
	for i, n := range p.Nodes {
		k, ok := lineage.ParseKind(n.Kind)
		if !ok {
			return phylo.Layout{}, nil, fmt.Errorf("node %s: unknown kind %q", n.Name, n.Kind)
		}
		out.Nodes[i] = phylo.Node{Name: n.Name, Kind: k, Level: n.Level, Row: n.Row, Position: n.Position.Vec3()}
		pos[n.Name] = out.Nodes[i].Position
	}
	for _, e := range p.Edges {
		from, ok1 := pos[e.Source]
		to, ok2 := pos[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		out.Edges = append(out.Edges, phylo.Edge{Source: e.Source, Target: e.Target, From: from, To: to})
	}
	var cam *phylo.Camera
	if c := p.Camera; c != nil {
		cam = &phylo.Camera{
			Position:    c.Position.Vec3(),
			Target:      c.Target.Vec3(),
			FOV:         c.FOV,
			Distance:    c.Distance,
			Near:        c.Near,
			Far:         c.Far,
			MinDistance: c.MinDistance,
			MaxDistance: c.MaxDistance,
		}
	}
	return out, cam, nil
}

// =============================================================================
// Serialization
// =============================================================================

// MarshalLayout serializes a Layout to indented JSON.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout decodes a Layout and checks that the section named by Mode
// is present.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("unmarshal layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// Validate checks the discriminator against the populated section.
func (l Layout) Validate() error {
	var ok bool
	switch l.Mode {
	case layout.ModeRing:
		ok = l.Ring != nil
	case layout.ModeIncubator:
		ok = l.Incubator != nil
	case layout.ModePhylogeny:
		ok = l.Phylogeny != nil
	default:
		return fmt.Errorf("unknown layout mode %q", l.Mode)
	}
	if !ok {
		return fmt.Errorf("%s layout is missing its %s section", l.Mode, l.Mode)
	}
	return nil
}

// WriteLayoutFile writes a Layout to a JSON file.
func WriteLayoutFile(l Layout, path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadLayoutFile reads a Layout from a JSON file.
func ReadLayoutFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalLayout(data)
}
