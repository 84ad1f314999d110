package incubator

import (
	"fmt"
	"slices"
	"testing"

	"github.com/matzehuels/kinship/pkg/core/geom"
	"github.com/matzehuels/kinship/pkg/core/lineage"
)

func bigGraph() lineage.Graph {
	g := lineage.Graph{Nodes: []lineage.Node{{Name: "A", Kind: lineage.KindOriginal}}}
	for i := range 30 {
		g.Nodes = append(g.Nodes, lineage.Node{Name: fmt.Sprintf("anc%02d", i), Kind: lineage.KindAncestor, Level: -2 - i%3})
	}
	for i := range 30 {
		g.Nodes = append(g.Nodes, lineage.Node{Name: fmt.Sprintf("sib%02d", i), Kind: lineage.KindSibling})
	}
	for i := range 20 {
		g.Nodes = append(g.Nodes, lineage.Node{Name: fmt.Sprintf("child%02d", i), Kind: lineage.KindChild, Level: 1})
	}
	for i := range 19 {
		g.Nodes = append(g.Nodes, lineage.Node{Name: fmt.Sprintf("par%02d", i), Kind: lineage.KindParent, Level: -1})
	}
	return g
}

func TestBuildCapacityBound(t *testing.T) {
	g := bigGraph()
	if len(g.Nodes) != 100 {
		t.Fatalf("fixture has %d nodes, want 100", len(g.Nodes))
	}
	l := Build(g, DefaultOptions())
	if len(l.Nodes) != 60 {
		t.Fatalf("nodes = %d, want 60", len(l.Nodes))
	}
	if l.Dropped != 40 {
		t.Errorf("dropped = %d, want 40", l.Dropped)
	}

	want := slices.Clone(g.Nodes)
	slices.SortFunc(want, compareNodes)
	want = want[:60]
	for i, n := range l.Nodes {
		if n.Name != want[i].Name {
			t.Fatalf("node %d = %s, want %s", i, n.Name, want[i].Name)
		}
	}

	// Original first, then parents (level -1) before children (level 1),
	// then the first ten siblings. No ancestor survives.
	if l.Nodes[0].Name != "A" || l.Nodes[1].Name != "par00" || l.Nodes[20].Name != "child00" || l.Nodes[59].Name != "sib19" {
		t.Errorf("unexpected order: %s %s %s %s", l.Nodes[0].Name, l.Nodes[1].Name, l.Nodes[20].Name, l.Nodes[59].Name)
	}
	for _, n := range l.Nodes {
		if n.Kind == lineage.KindAncestor {
			t.Errorf("ancestor %s survived the cap", n.Name)
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	g := bigGraph()
	a := Build(g, DefaultOptions())
	b := Build(g, DefaultOptions())
	if !slices.Equal(a.Nodes, b.Nodes) {
		t.Error("layouts differ between runs")
	}
}

func TestBuildRadiusAndHeight(t *testing.T) {
	g := lineage.BuildFallback(&lineage.Record{
		OriginalImage:    "A",
		Parents:          lineage.Names{"P"},
		Children:         lineage.Names{"C"},
		AncestorsByLevel: lineage.Levels{{"P"}, {"G"}},
	})
	l := Build(g, DefaultOptions())
	byName := map[string]Node{}
	for _, n := range l.Nodes {
		byName[n.Name] = n
	}

	if a := byName["A"]; a.Radius != 0 || a.BaseY != 0 {
		t.Errorf("original at radius %v height %v, want center", a.Radius, a.BaseY)
	}
	if byName["P"].BaseY <= 0 || byName["G"].BaseY <= 0 {
		t.Errorf("ancestors should sit above: P=%v G=%v", byName["P"].BaseY, byName["G"].BaseY)
	}
	if byName["C"].BaseY >= 0 {
		t.Errorf("child should sit below: %v", byName["C"].BaseY)
	}

	opts := DefaultOptions()
	for _, n := range l.Nodes {
		if n.Kind == lineage.KindOriginal {
			continue
		}
		base := (opts.BaseRadius + float32(abs(n.Level))*opts.RadiusStep) * KindMultiplier(n.Kind, n.Level)
		if n.Radius < base*0.85-1e-4 || n.Radius > base*1.4+1e-4 {
			t.Errorf("%s radius %v outside [%v, %v]", n.Name, n.Radius, base*0.85, base*1.4)
		}
	}
}

func TestKindMultiplier(t *testing.T) {
	tests := []struct {
		kind  lineage.Kind
		level int
		want  float32
	}{
		{lineage.KindOriginal, 0, 0},
		{lineage.KindParent, -1, 0.85},
		{lineage.KindChild, 1, 0.95},
		{lineage.KindSibling, 0, 1.35},
		{lineage.KindAncestor, -2, 1.96},
		{lineage.KindAncestor, 3, 2.24},
	}
	for _, tt := range tests {
		if got := KindMultiplier(tt.kind, tt.level); !geom.NearlyEqual(got, tt.want, 1e-5) {
			t.Errorf("KindMultiplier(%v, %d) = %v, want %v", tt.kind, tt.level, got, tt.want)
		}
	}
}

func TestSpawnSchedule(t *testing.T) {
	g := lineage.BuildFallback(&lineage.Record{
		OriginalImage: "A",
		Parents:       lineage.Names{"P1", "P2"},
		Children:      lineage.Names{"C1", "C2", "C3"},
	})
	opts := DefaultOptions()
	l := Build(g, opts)
	delays := map[string]float32{}
	for _, n := range l.Nodes {
		delays[n.Name] = n.SpawnDelay
	}

	afterOriginal := opts.GroupGap + 1*opts.SizeStep
	afterParents := afterOriginal + opts.GroupGap + 2*opts.SizeStep
	want := map[string]float32{
		"A":  0,
		"P1": afterOriginal,
		"P2": afterOriginal + opts.GroupStep,
		"C1": afterParents,
		"C2": afterParents + opts.GroupStep,
		"C3": afterParents + 2*opts.GroupStep,
	}
	for name, w := range want {
		if !geom.NearlyEqual(delays[name], w, 1e-5) {
			t.Errorf("%s delay = %v, want %v", name, delays[name], w)
		}
	}
	if d := l.Duration(); d <= want["C3"] {
		t.Errorf("duration %v should exceed the last spawn delay", d)
	}
}

func TestEdges(t *testing.T) {
	g := lineage.Graph{
		Nodes: []lineage.Node{
			{Name: "A", Kind: lineage.KindOriginal},
			{Name: "P", Kind: lineage.KindParent, Level: -1},
			{Name: "C", Kind: lineage.KindChild, Level: 1},
			{Name: "G", Kind: lineage.KindAncestor, Level: -2},
		},
		Edges: []lineage.Edge{
			{Source: "P", Target: "A"},
			{Source: "P", Target: "A"},
			{Source: "P", Target: "C"},
			{Source: "G", Target: "P"},
			{Source: "G", Target: "ghost"},
		},
	}
	l := Build(g, DefaultOptions())
	want := []Edge{
		{Source: "P", Target: "A", Tight: true, Opacity: TightOpacity},
		{Source: "P", Target: "C", Tight: true, Opacity: TightOpacity},
		{Source: "G", Target: "P", Tight: false, Opacity: LooseOpacity},
	}
	if !slices.Equal(l.Edges, want) {
		t.Errorf("edges = %+v, want %+v", l.Edges, want)
	}
}

func TestEdgesToDroppedNodes(t *testing.T) {
	g := bigGraph()
	g.Edges = []lineage.Edge{{Source: "anc00", Target: "par00"}, {Source: "par00", Target: "A"}}
	l := Build(g, DefaultOptions())
	if len(l.Edges) != 1 || l.Edges[0].Source != "par00" {
		t.Errorf("edges = %+v, want only par00->A", l.Edges)
	}
}
