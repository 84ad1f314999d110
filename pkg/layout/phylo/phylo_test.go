package phylo

import (
	"testing"

	"cogentcore.org/core/math32"

	"github.com/matzehuels/kinship/pkg/core/geom"
	"github.com/matzehuels/kinship/pkg/core/lineage"
)

func sampleGraph() lineage.Graph {
	return lineage.BuildFallback(&lineage.Record{
		OriginalImage:    "A",
		Parents:          lineage.Names{"P1", "P2"},
		Children:         lineage.Names{"C1"},
		AncestorsByLevel: lineage.Levels{{"P1", "P2"}, {"G1"}},
	})
}

func TestBuildCentersBoundingBox(t *testing.T) {
	graphs := map[string]lineage.Graph{
		"sample": sampleGraph(),
		"single": lineage.BuildFallback(&lineage.Record{OriginalImage: "A"}),
		"wide": lineage.BuildFallback(&lineage.Record{
			OriginalImage: "A",
			Children:      lineage.Names{"c1", "c2", "c3", "c4", "c5"},
		}),
	}
	for name, g := range graphs {
		t.Run(name, func(t *testing.T) {
			l := Build(g, DefaultOptions())
			c := l.Box.Center()
			for _, v := range []float32{c.X, c.Y, c.Z} {
				if !geom.NearlyEqual(v, 0, 1e-4) {
					t.Fatalf("box center = %v, want origin", c)
				}
			}
		})
	}
}

func TestBuildRows(t *testing.T) {
	l := Build(sampleGraph(), DefaultOptions())
	if len(l.Nodes) != 5 {
		t.Fatalf("nodes = %d, want 5", len(l.Nodes))
	}

	y := map[int]float32{}
	for _, n := range l.Nodes {
		if prev, ok := y[n.Level]; ok && prev != n.Position.Y {
			t.Errorf("level %d has mixed heights %v and %v", n.Level, prev, n.Position.Y)
		}
		y[n.Level] = n.Position.Y
	}
	// Ancestors on top, children at the bottom.
	if !(y[-2] > y[-1] && y[-1] > y[0] && y[0] > y[1]) {
		t.Errorf("row heights not descending by level: %v", y)
	}
	if d := y[-1] - y[0]; !geom.NearlyEqual(d, 6, 1e-4) {
		t.Errorf("level gap = %v, want 6", d)
	}

	p1, _ := l.Position("P1")
	p2, _ := l.Position("P2")
	if p1.X >= p2.X {
		t.Errorf("row not sorted by name: P1.x=%v P2.x=%v", p1.X, p2.X)
	}
	if d := p2.X - p1.X; !geom.NearlyEqual(d, 5, 1e-4) {
		t.Errorf("spacing = %v, want 5", d)
	}
	if !geom.NearlyEqual(p1.X+p2.X, 0, 1e-4) {
		t.Errorf("row not symmetric: %v, %v", p1.X, p2.X)
	}
}

func TestBuildEdgesCopyEndpoints(t *testing.T) {
	l := Build(sampleGraph(), DefaultOptions())
	if len(l.Edges) != 5 {
		t.Fatalf("edges = %d, want 5", len(l.Edges))
	}
	for _, e := range l.Edges {
		from, _ := l.Position(e.Source)
		to, _ := l.Position(e.Target)
		if e.From != from || e.To != to {
			t.Errorf("edge %s->%s endpoints do not match node positions", e.Source, e.Target)
		}
	}
}

func TestBuildEmpty(t *testing.T) {
	l := Build(lineage.Empty(), DefaultOptions())
	if len(l.Nodes) != 0 || len(l.Edges) != 0 {
		t.Errorf("layout = %+v, want empty", l)
	}
	if l.Box.IsEmpty() {
		t.Error("empty layout should have a degenerate, non-empty box at the origin")
	}
}

func TestFrameFitsHeight(t *testing.T) {
	box := math32.B3(-1, -10, 0, 1, 10, 0)
	cam := Frame(box, 60, 1, FrameOptions{})
	want := 10 / math32.Tan(math32.DegToRad(30))
	if !geom.NearlyEqual(cam.Distance, want, 1e-3) {
		t.Errorf("distance = %v, want %v", cam.Distance, want)
	}
	if cam.MinDistance != cam.Distance*0.25 || cam.MaxDistance != cam.Distance*3 {
		t.Errorf("orbit limits = %v/%v", cam.MinDistance, cam.MaxDistance)
	}
	if cam.Target != (geom.Vec3{}) {
		t.Errorf("target = %v, want origin", cam.Target)
	}
}

func TestFrameFitsWidth(t *testing.T) {
	box := math32.B3(-20, -1, 0, 20, 1, 0)
	cam := Frame(box, 60, 2, FrameOptions{})
	tanH := math32.Tan(math32.DegToRad(30)) * 2
	want := 20 / tanH
	if !geom.NearlyEqual(cam.Distance, want, 1e-3) {
		t.Errorf("distance = %v, want %v", cam.Distance, want)
	}
}

func TestFrameMarginAndDefaults(t *testing.T) {
	box := math32.B3(-5, -5, 0, 5, 5, 0)
	a := Frame(box, 0, 0, FrameOptions{})
	b := Frame(box, DefaultFOV, DefaultAspect, FrameOptions{Margin: 3})
	if a.FOV != DefaultFOV {
		t.Errorf("fov = %v, want default", a.FOV)
	}
	if !geom.NearlyEqual(b.Distance-a.Distance, 3, 1e-4) {
		t.Errorf("margin not added: %v vs %v", a.Distance, b.Distance)
	}
	if a.Near <= 0 || a.Far <= a.Distance {
		t.Errorf("clip planes = %v/%v", a.Near, a.Far)
	}
}

func TestHorizontalFOV(t *testing.T) {
	if got := HorizontalFOV(60, 1); !geom.NearlyEqual(got, 60, 1e-3) {
		t.Errorf("HorizontalFOV(60, 1) = %v, want 60", got)
	}
	if got := HorizontalFOV(60, 2); got <= 60 {
		t.Errorf("HorizontalFOV(60, 2) = %v, want > 60", got)
	}
}

func TestSceneMotionIsSmall(t *testing.T) {
	for i := range 50 {
		m := SceneMotion(float32(i) * 1.7)
		if math32.Abs(m.RotationY) > 0.25 || math32.Abs(m.OffsetY) > 0.15 {
			t.Fatalf("motion at step %d = %+v", i, m)
		}
	}
	p := geom.V(3, 1, 0)
	if got := (Motion{}).Apply(p); got != p {
		t.Errorf("identity motion moved %v to %v", p, got)
	}
}
