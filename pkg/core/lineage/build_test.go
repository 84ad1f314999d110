package lineage

import (
	"encoding/json"
	"errors"
	"math"
	"slices"
	"testing"
)

func edgeKeys(g Graph) []string {
	keys := make([]string, len(g.Edges))
	for i, e := range g.Edges {
		keys[i] = e.Key()
	}
	return keys
}

func TestBuildFallback(t *testing.T) {
	rec := &Record{
		OriginalImage:    "A",
		Parents:          Names{"P1", "P2"},
		Children:         Names{"C1"},
		AncestorsByLevel: Levels{{"P1", "P2"}, {"G1"}},
	}

	g := Build(rec)

	want := map[string]Node{
		"A":  {Name: "A", Kind: KindOriginal, Level: 0},
		"P1": {Name: "P1", Kind: KindParent, Level: -1},
		"P2": {Name: "P2", Kind: KindParent, Level: -1},
		"C1": {Name: "C1", Kind: KindChild, Level: 1},
		"G1": {Name: "G1", Kind: KindAncestor, Level: -2},
	}
	if len(g.Nodes) != len(want) {
		t.Fatalf("nodes = %d, want %d: %+v", len(g.Nodes), len(want), g.Nodes)
	}
	for _, n := range g.Nodes {
		if w, ok := want[n.Name]; !ok || w != n {
			t.Errorf("node %s = %+v, want %+v", n.Name, n, w)
		}
	}

	wantEdges := []string{"P1->A", "P2->A", "A->C1", "G1->P1", "G1->P2"}
	if got := edgeKeys(g); !slices.Equal(got, wantEdges) {
		t.Errorf("edges = %v, want %v", got, wantEdges)
	}
	if err := g.Validate("A"); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestBuildFallbackUpsertPriority(t *testing.T) {
	tests := []struct {
		name      string
		rec       *Record
		node      string
		wantKind  Kind
		wantLevel int
	}{
		{
			name:      "OriginalListedAsParent",
			rec:       &Record{OriginalImage: "A", Parents: Names{"A"}},
			node:      "A",
			wantKind:  KindOriginal,
			wantLevel: -1,
		},
		{
			name:      "ParentAndChildTieKeepsFirst",
			rec:       &Record{OriginalImage: "A", Parents: Names{"X"}, Children: Names{"X"}},
			node:      "X",
			wantKind:  KindParent,
			wantLevel: -1,
		},
		{
			name:      "AncestorDemotedByParent",
			rec:       &Record{OriginalImage: "A", AncestorsByLevel: Levels{{"P"}, {"G"}}, Parents: Names{"G"}},
			node:      "G",
			wantKind:  KindParent,
			wantLevel: -2,
		},
		{
			name:      "MinimumLevelWins",
			rec:       &Record{OriginalImage: "A", Parents: Names{"P"}, AncestorsByLevel: Levels{{}, {}, {"P"}}},
			node:      "P",
			wantKind:  KindParent,
			wantLevel: -3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := BuildFallback(tt.rec)
			n, ok := g.Node(tt.node)
			if !ok {
				t.Fatalf("node %s missing", tt.node)
			}
			if n.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", n.Kind, tt.wantKind)
			}
			if n.Level != tt.wantLevel {
				t.Errorf("level = %d, want %d", n.Level, tt.wantLevel)
			}
		})
	}
}

func TestBuildNilAndEmpty(t *testing.T) {
	if g := Build(nil); len(g.Nodes) != 0 || len(g.Edges) != 0 {
		t.Errorf("Build(nil) = %+v, want empty", g)
	}
	g := Build(&Record{})
	if len(g.Nodes) != 0 {
		t.Errorf("Build(empty record) nodes = %d, want 0", len(g.Nodes))
	}
	g = Build(&Record{OriginalImage: "only"})
	if len(g.Nodes) != 1 || g.Nodes[0].Kind != KindOriginal {
		t.Errorf("Build(original only) = %+v", g.Nodes)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name      string
		candidate *RawGraph
		original  string
		wantNodes map[string]Node
		wantEdges []string
	}{
		{
			name:      "Nil",
			candidate: nil,
			original:  "A",
			wantNodes: map[string]Node{},
		},
		{
			name: "DropsNamelessNodes",
			candidate: &RawGraph{Nodes: []RawNode{
				{"name": "A", "level": 0.0},
				{"level": 1.0},
				{"name": 12.0},
				{"name": ""},
			}},
			original:  "A",
			wantNodes: map[string]Node{"A": {Name: "A", Kind: KindOriginal}},
		},
		{
			name: "InfersKindFromLevel",
			candidate: &RawGraph{Nodes: []RawNode{
				{"name": "A"},
				{"name": "p", "level": -1.0},
				{"name": "g", "level": -3.0},
				{"name": "c", "level": 2.0},
				{"name": "s", "level": 0.0, "kind": "sibling"},
				{"name": "x", "level": -1.0, "kind": "bogus"},
			}},
			original: "A",
			wantNodes: map[string]Node{
				"A": {Name: "A", Kind: KindOriginal},
				"p": {Name: "p", Kind: KindParent, Level: -1},
				"g": {Name: "g", Kind: KindAncestor, Level: -3},
				"c": {Name: "c", Kind: KindChild, Level: 2},
				"s": {Name: "s", Kind: KindSibling},
				"x": {Name: "x", Kind: KindParent, Level: -1},
			},
		},
		{
			name: "NonFiniteLevel",
			candidate: &RawGraph{Nodes: []RawNode{
				{"name": "A"},
				{"name": "n", "level": math.NaN(), "kind": "child"},
				{"name": "i", "level": math.Inf(1), "kind": "child"},
				{"name": "s", "level": "abc", "kind": "sibling"},
			}},
			original: "A",
			wantNodes: map[string]Node{
				"A": {Name: "A", Kind: KindOriginal},
				"n": {Name: "n", Kind: KindChild},
				"i": {Name: "i", Kind: KindChild},
				"s": {Name: "s", Kind: KindSibling},
			},
		},
		{
			name: "SynthesizesOriginal",
			candidate: &RawGraph{
				Nodes: []RawNode{{"name": "p", "level": -1.0}},
				Edges: []RawEdge{{"source": "p", "target": "A"}},
			},
			original: "A",
			wantNodes: map[string]Node{
				"p": {Name: "p", Kind: KindParent, Level: -1},
				"A": {Name: "A", Kind: KindOriginal},
			},
			wantEdges: []string{"p->A"},
		},
		{
			name: "DemotesImpostorOriginal",
			candidate: &RawGraph{Nodes: []RawNode{
				{"name": "A", "kind": "original"},
				{"name": "B", "kind": "original"},
				{"name": "C", "level": 2.0, "kind": "original"},
			}},
			original: "A",
			wantNodes: map[string]Node{
				"A": {Name: "A", Kind: KindOriginal},
				"B": {Name: "B", Kind: KindSibling},
				"C": {Name: "C", Kind: KindChild, Level: 2},
			},
		},
		{
			name: "FiltersAndDedupesEdges",
			candidate: &RawGraph{
				Nodes: []RawNode{{"name": "A"}, {"name": "p", "level": -1.0}},
				Edges: []RawEdge{
					{"source": "p", "target": "A"},
					{"source": "p", "target": "A"},
					{"source": "A", "target": "p"},
					{"source": "ghost", "target": "A"},
					{"source": 1.0, "target": "A"},
					{"target": "A"},
				},
			},
			original: "A",
			wantNodes: map[string]Node{
				"A": {Name: "A", Kind: KindOriginal},
				"p": {Name: "p", Kind: KindParent, Level: -1},
			},
			wantEdges: []string{"p->A", "A->p"},
		},
		{
			name: "DuplicateNamesMerge",
			candidate: &RawGraph{Nodes: []RawNode{
				{"name": "A"},
				{"name": "x", "level": -2.0, "kind": "ancestor"},
				{"name": "x", "level": -1.0, "kind": "parent"},
			}},
			original: "A",
			wantNodes: map[string]Node{
				"A": {Name: "A", Kind: KindOriginal},
				"x": {Name: "x", Kind: KindParent, Level: -2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Sanitize(tt.candidate, &Record{OriginalImage: tt.original})
			if len(g.Nodes) != len(tt.wantNodes) {
				t.Fatalf("nodes = %+v, want %d nodes", g.Nodes, len(tt.wantNodes))
			}
			for _, n := range g.Nodes {
				if w, ok := tt.wantNodes[n.Name]; !ok || w != n {
					t.Errorf("node %s = %+v, want %+v", n.Name, n, w)
				}
			}
			if got := edgeKeys(g); !slices.Equal(got, tt.wantEdges) && !(len(got) == 0 && len(tt.wantEdges) == 0) {
				t.Errorf("edges = %v, want %v", got, tt.wantEdges)
			}
			if err := g.Validate(tt.original); err != nil {
				t.Errorf("Validate: %v", err)
			}
		})
	}
}

func TestBuildPrefersCandidateGraph(t *testing.T) {
	rec := &Record{
		OriginalImage: "A",
		Parents:       Names{"fallback-parent"},
		LineageGraph: &RawGraph{
			Nodes: []RawNode{{"name": "A"}, {"name": "s", "kind": "sibling"}},
		},
	}
	g := Build(rec)
	if _, ok := g.Node("fallback-parent"); ok {
		t.Error("candidate graph should take precedence over flat lists")
	}
	if _, ok := g.Node("s"); !ok {
		t.Error("candidate node missing")
	}
}

func TestBuildFallsBackWhenCandidateUnusable(t *testing.T) {
	rec := &Record{
		OriginalImage: "A",
		Parents:       Names{"P"},
		LineageGraph:  &RawGraph{Nodes: []RawNode{{"level": 1.0}}},
	}
	g := Build(rec)
	if _, ok := g.Node("P"); !ok {
		t.Errorf("expected fallback graph, got %+v", g.Nodes)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		g       Graph
		wantErr error
	}{
		{
			name:    "Duplicate",
			g:       Graph{Nodes: []Node{{Name: "a"}, {Name: "a"}}},
			wantErr: ErrDuplicateName,
		},
		{
			name:    "UnknownEndpoint",
			g:       Graph{Nodes: []Node{{Name: "a"}}, Edges: []Edge{{Source: "a", Target: "b"}}},
			wantErr: ErrUnknownEndpoint,
		},
		{
			name:    "TwoOriginals",
			g:       Graph{Nodes: []Node{{Name: "a"}, {Name: "b"}}},
			wantErr: ErrOriginalCount,
		},
		{
			name:    "EmptyName",
			g:       Graph{Nodes: []Node{{Name: ""}}},
			wantErr: ErrEmptyName,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.g.Validate("a")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUnmarshalRecordLenient(t *testing.T) {
	data := `{
		"original_image": "A",
		"parents": ["P1", 3, null, "P2"],
		"children": "not-a-list",
		"siblings": null,
		"ancestors_by_level": [["P1"], 7, ["G1", false]],
		"lineage_graph": {"nodes": [{"name": "A"}, "junk", {"name": "B", "level": -1}], "edges": [1, {"source": "B", "target": "A"}]}
	}`
	rec, err := UnmarshalRecord([]byte(data))
	if err != nil {
		t.Fatalf("UnmarshalRecord: %v", err)
	}
	if !slices.Equal(rec.Parents, Names{"P1", "P2"}) {
		t.Errorf("parents = %v", rec.Parents)
	}
	if len(rec.Children) != 0 || len(rec.Siblings) != 0 {
		t.Errorf("children/siblings should be empty: %v %v", rec.Children, rec.Siblings)
	}
	if len(rec.AncestorsByLevel) != 3 || len(rec.AncestorsByLevel[1]) != 0 || !slices.Equal(rec.AncestorsByLevel[2], Names{"G1"}) {
		t.Errorf("ancestors = %v", rec.AncestorsByLevel)
	}
	if rec.LineageGraph == nil || len(rec.LineageGraph.Nodes) != 2 || len(rec.LineageGraph.Edges) != 1 {
		t.Errorf("lineage graph = %+v", rec.LineageGraph)
	}

	g := Build(rec)
	if err := g.Validate("A"); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestUnmarshalRecordBadOriginal(t *testing.T) {
	rec, err := UnmarshalRecord([]byte(`{"original_image": 42, "parents": ["P"]}`))
	if err != nil {
		t.Fatalf("UnmarshalRecord: %v", err)
	}
	if rec.OriginalImage != "" {
		t.Errorf("original = %q, want empty", rec.OriginalImage)
	}
}

func TestUnmarshalRecordSyntaxError(t *testing.T) {
	if _, err := UnmarshalRecord([]byte(`{"original_image":`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestGraphJSONKinds(t *testing.T) {
	g := Graph{Nodes: []Node{{Name: "A", Kind: KindOriginal}, {Name: "g", Kind: KindAncestor, Level: -2}}}
	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Graph
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Nodes[1].Kind != KindAncestor {
		t.Errorf("kind = %v, want ancestor", back.Nodes[1].Kind)
	}
}
