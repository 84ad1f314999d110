package lineage

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrEmptyName is returned by [Graph.Validate] when a node has no name.
	ErrEmptyName = errors.New("node name must not be empty")

	// ErrDuplicateName is returned by [Graph.Validate] when two nodes share a name.
	ErrDuplicateName = errors.New("duplicate node name")

	// ErrUnknownEndpoint is returned by [Graph.Validate] when an edge references
	// a node that is not in the node set.
	ErrUnknownEndpoint = errors.New("edge references unknown node")

	// ErrOriginalCount is returned by [Graph.Validate] when the graph does not
	// contain exactly one original node although one was expected.
	ErrOriginalCount = errors.New("graph must contain exactly one original node")
)

// Node is one image in the lineage graph. Name is both the unique id and the
// image reference.
type Node struct {
	Name  string `json:"name" bson:"name"`
	Kind  Kind   `json:"kind" bson:"kind"`
	Level int    `json:"level" bson:"level"`
}

// Edge is a directed relation from Source to Target.
type Edge struct {
	Source string `json:"source" bson:"source"`
	Target string `json:"target" bson:"target"`
}

// Key returns the deduplication key "source->target".
func (e Edge) Key() string { return e.Source + "->" + e.Target }

// Graph is the canonical lineage graph consumed by every layout engine.
// Node order is insertion order; layouts impose their own ordering.
type Graph struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

// Empty returns a graph with no nodes and no edges. Its slices are non-nil so
// it serializes as empty arrays.
func Empty() Graph {
	return Graph{Nodes: []Node{}, Edges: []Edge{}}
}

// NodeCount returns the number of nodes.
func (g Graph) NodeCount() int { return len(g.Nodes) }

// EdgeCount returns the number of edges.
func (g Graph) EdgeCount() int { return len(g.Edges) }

// Node returns the node with the given name.
func (g Graph) Node(name string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}

// Original returns the first node of kind [KindOriginal].
func (g Graph) Original() (Node, bool) {
	for _, n := range g.Nodes {
		if n.Kind == KindOriginal {
			return n, true
		}
	}
	return Node{}, false
}

// Index returns a name → node lookup.
func (g Graph) Index() map[string]Node {
	idx := make(map[string]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		idx[n.Name] = n
	}
	return idx
}

// OfKind returns the nodes of kind k in graph order.
func (g Graph) OfKind(k Kind) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// Levels returns the distinct levels present, sorted ascending.
func (g Graph) Levels() []int {
	seen := make(map[int]bool)
	var levels []int
	for _, n := range g.Nodes {
		if !seen[n.Level] {
			seen[n.Level] = true
			levels = append(levels, n.Level)
		}
	}
	slices.Sort(levels)
	return levels
}

// Validate checks the graph invariants. When original is non-empty the graph
// must contain exactly one original node and it must carry that name.
func (g Graph) Validate(original string) error {
	names := make(map[string]bool, len(g.Nodes))
	originals := 0
	for _, n := range g.Nodes {
		if n.Name == "" {
			return ErrEmptyName
		}
		if names[n.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateName, n.Name)
		}
		names[n.Name] = true
		if n.Kind == KindOriginal {
			originals++
		}
	}
	for _, e := range g.Edges {
		if !names[e.Source] {
			return fmt.Errorf("%w: %s", ErrUnknownEndpoint, e.Source)
		}
		if !names[e.Target] {
			return fmt.Errorf("%w: %s", ErrUnknownEndpoint, e.Target)
		}
	}
	if original != "" && len(g.Nodes) > 0 {
		if originals != 1 {
			return fmt.Errorf("%w: found %d", ErrOriginalCount, originals)
		}
		if n, ok := g.Node(original); !ok || n.Kind != KindOriginal {
			return fmt.Errorf("%w: %s is not the original", ErrOriginalCount, original)
		}
	}
	return nil
}

// builder accumulates nodes and edges with upsert and dedup semantics.
type builder struct {
	nodes []Node
	index map[string]int
	edges []Edge
	seen  map[string]bool
}

func newBuilder() *builder {
	return &builder{
		index: make(map[string]int),
		seen:  make(map[string]bool),
	}
}

func (b *builder) has(name string) bool {
	_, ok := b.index[name]
	return ok
}

// upsert inserts a node or merges it into an existing one: the minimum level
// wins and the kind with the lower rank wins. Equal ranks keep the first kind.
func (b *builder) upsert(name string, level int, kind Kind) {
	if name == "" {
		return
	}
	i, ok := b.index[name]
	if !ok {
		b.index[name] = len(b.nodes)
		b.nodes = append(b.nodes, Node{Name: name, Kind: kind, Level: level})
		return
	}
	n := &b.nodes[i]
	n.Level = min(n.Level, level)
	if kind.Rank() < n.Kind.Rank() {
		n.Kind = kind
	}
}

// addEdge appends source→target when both endpoints exist and the pair has
// not been seen.
func (b *builder) addEdge(source, target string) {
	if !b.has(source) || !b.has(target) {
		return
	}
	e := Edge{Source: source, Target: target}
	if b.seen[e.Key()] {
		return
	}
	b.seen[e.Key()] = true
	b.edges = append(b.edges, e)
}

func (b *builder) graph() Graph {
	g := Empty()
	g.Nodes = append(g.Nodes, b.nodes...)
	g.Edges = append(g.Edges, b.edges...)
	return g
}
