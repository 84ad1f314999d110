package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/kinship/pkg/core/lineage"
)

// FromLineage converts a canonical graph. Node and edge order is kept, so the
// output is as deterministic as the builder.
func FromLineage(g lineage.Graph, original string) Graph {
	out := Graph{
		Original: original,
		Nodes:    make([]Node, len(g.Nodes)),
		Edges:    make([]Edge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = Node{Name: n.Name, Kind: n.Kind.String(), Level: n.Level}
	}
	for i, e := range g.Edges {
		out.Edges[i] = Edge{Source: e.Source, Target: e.Target}
	}
	return out
}

// ToLineage converts back and validates the result. Unlike the record
// builder, a wire graph is expected to be canonical already: unknown kinds,
// duplicate names and dangling edges are errors.
func ToLineage(gw Graph) (lineage.Graph, error) {
	g := lineage.Empty()
	for _, n := range gw.Nodes {
		k, ok := lineage.ParseKind(n.Kind)
		if !ok {
			return lineage.Graph{}, fmt.Errorf("node %s: unknown kind %q", n.Name, n.Kind)
		}
		g.Nodes = append(g.Nodes, lineage.Node{Name: n.Name, Kind: k, Level: n.Level})
	}
	for _, e := range gw.Edges {
		g.Edges = append(g.Edges, lineage.Edge{Source: e.Source, Target: e.Target})
	}
	if err := g.Validate(gw.Original); err != nil {
		return lineage.Graph{}, err
	}
	return g, nil
}

// MarshalGraph converts a lineage graph to indented JSON.
func MarshalGraph(g lineage.Graph, original string) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteGraph(g, original, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraph writes a lineage graph as JSON to w.
func WriteGraph(g lineage.Graph, original string, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(FromLineage(g, original)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteGraphFile writes a lineage graph to a JSON file.
func WriteGraphFile(g lineage.Graph, original, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteGraph(g, original, f)
}

// ReadGraph decodes and validates a JSON graph.
func ReadGraph(r io.Reader) (lineage.Graph, string, error) {
	var gw Graph
	if err := json.NewDecoder(r).Decode(&gw); err != nil {
		return lineage.Graph{}, "", fmt.Errorf("decode: %w", err)
	}
	g, err := ToLineage(gw)
	return g, gw.Original, err
}

// ReadGraphFile reads a JSON graph file.
func ReadGraphFile(path string) (lineage.Graph, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return lineage.Graph{}, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadGraph(f)
}

// UnmarshalGraph decodes JSON bytes, see [ReadGraph].
func UnmarshalGraph(data []byte) (lineage.Graph, string, error) {
	return ReadGraph(bytes.NewReader(data))
}
