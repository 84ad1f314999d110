package lineage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Record is a relation record as delivered by upstream systems.
//
// Decoding is tolerant: list fields that are missing, null, of the wrong type
// or contain non-string entries decode to the string entries they do contain.
// Only syntactically invalid JSON is an error.
type Record struct {
	OriginalImage    string    `json:"original_image" bson:"original_image"`
	Parents          Names     `json:"parents" bson:"parents"`
	Children         Names     `json:"children" bson:"children"`
	Siblings         Names     `json:"siblings" bson:"siblings"`
	AncestorsByLevel Levels    `json:"ancestors_by_level" bson:"ancestors_by_level"`
	LineageGraph     *RawGraph `json:"lineage_graph,omitempty" bson:"lineage_graph,omitempty"`
}

// UnmarshalJSON decodes a record leniently. A non-string original_image is
// treated as absent.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w struct {
		OriginalImage    any       `json:"original_image"`
		Parents          Names     `json:"parents"`
		Children         Names     `json:"children"`
		Siblings         Names     `json:"siblings"`
		AncestorsByLevel Levels    `json:"ancestors_by_level"`
		LineageGraph     *RawGraph `json:"lineage_graph"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	original, _ := w.OriginalImage.(string)
	*r = Record{
		OriginalImage:    original,
		Parents:          w.Parents,
		Children:         w.Children,
		Siblings:         w.Siblings,
		AncestorsByLevel: w.AncestorsByLevel,
		LineageGraph:     w.LineageGraph,
	}
	return nil
}

// Names is a list of image names that decodes leniently.
type Names []string

// UnmarshalJSON keeps the string entries of an array and ignores anything else.
func (n *Names) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = namesFrom(raw)
	return nil
}

func namesFrom(v any) Names {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make(Names, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Levels is a leveled list of ancestor names; index i holds level -(i+1).
type Levels []Names

// UnmarshalJSON keeps array rows and drops rows of any other type. Rows keep
// their position so level numbering is preserved.
func (l *Levels) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	arr, ok := raw.([]any)
	if !ok {
		*l = nil
		return nil
	}
	out := make(Levels, 0, len(arr))
	for _, row := range arr {
		out = append(out, namesFrom(row))
	}
	*l = out
	return nil
}

// RawNode is an undecoded candidate node: a JSON object that may or may not
// carry usable "name", "level" and "kind" fields.
type RawNode map[string]any

// RawEdge is an undecoded candidate edge with "source" and "target" fields.
type RawEdge map[string]any

// RawGraph is a candidate lineage graph before sanitization.
type RawGraph struct {
	Nodes []RawNode `json:"nodes" bson:"nodes"`
	Edges []RawEdge `json:"edges" bson:"edges"`
}

// UnmarshalJSON decodes a candidate graph, keeping only entries that are JSON
// objects. A non-object graph decodes as empty.
func (g *RawGraph) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*g = RawGraph{}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	if nodes, ok := obj["nodes"].([]any); ok {
		for _, n := range nodes {
			if m, ok := n.(map[string]any); ok {
				g.Nodes = append(g.Nodes, RawNode(m))
			}
		}
	}
	if edges, ok := obj["edges"].([]any); ok {
		for _, e := range edges {
			if m, ok := e.(map[string]any); ok {
				g.Edges = append(g.Edges, RawEdge(m))
			}
		}
	}
	return nil
}

// ReadRecord decodes a relation record from r.
func ReadRecord(r io.Reader) (*Record, error) {
	var rec Record
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}

// ReadRecordFile decodes a relation record from a JSON file.
func ReadRecordFile(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadRecord(f)
}

// UnmarshalRecord decodes a relation record from JSON bytes.
func UnmarshalRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}
