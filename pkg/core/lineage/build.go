package lineage

import (
	"math"
)

// Build canonicalizes a relation record into a lineage graph.
//
// The record's candidate graph is sanitized first; if that yields any nodes
// it is returned as is. Otherwise the graph is synthesized from the flat
// relation lists with [BuildFallback]. Build never fails: a nil record
// yields an empty graph.
func Build(rec *Record) Graph {
	if rec == nil {
		return Empty()
	}
	if g := Sanitize(rec.LineageGraph, rec); len(g.Nodes) > 0 {
		return g
	}
	return BuildFallback(rec)
}

// Sanitize turns a possibly malformed candidate graph into a canonical one.
//
//   - nodes without a non-empty string name are dropped
//   - a missing or non-finite level becomes 0; fractional levels truncate
//   - a missing or unknown kind is inferred from the level
//   - the node named by the record's original_image becomes the original
//     (level 0); any other node claiming to be original is re-derived, and a
//     level-0 impostor becomes a sibling
//   - if nodes survived but none is the original, one is synthesized
//   - edges survive only when both endpoints are strings naming known nodes,
//     deduplicated by source->target
//
// Duplicate names merge with the same rules as [BuildFallback]. A nil or
// empty candidate yields an empty graph.
func Sanitize(candidate *RawGraph, rec *Record) Graph {
	if candidate == nil || len(candidate.Nodes) == 0 {
		return Empty()
	}
	var original string
	if rec != nil {
		original = rec.OriginalImage
	}

	b := newBuilder()
	for _, raw := range candidate.Nodes {
		name, ok := raw["name"].(string)
		if !ok || name == "" {
			continue
		}
		level := levelOf(raw["level"])
		kind, ok := kindOf(raw["kind"])
		if !ok {
			kind = InferKind(level)
		}
		switch {
		case original != "" && name == original:
			kind, level = KindOriginal, 0
		case original != "" && kind == KindOriginal:
			kind = InferKind(level)
			if kind == KindOriginal {
				kind = KindSibling
			}
		}
		b.upsert(name, level, kind)
	}

	if len(b.nodes) > 0 && original != "" && !b.has(original) {
		b.upsert(original, 0, KindOriginal)
	}

	for _, raw := range candidate.Edges {
		source, okS := raw["source"].(string)
		target, okT := raw["target"].(string)
		if !okS || !okT {
			continue
		}
		b.addEdge(source, target)
	}
	return b.graph()
}

// BuildFallback synthesizes a graph from the record's flat relation lists.
//
// The original is upserted at level 0, parents at -1 with parent→original
// edges, children at +1 with original→child edges. Ancestor row i gets level
// -(i+1) and kind parent for i == 0, ancestor otherwise; every name in row
// i > 0 links to every name in row i-1. Siblings are not part of the
// fallback graph.
func BuildFallback(rec *Record) Graph {
	if rec == nil {
		return Empty()
	}
	b := newBuilder()
	original := rec.OriginalImage
	b.upsert(original, 0, KindOriginal)

	for _, p := range rec.Parents {
		b.upsert(p, -1, KindParent)
		b.addEdge(p, original)
	}
	for _, c := range rec.Children {
		b.upsert(c, 1, KindChild)
		b.addEdge(original, c)
	}
	for i, row := range rec.AncestorsByLevel {
		kind := KindAncestor
		if i == 0 {
			kind = KindParent
		}
		for _, name := range row {
			b.upsert(name, -(i + 1), kind)
		}
		if i == 0 {
			continue
		}
		for _, name := range row {
			for _, below := range rec.AncestorsByLevel[i-1] {
				b.addEdge(name, below)
			}
		}
	}
	return b.graph()
}

// levelOf extracts an integer level from a decoded JSON value.
func levelOf(v any) int {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

func kindOf(v any) (Kind, bool) {
	switch x := v.(type) {
	case string:
		return ParseKind(x)
	case Kind:
		return x, x.Valid()
	default:
		return 0, false
	}
}
