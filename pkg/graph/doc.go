// Package graph provides the wire format for lineage graphs and layouts.
//
// The types here are what the CLI writes to disk, what the HTTP API returns
// and what the layout cache stores. They sit at the boundary between the
// computation packages and everything outside the process:
//
//   - [Graph]: node/edge form of a lineage.Graph
//   - [Layout]: one computed layout, discriminated by Mode
//
// Use [FromLineage]/[ToLineage] for graphs and the From*/Layout methods for
// layouts.
//
// # Graph
//
//	{
//	  "original": "A",
//	  "nodes": [{"name": "A", "kind": "original", "level": 0},
//	            {"name": "P1", "kind": "parent", "level": -1}],
//	  "edges": [{"source": "P1", "target": "A"}]
//	}
//
// # Layout
//
// Exactly one section matches the mode:
//
//	{"mode": "ring", "ring": {"cluster_id": "A", "rings": [...]}}
//	{"mode": "incubator", "incubator": {"nodes": [...], "edges": [...]}}
//	{"mode": "phylogeny", "phylogeny": {"nodes": [...], "box": {...}}}
//
// Vectors are encoded as [x, y, z] arrays.
package graph
