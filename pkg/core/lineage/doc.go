// Package lineage turns kinship relation records into a canonical graph.
//
// # Overview
//
// A relation record describes one original image and its relatives: flat
// lists of parents, children and siblings, a leveled list of ancestors, and
// optionally a pre-built candidate graph. Records come from external systems
// and are frequently partial or malformed, so this package never fails on
// bad data: it sanitizes what it can and drops the rest.
//
// The canonical [Graph] satisfies three invariants that every layout engine
// relies on:
//
//  1. node names are unique,
//  2. every edge endpoint exists in the node set,
//  3. exactly one node has kind [KindOriginal] whenever the record names one.
//
// # Building
//
// [Build] is the entry point. It first tries [Sanitize] on the record's
// candidate graph and, when that yields no nodes, synthesizes a graph from
// the flat relation lists with [BuildFallback]:
//
//	rec, _ := lineage.ReadRecordFile("record.json")
//	g := lineage.Build(rec)
//
// # Levels and kinds
//
// Level is the signed distance from the original (0). Negative levels point
// toward ancestors, positive levels toward descendants. When a candidate node
// has no usable kind, [InferKind] derives it from the level.
//
// When the same name is seen more than once, the entries merge: the minimum
// level wins and the kind with the higher priority (lower [Kind.Rank]) wins.
// Parent and child share a rank, so for a relation cycle the first-seen kind
// is kept.
package lineage
