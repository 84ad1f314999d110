// Package render groups the static renderers of lineage graphs.
//
// The animated views are produced by the reveal engine and, for still
// frames, by package capture. This tree holds the renderers that need no
// simulation at all:
//
//   - [nodelink]: Graphviz DOT, SVG and PNG of the canonical graph, one rank
//     per level
package render
