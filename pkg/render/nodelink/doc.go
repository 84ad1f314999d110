// Package nodelink exports lineage graphs as Graphviz node-link diagrams.
//
// This is the flat, printable companion to the 3D layouts: one box per image,
// one arrow per relation, rows ranked by generation so ancestors sit above
// the original and children below.
//
//	dot := nodelink.ToDOT(g, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(dot)
//
// [RenderSVG] and [RenderPNG] run Graphviz in-process through
// [github.com/goccy/go-graphviz]; no external binaries are needed.
package nodelink
