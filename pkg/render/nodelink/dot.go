package nodelink

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/kinship/pkg/core/lineage"
)

// Options configures DOT generation.
type Options struct {
	// Detailed adds kind and level lines under each name.
	Detailed bool
}

var kindFill = map[lineage.Kind]string{
	lineage.KindOriginal: "#f6c945",
	lineage.KindParent:   "#8ecae6",
	lineage.KindChild:    "#90be6d",
	lineage.KindSibling:  "#cdb4db",
	lineage.KindAncestor: "#d9d9d9",
}

// ToDOT converts a lineage graph to Graphviz DOT. Nodes sharing a level are
// pinned to the same rank.
func ToDOT(g lineage.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=18, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.3;\n\n")

	for _, n := range g.Nodes {
		fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=%q", n.Name, label(n, opts.Detailed), fill(n.Kind))
		if n.Kind == lineage.KindOriginal {
			buf.WriteString(", penwidth=3")
		}
		buf.WriteString("];\n")
	}

	byLevel := map[int][]string{}
	for _, n := range g.Nodes {
		byLevel[n.Level] = append(byLevel[n.Level], n.Name)
	}
	levels := slices.Sorted(maps.Keys(byLevel))
	if len(levels) > 1 {
		buf.WriteString("\n")
		for _, l := range levels {
			buf.WriteString("  { rank=same;")
			for _, name := range byLevel[l] {
				fmt.Fprintf(&buf, " %q;", name)
			}
			buf.WriteString(" }\n")
		}
	}

	buf.WriteString("\n")
	edges := slices.Clone(g.Edges)
	slices.SortStableFunc(edges, func(a, b lineage.Edge) int { return cmp.Compare(a.Key(), b.Key()) })
	for _, e := range edges {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func label(n lineage.Node, detailed bool) string {
	if !detailed {
		return n.Name
	}
	return fmt.Sprintf("%s\n%s, level %d", n.Name, n.Kind, n.Level)
}

func fill(k lineage.Kind) string {
	if c, ok := kindFill[k]; ok {
		return c
	}
	return "white"
}

// RenderSVG renders DOT source to SVG with a zero-origin viewBox.
func RenderSVG(dot string) ([]byte, error) {
	data, err := render(dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(data), nil
}

// RenderPNG renders DOT source to PNG.
func RenderPNG(dot string) ([]byte, error) {
	return render(dot, graphviz.PNG)
}

func render(dot string, format graphviz.Format) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root tag so the viewBox starts at the origin
// and width/height match it.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
