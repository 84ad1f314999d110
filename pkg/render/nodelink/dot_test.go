package nodelink

import (
	"bytes"
	"strings"
	"testing"

	"github.com/matzehuels/kinship/pkg/core/lineage"
)

func sampleGraph() lineage.Graph {
	return lineage.Build(&lineage.Record{
		OriginalImage: "A",
		Parents:       lineage.Names{"P1"},
		Children:      lineage.Names{"C1", "C2"},
	})
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sampleGraph(), Options{})

	for _, want := range []string{
		"digraph G {",
		`"A" [label="A", fillcolor="#f6c945", penwidth=3];`,
		`"P1" -> "A";`,
		`"A" -> "C1";`,
		`{ rank=same; "C1"; "C2"; }`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Index(dot, `"A" -> "C1"`) > strings.Index(dot, `"P1" -> "A"`) {
		t.Error("edges should be sorted by key")
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(sampleGraph(), Options{Detailed: true})
	if !strings.Contains(dot, `label="P1\nparent, level -1"`) {
		t.Errorf("detailed label missing:\n%s", dot)
	}
}

func TestToDOTSingleLevel(t *testing.T) {
	dot := ToDOT(lineage.Build(&lineage.Record{OriginalImage: "A"}), Options{})
	if strings.Contains(dot, "rank=same") {
		t.Error("a single level needs no rank constraints")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	tests := []struct {
		name string
		svg  string
		want string
	}{
		{
			name: "with viewBox",
			svg:  `<svg viewBox="10 20 800 600" xmlns="http://www.w3.org/2000/svg">content</svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 800.00 600.00" width="800" height="600">content</svg>`,
		},
		{
			name: "no viewBox",
			svg:  `<svg xmlns="http://www.w3.org/2000/svg">content</svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg">content</svg>`,
		},
		{
			name: "zero dimensions",
			svg:  `<svg viewBox="0 0 0 0">content</svg>`,
			want: `<svg viewBox="0 0 0 0">content</svg>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeViewBox([]byte(tt.svg)); string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(ToDOT(sampleGraph(), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Error("output missing <svg> tag")
	}
}

func TestRenderSVGInvalidDOT(t *testing.T) {
	if _, err := RenderSVG(`not valid DOT {{{`); err == nil {
		t.Error("want error for invalid DOT")
	}
}

func TestRenderPNG(t *testing.T) {
	png, err := RenderPNG(`digraph G { a -> b; }`)
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}
