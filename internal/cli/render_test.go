package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty defaults to svg", "", []string{"svg"}},
		{"single format", "dot", []string{"dot"}},
		{"multiple formats", "svg,dot,png", []string{"svg", "dot", "png"}},
		{"spaces and empties", " json, ,svg", []string{"json", "svg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFormats(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i, v := range got {
				if v != tt.want[i] {
					t.Errorf("parseFormats(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
				}
			}
		})
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input, want string
	}{
		{"", "records/a.json", "records/a"},
		{"", "-", "record"},
		{"out.svg", "a.json", "out"},
		{"out.png", "a.json", "out"},
		{"out.tar", "a.json", "out.tar"},
		{"out", "a.json", "out"},
	}
	for _, tt := range tests {
		if got := basePath(tt.output, tt.input); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		output, input, suffix, want string
	}{
		{"", "a.json", ".layout.json", "a.layout.json"},
		{"", "-", ".graph.json", "record.graph.json"},
		{"x.json", "a.json", ".layout.json", "x.json"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.output, tt.input, tt.suffix); got != tt.want {
			t.Errorf("outputPath(%q, %q, %q) = %q, want %q", tt.output, tt.input, tt.suffix, got, tt.want)
		}
	}
}

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	artifacts := map[string][]byte{"svg": []byte("<svg/>"), "dot": []byte("digraph {}")}

	paths, err := writeArtifacts(artifacts, []string{"svg", "dot"}, filepath.Join(dir, "rec.json"), "")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "rec.svg"), filepath.Join(dir, "rec.dot")}
	for i, p := range want {
		if paths[i] != p {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], p)
		}
	}

	single := filepath.Join(dir, "exact.name")
	paths, err = writeArtifacts(artifacts, []string{"svg"}, "rec.json", single)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(paths[0])
	if err != nil || string(data) != "<svg/>" || paths[0] != single {
		t.Errorf("single artifact at %v: %q (%v)", paths, data, err)
	}
}
