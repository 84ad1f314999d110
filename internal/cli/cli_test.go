package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/kinship/pkg/graph"
	"github.com/matzehuels/kinship/pkg/layout"
)

const sampleRecord = `{
	"original_image": "offspring_A",
	"parents": ["offspring_P1", "offspring_P2"],
	"children": ["offspring_C1"],
	"ancestors_by_level": [["offspring_P1", "offspring_P2"], ["offspring_G1"]]
}`

// isolate points the cache and settings directories into a temp dir for the
// rest of the test.
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, "cache"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
}

// run executes the CLI with args and returns what the command wrote as data
// output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	old := stdout
	stdout = io.Discard
	t.Cleanup(func() { stdout = old })

	var out bytes.Buffer
	c := New(io.Discard, LogInfo)
	c.out = &out
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.Execute()
	return out.String(), err
}

func writeRecord(t *testing.T) string {
	t.Helper()
	isolate(t)
	path := filepath.Join(t.TempDir(), "rec.json")
	if err := os.WriteFile(path, []byte(sampleRecord), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGraphCommand(t *testing.T) {
	rec := writeRecord(t)
	if _, err := run(t, "graph", rec); err != nil {
		t.Fatal(err)
	}
	g, original, err := graph.ReadGraphFile(strings.TrimSuffix(rec, ".json") + ".graph.json")
	if err != nil {
		t.Fatal(err)
	}
	if original != "offspring_A" || g.NodeCount() != 5 || g.EdgeCount() != 5 {
		t.Errorf("graph of %s: %d nodes, %d edges", original, g.NodeCount(), g.EdgeCount())
	}
}

func TestLayoutCommandModes(t *testing.T) {
	rec := writeRecord(t)
	tests := []struct {
		mode  string
		want  layout.Mode
		nodes int
	}{
		{"ring", layout.ModeRing, 4},
		{"phylo", layout.ModePhylogeny, 5},
		{"incubator", layout.ModeIncubator, 5},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			out, err := run(t, "layout", "-m", tt.mode, "-o", "-", rec)
			if err != nil {
				t.Fatal(err)
			}
			l, err := graph.UnmarshalLayout([]byte(out))
			if err != nil {
				t.Fatalf("UnmarshalLayout: %v", err)
			}
			if l.Mode != tt.want || l.NodeCount() != tt.nodes {
				t.Errorf("layout = %s with %d nodes, want %s with %d", l.Mode, l.NodeCount(), tt.want, tt.nodes)
			}
		})
	}
}

func TestLayoutCommandRejectsBadFlags(t *testing.T) {
	rec := writeRecord(t)
	for _, args := range [][]string{
		{"layout", "-m", "tower", rec},
		{"layout", "--max-nodes=-1", rec},
		{"layout", filepath.Join(t.TempDir(), "missing.json")},
	} {
		if _, err := run(t, args...); err == nil {
			t.Errorf("%v succeeded", args)
		}
	}
}

func TestRenderCommand(t *testing.T) {
	rec := writeRecord(t)
	base := filepath.Join(t.TempDir(), "out")
	if _, err := run(t, "render", "-f", "dot,svg", "-o", base, rec); err != nil {
		t.Fatal(err)
	}
	dot, err := os.ReadFile(base + ".dot")
	if err != nil || !strings.HasPrefix(string(dot), "digraph") {
		t.Errorf("dot = %.40q (%v)", dot, err)
	}
	svg, err := os.ReadFile(base + ".svg")
	if err != nil || !strings.Contains(string(svg), "<svg") {
		t.Errorf("svg = %.40q (%v)", svg, err)
	}

	if _, err := run(t, "render", "-f", "pdf", rec); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestAnimateHeadlessJSON(t *testing.T) {
	rec := writeRecord(t)
	out, err := run(t, "animate", "-m", "incubator", "--until", "60", "--json", rec)
	if err != nil {
		t.Fatal(err)
	}
	var frame struct {
		Mode    layout.Mode `json:"mode"`
		Time    float32     `json:"t"`
		Settled bool        `json:"settled"`
		Nodes   []struct {
			Name     string  `json:"name"`
			Progress float32 `json:"progress"`
			Visible  bool    `json:"visible"`
		} `json:"nodes"`
	}
	if err := json.Unmarshal([]byte(out), &frame); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if frame.Mode != layout.ModeIncubator || frame.Time < 59.9 || !frame.Settled {
		t.Errorf("frame = %+v", frame)
	}
	for _, n := range frame.Nodes {
		if !n.Visible || n.Progress < 1 {
			t.Errorf("node %s not grown in at t=60: %+v", n.Name, n)
		}
	}
}

func TestCaptureCommand(t *testing.T) {
	rec := writeRecord(t)
	out := filepath.Join(t.TempDir(), "frame.png")
	if _, err := run(t, "capture", "-m", "ring", "-t", "5", "--width", "160", "--height", "90", "-o", out, rec); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("capture did not write a PNG")
	}
}

func TestCachePath(t *testing.T) {
	isolate(t)
	out, err := run(t, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(os.Getenv("XDG_CACHE_HOME"), appName)
	if strings.TrimSpace(out) != want {
		t.Errorf("cache path = %q, want %q", out, want)
	}
}

func TestCacheClear(t *testing.T) {
	rec := writeRecord(t)
	if _, err := run(t, "graph", rec); err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(os.Getenv("XDG_CACHE_HOME"), appName)
	if n := countFiles(t, dir); n == 0 {
		t.Fatal("graph command cached nothing")
	}
	if _, err := run(t, "cache", "clear"); err != nil {
		t.Fatal(err)
	}
	if n := countFiles(t, dir); n != 0 {
		t.Errorf("%d files left after clear", n)
	}
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestCompletion(t *testing.T) {
	isolate(t)
	out, err := run(t, "completion", "bash")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, appName) {
		t.Error("bash completion does not mention the command name")
	}
}
