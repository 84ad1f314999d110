package assets

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/kinship/pkg/core/lineage"
	"github.com/matzehuels/kinship/pkg/httputil"
	"github.com/matzehuels/kinship/pkg/layout/incubator"
	"github.com/matzehuels/kinship/pkg/reveal"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writePNG(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), encodePNG(t, w, h), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAspectLocal(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "wide.png", 40, 20)
	writePNG(t, dir, "tall.png", 10, 40)
	r := &Resolver{Dir: dir}

	tests := []struct {
		name string
		want float32
	}{
		{"wide.png", 2},
		{"wide", 2},
		{"tall", 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Aspect(context.Background(), tt.name)
			if err != nil {
				t.Fatalf("Aspect: %v", err)
			}
			if got != tt.want {
				t.Errorf("aspect = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAspectErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "junk.png"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := &Resolver{Dir: dir}

	if _, err := r.Aspect(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: err = %v, want ErrNotFound", err)
	}
	if _, err := r.Aspect(context.Background(), "junk.png"); err == nil {
		t.Error("junk: expected decode error")
	}
	if _, err := r.Aspect(context.Background(), "../etc/passwd"); err == nil {
		t.Error("traversal: expected validation error")
	}
}

func TestAspectRemoteFallback(t *testing.T) {
	img := encodePNG(t, 30, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/img/remote%20one" && r.URL.Path != "/img/remote one" {
			http.NotFound(w, r)
			return
		}
		w.Write(img)
	}))
	defer srv.Close()

	r := &Resolver{Dir: t.TempDir(), BaseURL: srv.URL + "/img/"}
	got, err := r.Aspect(context.Background(), "remote one")
	if err != nil {
		t.Fatalf("Aspect: %v", err)
	}
	if got != 3 {
		t.Errorf("aspect = %v, want 3", got)
	}
	if _, err := r.Aspect(context.Background(), "absent"); err == nil {
		t.Error("404 should fail the lookup")
	}
}

func TestAspectRemoteCached(t *testing.T) {
	img := encodePNG(t, 20, 40)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(img)
	}))
	defer srv.Close()

	cache, err := httputil.NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	for i := range 2 {
		r := &Resolver{BaseURL: srv.URL, Client: httputil.NewClient(cache, nil).WithHTTPClient(srv.Client())}
		got, err := r.Aspect(context.Background(), "tall")
		if err != nil || got != 0.5 {
			t.Fatalf("lookup %d: Aspect = %v, %v; want 0.5", i, got, err)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}
}

func TestAspectsKeepsOrderAndIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "a.png", 20, 10)
	writePNG(t, dir, "c.png", 10, 10)
	r := &Resolver{Dir: dir, Concurrency: 2}

	res, err := r.Aspects(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Aspects: %v", err)
	}
	if len(res) != 3 || res[0].Name != "a" || res[1].Name != "b" || res[2].Name != "c" {
		t.Fatalf("results = %+v", res)
	}
	if res[0].Aspect != 2 || res[2].Aspect != 1 {
		t.Errorf("aspects = %v, %v", res[0].Aspect, res[2].Aspect)
	}
	if res[1].Err == nil {
		t.Error("missing image should carry an error")
	}
}

func TestAspectsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Resolver{Dir: t.TempDir()}
	if _, err := r.Aspects(ctx, []string{"a"}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestResolveOpensReadyGate(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "A.png", 40, 20)

	g := lineage.BuildFallback(&lineage.Record{
		OriginalImage: "A",
		Parents:       lineage.Names{"P1"},
	})
	e := reveal.NewEngine(reveal.Options{NodeSize: 2})
	e.LoadIncubator(incubator.Build(g, incubator.DefaultOptions()))
	for _, n := range e.Nodes() {
		if n.Ready {
			t.Fatalf("%s ready before resolution", n.Name)
		}
	}

	if err := (&Resolver{Dir: dir}).Resolve(context.Background(), e); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	a, _ := e.Node("A")
	if !a.Ready || a.ScaleX != 2 || a.ScaleY != 1 {
		t.Errorf("A = %+v, want ready 2x1", a)
	}
	p, _ := e.Node("P1")
	if !p.Ready || p.ScaleX != 2 || p.ScaleY != 2 {
		t.Errorf("P1 = %+v, want ready square fallback", p)
	}
}
