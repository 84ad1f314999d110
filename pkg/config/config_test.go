package config

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	kerrors "github.com/matzehuels/kinship/pkg/errors"
	"github.com/matzehuels/kinship/pkg/layout"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg != Default() {
		t.Errorf("got %+v, want defaults", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[layout]
mode = "incubator"
max_nodes = 40

[server]
fps = 24

[remote]
timeout = "2s"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Layout.Mode != layout.ModeIncubator || cfg.Layout.MaxNodes != 40 {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if cfg.Server.FPS != 24 || cfg.Server.Addr != ":8080" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Remote.Timeout != 2*time.Second {
		t.Errorf("timeout = %v", cfg.Remote.Timeout)
	}
	if cfg.Layout.Spacing != 5 {
		t.Errorf("unset keys should keep defaults, spacing = %v", cfg.Layout.Spacing)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "[layout\nmode ="},
		{"bad mode", "[layout]\nmode = \"spiral\""},
		{"unknown key", "[layout]\ncolour = \"red\""},
		{"zero nodes", "[layout]\nmax_nodes = 0"},
		{"fov", "[camera]\nfov = 200.0"},
		{"remote scheme", "[remote]\nurl = \"file:///etc/passwd\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("want error")
			}
			if !kerrors.Is(err, kerrors.ErrCodeInvalidConfig) {
				t.Errorf("code = %v, want INVALID_CONFIG", kerrors.GetCode(err))
			}
			if cfg != Default() {
				t.Error("failed parse must return defaults")
			}
		})
	}
}

func TestEncodeParses(t *testing.T) {
	cfg := Default()
	cfg.Layout.Mode = layout.ModePhylogeny
	var buf bytes.Buffer
	if err := cfg.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("Parse(Encode) = %v\n%s", err, buf.String())
	}
	if got != cfg {
		t.Errorf("got %+v, want %+v", got, cfg)
	}
}

func TestFetchOverlay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"layout":{"mode":"phylogeny"},"remote":{"url":"http://elsewhere"}}`))
	}))
	defer srv.Close()

	base := Default()
	base.Remote.URL = srv.URL
	cfg, err := Fetch(context.Background(), nil, base)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Layout.Mode != layout.ModePhylogeny {
		t.Errorf("mode = %q", cfg.Layout.Mode)
	}
	if cfg.Layout.MaxNodes != 60 {
		t.Errorf("fields absent from the overlay must keep their value, max_nodes = %d", cfg.Layout.MaxNodes)
	}
	if cfg.Remote.URL != srv.URL {
		t.Errorf("remote url rewritten to %q", cfg.Remote.URL)
	}
}

func TestFetchFailureKeepsBase(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	base := Default()
	base.Remote.URL = srv.URL
	cfg, err := Fetch(context.Background(), nil, base)
	if err == nil {
		t.Fatal("want error")
	}
	if cfg != base {
		t.Error("failure must return the base config")
	}
}

func TestFetchInvalidOverlay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"layout":{"mode":"spiral"}}`))
	}))
	defer srv.Close()

	base := Default()
	base.Remote.URL = srv.URL
	cfg, err := Fetch(context.Background(), nil, base)
	if !kerrors.Is(err, kerrors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v", err)
	}
	if cfg != base {
		t.Error("invalid overlay must return the base config")
	}
}

func TestFetchCancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	base := Default()
	base.Remote.URL = srv.URL
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	cfg, err := Fetch(ctx, nil, base)
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if cfg != base {
		t.Error("cancel must return the base config")
	}
}

func TestFetchNoURL(t *testing.T) {
	cfg, err := Fetch(context.Background(), nil, Default())
	if err != nil || cfg != Default() {
		t.Errorf("Fetch without url = %+v, %v", cfg, err)
	}
}
