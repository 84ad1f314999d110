package cli

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/matzehuels/kinship/pkg/buildinfo"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()

	want := []string{"graph", "layout", "animate", "render", "capture", "serve", "cache", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	for _, sub := range []string{"clear", "path"} {
		if cmd, _, err := root.Find([]string{"cache", sub}); err != nil || cmd.Name() != sub {
			t.Errorf("cache %s not registered", sub)
		}
	}
}

func TestRootCommandVersion(t *testing.T) {
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"--version"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), buildinfo.Version) {
		t.Errorf("version output %q lacks %q", buf.String(), buildinfo.Version)
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	c.Logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug logged at info level: %q", buf.String())
	}
	c.SetLogLevel(LogDebug)
	c.Logger.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("debug not logged after SetLogLevel: %q", buf.String())
	}
}
