// Package cli implements the kinship command-line interface.
//
// Commands read a relation record (JSON, see lineage.Record), run it through
// the pipeline and write the result:
//   - graph: canonical lineage graph as JSON
//   - layout: ring, phylogeny or incubator layout as JSON
//   - animate: simulate the reveal engine, optionally as a live terminal view
//   - render: DOT and SVG node-link diagrams
//   - capture: PNG frame of the reveal at a given time
//   - serve: HTTP API and live websocket stream
//   - cache: manage the local layout cache
//
// All commands accept --verbose (-v) for debug logging and --config to point
// at a TOML settings file.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kinship/pkg/cache"
	"github.com/matzehuels/kinship/pkg/config"
	"github.com/matzehuels/kinship/pkg/core/lineage"
	"github.com/matzehuels/kinship/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = "kinship"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	configPath string
	out        io.Writer
}

// New creates a CLI writing logs to w at the given level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
		out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// loadConfig reads the settings file and the remote overlay. A failed remote
// fetch only warns.
func (c *CLI) loadConfig(ctx context.Context) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if cfg.Remote.URL != "" {
		merged, err := config.Fetch(ctx, nil, cfg)
		if err != nil {
			c.Logger.Warn("remote config unavailable, using local settings", "url", cfg.Remote.URL, "err", err)
		}
		cfg = merged
	}
	c.Config = cfg
	return nil
}

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(ch, nil, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cc := c.Config.Cache
	if noCache || cc.Disabled {
		return cache.NewNullCache(), nil
	}
	if cc.RedisURL != "" {
		return cache.NewRedisCache(ctx, cache.RedisConfig{URL: cc.RedisURL, Prefix: cc.Prefix})
	}
	dir := cc.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			c.Logger.Debug("no cache directory, caching disabled", "err", err)
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// cacheDir returns the cache directory using XDG standard (~/.cache/kinship/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// readRecord loads a relation record from path, or stdin for "-".
func readRecord(path string) (*lineage.Record, error) {
	if path == "-" {
		return lineage.ReadRecord(os.Stdin)
	}
	return lineage.ReadRecordFile(path)
}

// outputPath derives an output file name from the input: graph.json with
// suffix ".layout.json" becomes graph.layout.json. Stdin input writes to
// "record" + suffix.
func outputPath(output, input, suffix string) string {
	if output != "" {
		return output
	}
	if input == "-" {
		return "record" + suffix
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
