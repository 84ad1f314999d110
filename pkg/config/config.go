// Package config loads kinship settings from a TOML file and, optionally, a
// remote JSON overlay.
//
// The file lives at $XDG_CONFIG_HOME/kinship/config.toml (see [Path]). A
// missing file is not an error: [Load] returns [Default]. Command-line flags
// override whatever the file sets.
//
//	[layout]
//	mode = "incubator"
//	max_nodes = 40
//
//	[server]
//	addr = ":8080"
//	fps = 30
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	kerrors "github.com/matzehuels/kinship/pkg/errors"
	"github.com/matzehuels/kinship/pkg/layout"
)

// Config is the complete settings tree.
type Config struct {
	Layout LayoutConfig `toml:"layout" json:"layout"`
	Reveal RevealConfig `toml:"reveal" json:"reveal"`
	Camera CameraConfig `toml:"camera" json:"camera"`
	Cache  CacheConfig  `toml:"cache" json:"cache"`
	Store  StoreConfig  `toml:"store" json:"store"`
	Server ServerConfig `toml:"server" json:"server"`
	Assets AssetsConfig `toml:"assets" json:"assets"`
	Remote RemoteConfig `toml:"remote" json:"remote"`
}

// LayoutConfig selects and tunes the layout.
type LayoutConfig struct {
	Mode      layout.Mode `toml:"mode" json:"mode"`
	TagPrefix string      `toml:"tag_prefix" json:"tag_prefix"`
	Jitter    float32     `toml:"jitter" json:"jitter"`
	MaxNodes  int         `toml:"max_nodes" json:"max_nodes"`
	LevelGap  float32     `toml:"level_gap" json:"level_gap"`
	Spacing   float32     `toml:"spacing" json:"spacing"`
}

// RevealConfig tunes the reveal engine.
type RevealConfig struct {
	LongCycle float32 `toml:"long_cycle" json:"long_cycle"`
	NodeSize  float32 `toml:"node_size" json:"node_size"`
}

// CameraConfig tunes phylogeny framing.
type CameraConfig struct {
	FOV     float32 `toml:"fov" json:"fov"`
	Aspect  float32 `toml:"aspect" json:"aspect"`
	Padding float32 `toml:"padding" json:"padding"`
	Margin  float32 `toml:"margin" json:"margin"`
}

// CacheConfig selects the layout cache backend. RedisURL wins over Dir.
type CacheConfig struct {
	Disabled bool   `toml:"disabled" json:"disabled"`
	Dir      string `toml:"dir" json:"dir"`
	RedisURL string `toml:"redis_url" json:"redis_url,omitempty"`
	Prefix   string `toml:"prefix" json:"prefix,omitempty"`
}

// StoreConfig selects the record store, see store.Open.
type StoreConfig struct {
	URL string `toml:"url" json:"url"`
}

// ServerConfig configures `kinship serve`.
type ServerConfig struct {
	Addr string `toml:"addr" json:"addr"`
	FPS  int    `toml:"fps" json:"fps"`
}

// AssetsConfig locates node images, see assets.Resolver. With neither set
// every image is treated as square.
type AssetsConfig struct {
	Dir     string `toml:"dir" json:"dir,omitempty"`
	BaseURL string `toml:"base_url" json:"base_url,omitempty"`
}

// RemoteConfig points at an optional JSON overlay fetched at startup.
type RemoteConfig struct {
	URL     string        `toml:"url" json:"url,omitempty"`
	Timeout time.Duration `toml:"timeout" json:"timeout,omitempty"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Layout: LayoutConfig{
			Mode:      layout.DefaultMode,
			TagPrefix: "offspring_",
			Jitter:    1,
			MaxNodes:  60,
			LevelGap:  6,
			Spacing:   5,
		},
		Reveal: RevealConfig{LongCycle: 24, NodeSize: 1.6},
		Camera: CameraConfig{FOV: 50, Aspect: 16.0 / 9.0, Padding: 4, Margin: 6},
		Store:  StoreConfig{URL: "memory://"},
		Server: ServerConfig{Addr: ":8080", FPS: 30},
		Remote: RemoteConfig{Timeout: 5 * time.Second},
	}
}

// Path returns the config file location.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "kinship", "config.toml"), nil
}

// Load reads path on top of the defaults. An empty path uses [Path]; a
// missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := Path()
		if err != nil {
			return cfg, nil
		}
		path = p
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML on top of the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Default(), kerrors.Wrap(kerrors.ErrCodeInvalidConfig, err, "parse config")
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		return Default(), kerrors.New(kerrors.ErrCodeInvalidConfig, "unknown config key %q", keys[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	if !c.Layout.Mode.Valid() {
		return kerrors.New(kerrors.ErrCodeInvalidConfig, "layout.mode must be ring, incubator or phylogeny, got %q", c.Layout.Mode)
	}
	if c.Layout.MaxNodes < 1 {
		return kerrors.New(kerrors.ErrCodeInvalidConfig, "layout.max_nodes must be positive")
	}
	if c.Layout.LevelGap <= 0 || c.Layout.Spacing <= 0 {
		return kerrors.New(kerrors.ErrCodeInvalidConfig, "layout.level_gap and layout.spacing must be positive")
	}
	if c.Layout.Jitter < 0 {
		return kerrors.New(kerrors.ErrCodeInvalidConfig, "layout.jitter must not be negative")
	}
	if c.Reveal.LongCycle <= 0 || c.Reveal.NodeSize <= 0 {
		return kerrors.New(kerrors.ErrCodeInvalidConfig, "reveal.long_cycle and reveal.node_size must be positive")
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 {
		return kerrors.New(kerrors.ErrCodeInvalidConfig, "camera.fov must be in (0, 180)")
	}
	if c.Camera.Aspect <= 0 {
		return kerrors.New(kerrors.ErrCodeInvalidConfig, "camera.aspect must be positive")
	}
	if c.Server.FPS < 1 || c.Server.FPS > 240 {
		return kerrors.New(kerrors.ErrCodeInvalidConfig, "server.fps must be in [1, 240]")
	}
	if c.Assets.BaseURL != "" {
		if err := kerrors.ValidateURL(c.Assets.BaseURL); err != nil {
			return kerrors.Wrap(kerrors.ErrCodeInvalidConfig, err, "assets.base_url")
		}
	}
	if c.Remote.URL != "" {
		if err := kerrors.ValidateURL(c.Remote.URL); err != nil {
			return kerrors.Wrap(kerrors.ErrCodeInvalidConfig, err, "remote.url")
		}
	}
	return nil
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
