// Package pipeline runs the record → graph → layout → artifacts pipeline
// shared by the CLI and the HTTP server.
//
// # Stages
//
//  1. Build: canonicalize a relation record into a lineage graph
//  2. Layout: compute the ring, phylogeny or incubator layout of the graph
//  3. Render: produce artifacts (layout JSON, DOT, SVG, PNG frames)
//
// Each stage can be run on its own. Graphs and layouts are cached by content
// hash plus options, and concurrent requests for the same layout share one
// computation.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, rec, pipeline.Options{
//	    Mode:    layout.ModeIncubator,
//	    Formats: []string{"json", "svg"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kinship/pkg/cache"
	"github.com/matzehuels/kinship/pkg/config"
	"github.com/matzehuels/kinship/pkg/core/lineage"
	kerrors "github.com/matzehuels/kinship/pkg/errors"
	"github.com/matzehuels/kinship/pkg/graph"
	"github.com/matzehuels/kinship/pkg/layout"
	"github.com/matzehuels/kinship/pkg/layout/incubator"
	"github.com/matzehuels/kinship/pkg/layout/phylo"
	"github.com/matzehuels/kinship/pkg/layout/ring"
	"github.com/matzehuels/kinship/pkg/reveal"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
)

// Formats lists the supported output formats.
var Formats = []string{FormatJSON, FormatDOT, FormatSVG, FormatPNG}

// Defaults for options left at their zero value.
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
	// DefaultTime is the animation time of a PNG frame, late enough for a
	// default-sized graph to have grown in.
	DefaultTime = 12
)

// Options configures a pipeline run. It is the JSON body of API requests.
type Options struct {
	// Layout options
	Mode      layout.Mode `json:"mode,omitempty"`
	ClusterID string      `json:"cluster_id,omitempty"`
	TagPrefix string      `json:"tag_prefix,omitempty"`
	Jitter    float32     `json:"jitter,omitempty"`
	MaxNodes  int         `json:"max_nodes,omitempty"`
	LevelGap  float32     `json:"level_gap,omitempty"`
	Spacing   float32     `json:"spacing,omitempty"`

	// Siblings are the record's sibling names. The canonical graph has no
	// sibling nodes unless the record carried its own graph, so the ring
	// layout takes them from here.
	Siblings []string `json:"siblings,omitempty"`

	// Camera options (phylogeny framing and PNG frames)
	FOV     float32 `json:"fov,omitempty"`
	Aspect  float32 `json:"aspect,omitempty"`
	Padding float32 `json:"padding,omitempty"`
	Margin  float32 `json:"margin,omitempty"`

	// Reveal options (PNG frames)
	LongCycle float32 `json:"long_cycle,omitempty"`
	NodeSize  float32 `json:"node_size,omitempty"`

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"`
	Time     float32  `json:"time,omitempty"`
	Width    int      `json:"width,omitempty"`
	Height   int      `json:"height,omitempty"`

	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`

	validated bool
}

// FromConfig returns options seeded from a settings tree.
func FromConfig(c config.Config) Options {
	return Options{
		Mode:      c.Layout.Mode,
		TagPrefix: c.Layout.TagPrefix,
		Jitter:    c.Layout.Jitter,
		MaxNodes:  c.Layout.MaxNodes,
		LevelGap:  c.Layout.LevelGap,
		Spacing:   c.Layout.Spacing,
		FOV:       c.Camera.FOV,
		Aspect:    c.Camera.Aspect,
		Padding:   c.Camera.Padding,
		Margin:    c.Camera.Margin,
		LongCycle: c.Reveal.LongCycle,
		NodeSize:  c.Reveal.NodeSize,
	}
}

// Result holds the outputs of a pipeline run.
type Result struct {
	Graph     lineage.Graph
	Original  string
	GraphHash string
	Layout    graph.Layout
	Artifacts map[string][]byte
	Stats     Stats
	CacheInfo CacheInfo
}

// Stats holds sizes and stage timings.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	BuildTime  time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo records which stages were served from cache.
type CacheInfo struct {
	GraphHit  bool
	LayoutHit bool
	RenderHit bool
}

// ValidateFormat checks that format is supported.
func ValidateFormat(format string) error {
	if !slices.Contains(Formats, format) {
		return kerrors.New(kerrors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)", format, strings.Join(Formats, ", "))
	}
	return nil
}

// ValidateFormats checks every format.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults checks the options and fills in defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetLayoutDefaults fills in layout defaults.
func (o *Options) SetLayoutDefaults() {
	if o.Mode == "" {
		o.Mode = layout.DefaultMode
	}
	if o.TagPrefix == "" {
		o.TagPrefix = ring.DefaultTagPrefix
	}
	if o.Jitter == 0 {
		o.Jitter = ring.DefaultOptions().Jitter
	}
	if o.MaxNodes == 0 {
		o.MaxNodes = incubator.DefaultOptions().MaxNodes
	}
	d := phylo.DefaultOptions()
	if o.LevelGap == 0 {
		o.LevelGap = d.LevelGap
	}
	if o.Spacing == 0 {
		o.Spacing = d.Spacing
	}
	if o.FOV == 0 {
		o.FOV = phylo.DefaultFOV
	}
	if o.Aspect == 0 {
		o.Aspect = phylo.DefaultAspect
	}
	f := phylo.DefaultFrameOptions()
	if o.Padding == 0 {
		o.Padding = f.Padding
	}
	if o.Margin == 0 {
		o.Margin = f.Margin
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForLayout fills in layout defaults and validates them.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	if !o.Mode.Valid() {
		return kerrors.New(kerrors.ErrCodeInvalidMode, "invalid mode: %q", o.Mode)
	}
	if o.MaxNodes < 1 {
		return kerrors.New(kerrors.ErrCodeInvalidInput, "max_nodes must be at least 1")
	}
	if o.Jitter < 0 || o.LevelGap < 0 || o.Spacing < 0 || o.Padding < 0 || o.Margin < 0 {
		return kerrors.New(kerrors.ErrCodeInvalidInput, "layout distances must not be negative")
	}
	if o.FOV <= 0 || o.FOV >= 180 {
		return kerrors.New(kerrors.ErrCodeInvalidInput, "fov must be between 0 and 180 degrees")
	}
	if o.Aspect < 0 {
		return kerrors.New(kerrors.ErrCodeInvalidInput, "aspect must be positive")
	}
	return nil
}

// SetRenderDefaults fills in render defaults.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Time == 0 {
		o.Time = DefaultTime
	}
	r := reveal.DefaultOptions()
	if o.LongCycle == 0 {
		o.LongCycle = r.LongCycle
	}
	if o.NodeSize == 0 {
		o.NodeSize = r.NodeSize
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender fills in render defaults and validates them.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Width < 0 || o.Height < 0 || o.Time < 0 {
		return kerrors.New(kerrors.ErrCodeInvalidInput, "width, height and time must not be negative")
	}
	return nil
}

// Wants reports whether format was requested.
func (o *Options) Wants(format string) bool {
	return slices.Contains(o.Formats, format)
}

// LayoutKeyOpts returns the options that change a layout.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	k := cache.LayoutKeyOpts{Mode: string(o.Mode)}
	switch o.Mode {
	case layout.ModeRing:
		k.ClusterID = o.ClusterID
		k.TagPrefix = o.TagPrefix
		k.Jitter = o.Jitter
		k.Siblings = o.Siblings
	case layout.ModeIncubator:
		k.MaxNodes = o.MaxNodes
	case layout.ModePhylogeny:
		k.LevelGap = o.LevelGap
		k.Spacing = o.Spacing
		k.FOV = o.FOV
		k.Aspect = o.Aspect
		k.Padding = o.Padding
		k.Margin = o.Margin
	}
	return k
}

// ArtifactKeyOpts returns the options that change an artifact of format.
// Only PNG frames depend on time and size.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{Format: format}
	if format == FormatPNG {
		k.Time = o.Time
		k.Width = o.Width
		k.Height = o.Height
	}
	if format == FormatDOT || format == FormatSVG {
		if o.Detailed {
			k.Format += "+detailed"
		}
	}
	return k
}
