package cli

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kinship/pkg/assets"
	kerrors "github.com/matzehuels/kinship/pkg/errors"
	"github.com/matzehuels/kinship/pkg/httputil"
	"github.com/matzehuels/kinship/pkg/layout"
	"github.com/matzehuels/kinship/pkg/pipeline"
)

// layoutFlags are the layout options shared by every command that computes a
// layout. Unset flags keep the value from the settings file.
type layoutFlags struct {
	mode      string
	cluster   string
	tagPrefix string
	maxNodes  int
	levelGap  float32
	spacing   float32
	noCache   bool
	refresh   bool
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "layout mode: incubator (default), ring, phylogeny")
	cmd.Flags().StringVar(&f.cluster, "cluster", "", "ring cluster id (ring)")
	cmd.Flags().StringVar(&f.tagPrefix, "tag-prefix", "", "name prefix a relative needs to be placed (ring)")
	cmd.Flags().IntVar(&f.maxNodes, "max-nodes", 0, "node capacity (incubator)")
	cmd.Flags().Float32Var(&f.levelGap, "level-gap", 0, "vertical distance between levels (phylogeny)")
	cmd.Flags().Float32Var(&f.spacing, "spacing", 0, "horizontal distance between siblings (phylogeny)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "recompute instead of reading the cache")
}

// options merges the flags over the configured settings and validates the
// layout part of the result.
func (c *CLI) options(cmd *cobra.Command, f *layoutFlags) (pipeline.Options, error) {
	opts := pipeline.FromConfig(c.Config)
	if f.mode != "" {
		m, err := layout.ParseMode(f.mode)
		if err != nil {
			return opts, kerrors.Wrap(kerrors.ErrCodeInvalidMode, err, "--mode")
		}
		opts.Mode = m
	}
	if f.cluster != "" {
		opts.ClusterID = f.cluster
	}
	if f.tagPrefix != "" {
		opts.TagPrefix = f.tagPrefix
	}
	flags := cmd.Flags()
	if flags.Changed("max-nodes") {
		opts.MaxNodes = f.maxNodes
	}
	if flags.Changed("level-gap") {
		opts.LevelGap = f.levelGap
	}
	if flags.Changed("spacing") {
		opts.Spacing = f.spacing
	}
	opts.Refresh = f.refresh
	opts.Logger = c.Logger
	if err := opts.ValidateForLayout(); err != nil {
		return opts, err
	}
	return opts, nil
}

// assetFlags locate node images for the ready gate.
type assetFlags struct {
	dir     string
	baseURL string
}

func (f *assetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dir, "images", "", "directory holding node images")
	cmd.Flags().StringVar(&f.baseURL, "image-url", "", "base URL node images are fetched from")
}

// aspects returns the image resolver for the flags and settings, or nil when
// no image source is configured.
func (c *CLI) aspects(f *assetFlags) (pipeline.Aspects, error) {
	r := &assets.Resolver{Dir: c.Config.Assets.Dir, BaseURL: c.Config.Assets.BaseURL}
	if f.dir != "" {
		r.Dir = f.dir
	}
	if f.baseURL != "" {
		if err := kerrors.ValidateURL(f.baseURL); err != nil {
			return nil, err
		}
		r.BaseURL = f.baseURL
	}
	if r.Dir == "" && r.BaseURL == "" {
		return nil, nil
	}
	if r.BaseURL != "" {
		r.Client = c.imageClient()
	}
	return r, nil
}

// imageAspectTTL is how long a measured remote image aspect stays cached.
const imageAspectTTL = 7 * 24 * time.Hour

// imageClient returns an HTTP client that remembers remote image aspects
// under the cache directory. Without a usable directory it does not cache.
func (c *CLI) imageClient() *httputil.Client {
	if c.Config.Cache.Disabled {
		return httputil.NewClient(nil, nil)
	}
	dir := c.Config.Cache.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return httputil.NewClient(nil, nil)
		}
		dir = d
	}
	hc, err := httputil.NewCache(filepath.Join(dir, "http"), imageAspectTTL)
	if err != nil {
		c.Logger.Debug("image cache unavailable", "err", err)
		return httputil.NewClient(nil, nil)
	}
	return httputil.NewClient(hc, nil)
}
