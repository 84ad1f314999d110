package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/kinship/pkg/cache"
	"github.com/matzehuels/kinship/pkg/core/lineage"
	kerrors "github.com/matzehuels/kinship/pkg/errors"
	"github.com/matzehuels/kinship/pkg/graph"
	"github.com/matzehuels/kinship/pkg/observability"
)

// Runner executes pipeline stages with caching.
//
// A Runner holds no per-run state and is safe for concurrent use. Concurrent
// ComputeLayout calls for the same graph and options share one computation.
type Runner struct {
	Cache    cache.Cache
	Keyer    cache.Keyer
	Logger   *log.Logger
	Renderer Renderer

	layouts singleflight.Group
}

// NewRunner creates a runner. A nil cache disables caching and a nil keyer
// uses the default key derivation.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs build → layout → render.
func (r *Runner) Execute(ctx context.Context, rec *lineage.Record, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	result := &Result{}

	start := time.Now()
	g, hit, err := r.BuildGraphWithCacheInfo(ctx, rec, opts.Refresh)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	result.Graph = g
	result.Original = rec.OriginalImage
	result.GraphHash = GraphHash(g, rec.OriginalImage)
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()
	result.Stats.BuildTime = time.Since(start)
	result.CacheInfo.GraphHit = hit
	opts.Logger.Info("built graph",
		"original", rec.OriginalImage,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"duration", result.Stats.BuildTime)

	start = time.Now()
	l, hit, err := r.ComputeLayoutWithCacheInfo(ctx, g, rec, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = l
	result.Stats.LayoutTime = time.Since(start)
	result.CacheInfo.LayoutHit = hit
	opts.Logger.Info("computed layout",
		"mode", l.Mode,
		"nodes", l.NodeCount(),
		"duration", result.Stats.LayoutTime)

	start = time.Now()
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, l, g, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(start)
	result.CacheInfo.RenderHit = hit
	opts.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// GraphHash is the content hash of a graph in wire form.
func GraphHash(g lineage.Graph, original string) string {
	data, err := graph.MarshalGraph(g, original)
	if err != nil {
		return ""
	}
	return cache.Hash(data)
}

// BuildGraphWithCacheInfo canonicalizes rec, reporting whether the graph
// came from the cache.
func (r *Runner) BuildGraphWithCacheInfo(ctx context.Context, rec *lineage.Record, refresh bool) (lineage.Graph, bool, error) {
	if rec == nil {
		return lineage.Graph{}, false, kerrors.New(kerrors.ErrCodeInvalidRecord, "record is required")
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return lineage.Graph{}, false, kerrors.Wrap(kerrors.ErrCodeInvalidRecord, err, "encode record")
	}
	key := r.Keyer.GraphKey(cache.Hash(raw))
	hooks := observability.Cache()

	if !refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if g, _, err := graph.UnmarshalGraph(data); err == nil {
				hooks.OnCacheHit(ctx, "graph")
				return g, true, nil
			}
		}
		hooks.OnCacheMiss(ctx, "graph")
	}

	start := time.Now()
	observability.Pipeline().OnBuildStart(ctx, rec.OriginalImage)
	g := lineage.Build(rec)
	observability.Pipeline().OnBuildComplete(ctx, rec.OriginalImage, g.NodeCount(), g.EdgeCount(), time.Since(start))

	if data, err := graph.MarshalGraph(g, rec.OriginalImage); err == nil {
		if r.Cache.Set(ctx, key, data, cache.TTLGraph) == nil {
			hooks.OnCacheSet(ctx, "graph", len(data))
		}
	}
	return g, false, nil
}

// BuildGraph canonicalizes rec.
func (r *Runner) BuildGraph(ctx context.Context, rec *lineage.Record) (lineage.Graph, error) {
	g, _, err := r.BuildGraphWithCacheInfo(ctx, rec, false)
	return g, err
}

type layoutResult struct {
	layout graph.Layout
	hit    bool
}

// ComputeLayoutWithCacheInfo computes (or loads) the layout of g, the graph
// of rec, reporting whether it came from the cache. rec may be nil when
// opts already carries the siblings.
func (r *Runner) ComputeLayoutWithCacheInfo(ctx context.Context, g lineage.Graph, rec *lineage.Record, opts Options) (graph.Layout, bool, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return graph.Layout{}, false, err
	}
	var original string
	if rec != nil {
		original = rec.OriginalImage
		if opts.Siblings == nil {
			opts.Siblings = rec.Siblings
		}
	}
	key := r.Keyer.LayoutKey(GraphHash(g, original), opts.LayoutKeyOpts())

	v, err, _ := r.layouts.Do(key, func() (any, error) {
		return r.computeLayout(ctx, key, g, opts)
	})
	if err != nil {
		return graph.Layout{}, false, err
	}
	res := v.(layoutResult)
	return res.layout, res.hit, nil
}

func (r *Runner) computeLayout(ctx context.Context, key string, g lineage.Graph, opts Options) (layoutResult, error) {
	hooks := observability.Cache()
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if l, err := graph.UnmarshalLayout(data); err == nil {
				hooks.OnCacheHit(ctx, "layout")
				return layoutResult{layout: l, hit: true}, nil
			}
		}
		hooks.OnCacheMiss(ctx, "layout")
	}

	mode := string(opts.Mode)
	start := time.Now()
	observability.Pipeline().OnLayoutStart(ctx, mode, g.NodeCount())
	l, err := GenerateLayout(g, opts)
	observability.Pipeline().OnLayoutComplete(ctx, mode, time.Since(start), err)
	if err != nil {
		return layoutResult{}, err
	}
	if l.Incubator != nil && l.Incubator.Dropped > 0 {
		r.Logger.Warn("incubator node cap reached", "kept", len(l.Incubator.Nodes), "dropped", l.Incubator.Dropped)
	}

	if data, err := graph.MarshalLayout(l); err == nil {
		if r.Cache.Set(ctx, key, data, cache.TTLLayout) == nil {
			hooks.OnCacheSet(ctx, "layout", len(data))
		}
	}
	return layoutResult{layout: l}, nil
}

// ComputeLayout computes (or loads) the layout of g.
func (r *Runner) ComputeLayout(ctx context.Context, g lineage.Graph, rec *lineage.Record, opts Options) (graph.Layout, error) {
	l, _, err := r.ComputeLayoutWithCacheInfo(ctx, g, rec, opts)
	return l, err
}

// RenderWithCacheInfo renders artifacts, reporting whether all of them came
// from the cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, l graph.Layout, g lineage.Graph, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	layoutData, err := graph.MarshalLayout(l)
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(layoutData)
	hooks := observability.Cache()

	if !opts.Refresh {
		artifacts := make(map[string][]byte, len(opts.Formats))
		for _, format := range opts.Formats {
			data, hit, err := r.Cache.Get(ctx, r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format)))
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			hooks.OnCacheHit(ctx, "artifact")
			return artifacts, true, nil
		}
		hooks.OnCacheMiss(ctx, "artifact")
	}

	rendered, err := r.Renderer.Render(ctx, l, g, opts)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		if r.Cache.Set(ctx, r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format)), data, cache.TTLArtifact) == nil {
			hooks.OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return rendered, false, nil
}

// Render renders artifacts.
func (r *Runner) Render(ctx context.Context, l graph.Layout, g lineage.Graph, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, l, g, opts)
	return artifacts, err
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
