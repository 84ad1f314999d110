package pipeline

import (
	"github.com/matzehuels/kinship/pkg/core/geom"
	"github.com/matzehuels/kinship/pkg/core/lineage"
	kerrors "github.com/matzehuels/kinship/pkg/errors"
	"github.com/matzehuels/kinship/pkg/graph"
	"github.com/matzehuels/kinship/pkg/layout"
	"github.com/matzehuels/kinship/pkg/layout/incubator"
	"github.com/matzehuels/kinship/pkg/layout/phylo"
	"github.com/matzehuels/kinship/pkg/layout/ring"
)

// GenerateLayout computes the layout of g for opts.Mode. It is pure: the
// same graph and options always give the same layout.
func GenerateLayout(g lineage.Graph, opts Options) (graph.Layout, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return graph.Layout{}, err
	}
	switch opts.Mode {
	case layout.ModeRing:
		return graph.FromRing(RingCluster(g, opts)), nil
	case layout.ModeIncubator:
		io := incubator.DefaultOptions()
		io.MaxNodes = opts.MaxNodes
		return graph.FromIncubator(incubator.Build(g, io)), nil
	case layout.ModePhylogeny:
		l := phylo.Build(g, phylo.Options{LevelGap: opts.LevelGap, Spacing: opts.Spacing})
		cam := phylo.Frame(l.Box, opts.FOV, opts.Aspect, phylo.FrameOptions{Padding: opts.Padding, Margin: opts.Margin})
		return graph.FromPhylo(l, &cam), nil
	}
	return graph.Layout{}, kerrors.New(kerrors.ErrCodeInvalidMode, "invalid mode: %q", opts.Mode)
}

// RingCluster builds the single ring cluster of g, centered on the original
// at the origin. The cluster id defaults to the original's name. Siblings
// come from the graph and from opts.Siblings.
func RingCluster(g lineage.Graph, opts Options) ring.Cluster {
	var center string
	if n, ok := g.Original(); ok {
		center = n.Name
	}
	id := opts.ClusterID
	if id == "" {
		id = center
	}
	rel := ring.RelativesFromGraph(g)
	rel.Siblings = append(rel.Siblings, opts.Siblings...)
	return ring.Build(id, geom.V(0, 0, 0), center, rel, ring.Options{
		TagPrefix: opts.TagPrefix,
		Jitter:    opts.Jitter,
	})
}
