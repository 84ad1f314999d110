package pipeline

import (
	"context"

	"github.com/matzehuels/kinship/pkg/graph"
	"github.com/matzehuels/kinship/pkg/layout"
	"github.com/matzehuels/kinship/pkg/reveal"
)

// SimulationStep is the fixed tick used when advancing an engine headlessly.
const SimulationStep = float32(1) / 60

// Aspects resolves node image dimensions for an engine.
type Aspects interface {
	Resolve(ctx context.Context, e *reveal.Engine) error
}

// NewEngine loads l into a fresh reveal engine. When aspects is nil, or a
// lookup fails, every node resolves to the default square scale.
func NewEngine(ctx context.Context, l graph.Layout, aspects Aspects, opts Options) (*reveal.Engine, error) {
	e := reveal.NewEngine(reveal.Options{LongCycle: opts.LongCycle, NodeSize: opts.NodeSize})
	if err := Load(e, l); err != nil {
		return nil, err
	}
	if aspects != nil {
		if err := aspects.Resolve(ctx, e); err != nil {
			return nil, err
		}
	}
	e.ResolveAll()
	return e, nil
}

// Load hands l to the engine method matching its mode.
func Load(e *reveal.Engine, l graph.Layout) error {
	if err := l.Validate(); err != nil {
		return err
	}
	switch l.Mode {
	case layout.ModeRing:
		c, err := l.RingCluster()
		if err != nil {
			return err
		}
		e.LoadRing(c)
	case layout.ModeIncubator:
		inc, err := l.IncubatorLayout()
		if err != nil {
			return err
		}
		e.LoadIncubator(inc)
	case layout.ModePhylogeny:
		p, _, err := l.PhyloLayout()
		if err != nil {
			return err
		}
		e.LoadPhylogeny(p)
	}
	return nil
}

// Advance steps e in fixed ticks until its clock reaches t. The ring
// sequence is timer driven, so it is stepped rather than jumped.
func Advance(ctx context.Context, e *reveal.Engine, t float32) error {
	for i := 0; t-e.Time() > SimulationStep/100; i++ {
		if i%600 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		e.Step(min(SimulationStep, t-e.Time()))
	}
	e.Frame(t)
	return nil
}

// Simulate loads l and advances it to time t.
func Simulate(ctx context.Context, l graph.Layout, aspects Aspects, t float32, opts Options) (*reveal.Engine, error) {
	e, err := NewEngine(ctx, l, aspects, opts)
	if err != nil {
		return nil, err
	}
	if err := Advance(ctx, e, t); err != nil {
		return nil, err
	}
	return e, nil
}
