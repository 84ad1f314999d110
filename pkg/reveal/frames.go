package reveal

import (
	"cogentcore.org/core/math32"

	"github.com/matzehuels/kinship/pkg/core/geom"
	"github.com/matzehuels/kinship/pkg/layout/phylo"
	"github.com/matzehuels/kinship/pkg/layout/ring"
)

func (e *Engine) renderRing() {
	anchor := e.cluster.Anchor
	center := &e.nodes[0]
	center.Position = anchor
	center.Progress = e.seq.Progress(0)
	center.Visible = visible(*center)

	for i, m := range e.members {
		n := &e.nodes[i+1]
		p := e.seq.Progress(e.stageOf[i])
		n.Position = geom.LerpVec(anchor, ring.Wobble(m, e.now), p)
		n.Progress = p
		n.Visible = visible(*n)

		ed := &e.edges[i]
		ed.From = anchor
		ed.To = n.Position
		ed.Progress = EdgeProgress(center.Progress, p)
		ed.Opacity = ed.Progress * m.Class.EdgeOpacity()
		ed.Visible = center.Visible && n.Visible && ed.Progress > HiddenThreshold
	}
}

func (e *Engine) renderIncubator() {
	t := e.now
	var sum float32
	for i, src := range e.inc.Nodes {
		p := GrowthProgress(t, src.SpawnDelay, src.Growth)
		eased := geom.EaseOutCubic(p)

		theta := src.Angle + t*src.OrbitSpeed
		y := src.BaseY*eased + src.FloatAmp*eased*math32.Sin(t*src.FloatSpeed+src.FloatPhase)
		pos := geom.Polar(src.Radius*eased, theta, y)
		w := src.WobbleAmp * eased
		pos.X += w * math32.Sin(t*src.WobbleSpeed+src.FloatPhase*1.3)
		pos.Z += w * math32.Cos(t*src.WobbleSpeed*0.9+src.FloatPhase)

		n := &e.nodes[i]
		n.Position = pos
		n.Progress = p
		n.Visible = visible(*n)
		sum += p
	}

	var avg float32
	if len(e.inc.Nodes) > 0 {
		avg = sum / float32(len(e.inc.Nodes))
	}
	e.field = FieldIntensity(avg, t, e.opts.LongCycle)
	mod := FieldModulation(e.field)

	for i, src := range e.inc.Edges {
		ed := &e.edges[i]
		a, b := &e.nodes[e.ends[i][0]], &e.nodes[e.ends[i][1]]
		ed.From, ed.To = a.Position, b.Position
		ed.Progress = EdgeProgress(a.Progress, b.Progress)
		ed.Opacity = ed.Progress * src.Opacity * mod
		ed.Visible = a.Visible && b.Visible && ed.Progress > HiddenThreshold
	}
}

func (e *Engine) renderPhylogeny() {
	m := e.SceneMotion()
	for i, src := range e.phy.Nodes {
		n := &e.nodes[i]
		n.Position = m.Apply(src.Position)
		n.Progress = 1
		n.Visible = n.Ready
	}
	for i := range e.edges {
		ed := &e.edges[i]
		a, b := &e.nodes[e.ends[i][0]], &e.nodes[e.ends[i][1]]
		ed.From, ed.To = a.Position, b.Position
		ed.Progress = 1
		ed.Opacity = PhyloEdgeOpacity
		ed.Visible = a.Visible && b.Visible
	}
}

// SceneMotion returns the phylogeny whole-scene motion at the current time.
func (e *Engine) SceneMotion() phylo.Motion {
	return phylo.SceneMotion(e.now)
}

func visible(n NodeState) bool {
	return n.Ready && n.Progress > HiddenThreshold
}

// GrowthProgress is clamp((t-delay)/growth, 0, 1). A non-positive growth
// jumps straight to 1 once the delay has passed.
func GrowthProgress(t, delay, growth float32) float32 {
	if growth <= 0 {
		if t >= delay {
			return 1
		}
		return 0
	}
	return geom.Clamp01((t - delay) / growth)
}

// EdgeProgress is the progress of an edge: the smaller of its endpoints'.
func EdgeProgress(source, target float32) float32 {
	return min(source, target)
}

// FieldIntensity blends average node progress with a slow cycle:
// 0.6·avg + 0.4·(sin(2π·t/period)+1)/2.
func FieldIntensity(avgProgress, t, period float32) float32 {
	return 0.6*avgProgress + 0.4*geom.Cycle(t, period)
}

// FieldModulation maps a field intensity onto an edge opacity factor.
func FieldModulation(field float32) float32 {
	return 0.65 + 0.35*field
}
