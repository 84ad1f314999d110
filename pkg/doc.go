// Package pkg holds the kinship libraries.
//
// # Overview
//
// Kinship draws the relations between generated images (an original and its
// parents, children, siblings and ancestors) as an animated 3D scene. The
// libraries are organized in layers:
//
//  1. [core] - lineage graphs, seeded randomness and 3D helpers
//  2. [layout] - the ring, phylogeny and incubator layout engines
//  3. [reveal] - the staged, time-driven reveal animation
//  4. [telemetry] - FPS and camera readouts, control presets
//  5. [pipeline] - orchestration (record → graph → layout → artifacts)
//  6. [graph] - wire types for graphs and layouts
//  7. [cache], [store], [config] - infrastructure
//
// # Data flow
//
//	relation record (JSON)
//	         ↓
//	    [core/lineage] (canonical graph)
//	         ↓
//	    [layout/ring] | [layout/phylo] | [layout/incubator]
//	         ↓
//	    [reveal] (per-frame node and edge state)
//	         ↓
//	    renderer (browser, terminal preview, [capture])
//
// # Quick start
//
//	rec, _ := lineage.ReadRecordFile("record.json")
//	g := lineage.Build(rec)
//
//	l := incubator.Build(g, incubator.DefaultOptions())
//	e := reveal.NewEngine(reveal.DefaultOptions())
//	e.LoadIncubator(l)
//	e.ResolveAll()
//	for !e.Settled() {
//	    e.Step(1.0 / 60)
//	    draw(e.Nodes(), e.Edges())
//	}
//
// Or let the pipeline do the wiring and caching:
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	res, err := runner.Execute(ctx, rec, pipeline.Options{Mode: layout.ModePhylogeny})
package pkg
