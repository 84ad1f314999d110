package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/kinship/pkg/capture"
	"github.com/matzehuels/kinship/pkg/core/lineage"
	"github.com/matzehuels/kinship/pkg/graph"
	"github.com/matzehuels/kinship/pkg/layout"
	"github.com/matzehuels/kinship/pkg/render/nodelink"
	"github.com/matzehuels/kinship/pkg/telemetry"
)

// Renderer holds the collaborators needed for PNG frames. The zero value
// renders with the process-wide capture loader and square node images.
type Renderer struct {
	Capture *capture.Loader
	Aspects Aspects
}

// Render produces every requested artifact. JSON is the layout itself, DOT
// and SVG draw the graph, PNG is a captured frame of the reveal at opts.Time.
func (rd Renderer) Render(ctx context.Context, l graph.Layout, g lineage.Graph, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	artifacts := make(map[string][]byte, len(opts.Formats))
	var dot string
	for _, format := range opts.Formats {
		var (
			data []byte
			err  error
		)
		switch format {
		case FormatJSON:
			data, err = graph.MarshalLayout(l)
		case FormatDOT, FormatSVG:
			if dot == "" {
				dot = nodelink.ToDOT(g, nodelink.Options{Detailed: opts.Detailed})
			}
			if format == FormatDOT {
				data = []byte(dot)
			} else {
				data, err = nodelink.RenderSVG(dot)
			}
		case FormatPNG:
			data, err = rd.Frame(ctx, l, opts)
		default:
			err = ValidateFormat(format)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// Frame simulates l up to opts.Time and captures it as a PNG. Phylogeny
// frames use the stored camera; the other modes are auto-framed.
func (rd Renderer) Frame(ctx context.Context, l graph.Layout, opts Options) ([]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	e, err := Simulate(ctx, l, rd.Aspects, opts.Time, opts)
	if err != nil {
		return nil, err
	}
	var cam telemetry.CameraState
	fov := opts.FOV
	if l.Mode == layout.ModePhylogeny && l.Phylogeny != nil && l.Phylogeny.Camera != nil {
		c := l.Phylogeny.Camera
		cam = telemetry.CameraState{Position: c.Position.Vec3(), Target: c.Target.Vec3()}
		fov = c.FOV
	}
	loader := rd.Capture
	if loader == nil {
		loader = capture.Default()
	}
	return capture.CaptureWith(ctx, loader, capture.FrameOf(e, cam, fov), capture.Options{Width: opts.Width, Height: opts.Height})
}
