package capture

import (
	"bytes"
	"context"
	"fmt"
	"image/color"

	"cogentcore.org/core/math32"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/matzehuels/kinship/pkg/core/geom"
	"github.com/matzehuels/kinship/pkg/core/lineage"
	"github.com/matzehuels/kinship/pkg/layout/phylo"
	"github.com/matzehuels/kinship/pkg/telemetry"
)

// LabelPoints is the label font size.
const LabelPoints = 12

var (
	background = color.RGBA{0x0b, 0x0d, 0x12, 0xff}
	edgeColor  = color.RGBA{0x9a, 0xa4, 0xb8, 0xff}
	labelColor = color.RGBA{0xe8, 0xea, 0xef, 0xff}

	kindColor = map[lineage.Kind]color.RGBA{
		lineage.KindOriginal: {0xf6, 0xc9, 0x45, 0xff},
		lineage.KindParent:   {0x6f, 0xa8, 0xdc, 0xff},
		lineage.KindAncestor: {0x4a, 0x6f, 0xa5, 0xff},
		lineage.KindSibling:  {0x93, 0xc4, 0x7d, 0xff},
		lineage.KindChild:    {0xe0, 0x8e, 0x6b, 0xff},
	}
)

// Rasterizer draws frames in-process with gg. Nodes become rounded cards
// sized by their billboard scale, edges become lines faded by opacity.
type Rasterizer struct {
	face font.Face
}

// Bundled is the in-process source. With a non-empty fontPath the labels are
// drawn in that TrueType font, and a font that fails to load fails the
// source. Without one, nodes are drawn unlabeled.
func Bundled(fontPath string) Source {
	return func(context.Context) (Capturer, error) {
		r := &Rasterizer{}
		if fontPath != "" {
			face, err := gg.LoadFontFace(fontPath, LabelPoints)
			if err != nil {
				return nil, fmt.Errorf("load label font %s: %w", fontPath, err)
			}
			r.face = face
		}
		return r, nil
	}
}

func (r *Rasterizer) Name() string { return "bundled" }

func (r *Rasterizer) Capture(ctx context.Context, f Frame, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	w, h := float64(opts.Width), float64(opts.Height)
	proj := newProjection(f, opts)

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetColor(background)
	dc.Clear()

	dc.SetLineWidth(1.5)
	for _, e := range f.Edges {
		if !e.Visible || e.Opacity <= 0 {
			continue
		}
		to := geom.LerpVec(e.From, e.To, geom.Clamp01(e.Progress))
		x1, y1, ok1 := proj.point(e.From)
		x2, y2, ok2 := proj.point(to)
		if !ok1 || !ok2 {
			continue
		}
		dc.SetRGBA(float64(edgeColor.R)/255, float64(edgeColor.G)/255, float64(edgeColor.B)/255, float64(geom.Clamp01(e.Opacity)))
		dc.DrawLine(x1*w, y1*h, x2*w, y2*h)
		dc.Stroke()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.face != nil {
		dc.SetFontFace(r.face)
	}
	for _, n := range f.Nodes {
		if !n.Visible || n.Progress <= 0 {
			continue
		}
		x, y, ok := proj.point(n.Position)
		if !ok {
			continue
		}
		sx, sy := n.ScaleX, n.ScaleY
		if !n.Ready || sx <= 0 || sy <= 0 {
			sx, sy = 1, 1
		}
		cw := proj.size(n.Position, sx*n.Progress) * h
		ch := proj.size(n.Position, sy*n.Progress) * h
		c, ok := kindColor[n.Kind]
		if !ok {
			c = kindColor[lineage.KindAncestor]
		}
		dc.SetColor(c)
		dc.DrawRoundedRectangle(x*w-cw/2, y*h-ch/2, cw, ch, min(cw, ch)*0.15)
		dc.Fill()
		if r.face != nil && n.Progress >= 1 {
			dc.SetColor(labelColor)
			dc.DrawStringAnchored(n.Name, x*w, y*h+ch/2+LabelPoints, 0.5, 0.5)
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// projection maps world points to [0,1] viewport coordinates with a pinhole
// camera looking from Camera.Position at Camera.Target.
type projection struct {
	eye                geom.Vec3
	forward, right, up geom.Vec3
	tanV, aspect       float32
	near               float32
}

func newProjection(f Frame, opts Options) projection {
	fov := f.FOV
	if fov <= 0 || fov >= 180 {
		fov = phylo.DefaultFOV
	}
	cam := f.Camera
	if cam == (telemetry.CameraState{}) || cam.Position == cam.Target {
		fit := phylo.Frame(f.bounds(), fov, opts.Aspect(), phylo.DefaultFrameOptions())
		cam = telemetry.CameraState{Position: fit.Position, Target: fit.Target}
	}
	forward := cam.Target.Sub(cam.Position).Normal()
	worldUp := geom.V(0, 1, 0)
	if math32.Abs(forward.Dot(worldUp)) > 0.999 {
		worldUp = geom.V(0, 0, -1)
	}
	right := forward.Cross(worldUp).Normal()
	return projection{
		eye:     cam.Position,
		forward: forward,
		right:   right,
		up:      right.Cross(forward),
		tanV:    math32.Tan(math32.DegToRad(fov) / 2),
		aspect:  opts.Aspect(),
		near:    0.1,
	}
}

// point returns viewport coordinates of p, or false when p is behind the
// near plane.
func (p projection) point(v geom.Vec3) (x, y float64, ok bool) {
	d := v.Sub(p.eye)
	z := d.Dot(p.forward)
	if z <= p.near {
		return 0, 0, false
	}
	nx := d.Dot(p.right) / (z * p.tanV * p.aspect)
	ny := d.Dot(p.up) / (z * p.tanV)
	return float64((nx + 1) / 2), float64((1 - ny) / 2), true
}

// size returns the fraction of the viewport height covered by a world length
// at v. Pixels are square, so callers scale it by the height on both axes.
func (p projection) size(v geom.Vec3, length float32) float64 {
	z := v.Sub(p.eye).Dot(p.forward)
	if z <= p.near {
		return 0
	}
	return float64(length / (2 * z * p.tanV))
}
