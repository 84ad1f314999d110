// Package capture turns one frame of the reveal engine into a PNG.
//
// Capturing is optional: the animation never depends on it. A [Loader]
// resolves a [Capturer] lazily from an ordered list of sources (the bundled
// rasterizer first, then a remote render service) and keeps the first one
// that loads. Concurrent callers share one in-flight attempt; a failed
// attempt is forgotten so the next call starts over.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/kinship/pkg/core/geom"
	kerrors "github.com/matzehuels/kinship/pkg/errors"
	"github.com/matzehuels/kinship/pkg/reveal"
	"github.com/matzehuels/kinship/pkg/telemetry"
)

// Frame is everything a capturer needs to draw one frame.
type Frame struct {
	Nodes  []reveal.NodeState    `json:"nodes"`
	Edges  []reveal.EdgeState    `json:"edges"`
	Camera telemetry.CameraState `json:"camera"`
	// FOV is the vertical field of view in degrees.
	FOV float32 `json:"fov"`
}

// FrameOf snapshots the engine's current arena. The engine keeps ownership of
// its slices, so they are copied.
func FrameOf(e *reveal.Engine, cam telemetry.CameraState, fov float32) Frame {
	return Frame{
		Nodes:  append([]reveal.NodeState(nil), e.Nodes()...),
		Edges:  append([]reveal.EdgeState(nil), e.Edges()...),
		Camera: cam,
		FOV:    fov,
	}
}

// Options sets the output size in pixels.
type Options struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultOptions returns a 1280x720 capture.
func DefaultOptions() Options { return Options{Width: 1280, Height: 720} }

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	return o
}

// Aspect returns width/height.
func (o Options) Aspect() float32 {
	o = o.withDefaults()
	return float32(o.Width) / float32(o.Height)
}

// Capturer renders a frame to PNG bytes.
type Capturer interface {
	Name() string
	Capture(ctx context.Context, f Frame, opts Options) ([]byte, error)
}

// Source tries to produce a Capturer.
type Source func(ctx context.Context) (Capturer, error)

// ErrNoSources is returned by a Loader without sources.
var ErrNoSources = errors.New("no capture sources configured")

// Loader resolves a Capturer once and caches it.
type Loader struct {
	sources []Source

	mu     sync.Mutex
	loaded Capturer
	group  singleflight.Group
}

// NewLoader returns a loader that tries sources in order.
func NewLoader(sources ...Source) *Loader {
	return &Loader{sources: sources}
}

// Load returns the cached Capturer or runs one shared attempt to load it.
// Waiting callers give up when their own ctx ends. The attempt keeps ctx's
// values but not its cancellation, so one caller leaving does not fail the rest.
func (l *Loader) Load(ctx context.Context) (Capturer, error) {
	l.mu.Lock()
	if c := l.loaded; c != nil {
		l.mu.Unlock()
		return c, nil
	}
	l.mu.Unlock()

	attempt := context.WithoutCancel(ctx)
	ch := l.group.DoChan("load", func() (any, error) {
		c, err := l.try(attempt)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.loaded = c
		l.mu.Unlock()
		return c, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Capturer), nil
	}
}

func (l *Loader) try(ctx context.Context) (Capturer, error) {
	if len(l.sources) == 0 {
		return nil, ErrNoSources
	}
	var errs []error
	for _, src := range l.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := src(ctx)
		if err == nil {
			return c, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// Loaded returns the cached Capturer, if any.
func (l *Loader) Loaded() (Capturer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded, l.loaded != nil
}

// Reset forgets the cached Capturer.
func (l *Loader) Reset() {
	l.mu.Lock()
	l.loaded = nil
	l.mu.Unlock()
}

// Environment variables read by the default loader.
const (
	EnvFont      = "KINSHIP_CAPTURE_FONT"
	EnvRemoteURL = "KINSHIP_RENDER_URL"
)

var (
	defaultOnce   sync.Once
	defaultLoader *Loader
)

// Default returns the process-wide loader: the bundled rasterizer (with the
// label font from $KINSHIP_CAPTURE_FONT), then the render service at
// $KINSHIP_RENDER_URL.
func Default() *Loader {
	defaultOnce.Do(func() {
		defaultLoader = NewLoader(
			Bundled(os.Getenv(EnvFont)),
			RemoteSource(os.Getenv(EnvRemoteURL), nil),
		)
	})
	return defaultLoader
}

// Capture renders f with the default loader.
func Capture(ctx context.Context, f Frame, opts Options) ([]byte, error) {
	return CaptureWith(ctx, Default(), f, opts)
}

// CaptureWith renders f with the Capturer resolved by l.
func CaptureWith(ctx context.Context, l *Loader, f Frame, opts Options) ([]byte, error) {
	c, err := l.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, kerrors.Wrap(kerrors.ErrCodeCaptureUnavailable, err, "no capture backend available")
	}
	data, err := c.Capture(ctx, f, opts.withDefaults())
	if err != nil {
		return nil, fmt.Errorf("capture with %s: %w", c.Name(), err)
	}
	return data, nil
}

// bounds returns the box around the visible nodes.
func (f Frame) bounds() geom.Box3 {
	var pts []geom.Vec3
	for _, n := range f.Nodes {
		if n.Visible {
			pts = append(pts, n.Position)
		}
	}
	return geom.Bounds(pts)
}
