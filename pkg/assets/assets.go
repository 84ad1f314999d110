// Package assets resolves the pixel dimensions of node images so the reveal
// engine can open its per-node ready gate.
//
// Images are looked up in a local directory, then under a base URL. Only the
// image header is decoded (PNG, JPEG, GIF and WebP). Lookups run
// concurrently; the results are applied to the engine on the calling
// goroutine because the engine is not safe for concurrent use.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	kerrors "github.com/matzehuels/kinship/pkg/errors"
	"github.com/matzehuels/kinship/pkg/httputil"
	"github.com/matzehuels/kinship/pkg/reveal"
)

// DefaultConcurrency bounds the number of simultaneous lookups.
const DefaultConcurrency = 8

// Extensions are tried in order when a name has none.
var Extensions = []string{".png", ".webp", ".jpg", ".jpeg", ".gif"}

// ErrNotFound is returned when no source has the image.
var ErrNotFound = errors.New("image not found")

// Resolver finds images by node name.
type Resolver struct {
	// Dir is searched first. Empty disables local lookup.
	Dir string
	// BaseURL is tried when the image is not in Dir. Empty disables remote
	// lookup.
	BaseURL string
	// Client fetches remote images. Nil uses a default client.
	Client      *httputil.Client
	Concurrency int
}

// Result is the outcome for one image.
type Result struct {
	Name   string
	Aspect float32
	Err    error
}

// Aspect returns width/height of the image called name.
func (r *Resolver) Aspect(ctx context.Context, name string) (float32, error) {
	if err := kerrors.ValidateImageName(name); err != nil {
		return 0, err
	}
	if r.Dir != "" {
		data, err := r.readLocal(name)
		if err == nil {
			return decodeAspect(data)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return 0, err
		}
	}
	if r.BaseURL != "" {
		return r.remoteAspect(ctx, strings.TrimSuffix(r.BaseURL, "/")+"/"+url.PathEscape(name))
	}
	return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// remoteAspect fetches the image at u. Only the measured aspect is kept in
// the client's response cache, never the image bytes.
func (r *Resolver) remoteAspect(ctx context.Context, u string) (float32, error) {
	c := r.client()
	var aspect float32
	err := c.Cached(ctx, "aspect:"+u, false, &aspect, func() error {
		data, err := c.GetBytes(ctx, u)
		if err != nil {
			return err
		}
		aspect, err = decodeAspect(data)
		return err
	})
	return aspect, err
}

func (r *Resolver) readLocal(name string) ([]byte, error) {
	candidates := []string{name}
	if filepath.Ext(name) == "" {
		candidates = candidates[:0]
		for _, ext := range Extensions {
			candidates = append(candidates, name+ext)
		}
	}
	for _, c := range candidates {
		data, err := os.ReadFile(filepath.Join(r.Dir, c))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return data, err
	}
	return nil, fs.ErrNotExist
}

func (r *Resolver) client() *httputil.Client {
	if r.Client == nil {
		r.Client = httputil.NewClient(nil, nil)
	}
	return r.Client
}

func decodeAspect(data []byte) (float32, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, fmt.Errorf("image has no area: %dx%d", cfg.Width, cfg.Height)
	}
	return float32(cfg.Width) / float32(cfg.Height), nil
}

// Aspects looks up every name concurrently. A failed lookup is reported in
// its Result and never cancels the others. The results keep the order of
// names. The returned error is only ever ctx.Err().
func (r *Resolver) Aspects(ctx context.Context, names []string) ([]Result, error) {
	results := make([]Result, len(names))
	g, gctx := errgroup.WithContext(ctx)
	limit := r.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g.SetLimit(limit)
	r.client()
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a, err := r.Aspect(gctx, name)
			results[i] = Result{Name: name, Aspect: a, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, ctx.Err()
}

// Resolve looks up every node of the engine's arena that is not ready yet
// and feeds the results to ResolveImage. Failed lookups resolve to the
// default square scale.
func (r *Resolver) Resolve(ctx context.Context, e *reveal.Engine) error {
	seen := map[string]bool{}
	var names []string
	for _, n := range e.Nodes() {
		if !n.Ready && !seen[n.Name] {
			seen[n.Name] = true
			names = append(names, n.Name)
		}
	}
	results, err := r.Aspects(ctx, names)
	if err != nil {
		return err
	}
	for _, res := range results {
		e.ResolveImage(res.Name, res.Aspect, res.Err)
	}
	return nil
}
