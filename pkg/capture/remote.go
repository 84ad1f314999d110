package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	kerrors "github.com/matzehuels/kinship/pkg/errors"
	"github.com/matzehuels/kinship/pkg/httputil"
)

// ErrNoRemote is returned by RemoteSource when no service URL is set.
var ErrNoRemote = errors.New("no render service configured")

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// Remote posts frames to a render service that answers with a PNG.
type Remote struct {
	url    string
	client *httputil.Client
}

type remoteRequest struct {
	Frame  Frame `json:"frame"`
	Width  int   `json:"width"`
	Height int   `json:"height"`
}

// RemoteSource is the fallback source backed by the service at url. A nil
// client gets a default one.
func RemoteSource(url string, client *httputil.Client) Source {
	return func(context.Context) (Capturer, error) {
		if url == "" {
			return nil, ErrNoRemote
		}
		if err := kerrors.ValidateURL(url); err != nil {
			return nil, err
		}
		if client == nil {
			client = httputil.NewClient(nil, map[string]string{"Accept": "image/png"})
		}
		return &Remote{url: url, client: client}, nil
	}
}

func (r *Remote) Name() string { return "remote" }

func (r *Remote) Capture(ctx context.Context, f Frame, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	body, err := json.Marshal(remoteRequest{Frame: f, Width: opts.Width, Height: opts.Height})
	if err != nil {
		return nil, err
	}
	data, err := r.client.Post(ctx, r.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, pngMagic) {
		return nil, fmt.Errorf("render service %s returned %d bytes that are not a PNG", r.url, len(data))
	}
	return data, nil
}
