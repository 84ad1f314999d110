package config

import (
	"context"
	"encoding/json"

	kerrors "github.com/matzehuels/kinship/pkg/errors"
	"github.com/matzehuels/kinship/pkg/httputil"
)

// Fetch overlays the JSON document at base.Remote.URL onto base.
//
// Failures are not fatal: on any error Fetch returns base unchanged together
// with the error, so the caller can render with local settings and surface
// the error separately. A cancelled ctx aborts the fetch.
func Fetch(ctx context.Context, client *httputil.Client, base Config) (Config, error) {
	if base.Remote.URL == "" {
		return base, nil
	}
	if client == nil {
		client = httputil.NewClient(nil, map[string]string{"Accept": "application/json"})
	}
	if base.Remote.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, base.Remote.Timeout)
		defer cancel()
	}

	data, err := client.GetBytes(ctx, base.Remote.URL)
	if err != nil {
		return base, err
	}
	merged := base
	if err := json.Unmarshal(data, &merged); err != nil {
		return base, kerrors.Wrap(kerrors.ErrCodeInvalidConfig, err, "decode remote config")
	}
	// the overlay may not redirect itself
	merged.Remote = base.Remote
	if err := merged.Validate(); err != nil {
		return base, err
	}
	return merged, nil
}
