// Package httputil provides the HTTP plumbing shared by kinship's remote
// fetches: the external configuration document, image dimensions served over
// HTTP, and the remote capture service.
//
//   - [Client]: GET with default headers, status classification, retries and
//     an optional response cache
//   - [Cache]: file-based JSON cache with a TTL
//   - [Retry]: retry with exponential backoff for errors marked retryable
//
// Transient failures (network errors, 5xx, 429) are wrapped in
// [RetryableError] by the client; everything else fails immediately. All
// requests honour context cancellation, which is how a mode change or an
// unmount aborts an in-flight configuration fetch.
//
//	client := httputil.NewClient(nil, nil)
//	var cfg config.Remote
//	err := client.Get(ctx, url, &cfg)
package httputil
