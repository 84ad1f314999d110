package httputil

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	kerrors "github.com/matzehuels/kinship/pkg/errors"
	"github.com/matzehuels/kinship/pkg/observability"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 10 * time.Second

// maxBody caps how much of a response body is read.
const maxBody = 32 << 20

// Client performs GET requests with default headers, retry and an optional
// response cache.
type Client struct {
	http    *http.Client
	cache   *Cache
	headers map[string]string
}

// NewClient creates a Client. cache and headers may be nil.
func NewClient(cache *Cache, headers map[string]string) *Client {
	return &Client{
		http:    &http.Client{Timeout: DefaultTimeout},
		cache:   cache,
		headers: headers,
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// Cached returns the cached value for key if present and fresh; otherwise it
// runs fetch and caches v on success. refresh bypasses the cache read. fetch
// does its own retrying, usually through Get or GetBytes.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	if c.cache != nil && !refresh {
		if ok, _ := c.cache.Get(key, v); ok {
			observability.Cache().OnCacheHit(ctx, "http")
			return nil
		}
		observability.Cache().OnCacheMiss(ctx, "http")
	}
	if err := fetch(); err != nil {
		return err
	}
	if c.cache != nil {
		_ = c.cache.Set(key, v)
	}
	return nil
}

// Get fetches rawURL and JSON-decodes the body into v, retrying transient
// failures.
func (c *Client) Get(ctx context.Context, rawURL string, v any) error {
	return RetryWithBackoff(ctx, func() error {
		body, err := c.do(ctx, http.MethodGet, rawURL, nil, "")
		if err != nil {
			return err
		}
		defer body.Close()
		if err := json.NewDecoder(io.LimitReader(body, maxBody)).Decode(v); err != nil {
			return kerrors.Wrap(kerrors.ErrCodeInvalidFormat, err, "decode %s", rawURL)
		}
		return nil
	})
}

// GetBytes fetches rawURL and returns the body.
func (c *Client) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	var data []byte
	err := RetryWithBackoff(ctx, func() error {
		body, err := c.do(ctx, http.MethodGet, rawURL, nil, "")
		if err != nil {
			return err
		}
		defer body.Close()
		data, err = io.ReadAll(io.LimitReader(body, maxBody))
		return err
	})
	return data, err
}

// Post sends body to rawURL with the given content type and returns the
// response body. Posts are not retried.
func (c *Client) Post(ctx context.Context, rawURL, contentType string, body io.Reader) ([]byte, error) {
	rc, err := c.do(ctx, http.MethodPost, rawURL, body, contentType)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxBody))
}

func (c *Client) do(ctx context.Context, method, rawURL string, body io.Reader, contentType string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.ErrCodeInvalidInput, err, "bad request URL")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	host, path := hostPath(rawURL)
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RetryableError{Err: kerrors.Wrap(kerrors.ErrCodeNetwork, err, "%s %s", method, host)}
	}
	hooks.OnResponse(ctx, method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return kerrors.New(kerrors.ErrCodeNotFound, "%s not found", resp.Request.URL.Path)
	case code == http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return &RetryableError{Err: &kerrors.RateLimitedError{RetryAfter: retryAfter}}
	case code >= 500:
		return &RetryableError{Err: kerrors.New(kerrors.ErrCodeNetwork, "status %d", code)}
	default:
		return kerrors.New(kerrors.ErrCodeNetwork, "status %d", code)
	}
}

func hostPath(rawURL string) (string, string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", rawURL
	}
	return u.Host, u.Path
}
