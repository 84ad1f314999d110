// Package cache provides the byte-level cache shared by the pipeline, the
// CLI and the HTTP server.
//
// Graphs and layouts are pure values of their inputs, so they are cached by
// content hash: a graph by the hash of the record it was built from, a layout
// by the hash of its graph plus the layout options. Backends only move bytes;
// serialization stays with the caller.
//
// # Backends
//
//   - [FileCache]: JSON entry files on disk, used by the CLI
//   - [RedisCache]: shared cache for the HTTP server
//   - [NullCache]: disables caching
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values with an optional time to live.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default lifetimes.
const (
	TTLGraph    = 24 * time.Hour
	TTLLayout   = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Keyer derives cache keys. Implementations must be deterministic.
type Keyer interface {
	// GraphKey keys a lineage graph by the hash of its source record.
	GraphKey(recordHash string) string
	// LayoutKey keys a layout by graph hash and options.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string
	// ArtifactKey keys a rendered artifact (DOT, SVG, PNG) by layout hash.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts are the layout options that change the computed layout.
type LayoutKeyOpts struct {
	Mode      string   `json:"mode"`
	ClusterID string   `json:"cluster_id,omitempty"`
	TagPrefix string   `json:"tag_prefix,omitempty"`
	Jitter    float32  `json:"jitter,omitempty"`
	Siblings  []string `json:"siblings,omitempty"`
	MaxNodes  int      `json:"max_nodes,omitempty"`
	LevelGap  float32  `json:"level_gap,omitempty"`
	Spacing   float32  `json:"spacing,omitempty"`
	// Camera framing, stored with phylogeny layouts.
	FOV     float32 `json:"fov,omitempty"`
	Aspect  float32 `json:"aspect,omitempty"`
	Padding float32 `json:"padding,omitempty"`
	Margin  float32 `json:"margin,omitempty"`
}

// ArtifactKeyOpts are the render options that change an artifact.
type ArtifactKeyOpts struct {
	Format string  `json:"format"`
	Time   float32 `json:"time,omitempty"`
	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`
}

// DefaultKeyer hashes every key component into a fixed-length key.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key derivation.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) GraphKey(recordHash string) string {
	return hashKey("graph", recordHash)
}

func (DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout:"+opts.Mode, graphHash, opts)
}

func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact:"+opts.Format, layoutHash, opts)
}

var _ Keyer = DefaultKeyer{}
