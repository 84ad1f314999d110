// Package store persists relation records so the HTTP server and the CLI can
// refer to them by id.
//
// Three backends implement [Store]:
//
//   - [MemoryStore]: process-local, used by tests and `kinship serve --store memory://`
//   - [FileStore]: one JSON file per record under a directory
//   - [MongoStore]: a MongoDB collection for shared deployments
//
// [Open] picks a backend from a URL.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/kinship/pkg/core/lineage"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("record not found")

// Entry is a stored relation record.
type Entry struct {
	ID        string         `json:"id" bson:"_id"`
	Record    lineage.Record `json:"record" bson:"record"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}

// Store is the record persistence interface.
type Store interface {
	// Put inserts or replaces e. A missing ID is generated and a zero
	// CreatedAt is set to now; the stored entry is returned.
	Put(ctx context.Context, e Entry) (Entry, error)
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (Entry, error)
	// List returns up to limit entries, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Entry, error)
	// Delete returns ErrNotFound for unknown ids.
	Delete(ctx context.Context, id string) error
	Close() error
}

// NewID returns a fresh record id.
func NewID() string { return uuid.NewString() }

func prepare(e Entry) Entry {
	if e.ID == "" {
		e.ID = NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return e
}

// Open returns the backend named by rawURL:
//
//	memory://
//	file:///var/lib/kinship/records
//	mongodb://host:27017/kinship
func Open(ctx context.Context, rawURL string) (Store, error) {
	if rawURL == "" || rawURL == "memory://" {
		return NewMemoryStore(), nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}
	switch u.Scheme {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(u.Path)
	case "mongodb", "mongodb+srv":
		db := strings.TrimPrefix(u.Path, "/")
		return NewMongoStore(ctx, MongoConfig{URI: rawURL, Database: db})
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", u.Scheme)
	}
}
