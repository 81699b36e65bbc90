// Package cache stores computed generation graphs and rendered artifacts.
//
// Caching is keyed by content: the records hash plus every option that
// influences the result. Backends implement [Cache]:
//
//   - [FileCache]: one file per entry under a directory (CLI default)
//   - [RedisCache]: a shared Redis instance (API server)
//   - [NullCache]: caching disabled
//
// Keys are built by a [Keyer], which can be wrapped with [NewScopedKeyer]
// to isolate namespaces.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the cached data and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default TTLs for cached items.
const (
	GraphTTL    = 7 * 24 * time.Hour
	ArtifactTTL = 30 * 24 * time.Hour
)

// GraphKeyOpts lists the options that influence generation assignment.
type GraphKeyOpts struct {
	RequireParents bool   `json:"require_parents"`
	Reconcile      string `json:"reconcile"`
}

// ArtifactKeyOpts lists the options that influence a rendered artifact.
type ArtifactKeyOpts struct {
	Format     string `json:"format"`
	Detailed   bool   `json:"detailed"`
	Unassigned string `json:"unassigned"`
}

// Keyer builds cache keys.
type Keyer interface {
	// GraphKey keys an assigned graph by the hash of its input records.
	GraphKey(recordsHash string, opts GraphKeyOpts) string

	// ArtifactKey keys a rendered artifact by the hash of its graph.
	ArtifactKey(graphHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// GraphKey implements Keyer.
func (DefaultKeyer) GraphKey(recordsHash string, opts GraphKeyOpts) string {
	return hashKey("graph", recordsHash, opts)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", graphHash, opts)
}
