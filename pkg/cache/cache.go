// Package cache stores decoded RR graph snapshots between runs.
//
// Parsing a large rr_graph.xml dominates a thinning job, and a batch loads
// the same source graph once per rate. The pipeline therefore keeps the
// parsed graph, encoded with [rrgraph.MarshalGraph], under a key derived from
// the source file's identity (path, size, modification time). Any change to
// the file yields a new key, so stale entries are simply never read again.
//
// Backends:
//   - [FileCache]: one file per entry under a local directory (default for the CLI)
//   - [RedisCache]: a shared Redis instance for batches on several hosts
//   - [NullCache]: caching disabled
//
// All backends are safe for concurrent use by the batch worker pool.
//
// [rrgraph.MarshalGraph]: github.com/matzehuels/rrthin/pkg/rrgraph.MarshalGraph
package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	errs "github.com/matzehuels/rrthin/pkg/errors"
)

// Cache is a byte store with optional expiry.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is a miss,
	// not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Backend names accepted by [Open].
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Options selects and configures a backend.
type Options struct {
	Backend  string
	Dir      string // FileCache directory; DefaultDir() when empty
	RedisURL string // redis://[:password@]host:port/db
	Prefix   string // key prefix, for several projects sharing one backend
}

// Keyer returns the keyer matching opts: a ScopedKeyer when Prefix is set,
// the DefaultKeyer otherwise.
func (o Options) Keyer() Keyer {
	if o.Prefix == "" {
		return NewDefaultKeyer()
	}
	return NewScopedKeyer(nil, o.Prefix)
}

// Open returns the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case BackendNone:
		return NewNullCache(), nil
	case BackendRedis:
		rc, err := NewRedisCache(ctx, opts.RedisURL)
		if err != nil {
			return nil, err
		}
		return rc, nil
	case BackendFile, "":
		dir := opts.Dir
		if dir == "" {
			d, err := DefaultDir()
			if err != nil {
				return nil, err
			}
			dir = d
		}
		fc, err := NewFileCache(dir)
		if err != nil {
			return nil, err
		}
		return fc, nil
	}
	return nil, errs.New(errs.ErrCodeInvalidConfig, "unknown cache backend %q", opts.Backend)
}

// DefaultDir returns the cache directory following the XDG convention
// ($XDG_CACHE_HOME/rrthin, else ~/.cache/rrthin).
func DefaultDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, "rrthin"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate cache dir: %w", err)
	}
	return filepath.Join(home, ".cache", "rrthin"), nil
}

// NullCache stores nothing; every Get misses. It backs --no-cache and the
// "none" backend.
type NullCache struct{}

// NewNullCache returns a cache that stores nothing.
func NewNullCache() *NullCache { return &NullCache{} }

func (*NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (*NullCache) Delete(context.Context, string) error                     { return nil }
func (*NullCache) Close() error                                             { return nil }

var _ Cache = (*NullCache)(nil)
