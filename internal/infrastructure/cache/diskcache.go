// Package cache provides the content-addressed response cache. Entries are
// keyed by the canonical request fingerprint (ports.CacheKey) and hold the
// exact serialized response body returned verbatim on a hit.
//
// The cache is strictly an optimization: every I/O failure is logged,
// counted, and swallowed, so a cache fault can never block or corrupt a
// query result.
package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/kiwiprop/transfer-system/internal/api/metrics"
)

const entrySuffix = ".json"

// DiskCache stores one file per fingerprint under a directory. Writes stage
// the content in a temp file and atomically rename it over any prior entry,
// so concurrent readers never observe a partially written body.
type DiskCache struct {
	dir    string
	bypass bool
	log    zerolog.Logger
}

// NewDiskCache creates the cache directory if needed. With bypass set, both
// read and write paths are disabled without touching existing entries.
func NewDiskCache(dir string, bypass bool, log zerolog.Logger) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir, bypass: bypass, log: log}, nil
}

func (c *DiskCache) path(key string) string {
	return filepath.Join(c.dir, key+entrySuffix)
}

// Get returns the cached bytes for key, or ok=false on a miss or any read
// failure.
func (c *DiskCache) Get(_ context.Context, key string) ([]byte, bool) {
	if c.bypass {
		return nil, false
	}
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.fault("cache read failed", key, err)
		}
		return nil, false
	}
	return data, true
}

// Put stores data under key, overwriting any existing entry. Concurrent puts
// for the same key are idempotent; last write wins.
func (c *DiskCache) Put(_ context.Context, key string, data []byte) {
	if c.bypass {
		return
	}

	tmp, err := os.CreateTemp(c.dir, key+".tmp-*")
	if err != nil {
		c.fault("cache stage failed", key, err)
		return
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		c.fault("cache write failed", key, err)
		return
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		c.fault("cache close failed", key, err)
		return
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		c.fault("cache publish failed", key, err)
	}
}

// Clear removes every entry. There is no TTL and no per-entry invalidation;
// this wholesale clear after an ingestion run is the only invalidation event.
func (c *DiskCache) Clear(_ context.Context) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		c.fault("cache clear failed", "", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != entrySuffix {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			c.fault("cache clear failed", e.Name(), err)
		}
	}
}

func (c *DiskCache) fault(msg, key string, err error) {
	metrics.CacheFaultsTotal.Inc()
	c.log.Warn().Err(err).Str("key", key).Msg(msg)
}
