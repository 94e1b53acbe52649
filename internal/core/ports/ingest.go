package ports

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/paulmach/orb/geojson"
)

// ChangesetFetcher retrieves the raw feature list for one half-open UTC
// window [from, to) from the external feed. Implementations do not retry and
// do not cache; a non-success response or transport failure surfaces as a
// *domain.FetchError.
type ChangesetFetcher interface {
	FetchWindow(ctx context.Context, from, to time.Time) ([]*geojson.Feature, error)
}

// ResponseCache stores previously computed serialized responses keyed by a
// canonical fingerprint. The cache is strictly an optimization: I/O failures
// are logged and swallowed inside implementations, never returned.
type ResponseCache interface {
	// Get returns the cached bytes for key, or ok=false on a miss.
	Get(ctx context.Context, key string) (data []byte, ok bool)

	// Put stores data under key, atomically replacing any prior entry.
	Put(ctx context.Context, key string, data []byte)

	// Clear drops every entry. Issued wholesale after an ingestion run.
	Clear(ctx context.Context)
}

// CacheKey computes the canonical fingerprint for a request: a fixed-length
// hash over the operation name and its parameters in the caller's fixed
// order. Equivalent requests always hash identically; the NUL separator keeps
// ("ab","c") and ("a","bc") from colliding.
func CacheKey(op string, params ...string) string {
	h := sha256.New()
	h.Write([]byte(op))
	for _, p := range params {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
