package cache

import (
	"context"
	"sort"
	"strings"
	"time"
)

// TTL policy for discovery results. Search results and product lookups are
// short-lived, strategy results are expensive enough to keep for an hour.
const (
	SearchTTL         = 5 * time.Minute
	ProductTTL        = 5 * time.Minute
	RecommendationTTL = time.Hour
)

// Key prefixes. Prefix invalidation is coarse on purpose: list-level entries
// depend on unpredictable filter combinations, so product mutations wipe the
// whole class instead of chasing individual keys.
const (
	SearchPrefix         = "search:"
	ProductPrefix        = "product:"
	RecommendationPrefix = "rec:"
)

// Cache is a TTL key/value store. Implementations must be safe for concurrent
// use. Callers treat the cache as advisory: a cache error never fails a read,
// the value is simply recomputed.
type Cache interface {
	// Get unmarshals the value under key into dest and reports whether the
	// key was present.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// ProductIDKey is the cache key for a product looked up by ID.
func ProductIDKey(id string) string {
	return Key(ProductPrefix, "id="+id)
}

// ProductSlugKey is the cache key for a product looked up by slug.
func ProductSlugKey(slug string) string {
	return Key(ProductPrefix, "slug="+slug)
}

// Key builds a deterministic cache key from an operation name and its
// parameters. Parameters are "name=value" pairs; they are sorted so the same
// logical request always maps to the same key regardless of the order
// optional filters were supplied in.
func Key(op string, params ...string) string {
	if len(params) == 0 {
		return op
	}
	sorted := make([]string, len(params))
	copy(sorted, params)
	sort.Strings(sorted)
	return op + strings.Join(sorted, "|")
}
