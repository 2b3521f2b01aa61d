// Package cache stores rendered artifacts so unchanged architectures are
// not laid out and drawn twice.
//
// Three backends implement [Cache]:
//
//   - [FileCache] for the CLI, one JSON file per entry under the user cache dir
//   - [RedisCache] for servers sharing a cache
//   - [NullCache] when caching is disabled
//
// Keys come from a [Keyer]. Scene keys hash the canonical architecture
// together with every option that changes the scene; artifact keys add the
// output format and sink options on top of a scene key.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the entry for key. A missing or expired entry is a miss,
	// not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key types reported to observability hooks.
const (
	KeyTypeScene    = "scene"
	KeyTypeArtifact = "artifact"
)
