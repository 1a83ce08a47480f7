// Package kv defines the persistent key-value store the search layer uses
// for its small JSON blobs (search history, usage patterns).
package kv

import (
	"context"
	"errors"
)

// Fixed keys owned by the search layer.
const (
	KeySearchHistory = "search-history"
	KeyUsagePatterns = "usage-patterns"
)

// ErrKeyNotFound signals an absent key.
var ErrKeyNotFound = errors.New("key not found")

// Store is a minimal persistent key-value store. Values are opaque bytes;
// the repositories store JSON. Implementations must be safe for concurrent use.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Close() error
}
