// Package storage defines the asynchronous key-value collaborator the
// engine persists through, plus reference in-memory and file-backed
// implementations.
package storage

import "context"

// Well-known blob keys. Each blob is written whole; keeping them under
// separate keys means unrelated updates cannot clobber each other.
const (
	KeyUsage     = "usage"
	KeySettings  = "settings"
	KeyFavorites = "favorites"
)

// Store is the persistence boundary. Get returns ok=false when the key has
// never been written. Both calls may suspend; implementations must be safe
// for concurrent use on distinct keys.
type Store interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte) error
}
