package cache

import "time"

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a fresh value from the cache
	Get(key string) (T, bool)

	// Lookup retrieves a value and its age, fresh or not
	Lookup(key string) (Entry[T], bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Size returns the current number of items in the cache
	Size() int
}

// Entry is a cached value with the time it was stored.
type Entry[T any] struct {
	Value    T
	StoredAt time.Time
	Fresh    bool
}

var _ Cache[int] = (*LRUCache[int])(nil)
