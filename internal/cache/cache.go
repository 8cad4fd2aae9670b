package cache

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Purge removes every key
	Purge()

	// Size returns the current number of items in the cache
	Size() int
}

var _ Cache[int] = (*LRUCache[int])(nil)
