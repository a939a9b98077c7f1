package cache

// Cache is a byte cache with TTL semantics, fronting the external history
// service and market-search results.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Close()
}
