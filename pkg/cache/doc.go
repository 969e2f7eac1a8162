// Package cache provides a generic, concurrency-safe LRU cache with optional
// per-entry expiry.
//
//	names := cache.New[int64, string](4096, cache.WithTTL(10*time.Minute))
//	names.Put(42, "Algebra I")
//	if name, ok := names.Get(42); ok {
//		...
//	}
//
// Get, Put and Remove are O(1). Expired entries are removed lazily when they
// are read or pushed out by newer ones.
package cache
