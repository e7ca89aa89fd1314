// Package framecache provides the decoded-frame cache that keeps image
// decoding off the render engine's locked path.
//
// # Cache[K, V]
//
// A thread-safe LRU cache with a soft limit. Values are produced by a load
// function that runs outside the cache lock, so a slow decode never blocks
// readers of other keys. Concurrent loads of the same key are coalesced:
// the first caller loads, later callers wait for its result.
//
//	frames := framecache.New[int, *gpucore.Image](16)
//	img, err := frames.GetOrLoad(3, func() (*gpucore.Image, error) {
//	    return decodeFrame(3)
//	})
//
// Failed loads are not cached.
//
// # Thread Safety
//
// Cache is safe for concurrent use and must not be copied after creation.
package framecache
