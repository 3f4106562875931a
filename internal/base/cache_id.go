package base

import "sync/atomic"

// CacheID identifies the set of cache keys belonging to a single open
// table. Two tables opened from different files must never share a
// CacheID, or their block caches would collide; two opens of the same file
// content are free to share one, since the cached bytes would be
// identical.
type CacheID uint64

var nextCacheID atomic.Uint64

// NewCacheID allocates a CacheID that has not been returned before by this
// process.
func NewCacheID() CacheID {
	return CacheID(nextCacheID.Add(1))
}
