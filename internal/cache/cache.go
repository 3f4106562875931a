// Package cache implements the small sharded block cache used by the table
// reader. It is deliberately simple: a fixed shard count, one mutex and one
// LRU list per shard, and no pinning, reference counting or ghost lists. A
// production-grade cache (CLOCK-Pro-style eviction, per-handle pinning) is
// out of scope; this package only needs to satisfy the reader's
// (cache ID, offset) -> block contract.
package cache

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/luozeyaoGitHub/leveldb/internal/base"
)

const shardCount = 16

// Key identifies a cached block: the table it came from and its offset
// within that table's file.
type Key struct {
	ID     base.CacheID
	Offset uint64
}

func (k Key) hash() uint64 {
	var buf [16]byte
	putUint64(buf[0:8], uint64(k.ID))
	putUint64(buf[8:16], k.Offset)
	return xxhash.Sum64(buf[:])
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

type entry struct {
	key        Key
	value      []byte
	next, prev *entry
}

// entryList is a circular doubly-linked list of *entry, modeled on
// container/list but specialized to entry to avoid a per-element
// allocation.
type entryList struct {
	root entry
}

func (l *entryList) init() {
	l.root.next = &l.root
	l.root.prev = &l.root
}

func (l *entryList) empty() bool {
	return l.root.next == &l.root
}

func (l *entryList) back() *entry {
	return l.root.prev
}

func (l *entryList) insertAfter(e, at *entry) {
	n := at.next
	at.next = e
	e.prev = at
	e.next = n
	n.prev = e
}

func (l *entryList) remove(e *entry) *entry {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.next = nil
	e.prev = nil
	return e
}

func (l *entryList) pushFront(e *entry) {
	l.insertAfter(e, &l.root)
}

func (l *entryList) moveToFront(e *entry) {
	if l.root.next == e {
		return
	}
	l.insertAfter(l.remove(e), &l.root)
}

type shard struct {
	mu      sync.Mutex
	maxSize int64
	size    int64
	m       map[Key]*entry
	lru     entryList
}

func (s *shard) init(maxSize int64) {
	s.maxSize = maxSize
	s.m = make(map[Key]*entry)
	s.lru.init()
}

func (s *shard) get(k Key) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[k]
	if !ok {
		return nil, false
	}
	s.lru.moveToFront(e)
	return e.value, true
}

func (s *shard) insert(k Key, v []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.m[k]; ok {
		s.lru.moveToFront(e)
		return e.value
	}
	e := &entry{key: k, value: v}
	s.m[k] = e
	s.lru.pushFront(e)
	s.size += int64(len(v))
	for s.size > s.maxSize && !s.lru.empty() {
		victim := s.lru.back()
		s.lru.remove(victim)
		delete(s.m, victim.key)
		s.size -= int64(len(victim.value))
	}
	return v
}

func (s *shard) erase(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.m[k]; ok {
		s.lru.remove(e)
		delete(s.m, k)
		s.size -= int64(len(e.value))
	}
}

// Cache is a sharded, in-memory block cache keyed by (table ID, file
// offset). A nil *Cache is valid and behaves as if caching is disabled.
type Cache struct {
	shards [shardCount]shard
}

// New returns a Cache that holds at most maxSize bytes in total, spread
// evenly across its shards.
func New(maxSize int64) *Cache {
	c := &Cache{}
	perShard := maxSize / shardCount
	if perShard <= 0 {
		perShard = 1
	}
	for i := range c.shards {
		c.shards[i].init(perShard)
	}
	return c
}

// NewID allocates a CacheID for a newly opened table.
func (c *Cache) NewID() base.CacheID {
	return base.NewCacheID()
}

func (c *Cache) shardFor(k Key) *shard {
	return &c.shards[k.hash()%shardCount]
}

// Lookup returns the cached block for k, if present.
func (c *Cache) Lookup(k Key) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	return c.shardFor(k).get(k)
}

// Insert adds a block to the cache, returning the value now stored for k
// (which is v, unless another goroutine raced to insert the same key
// first).
func (c *Cache) Insert(k Key, v []byte) []byte {
	if c == nil {
		return v
	}
	return c.shardFor(k).insert(k, v)
}

// Erase removes any cached block for k.
func (c *Cache) Erase(k Key) {
	if c == nil {
		return
	}
	c.shardFor(k).erase(k)
}
