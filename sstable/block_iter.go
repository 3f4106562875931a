package sstable

import (
	"encoding/binary"
	"sort"

	"github.com/luozeyaoGitHub/leveldb/internal/base"
)

// cachedEntry records the position of an entry visited on a forward scan
// from a restart point, so that a subsequent Prev can walk backward
// through already-decoded entries instead of re-scanning from the restart
// point every time.
type cachedEntry struct {
	offset int
	key    []byte
	val    []byte
}

// blockIter iterates over a single decoded block, supporting both forward
// and reverse iteration. Seeking is restart-point binary search followed
// by a linear scan; Prev repositions to the restart point preceding the
// current entry and linearly re-decodes forward, caching each entry along
// the way so the walk-back is O(restart_interval) amortized rather than
// O(restart_interval) every single call.
type blockIter struct {
	cmp         base.Compare
	data        []byte
	restartsOff int
	numRestarts int
	offset      int
	nextOffset  int
	key, val    []byte
	ikey        base.InternalKey
	cached      []cachedEntry
	cachedBuf   []byte
	err         error
}

func newBlockIter(cmp base.Compare, block []byte) (*blockIter, error) {
	i := &blockIter{}
	if err := i.init(cmp, block); err != nil {
		return nil, err
	}
	return i, nil
}

func (i *blockIter) init(cmp base.Compare, block []byte) error {
	if len(block) < 4 {
		return base.MarkCorruption(nil, "leveldb/sstable: block too short")
	}
	numRestarts := int(binary.LittleEndian.Uint32(block[len(block)-4:]))
	if numRestarts == 0 {
		return base.MarkCorruption(nil, "leveldb/sstable: block has no restart points")
	}
	*i = blockIter{
		cmp:         cmp,
		data:        block,
		restartsOff: len(block) - 4*(1+numRestarts),
		numRestarts: numRestarts,
		key:         make([]byte, 0, 256),
	}
	return nil
}

func decodeEntryVarint(src []byte) (uint32, int) {
	v, n := binary.Uvarint(src)
	return uint32(v), n
}

func (i *blockIter) restartOffset(j int) int {
	return int(binary.LittleEndian.Uint32(i.data[i.restartsOff+4*j:]))
}

func (i *blockIter) readEntry() {
	shared, n := decodeEntryVarint(i.data[i.offset:])
	off := i.offset + n
	unshared, n := decodeEntryVarint(i.data[off:])
	off += n
	valLen, n := decodeEntryVarint(i.data[off:])
	off += n
	i.key = append(i.key[:shared], i.data[off:off+int(unshared)]...)
	i.key = i.key[:len(i.key):len(i.key)]
	off += int(unshared)
	i.val = i.data[off : off+int(valLen) : off+int(valLen)]
	if valLen == 0 {
		i.val = nil
	}
	off += int(valLen)
	i.nextOffset = off
}

func (i *blockIter) loadEntry() {
	i.readEntry()
	i.ikey = base.DecodeInternalKey(i.key)
}

func (i *blockIter) clearCache() {
	i.cached = i.cached[:0]
	i.cachedBuf = i.cachedBuf[:0]
}

func (i *blockIter) cacheEntry() {
	i.cachedBuf = append(i.cachedBuf, i.key...)
	i.cached = append(i.cached, cachedEntry{
		offset: i.offset,
		key:    i.cachedBuf[len(i.cachedBuf)-len(i.key) : len(i.cachedBuf) : len(i.cachedBuf)],
		val:    i.val,
	})
}

// SeekGE moves to the first entry whose key is >= key.
func (i *blockIter) SeekGE(key []byte) bool {
	i.offset = 0
	index := sort.Search(i.numRestarts, func(j int) bool {
		offset := i.restartOffset(j) + 1 // restart points share 0 bytes; varint(0) is 1 byte
		v1, n1 := decodeEntryVarint(i.data[offset:])
		_, n2 := decodeEntryVarint(i.data[offset+n1:])
		m := offset + n1 + n2
		return i.cmp(key, i.data[m:m+int(v1)]) <= 0
	})
	if index > 0 {
		i.offset = i.restartOffset(index - 1)
	}
	i.loadEntry()
	i.clearCache()
	i.cacheEntry()

	for i.Valid() {
		if i.cmp(key, i.ikey.UserKey) <= 0 {
			break
		}
		i.offset = i.nextOffset
		if !i.Valid() {
			break
		}
		i.loadEntry()
		i.cacheEntry()
	}
	return i.Valid()
}

// First moves to the first entry in the block.
func (i *blockIter) First() bool {
	i.offset = 0
	i.loadEntry()
	i.clearCache()
	i.cacheEntry()
	return i.Valid()
}

// Last moves to the last entry in the block.
func (i *blockIter) Last() bool {
	i.offset = i.restartOffset(i.numRestarts - 1)
	i.readEntry()
	i.clearCache()
	i.cacheEntry()
	for i.nextOffset < i.restartsOff {
		i.offset = i.nextOffset
		i.readEntry()
		i.cacheEntry()
	}
	i.ikey = base.DecodeInternalKey(i.key)
	return i.Valid()
}

// Next moves to the next entry.
func (i *blockIter) Next() bool {
	i.offset = i.nextOffset
	if !i.Valid() {
		return false
	}
	i.loadEntry()
	i.cacheEntry()
	return true
}

// Prev moves to the previous entry. If the current entry is not the first
// one visited since the last restart-point jump, it is served from the
// cache built up during the forward scan; otherwise it re-scans forward
// from the preceding restart point.
func (i *blockIter) Prev() bool {
	if n := len(i.cached) - 1; n > 0 && i.cached[n].offset == i.offset {
		i.nextOffset = i.offset
		e := &i.cached[n-1]
		i.offset = e.offset
		i.key = e.key
		i.val = e.val
		i.ikey = base.DecodeInternalKey(e.key)
		i.cached = i.cached[:n]
		return true
	}

	if i.offset == 0 {
		i.offset = -1
		i.nextOffset = 0
		return false
	}

	targetOffset := i.offset
	index := sort.Search(i.numRestarts, func(j int) bool {
		return i.restartOffset(j) >= targetOffset
	})
	i.offset = 0
	if index > 0 {
		i.offset = i.restartOffset(index - 1)
	}

	i.readEntry()
	i.clearCache()
	i.cacheEntry()
	for i.nextOffset < targetOffset {
		i.offset = i.nextOffset
		i.readEntry()
		i.cacheEntry()
	}
	i.ikey = base.DecodeInternalKey(i.key)
	return true
}

// Key returns the internal key at the current position.
func (i *blockIter) Key() base.InternalKey { return i.ikey }

// Value returns the value at the current position.
func (i *blockIter) Value() []byte { return i.val }

// Valid reports whether the iterator is positioned at a valid entry.
func (i *blockIter) Valid() bool {
	return i.offset >= 0 && i.offset < i.restartsOff
}

// Error returns any accumulated error.
func (i *blockIter) Error() error { return i.err }

// Close releases the iterator's resources.
func (i *blockIter) Close() error {
	i.val = nil
	return i.err
}

var _ base.InternalIterator = (*blockIter)(nil)
