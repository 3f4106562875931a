package leveldb

import (
	"sort"

	"github.com/luozeyaoGitHub/leveldb/internal/base"
)

// sliceEntry is one (key, value) pair backing a sliceIter fixture.
type sliceEntry struct {
	key base.InternalKey
	val []byte
}

// sliceIter is a base.InternalIterator over an in-memory, pre-sorted slice
// of entries, used to exercise MergingIterator and DBIterator without
// needing a real table on disk.
type sliceIter struct {
	cmp     base.Compare
	entries []sliceEntry
	pos     int // -1 before the first entry, len(entries) past the last
}

func newSliceIter(cmp base.Compare, entries []sliceEntry) *sliceIter {
	return &sliceIter{cmp: cmp, entries: entries, pos: -1}
}

var _ base.InternalIterator = (*sliceIter)(nil)

func (s *sliceIter) SeekGE(key []byte) bool {
	s.pos = sort.Search(len(s.entries), func(i int) bool {
		return s.cmp(s.entries[i].key.UserKey, key) >= 0
	})
	return s.Valid()
}

func (s *sliceIter) First() bool {
	s.pos = 0
	return s.Valid()
}

func (s *sliceIter) Last() bool {
	s.pos = len(s.entries) - 1
	return s.Valid()
}

func (s *sliceIter) Next() bool {
	if s.pos < len(s.entries) {
		s.pos++
	}
	return s.Valid()
}

func (s *sliceIter) Prev() bool {
	if s.pos >= 0 {
		s.pos--
	}
	return s.Valid()
}

func (s *sliceIter) Key() base.InternalKey { return s.entries[s.pos].key }
func (s *sliceIter) Value() []byte         { return s.entries[s.pos].val }
func (s *sliceIter) Valid() bool           { return s.pos >= 0 && s.pos < len(s.entries) }
func (s *sliceIter) Error() error          { return nil }
func (s *sliceIter) Close() error          { return nil }
