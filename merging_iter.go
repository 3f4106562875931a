package leveldb

import "github.com/luozeyaoGitHub/leveldb/internal/base"

// MergingIterator merges N sorted internal iterators into a single sorted
// stream, in internal-key order. It never collapses distinct versions of
// the same user key; that is the DB iterator's job (see db_iter.go).
//
// The number of iterators merged by a single instance is expected to be
// small (a handful of memtables and sstables), so positioning uses a
// straightforward linear scan over the children on every step rather than
// a heap. A heap is a valid, and asymptotically better, alternative for
// large fan-in, but for small N the simpler linear scan is easier to show
// correct and avoids the bookkeeping a heap needs across direction
// switches.
type MergingIterator struct {
	cmp     base.Compare
	iters   []base.InternalIterator
	dir     int8 // +1 forward, -1 backward, 0 unpositioned
	current int
	valid   bool
	err     error
}

// NewMergingIterator returns an iterator over the union of iters, in
// ascending internal-key order. It takes ownership of iters: closing the
// MergingIterator closes each of them.
func NewMergingIterator(cmp base.Compare, iters ...base.InternalIterator) *MergingIterator {
	return &MergingIterator{cmp: cmp, iters: iters}
}

var _ base.InternalIterator = (*MergingIterator)(nil)

func (m *MergingIterator) recordErr(err error) {
	if m.err == nil {
		m.err = err
	}
}

func (m *MergingIterator) checkErrs() {
	for _, it := range m.iters {
		m.recordErr(it.Error())
	}
}

// findSmallest positions m.current at the child holding the smallest valid
// internal key, or reports no valid entry exists.
func (m *MergingIterator) findSmallest() bool {
	best := -1
	for idx, it := range m.iters {
		if !it.Valid() {
			continue
		}
		if best == -1 || base.InternalCompare(m.cmp, it.Key(), m.iters[best].Key()) < 0 {
			best = idx
		}
	}
	m.current = best
	m.valid = best >= 0
	m.checkErrs()
	return m.valid
}

// findLargest positions m.current at the child holding the largest valid
// internal key, or reports no valid entry exists.
func (m *MergingIterator) findLargest() bool {
	best := -1
	for idx, it := range m.iters {
		if !it.Valid() {
			continue
		}
		if best == -1 || base.InternalCompare(m.cmp, it.Key(), m.iters[best].Key()) > 0 {
			best = idx
		}
	}
	m.current = best
	m.valid = best >= 0
	m.checkErrs()
	return m.valid
}

// seekLE repositions it at the largest entry whose internal key is <= key,
// emulating a "seek less-or-equal" using only SeekGE and Prev, since
// InternalIterator does not expose SeekLE directly.
func seekLE(it base.InternalIterator, cmp base.Compare, key base.InternalKey) bool {
	if it.SeekGE(key.UserKey) {
		for it.Valid() && base.InternalCompare(cmp, it.Key(), key) > 0 {
			if !it.Prev() {
				return false
			}
		}
		return it.Valid()
	}
	return it.Last()
}

// SeekGE positions the iterator at the first entry whose key is >= key.
func (m *MergingIterator) SeekGE(key []byte) bool {
	for _, it := range m.iters {
		it.SeekGE(key)
	}
	m.dir = 1
	return m.findSmallest()
}

// First positions the iterator at the smallest entry.
func (m *MergingIterator) First() bool {
	for _, it := range m.iters {
		it.First()
	}
	m.dir = 1
	return m.findSmallest()
}

// Last positions the iterator at the largest entry.
func (m *MergingIterator) Last() bool {
	for _, it := range m.iters {
		it.Last()
	}
	m.dir = -1
	return m.findLargest()
}

// switchToForward brings every child other than the current one forward
// to the first entry strictly greater than the entry just returned, so
// that stepping the current child and re-scanning for the smallest never
// re-surfaces an already-visited entry.
func (m *MergingIterator) switchToForward(key base.InternalKey) {
	for idx, it := range m.iters {
		if idx == m.current {
			continue
		}
		if !it.Valid() {
			it.SeekGE(key.UserKey)
		}
		for it.Valid() && base.InternalCompare(m.cmp, it.Key(), key) <= 0 {
			it.Next()
		}
	}
	m.iters[m.current].Next()
}

// switchToBackward is switchToForward's mirror image for reverse
// iteration.
func (m *MergingIterator) switchToBackward(key base.InternalKey) {
	for idx, it := range m.iters {
		if idx == m.current {
			continue
		}
		if !it.Valid() {
			seekLE(it, m.cmp, key)
		}
		for it.Valid() && base.InternalCompare(m.cmp, it.Key(), key) >= 0 {
			it.Prev()
		}
	}
	m.iters[m.current].Prev()
}

// Next advances to the next entry in ascending order, switching direction
// first if the iterator was moving backward.
func (m *MergingIterator) Next() bool {
	if !m.valid {
		return false
	}
	if m.dir != 1 {
		m.switchToForward(m.iters[m.current].Key().Clone())
		m.dir = 1
	} else {
		m.iters[m.current].Next()
	}
	return m.findSmallest()
}

// Prev moves to the previous entry in ascending order, switching direction
// first if the iterator was moving forward.
func (m *MergingIterator) Prev() bool {
	if !m.valid {
		return false
	}
	if m.dir != -1 {
		m.switchToBackward(m.iters[m.current].Key().Clone())
		m.dir = -1
	} else {
		m.iters[m.current].Prev()
	}
	return m.findLargest()
}

// Key returns the internal key at the current position.
func (m *MergingIterator) Key() base.InternalKey {
	return m.iters[m.current].Key()
}

// Value returns the value at the current position.
func (m *MergingIterator) Value() []byte {
	return m.iters[m.current].Value()
}

// Valid reports whether the iterator is positioned at a valid entry.
func (m *MergingIterator) Valid() bool {
	return m.valid
}

// Error returns the first error encountered by any child iterator.
func (m *MergingIterator) Error() error {
	return m.err
}

// Close closes every child iterator, returning the first error
// encountered.
func (m *MergingIterator) Close() error {
	for _, it := range m.iters {
		if err := it.Close(); err != nil {
			m.recordErr(err)
		}
	}
	return m.err
}
