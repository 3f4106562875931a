package sstable

import "github.com/luozeyaoGitHub/leveldb/internal/base"

// twoLevelIterator iterates over an entire table by combining an index
// iterator (over block handles) with a data iterator over whichever block
// the index currently points at. The data iterator is instantiated lazily,
// only once the caller actually needs to look inside a given block, and
// swapped out again whenever the index moves to a different block.
type twoLevelIterator struct {
	reader *Reader
	index  *blockIter
	data   *blockIter
	err    error
}

func newTwoLevelIterator(r *Reader, index *blockIter) *twoLevelIterator {
	return &twoLevelIterator{reader: r, index: index}
}

var _ base.InternalIterator = (*twoLevelIterator)(nil)

// loadBlock decodes the block handle at the index iterator's current
// position and opens a data iterator over it.
func (i *twoLevelIterator) loadBlock() bool {
	bh, n := decodeBlockHandle(i.index.Value())
	if n == 0 {
		i.err = base.MarkCorruption(nil, "leveldb/sstable: corrupt index entry")
		i.data = nil
		return false
	}
	block, err := i.reader.readBlock(bh, true)
	if err != nil {
		i.err = err
		i.data = nil
		return false
	}
	data, err := newBlockIter(i.reader.opts.Comparer.Compare, block)
	if err != nil {
		i.err = err
		i.data = nil
		return false
	}
	i.data = data
	return true
}

// skipEmptyForward advances the index iterator until the data iterator it
// loads is non-empty and positioned validly, or the index is exhausted.
func (i *twoLevelIterator) skipEmptyForward() bool {
	for {
		if i.data != nil && i.data.Valid() {
			return true
		}
		if !i.index.Next() {
			i.data = nil
			return false
		}
		if !i.loadBlock() {
			return false
		}
		if !i.data.First() {
			i.data = nil
			continue
		}
		return true
	}
}

func (i *twoLevelIterator) skipEmptyBackward() bool {
	for {
		if i.data != nil && i.data.Valid() {
			return true
		}
		if !i.index.Prev() {
			i.data = nil
			return false
		}
		if !i.loadBlock() {
			return false
		}
		if !i.data.Last() {
			i.data = nil
			continue
		}
		return true
	}
}

// SeekGE positions at the first entry whose key is >= key.
func (i *twoLevelIterator) SeekGE(key []byte) bool {
	if !i.index.SeekGE(key) {
		i.data = nil
		return false
	}
	if !i.loadBlock() {
		return false
	}
	if !i.data.SeekGE(key) {
		i.data = nil
		return i.skipEmptyForward()
	}
	return true
}

// First positions at the first entry in the table.
func (i *twoLevelIterator) First() bool {
	if !i.index.First() {
		i.data = nil
		return false
	}
	if !i.loadBlock() {
		return false
	}
	if !i.data.First() {
		i.data = nil
	}
	return i.skipEmptyForward()
}

// Last positions at the last entry in the table.
func (i *twoLevelIterator) Last() bool {
	if !i.index.Last() {
		i.data = nil
		return false
	}
	if !i.loadBlock() {
		return false
	}
	if !i.data.Last() {
		i.data = nil
	}
	return i.skipEmptyBackward()
}

// Next advances to the next entry.
func (i *twoLevelIterator) Next() bool {
	if i.data == nil {
		return false
	}
	if i.data.Next() {
		return true
	}
	i.data = nil
	return i.skipEmptyForward()
}

// Prev moves to the previous entry.
func (i *twoLevelIterator) Prev() bool {
	if i.data == nil {
		return false
	}
	if i.data.Prev() {
		return true
	}
	i.data = nil
	return i.skipEmptyBackward()
}

// Key returns the internal key at the current position.
func (i *twoLevelIterator) Key() base.InternalKey {
	return i.data.Key()
}

// Value returns the value at the current position.
func (i *twoLevelIterator) Value() []byte {
	return i.data.Value()
}

// Valid reports whether the iterator is positioned validly.
func (i *twoLevelIterator) Valid() bool {
	return i.data != nil && i.data.Valid()
}

// Error returns any accumulated error.
func (i *twoLevelIterator) Error() error {
	if i.err != nil {
		return i.err
	}
	if i.data != nil {
		return i.data.Error()
	}
	return nil
}

// Close closes the iterator's currently open data block.
func (i *twoLevelIterator) Close() error {
	if i.data != nil {
		return i.data.Close()
	}
	return nil
}
