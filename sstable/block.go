package sstable

import (
	"encoding/binary"

	"github.com/luozeyaoGitHub/leveldb/internal/base"
)

// blockWriter accumulates key/value pairs into the uncompressed
// representation of a single data or index block, applying restart-point
// prefix compression: every restartInterval'th entry is a restart point
// that shares no prefix with the previous key, letting a reader binary
// search the restart array before falling back to a linear scan.
type blockWriter struct {
	restartInterval int
	nEntries        int
	buf             []byte
	restarts        []uint32
	curKey          []byte
	prevKey         []byte
	tmp             [3 * binary.MaxVarintLen64]byte
}

// add appends a key/value pair. Keys must be added in increasing order.
func (w *blockWriter) add(key base.InternalKey, value []byte) {
	w.curKey, w.prevKey = w.prevKey, w.curKey

	size := key.Size()
	if cap(w.curKey) < size {
		w.curKey = make([]byte, 0, size*2)
	}
	w.curKey = w.curKey[:size]
	key.Encode(w.curKey)

	shared := 0
	if w.nEntries%w.restartInterval == 0 {
		w.restarts = append(w.restarts, uint32(len(w.buf)))
	} else {
		shared = base.SharedPrefixLen(w.curKey, w.prevKey)
	}

	n := binary.PutUvarint(w.tmp[0:], uint64(shared))
	n += binary.PutUvarint(w.tmp[n:], uint64(size-shared))
	n += binary.PutUvarint(w.tmp[n:], uint64(len(value)))
	w.buf = append(w.buf, w.tmp[:n]...)
	w.buf = append(w.buf, w.curKey[shared:]...)
	w.buf = append(w.buf, value...)

	w.nEntries++
}

// estimatedSize returns the size the block would have if finished now.
func (w *blockWriter) estimatedSize() int {
	return len(w.buf) + 4*(len(w.restarts)+1)
}

// finish appends the restart-point array and count, and returns the
// completed, uncompressed block. The receiver must not be reused
// afterwards without a reset.
func (w *blockWriter) finish() []byte {
	if w.nEntries == 0 {
		// Every block, even an empty one, must have at least one restart
		// point so that a reader can locate offset zero.
		w.restarts = append(w.restarts[:0], 0)
	}
	var tmp4 [4]byte
	for _, x := range w.restarts {
		binary.LittleEndian.PutUint32(tmp4[:], x)
		w.buf = append(w.buf, tmp4[:]...)
	}
	binary.LittleEndian.PutUint32(tmp4[:], uint32(len(w.restarts)))
	w.buf = append(w.buf, tmp4[:]...)
	return w.buf
}

// reset clears the block writer's per-block state so it can be reused for
// the next block.
func (w *blockWriter) reset() {
	w.buf = w.buf[:0]
	w.nEntries = 0
	w.restarts = w.restarts[:0]
}
