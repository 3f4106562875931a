package sstable

import (
	"encoding/binary"

	"github.com/luozeyaoGitHub/leveldb/internal/base"
)

// filterBaseLog controls the filter window size: a new filter is emitted
// for every 1<<filterBaseLog bytes (2KiB) of data blocks written. This
// value, and the fact that it is smaller than the default 4KiB block size,
// both match the classic LevelDB format bit-for-bit; roughly every other
// filter ends up empty as a result, which is a known, accepted quirk of
// the format rather than a bug in this package.
const filterBaseLog = 11

// filterWriter accumulates the keys of each data block into a sequence of
// per-window filters, aligned to filterBaseLog-sized offsets in the file
// rather than to block boundaries.
type filterWriter struct {
	policy base.FilterPolicy

	blockData    []byte
	blockLengths []int
	blockKeys    [][]byte

	data    []byte
	offsets []uint32
}

func (f *filterWriter) hasKeys() bool {
	return len(f.blockLengths) != 0
}

func (f *filterWriter) appendKey(key []byte) {
	f.blockData = append(f.blockData, key...)
	f.blockLengths = append(f.blockLengths, len(key))
}

func (f *filterWriter) appendOffset() error {
	o := len(f.data)
	if uint64(o) > 1<<32-1 {
		return base.MarkCorruption(nil, "leveldb/sstable: filter data too large")
	}
	f.offsets = append(f.offsets, uint32(o))
	return nil
}

func (f *filterWriter) emit() error {
	if err := f.appendOffset(); err != nil {
		return err
	}
	if !f.hasKeys() {
		return nil
	}
	i, j := 0, 0
	for _, length := range f.blockLengths {
		j += length
		f.blockKeys = append(f.blockKeys, f.blockData[i:j])
		i = j
	}
	f.data = f.policy.AppendFilter(f.data, f.blockKeys)

	f.blockData = f.blockData[:0]
	f.blockLengths = f.blockLengths[:0]
	f.blockKeys = f.blockKeys[:0]
	return nil
}

// finishBlock is called with the file offset immediately after a data
// block has been written; it emits filters until the filter window
// boundary has caught up with that offset.
func (f *filterWriter) finishBlock(blockOffset uint64) error {
	for i := blockOffset >> filterBaseLog; i > uint64(len(f.offsets)); {
		if err := f.emit(); err != nil {
			return err
		}
	}
	return nil
}

// finish flushes any pending keys and appends the offset trailer,
// returning the completed filter block.
func (f *filterWriter) finish() ([]byte, error) {
	if f.hasKeys() {
		if err := f.emit(); err != nil {
			return nil, err
		}
	}
	if err := f.appendOffset(); err != nil {
		return nil, err
	}
	var b [4]byte
	for _, x := range f.offsets {
		binary.LittleEndian.PutUint32(b[:], x)
		f.data = append(f.data, b[:]...)
	}
	f.data = append(f.data, filterBaseLog)
	return f.data, nil
}

// filterReader answers MayContain queries against a parsed filter block.
type filterReader struct {
	data    []byte
	offsets []byte // length is always a multiple of 4
	policy  base.FilterPolicy
	shift   uint32
}

func (f *filterReader) valid() bool {
	return f.data != nil
}

func (f *filterReader) init(raw []byte, policy base.FilterPolicy) bool {
	if len(raw) < 5 {
		return false
	}
	lastOffset := binary.LittleEndian.Uint32(raw[len(raw)-5:])
	if uint64(lastOffset) > uint64(len(raw)-5) {
		return false
	}
	data, offsets, shift := raw[:lastOffset], raw[lastOffset:len(raw)-1], uint32(raw[len(raw)-1])
	if len(offsets)&3 != 0 {
		return false
	}
	f.data = data
	f.offsets = offsets
	f.policy = policy
	f.shift = shift
	return true
}

// mayContain reports whether the filter window covering blockOffset may
// contain key. An empty window (no keys were ever added to it) is a
// definitive negative. Malformed offset entries are treated as a positive
// match, since a false "may contain" only costs an extra block read while a
// false negative would silently hide data.
func (f *filterReader) mayContain(blockOffset uint64, key []byte) bool {
	index := blockOffset >> f.shift
	if index >= uint64(len(f.offsets)/4-1) {
		return true
	}
	i := binary.LittleEndian.Uint32(f.offsets[4*index+0:])
	j := binary.LittleEndian.Uint32(f.offsets[4*index+4:])
	if i == j {
		return false
	}
	if i > j || uint64(j) > uint64(len(f.data)) {
		return true
	}
	return f.policy.MayContain(f.data[i:j], key)
}
