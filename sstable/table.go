// Package sstable implements the sorted-string-table format: an immutable
// file of key/value pairs sorted by internal key, together with an index
// block, an optional per-window filter block and a fixed-size footer.
//
// The file format is:
//
//	[data block 0]
//	[data block 1]
//	...
//	[data block N-1]
//	[filter block]        (optional)
//	[metaindex block]
//	[index block]
//	[footer]
//
// Each block is followed by a 5-byte trailer: a 1-byte compression type and
// a 4-byte masked CRC32C checksum covering the compressed block data plus
// the type byte. This module implements only the classic 48-byte LevelDB
// footer; it deliberately does not implement the later RocksDB-v2 footer
// variant, since the format this package targets is bit-exact to the
// original LevelDB layout.
package sstable

import (
	"encoding/binary"

	"github.com/luozeyaoGitHub/leveldb/internal/base"
)

const (
	blockTrailerLen   = 5
	blockHandleMaxLen = 10 + 10

	footerLen   = 48
	magicString = "\x57\xfb\x80\x8b\x24\x75\x47\xdb"
	magicOffset = footerLen - len(magicString)

	// The block type occupies the first byte of a block trailer and gives
	// the per-block compression format. These constants are part of the
	// file format and must not change.
	noCompressionBlockType     byte = 0
	snappyCompressionBlockType byte = 1
)

// Compression identifies the per-block compression algorithm requested of
// a TableBuilder. On disk, only NoCompression and SnappyCompression exist;
// DefaultCompression is resolved to SnappyCompression by EnsureDefaults.
type Compression int

// The available compression settings.
const (
	DefaultCompression Compression = iota
	NoCompression
	SnappyCompression
	nCompression
)

func (c Compression) String() string {
	switch c {
	case DefaultCompression:
		return "Default"
	case NoCompression:
		return "NoCompression"
	case SnappyCompression:
		return "Snappy"
	default:
		return "Unknown"
	}
}

// BlockHandle is the file offset and length of a block. The length does
// not include the 5-byte trailer. Both fields are varint-encoded with no
// padding, so an encoded handle occupies at most blockHandleMaxLen bytes.
type BlockHandle struct {
	Offset, Length uint64
}

// EncodeInto appends the varint encoding of h to dst, returning the
// extended slice.
func (h BlockHandle) EncodeInto(dst []byte) []byte {
	var buf [blockHandleMaxLen]byte
	n := binary.PutUvarint(buf[0:], h.Offset)
	n += binary.PutUvarint(buf[n:], h.Length)
	return append(dst, buf[:n]...)
}

// encodeBlockHandle writes the varint encoding of h into dst, which must be
// large enough, and returns the number of bytes written.
func encodeBlockHandle(dst []byte, h BlockHandle) int {
	n := binary.PutUvarint(dst, h.Offset)
	n += binary.PutUvarint(dst[n:], h.Length)
	return n
}

// decodeBlockHandle decodes a BlockHandle from the start of src, returning
// the handle and the number of bytes it occupied. It returns a zero count
// on malformed input.
func decodeBlockHandle(src []byte) (BlockHandle, int) {
	offset, n := binary.Uvarint(src)
	length, m := binary.Uvarint(src[n:])
	if n == 0 || m == 0 {
		return BlockHandle{}, 0
	}
	return BlockHandle{offset, length}, n + m
}

// footer is the 48-byte trailer of every table file.
type footer struct {
	metaindexBH BlockHandle
	indexBH     BlockHandle
}

func (f footer) encode(buf []byte) []byte {
	buf = buf[:footerLen]
	for i := range buf {
		buf[i] = 0
	}
	n := encodeBlockHandle(buf[0:], f.metaindexBH)
	encodeBlockHandle(buf[n:], f.indexBH)
	copy(buf[len(buf)-len(magicString):], magicString)
	return buf
}

func readFooter(buf []byte) (footer, error) {
	var f footer
	if len(buf) < footerLen {
		return f, base.MarkCorruption(nil, "leveldb/sstable: footer too short (%d bytes)", len(buf))
	}
	buf = buf[len(buf)-footerLen:]
	if string(buf[magicOffset:]) != magicString {
		return f, base.MarkCorruption(nil, "leveldb/sstable: bad magic number")
	}
	metaindexBH, n := decodeBlockHandle(buf)
	if n == 0 {
		return f, base.MarkCorruption(nil, "leveldb/sstable: bad metaindex block handle")
	}
	indexBH, n := decodeBlockHandle(buf[n:])
	if n == 0 {
		return f, base.MarkCorruption(nil, "leveldb/sstable: bad index block handle")
	}
	f.metaindexBH = metaindexBH
	f.indexBH = indexBH
	return f, nil
}
