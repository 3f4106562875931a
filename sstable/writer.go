package sstable

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"

	"github.com/luozeyaoGitHub/leveldb/internal/base"
	"github.com/luozeyaoGitHub/leveldb/internal/crc"
)

// crcOf returns the masked checksum of payload followed by extra.
func crcOf(payload, extra []byte) uint32 {
	return crc.New(payload).Update(extra).Value()
}

// indexEntry pairs a block handle with the length of its separator (or, for
// the final block, successor) key inside the writer's indexKeys buffer.
type indexEntry struct {
	bh     BlockHandle
	keyLen int
}

// WriterOptions configures a TableBuilder.
type WriterOptions struct {
	BlockRestartInterval int
	BlockSize            int
	Comparer             *base.Comparer
	Compression          Compression
	FilterPolicy         base.FilterPolicy
}

// EnsureDefaults fills in the zero-valued fields of o with their defaults,
// returning o for chaining.
func (o *WriterOptions) EnsureDefaults() *WriterOptions {
	if o.BlockRestartInterval <= 0 {
		o.BlockRestartInterval = 16
	}
	if o.BlockSize <= 0 {
		o.BlockSize = 4096
	}
	if o.Comparer == nil {
		o.Comparer = base.DefaultComparer
	}
	if o.Compression <= DefaultCompression || o.Compression >= nCompression {
		o.Compression = SnappyCompression
	}
	return o
}

// TableBuilder assembles a table file from key/value pairs added in
// strictly increasing internal-key order. It writes each data block as soon
// as it fills; index entries are kept in memory and the index block is
// written by Finish.
type TableBuilder struct {
	w      io.Writer
	bufw   *bufio.Writer
	closer io.Closer
	err    error

	opts WriterOptions

	// pendingBH is the handle of a just-finished data block that has not
	// yet been recorded in the index, because doing so requires seeing the
	// first key of the following block (to compute a short separator).
	pendingBH BlockHandle
	offset    uint64
	prevKey   []byte

	indexKeys    []byte
	indexEntries []indexEntry

	block blockWriter

	compressedBuf []byte
	filter        filterWriter
	tmp           [50]byte

	numEntries int
	smallest   base.InternalKey
	largest    base.InternalKey
	haveKeys   bool
}

// NewTableBuilder returns a TableBuilder that writes to w. Closing w, if
// necessary, is the caller's responsibility unless w also implements
// io.Closer, in which case Finish and Abandon both close it.
func NewTableBuilder(w io.Writer, opts WriterOptions) *TableBuilder {
	opts.EnsureDefaults()
	b := &TableBuilder{
		opts: opts,
		block: blockWriter{
			restartInterval: opts.BlockRestartInterval,
		},
		filter: filterWriter{
			policy: opts.FilterPolicy,
		},
		prevKey: make([]byte, 0, 256),
	}
	if c, ok := w.(io.Closer); ok {
		b.closer = c
	}
	type flusher interface{ Flush() error }
	if _, ok := w.(flusher); ok {
		b.w = w
	} else {
		b.bufw = bufio.NewWriter(w)
		b.w = b.bufw
	}
	return b
}

// Add appends a key/value pair. Successive calls must pass strictly
// increasing internal keys, per the table's comparer over user keys ties
// broken by descending (seqnum, kind), matching base.InternalCompare.
func (b *TableBuilder) Add(key base.InternalKey, value []byte) error {
	if b.err != nil {
		return b.err
	}
	if b.haveKeys && base.InternalCompare(b.opts.Comparer.Compare, b.largest, key) >= 0 {
		b.err = errors.Newf("leveldb/sstable: keys must be added in increasing order: %s, %s", b.largest, key)
		return b.err
	}

	if b.opts.FilterPolicy != nil {
		b.filter.appendKey(key.UserKey)
	}
	b.flushPendingIndexEntry(key.UserKey)

	buf := make([]byte, key.Size())
	key.Encode(buf)
	b.block.add(base.DecodeInternalKey(buf), value)
	b.prevKey = append(b.prevKey[:0], key.UserKey...)

	if !b.haveKeys {
		b.smallest = key.Clone()
		b.haveKeys = true
	}
	b.largest = key.Clone()
	b.numEntries++

	if b.block.estimatedSize() >= b.opts.BlockSize {
		bh, err := b.finishBlock()
		if err != nil {
			b.err = err
			return err
		}
		b.pendingBH = bh
	}
	return nil
}

// flushPendingIndexEntry records the index entry for the previously
// finished data block, now that key (the first key of the following
// block, or nil at Finish time) is known and a short separator can be
// computed between the two.
func (b *TableBuilder) flushPendingIndexEntry(key []byte) {
	if b.pendingBH.Length == 0 {
		// A valid block handle always has a non-zero length.
		return
	}
	n0 := len(b.indexKeys)
	if key != nil {
		b.indexKeys = b.opts.Comparer.Separator(b.indexKeys, b.prevKey, key)
	} else {
		b.indexKeys = b.opts.Comparer.Successor(b.indexKeys, b.prevKey)
	}
	n1 := len(b.indexKeys)
	b.indexEntries = append(b.indexEntries, indexEntry{b.pendingBH, n1 - n0})
	b.pendingBH = BlockHandle{}
}

// finishBlock compresses (if requested and worthwhile) and writes the
// current data block, notifying the filter writer of the resulting file
// offset, and returns the block's handle.
func (b *TableBuilder) finishBlock() (BlockHandle, error) {
	raw := b.block.finish()

	blockType := noCompressionBlockType
	payload := raw
	if b.opts.Compression == SnappyCompression {
		compressed := snappy.Encode(b.compressedBuf, raw)
		b.compressedBuf = compressed[:cap(compressed)]
		// Discard the compressed form unless it saves at least 12.5%.
		if len(compressed) < len(raw)-len(raw)/8 {
			blockType = snappyCompressionBlockType
			payload = compressed
		}
	}
	bh, err := b.writeRawBlock(payload, blockType)
	if err != nil {
		return BlockHandle{}, err
	}

	if b.opts.FilterPolicy != nil {
		if err := b.filter.finishBlock(b.offset); err != nil {
			return BlockHandle{}, err
		}
	}

	b.block.reset()
	return bh, nil
}

func (b *TableBuilder) writeRawBlock(payload []byte, blockType byte) (BlockHandle, error) {
	b.tmp[0] = blockType
	checksum := crcOf(payload, b.tmp[:1])
	binary.LittleEndian.PutUint32(b.tmp[1:5], checksum)

	if _, err := b.w.Write(payload); err != nil {
		return BlockHandle{}, err
	}
	if _, err := b.w.Write(b.tmp[:5]); err != nil {
		return BlockHandle{}, err
	}
	bh := BlockHandle{b.offset, uint64(len(payload))}
	b.offset += uint64(len(payload)) + blockTrailerLen
	return bh, nil
}

// NumEntries returns the number of key/value pairs added so far.
func (b *TableBuilder) NumEntries() int { return b.numEntries }

// FileSize returns the number of bytes written to the underlying writer so
// far, not counting data buffered in memory for the block in progress.
func (b *TableBuilder) FileSize() uint64 { return b.offset }

// ChangeOptions updates the compression and filter policy used for
// subsequently added blocks. Changing the comparer is only permitted if
// the new comparer has the same Name as the one the builder was created
// with, since a real ordering change would invalidate keys already
// written.
func (b *TableBuilder) ChangeOptions(opts WriterOptions) error {
	if opts.Comparer != nil && opts.Comparer.Name != b.opts.Comparer.Name {
		return errors.Mark(errors.Newf("leveldb/sstable: cannot change comparer from %q to %q",
			b.opts.Comparer.Name, opts.Comparer.Name), base.ErrInvalidArgument)
	}
	if opts.Compression != DefaultCompression {
		b.opts.Compression = opts.Compression
	}
	b.opts.FilterPolicy = opts.FilterPolicy
	b.filter.policy = opts.FilterPolicy
	return nil
}

// Abandon releases the builder's resources without writing a complete,
// readable table. It is safe to call Abandon after a failed Add.
func (b *TableBuilder) Abandon() error {
	b.err = base.ErrClosed
	if b.closer != nil {
		err := b.closer.Close()
		b.closer = nil
		return err
	}
	return nil
}

// Finish completes the table: it flushes the last data block (or writes an
// empty one if none were ever added), writes the filter, metaindex and
// index blocks, and writes the footer.
func (b *TableBuilder) Finish() error {
	if b.err != nil {
		return b.err
	}

	b.flushPendingIndexEntry(nil)
	if b.block.nEntries > 0 || len(b.indexEntries) == 0 {
		bh, err := b.finishBlock()
		if err != nil {
			b.err = err
			return err
		}
		b.pendingBH = bh
		b.flushPendingIndexEntry(nil)
	}

	var filterBH BlockHandle
	haveFilter := b.opts.FilterPolicy != nil
	if haveFilter {
		data, err := b.filter.finish()
		if err != nil {
			b.err = err
			return err
		}
		bh, err := b.writeRawBlock(data, noCompressionBlockType)
		if err != nil {
			b.err = err
			return err
		}
		filterBH = bh
	}

	// metaindex block: a single entry mapping "filter.<name>" to the
	// filter block's handle, or empty if there is no filter.
	var meta blockWriter
	meta.restartInterval = 1
	if haveFilter {
		var buf [blockHandleMaxLen]byte
		n := encodeBlockHandle(buf[:], filterBH)
		meta.add(base.MakeInternalKey([]byte("filter."+b.opts.FilterPolicy.Name()), 0, base.InternalKeyKindSet), buf[:n])
	}
	metaindexBH, err := b.writeRawBlock(meta.finish(), noCompressionBlockType)
	if err != nil {
		b.err = err
		return err
	}

	// index block: one entry per data block, restart interval 1.
	var index blockWriter
	index.restartInterval = 1
	i0 := 0
	var hbuf [blockHandleMaxLen]byte
	for _, ie := range b.indexEntries {
		n := encodeBlockHandle(hbuf[:], ie.bh)
		i1 := i0 + ie.keyLen
		index.add(base.MakeInternalKey(b.indexKeys[i0:i1], 0, base.InternalKeyKindSet), hbuf[:n])
		i0 = i1
	}
	indexBH, err := b.writeRawBlock(index.finish(), noCompressionBlockType)
	if err != nil {
		b.err = err
		return err
	}

	f := footer{metaindexBH: metaindexBH, indexBH: indexBH}
	if _, err := b.w.Write(f.encode(b.tmp[:footerLen])); err != nil {
		b.err = err
		return err
	}

	if b.bufw != nil {
		if err := b.bufw.Flush(); err != nil {
			b.err = err
			return err
		}
	}
	if b.closer != nil {
		err := b.closer.Close()
		b.closer = nil
		if err != nil {
			b.err = err
			return err
		}
	}

	b.err = base.ErrClosed
	return nil
}
