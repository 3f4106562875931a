package sstable

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"

	"github.com/luozeyaoGitHub/leveldb/internal/base"
	"github.com/luozeyaoGitHub/leveldb/internal/cache"
)

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	Comparer        *base.Comparer
	FilterPolicy    base.FilterPolicy
	Cache           *cache.Cache
	VerifyChecksums bool
}

// EnsureDefaults fills in the zero-valued fields of o, returning o.
func (o *ReaderOptions) EnsureDefaults() *ReaderOptions {
	if o.Comparer == nil {
		o.Comparer = base.DefaultComparer
	}
	return o
}

// File is the minimal random-access, sized file a Reader needs.
type File interface {
	ReadAt(p []byte, off int64) (n int, err error)
	Size() (int64, error)
	Close() error
}

// Reader reads a table written by TableBuilder.
type Reader struct {
	file    File
	err     error
	index   []byte
	opts    ReaderOptions
	filter  filterReader
	cacheID base.CacheID

	numEntries      int
	haveNumEntries  bool
	smallest        base.InternalKey
	largest         base.InternalKey
	haveBounds      bool
	allowedSeeks    int64
	metaindexOffset uint64
}

// defaultAllowedSeeks is the initial value of a table's decaying seek
// budget: the number of seeks InternalGet-style lookups may charge to this
// table before RecordSeek reports that a compaction should be considered.
// 1<<30 matches the classic LevelDB default; nothing in this package acts
// on the report, but the counter is part of FileMetaData's contract and is
// tracked here so an embedding database can consume it.
const defaultAllowedSeeks = 1 << 30

// Open reads and validates a table's footer and index block, the metaindex
// and filter blocks when a filter policy is set, and the first and last data
// blocks to record the table's bounds.
// The returned Reader takes ownership of f: closing the Reader closes f.
func Open(f File, opts ReaderOptions) (*Reader, error) {
	opts.EnsureDefaults()
	r := &Reader{
		file:         f,
		opts:         opts,
		cacheID:      base.NewCacheID(),
		allowedSeeks: defaultAllowedSeeks,
	}

	size, err := f.Size()
	if err != nil {
		return nil, errors.Wrap(err, "leveldb/sstable: could not stat file")
	}
	if size < footerLen {
		return nil, base.MarkCorruption(nil, "leveldb/sstable: file size %d too small", size)
	}

	var buf [footerLen]byte
	if _, err := f.ReadAt(buf[:], size-footerLen); err != nil {
		return nil, errors.Wrap(err, "leveldb/sstable: could not read footer")
	}
	ft, err := readFooter(buf[:])
	if err != nil {
		return nil, err
	}
	r.metaindexOffset = ft.metaindexBH.Offset

	if err := r.readMetaindex(ft.metaindexBH); err != nil {
		return nil, err
	}

	r.index, err = r.readBlock(ft.indexBH, false)
	if err != nil {
		return nil, err
	}

	if err := r.loadBounds(); err != nil {
		return nil, err
	}
	return r, nil
}

// loadBounds reads only the table's first and last data blocks to record
// its smallest and largest internal keys. Opening a table must stay cheap
// regardless of how many blocks it has, so this deliberately does not scan
// every block the way NumEntries does.
func (r *Reader) loadBounds() error {
	iter, err := newBlockIter(r.opts.Comparer.Compare, r.index)
	if err != nil {
		return err
	}
	if !iter.First() {
		return nil
	}
	first, err := r.boundaryKey(iter, true)
	if err != nil {
		return err
	}
	if !iter.Last() {
		return base.MarkCorruption(nil, "leveldb/sstable: index iterator lost position")
	}
	last, err := r.boundaryKey(iter, false)
	if err != nil {
		return err
	}
	r.smallest, r.largest, r.haveBounds = first, last, true
	return nil
}

// boundaryKey reads the data block the index iterator currently points at
// and returns its first key (wantFirst) or last key.
func (r *Reader) boundaryKey(index *blockIter, wantFirst bool) (base.InternalKey, error) {
	bh, n := decodeBlockHandle(index.Value())
	if n == 0 {
		return base.InternalKey{}, base.MarkCorruption(nil, "leveldb/sstable: corrupt index entry")
	}
	data, err := r.readBlock(bh, true)
	if err != nil {
		return base.InternalKey{}, err
	}
	dataIter, err := newBlockIter(r.opts.Comparer.Compare, data)
	if err != nil {
		return base.InternalKey{}, err
	}
	var valid bool
	if wantFirst {
		valid = dataIter.First()
	} else {
		valid = dataIter.Last()
	}
	if !valid {
		return base.InternalKey{}, nil
	}
	return dataIter.Key().Clone(), nil
}

// NumEntries returns the number of key/value pairs in the table. The count
// isn't stored anywhere on disk, so the first call walks every data block
// once; the result is memoized for subsequent calls.
func (r *Reader) NumEntries() int {
	if r.haveNumEntries {
		return r.numEntries
	}
	iter, err := newBlockIter(r.opts.Comparer.Compare, r.index)
	if err != nil {
		return 0
	}
	count := 0
	for valid := iter.First(); valid; valid = iter.Next() {
		bh, n := decodeBlockHandle(iter.Value())
		if n == 0 {
			return 0
		}
		data, err := r.readBlock(bh, true)
		if err != nil {
			return 0
		}
		dataIter, err := newBlockIter(r.opts.Comparer.Compare, data)
		if err != nil {
			return 0
		}
		for valid := dataIter.First(); valid; valid = dataIter.Next() {
			count++
		}
	}
	r.numEntries, r.haveNumEntries = count, true
	return r.numEntries
}

func (r *Reader) readMetaindex(bh BlockHandle) error {
	if r.opts.FilterPolicy == nil {
		return nil
	}
	b, err := r.readBlock(bh, false)
	if err != nil {
		return err
	}
	iter, err := newBlockIter(bytes.Compare, b)
	if err != nil {
		return err
	}
	filterName := "filter." + r.opts.FilterPolicy.Name()
	var filterBH BlockHandle
	for valid := iter.First(); valid; valid = iter.Next() {
		if string(iter.Key().UserKey) != filterName {
			continue
		}
		var n int
		filterBH, n = decodeBlockHandle(iter.Value())
		if n == 0 {
			return base.MarkCorruption(nil, "leveldb/sstable: bad filter block handle")
		}
		break
	}
	if filterBH != (BlockHandle{}) {
		fb, err := r.readBlock(filterBH, false)
		if err != nil {
			return err
		}
		if !r.filter.init(fb, r.opts.FilterPolicy) {
			return base.MarkCorruption(nil, "leveldb/sstable: bad filter block")
		}
	}
	return nil
}

// readBlock reads, checksums and decompresses the block at bh. If cacheable
// is true and a Cache is configured, the decoded block is looked up and
// stored there keyed by (this table's CacheID, bh.Offset).
func (r *Reader) readBlock(bh BlockHandle, cacheable bool) ([]byte, error) {
	var ck cache.Key
	if cacheable && r.opts.Cache != nil {
		ck = cache.Key{ID: r.cacheID, Offset: bh.Offset}
		if v, ok := r.opts.Cache.Lookup(ck); ok {
			return v, nil
		}
	}

	b := make([]byte, bh.Length+blockTrailerLen)
	if _, err := r.file.ReadAt(b, int64(bh.Offset)); err != nil {
		return nil, errors.Wrap(err, "leveldb/sstable: could not read block")
	}
	if r.opts.VerifyChecksums {
		want := binary.LittleEndian.Uint32(b[bh.Length+1:])
		got := crcOf(b[:bh.Length+1], nil)
		if want != got {
			return nil, base.MarkCorruption(nil, "leveldb/sstable: checksum mismatch")
		}
	}

	var decoded []byte
	switch b[bh.Length] {
	case noCompressionBlockType:
		decoded = b[:bh.Length]
	case snappyCompressionBlockType:
		var err error
		decoded, err = snappy.Decode(nil, b[:bh.Length])
		if err != nil {
			return nil, errors.Wrap(err, "leveldb/sstable: snappy decode failed")
		}
	default:
		return nil, base.MarkCorruption(nil, "leveldb/sstable: unknown block compression %d", b[bh.Length])
	}

	if cacheable && r.opts.Cache != nil {
		decoded = r.opts.Cache.Insert(ck, decoded)
	}
	return decoded, nil
}

// NewIterator returns a two-level iterator over the table's key/value
// pairs in internal-key order.
func (r *Reader) NewIterator() (base.InternalIterator, error) {
	if r.err != nil {
		return nil, r.err
	}
	indexIter, err := newBlockIter(r.opts.Comparer.Compare, r.index)
	if err != nil {
		return nil, err
	}
	return newTwoLevelIterator(r, indexIter), nil
}

// InternalGet returns the newest entry whose user key equals key.UserKey, if
// present; key's sequence number and kind are not consulted. It does not
// touch the table's seek budget; callers charge a seek with RecordSeek.
func (r *Reader) InternalGet(key base.InternalKey) (base.InternalKey, []byte, error) {
	if r.err != nil {
		return base.InternalKey{}, nil, r.err
	}

	indexIter, err := newBlockIter(r.opts.Comparer.Compare, r.index)
	if err != nil {
		return base.InternalKey{}, nil, err
	}
	if !indexIter.SeekGE(key.UserKey) {
		return base.InternalKey{}, nil, base.ErrNotFound
	}
	bh, n := decodeBlockHandle(indexIter.Value())
	if n == 0 {
		return base.InternalKey{}, nil, base.MarkCorruption(nil, "leveldb/sstable: corrupt index entry")
	}
	if r.filter.valid() && !r.filter.mayContain(bh.Offset, key.UserKey) {
		return base.InternalKey{}, nil, base.ErrNotFound
	}
	data, err := r.readBlock(bh, true)
	if err != nil {
		return base.InternalKey{}, nil, err
	}
	dataIter, err := newBlockIter(r.opts.Comparer.Compare, data)
	if err != nil {
		return base.InternalKey{}, nil, err
	}
	if !dataIter.SeekGE(key.UserKey) {
		return base.InternalKey{}, nil, base.ErrNotFound
	}
	if !r.opts.Comparer.Equal(dataIter.Key().UserKey, key.UserKey) {
		return base.InternalKey{}, nil, base.ErrNotFound
	}
	return dataIter.Key().Clone(), append([]byte(nil), dataIter.Value()...), nil
}

// ApproximateOffsetOf returns an estimate of the file offset at which
// key's data would be found, for use in progress and size estimation. It
// never errors: a key past the last block resolves to the metaindex
// block's offset, i.e. the size of all the data blocks combined.
func (r *Reader) ApproximateOffsetOf(key []byte) uint64 {
	indexIter, err := newBlockIter(r.opts.Comparer.Compare, r.index)
	if err != nil {
		return r.metaindexOffset
	}
	if !indexIter.SeekGE(key) {
		return r.metaindexOffset
	}
	bh, n := decodeBlockHandle(indexIter.Value())
	if n == 0 {
		return r.metaindexOffset
	}
	return bh.Offset
}

// Smallest returns the smallest internal key in the table.
func (r *Reader) Smallest() (base.InternalKey, bool) {
	return r.smallest, r.haveBounds
}

// Largest returns the largest internal key in the table.
func (r *Reader) Largest() (base.InternalKey, bool) {
	return r.largest, r.haveBounds
}

// RecordSeek decrements the table's decaying seek budget by one and
// reports whether it has just reached zero, signaling to an embedding
// database that this table may be worth compacting away.
func (r *Reader) RecordSeek() bool {
	r.allowedSeeks--
	return r.allowedSeeks == 0
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	if r.err != nil {
		return r.err
	}
	err := r.file.Close()
	r.err = base.ErrClosed
	return err
}
