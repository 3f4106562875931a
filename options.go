// Package leveldb assembles the sstable read path — the two-level table
// iterator, the N-way merging iterator and the version-collapsing DB
// iterator — into the versioned, snapshot-isolated read surface a storage
// engine's higher layers (memtable, compaction, version set) build on top
// of. Those higher layers are not implemented here; see the package
// documentation in DESIGN.md for the boundary.
package leveldb

import (
	"github.com/luozeyaoGitHub/leveldb/internal/base"
	"github.com/luozeyaoGitHub/leveldb/internal/cache"
	"github.com/luozeyaoGitHub/leveldb/sstable"
)

// Logger receives diagnostic output. It intentionally mirrors the
// teacher's minimal logging seam rather than a structured-logging
// framework: this package is an embeddable library core, not a service
// with its own log stream.
type Logger interface {
	Infof(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

type discardLogger struct{}

func (discardLogger) Infof(string, ...interface{})  {}
func (discardLogger) Fatalf(string, ...interface{}) {}

// DefaultLogger discards everything written to it.
var DefaultLogger Logger = discardLogger{}

// Options holds parameters shared across a table's lifetime. A nil
// *Options, or any zero-valued field within a non-nil *Options, means to
// use the default.
type Options struct {
	// BlockRestartInterval is the number of keys between restart points
	// used for prefix-compressing keys within a block.
	//
	// The default is 16.
	BlockRestartInterval int

	// BlockSize is the target uncompressed size, in bytes, of each table
	// block.
	//
	// The default is 4096.
	BlockSize int

	// Cache holds decoded blocks shared across tables. A nil Cache
	// disables caching.
	Cache *cache.Cache

	// Comparer defines the ordering over user keys. The same comparer
	// must be used to read and write a given table.
	//
	// The default orders keys as bytes.Compare does.
	Comparer *base.Comparer

	// Compression is the per-block compression algorithm.
	//
	// The default (DefaultCompression) uses Snappy.
	Compression sstable.Compression

	// FilterPolicy, if set, is used to build and consult a per-table
	// filter block to reduce disk reads for point lookups.
	//
	// The default is no filter.
	FilterPolicy base.FilterPolicy

	// Logger receives diagnostic messages.
	Logger Logger

	// VerifyChecksums enables verifying each block's CRC32C checksum as
	// it is read.
	VerifyChecksums bool
}

// EnsureDefaults fills in the zero-valued fields of o with their defaults,
// allocating a new Options if o is nil, and returns the result.
func (o *Options) EnsureDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	if o.BlockRestartInterval <= 0 {
		o.BlockRestartInterval = 16
	}
	if o.BlockSize <= 0 {
		o.BlockSize = 4096
	}
	if o.Comparer == nil {
		o.Comparer = base.DefaultComparer
	}
	if o.Compression <= sstable.DefaultCompression {
		o.Compression = sstable.SnappyCompression
	}
	if o.Logger == nil {
		o.Logger = DefaultLogger
	}
	return o
}

func (o *Options) writerOptions() sstable.WriterOptions {
	return sstable.WriterOptions{
		BlockRestartInterval: o.BlockRestartInterval,
		BlockSize:            o.BlockSize,
		Comparer:             o.Comparer,
		Compression:          o.Compression,
		FilterPolicy:         o.FilterPolicy,
	}
}

func (o *Options) readerOptions() sstable.ReaderOptions {
	return sstable.ReaderOptions{
		Comparer:        o.Comparer,
		FilterPolicy:    o.FilterPolicy,
		Cache:           o.Cache,
		VerifyChecksums: o.VerifyChecksums,
	}
}

// ReadOptions holds the optional per-query parameters for reads.
type ReadOptions struct {
	// LowerBound and UpperBound restrict iteration to [LowerBound,
	// UpperBound). Either may be nil to mean unbounded.
	LowerBound []byte
	UpperBound []byte

	// Snapshot, if non-zero, is the sequence number at or below which
	// entries are visible. A zero value means "as of now": the largest
	// sequence number possible.
	Snapshot base.SeqNum
}

func (o *ReadOptions) snapshot() base.SeqNum {
	if o == nil || o.Snapshot == 0 {
		return base.SeqNumMax
	}
	return o.Snapshot
}

func (o *ReadOptions) lowerBound() []byte {
	if o == nil {
		return nil
	}
	return o.LowerBound
}

func (o *ReadOptions) upperBound() []byte {
	if o == nil {
		return nil
	}
	return o.UpperBound
}

// WriteOptions holds the optional per-query parameters for writes.
// WriteTable consults Sync after a table's contents are fully built and
// finished, syncing the underlying file before closing it.
type WriteOptions struct {
	Sync bool
}

// Sync and NoSync are the two WriteOptions singletons callers reuse instead
// of allocating a fresh struct per call.
var (
	Sync   = &WriteOptions{Sync: true}
	NoSync = &WriteOptions{Sync: false}
)

func (o *WriteOptions) GetSync() bool {
	return o == nil || o.Sync
}
