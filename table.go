package leveldb

import (
	"io"

	"github.com/luozeyaoGitHub/leveldb/internal/base"
	"github.com/luozeyaoGitHub/leveldb/sstable"
)

// Table is a single sstable opened from Storage, exposing the versioned,
// snapshot-isolated read surface DBIterator builds on top of the raw
// two-level sstable iterator. It is the piece of this package that
// actually turns an Options value into a working read path.
type Table struct {
	reader *sstable.Reader
	opts   *Options
}

// OpenTable opens the named table from storage, reading eagerly what
// sstable.Open reads. opts may be nil, meaning defaults.
func OpenTable(storage Storage, name string, opts *Options) (*Table, error) {
	opts = opts.EnsureDefaults()
	f, err := storage.Open(name)
	if err != nil {
		return nil, err
	}
	r, err := sstable.Open(f, opts.readerOptions())
	if err != nil {
		f.Close()
		return nil, err
	}
	opts.Logger.Infof("leveldb: opened table %s (%d entries)", name, r.NumEntries())
	return &Table{reader: r, opts: opts}, nil
}

// NewIterator returns a DBIterator over the table honoring ro's bounds and
// snapshot; a nil ro means unbounded, as-of-now. sample, if non-nil, is
// invoked as the iterator drives read-triggered compaction sampling; seed
// drives that sampling's random period.
func (t *Table) NewIterator(ro *ReadOptions, sample SampleFunc, seed uint32) (*DBIterator, error) {
	iter, err := t.reader.NewIterator()
	if err != nil {
		return nil, err
	}
	return NewDBIterator(iter, t.opts.Comparer.Compare, ro.snapshot(), ro.lowerBound(), ro.upperBound(), sample, seed), nil
}

// Close closes the underlying table file.
func (t *Table) Close() error {
	return t.reader.Close()
}

// EntryWriter appends one key/value pair to a table under construction.
// Successive calls must pass strictly increasing internal keys, per
// sstable.TableBuilder.Add's contract.
type EntryWriter func(key base.InternalKey, value []byte) error

// noCloseWriter hides the Close (and any Flush) method a WritableFile
// implements, forcing sstable.NewTableBuilder down its buffered-writer
// path and leaving the decision of when to close and whether to sync to
// WriteTable below.
type noCloseWriter struct{ io.Writer }

// WriteTable builds a new table named name on storage, calling fn with an
// EntryWriter to add its contents in increasing internal-key order, then
// syncs and closes the file according to wo (a nil wo means Sync, per
// WriteOptions.GetSync's default). opts may be nil, meaning defaults.
func WriteTable(storage Storage, name string, opts *Options, wo *WriteOptions, fn func(add EntryWriter) error) error {
	opts = opts.EnsureDefaults()
	f, err := storage.Create(name)
	if err != nil {
		return err
	}
	b := sstable.NewTableBuilder(noCloseWriter{f}, opts.writerOptions())
	if err := fn(b.Add); err != nil {
		b.Abandon()
		f.Close()
		return err
	}
	if err := b.Finish(); err != nil {
		f.Close()
		opts.Logger.Fatalf("leveldb: failed to finish table %s: %v", name, err)
		return err
	}
	if wo.GetSync() {
		if err := f.Sync(); err != nil {
			f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	opts.Logger.Infof("leveldb: wrote table %s (%d entries)", name, b.NumEntries())
	return nil
}
