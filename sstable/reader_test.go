package sstable

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/kr/pretty"
	"github.com/stretchr/testify/require"

	"github.com/luozeyaoGitHub/leveldb/internal/base"
	"github.com/luozeyaoGitHub/leveldb/sstable/bloom"
)

// memTestFile adapts an in-memory byte slice to the File interface Reader
// needs, without pulling in the top-level package's Storage abstraction.
type memTestFile struct {
	data []byte
}

func (f *memTestFile) ReadAt(p []byte, off int64) (int, error) {
	return bytes.NewReader(f.data).ReadAt(p, off)
}

func (f *memTestFile) Size() (int64, error) { return int64(len(f.data)), nil }
func (f *memTestFile) Close() error         { return nil }

type kv struct {
	key base.InternalKey
	val []byte
}

func buildTestTable(t *testing.T, wopts WriterOptions, entries []kv) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewTableBuilder(&buf, wopts)
	for _, e := range entries {
		require.NoError(t, w.Add(e.key, e.val))
	}
	require.NoError(t, w.Finish())
	return buf.Bytes()
}

func sampleEntries() []kv {
	var out []kv
	for i := 0; i < 50; i++ {
		key := base.MakeInternalKey([]byte(fmt.Sprintf("key-%03d", i)), base.SeqNum(1000+i), base.InternalKeyKindSet)
		out = append(out, kv{key, []byte(fmt.Sprintf("value-%03d", i))})
	}
	// A newer deletion tombstone for key-010, which must sort before that
	// key's original (lower sequence number) Set entry.
	tombstone := kv{base.MakeInternalKey([]byte("key-010"), base.SeqNum(2000), base.InternalKeyKindDelete), nil}
	withTombstone := make([]kv, 0, len(out)+1)
	withTombstone = append(withTombstone, out[:10]...)
	withTombstone = append(withTombstone, tombstone)
	withTombstone = append(withTombstone, out[10:]...)
	return withTombstone
}

func TestTableRoundTripIteration(t *testing.T) {
	entries := sampleEntries()
	wopts := WriterOptions{
		BlockSize:    256, // force multiple data blocks
		Compression:  SnappyCompression,
		FilterPolicy: bloom.FilterPolicy(10),
	}
	data := buildTestTable(t, wopts, entries)

	r, err := Open(&memTestFile{data: data}, ReaderOptions{
		FilterPolicy:    bloom.FilterPolicy(10),
		VerifyChecksums: true,
	})
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, len(entries), r.NumEntries())

	iter, err := r.NewIterator()
	require.NoError(t, err)
	defer iter.Close()

	i := 0
	for valid := iter.First(); valid; valid = iter.Next() {
		require.Equal(t, string(entries[i].key.UserKey), string(iter.Key().UserKey))
		require.Equal(t, entries[i].key.Trailer, iter.Key().Trailer)
		require.Equal(t, entries[i].val, iter.Value())
		i++
	}
	require.NoError(t, iter.Error())
	require.Equal(t, len(entries), i)
}

func TestTableRoundTripReverseIteration(t *testing.T) {
	entries := sampleEntries()
	data := buildTestTable(t, WriterOptions{BlockSize: 256}, entries)

	r, err := Open(&memTestFile{data: data}, ReaderOptions{})
	require.NoError(t, err)
	defer r.Close()

	iter, err := r.NewIterator()
	require.NoError(t, err)
	defer iter.Close()

	i := len(entries) - 1
	for valid := iter.Last(); valid; valid = iter.Prev() {
		require.Equal(t, string(entries[i].key.UserKey), string(iter.Key().UserKey))
		i--
	}
	require.Equal(t, -1, i)
}

func TestTableInternalGet(t *testing.T) {
	entries := sampleEntries()
	data := buildTestTable(t, WriterOptions{
		BlockSize:    256,
		FilterPolicy: bloom.FilterPolicy(10),
	}, entries)

	r, err := Open(&memTestFile{data: data}, ReaderOptions{FilterPolicy: bloom.FilterPolicy(10)})
	require.NoError(t, err)
	defer r.Close()

	got, val, err := r.InternalGet(base.MakeSearchKey([]byte("key-025")))
	require.NoError(t, err)
	require.Equal(t, "key-025", string(got.UserKey))
	require.Equal(t, []byte("value-025"), val)

	_, _, err = r.InternalGet(base.MakeSearchKey([]byte("key-999")))
	require.ErrorIs(t, err, base.ErrNotFound)

	// key-010's tombstone is the newest version and must be what a search
	// key resolves to.
	got, _, err = r.InternalGet(base.MakeSearchKey([]byte("key-010")))
	require.NoError(t, err)
	require.Equal(t, base.InternalKeyKindDelete, got.Kind())
}

func TestTableSmallestLargest(t *testing.T) {
	entries := sampleEntries()
	data := buildTestTable(t, WriterOptions{BlockSize: 256}, entries)

	r, err := Open(&memTestFile{data: data}, ReaderOptions{})
	require.NoError(t, err)
	defer r.Close()

	smallest, ok := r.Smallest()
	require.True(t, ok)
	require.Equal(t, "key-000", string(smallest.UserKey))

	largest, ok := r.Largest()
	require.True(t, ok)
	require.Equal(t, "key-049", string(largest.UserKey))
}

func TestTableInternalGetReturnsExactKey(t *testing.T) {
	entries := sampleEntries()
	data := buildTestTable(t, WriterOptions{BlockSize: 256}, entries)

	r, err := Open(&memTestFile{data: data}, ReaderOptions{})
	require.NoError(t, err)
	defer r.Close()

	got, val, err := r.InternalGet(base.MakeSearchKey([]byte("key-025")))
	require.NoError(t, err)

	want := base.MakeInternalKey([]byte("key-025"), 1025, base.InternalKeyKindSet)
	if diff := pretty.Diff(want, got); diff != nil {
		t.Fatalf("internal key mismatch: %v", diff)
	}
	require.Equal(t, []byte("value-025"), val)
}

func TestTableApproximateOffsetOfIsMonotonic(t *testing.T) {
	entries := sampleEntries()
	data := buildTestTable(t, WriterOptions{BlockSize: 256}, entries)

	r, err := Open(&memTestFile{data: data}, ReaderOptions{})
	require.NoError(t, err)
	defer r.Close()

	prev := r.ApproximateOffsetOf([]byte("key-000"))
	last := r.ApproximateOffsetOf([]byte("key-049"))
	require.GreaterOrEqual(t, last, prev)

	// A key past the end resolves to the metaindex offset, i.e. the total
	// size of the data blocks.
	end := r.ApproximateOffsetOf([]byte("zzzzz"))
	require.GreaterOrEqual(t, end, last)
}

func TestTableRecordSeekDecaysToZero(t *testing.T) {
	entries := sampleEntries()
	data := buildTestTable(t, WriterOptions{}, entries)
	r, err := Open(&memTestFile{data: data}, ReaderOptions{})
	require.NoError(t, err)
	defer r.Close()

	// Override the seek budget directly rather than looping defaultAllowedSeeks
	// (1<<30) times.
	r.allowedSeeks = 3
	require.False(t, r.RecordSeek())
	require.False(t, r.RecordSeek())
	require.True(t, r.RecordSeek())
}

func TestTableEmptyRoundTrip(t *testing.T) {
	data := buildTestTable(t, WriterOptions{}, nil)
	r, err := Open(&memTestFile{data: data}, ReaderOptions{})
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, 0, r.NumEntries())
	iter, err := r.NewIterator()
	require.NoError(t, err)
	require.False(t, iter.First())
	require.NoError(t, iter.Close())
}

func TestOpenRejectsBadMagic(t *testing.T) {
	data := buildTestTable(t, WriterOptions{}, sampleEntries())
	corrupt := append([]byte(nil), data...)
	corrupt[len(corrupt)-1] ^= 0xff

	_, err := Open(&memTestFile{data: corrupt}, ReaderOptions{})
	require.Error(t, err)
	require.True(t, errors.Is(err, base.ErrCorruption))
}

func TestOpenRejectsChecksumMismatchWhenVerifying(t *testing.T) {
	data := buildTestTable(t, WriterOptions{Compression: NoCompression}, sampleEntries())
	corrupt := append([]byte(nil), data...)
	// Flip a byte inside the first data block's payload without touching
	// the footer or index.
	corrupt[0] ^= 0xff

	_, err := Open(&memTestFile{data: corrupt}, ReaderOptions{VerifyChecksums: true})
	require.Error(t, err)
}
