package leveldb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luozeyaoGitHub/leveldb/internal/base"
)

func TestWriteTableThenOpenTableRoundTrip(t *testing.T) {
	storage := NewMemStorage()
	entries := []sliceEntry{
		{base.MakeInternalKey([]byte("a"), 1, base.InternalKeyKindSet), []byte("a1")},
		{base.MakeInternalKey([]byte("b"), 2, base.InternalKeyKindSet), []byte("b2")},
		{base.MakeInternalKey([]byte("c"), 3, base.InternalKeyKindSet), []byte("c3")},
	}

	err := WriteTable(storage, "000001.sst", nil, Sync, func(add EntryWriter) error {
		for _, e := range entries {
			if err := add(e.key, e.val); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	tbl, err := OpenTable(storage, "000001.sst", nil)
	require.NoError(t, err)
	defer tbl.Close()

	it, err := tbl.NewIterator(nil, nil, 1)
	require.NoError(t, err)

	var keys, vals []string
	for valid := it.First(); valid; valid = it.Next() {
		keys = append(keys, string(it.Key()))
		vals = append(vals, string(it.Value()))
	}
	require.NoError(t, it.Error())
	require.Equal(t, []string{"a", "b", "c"}, keys)
	require.Equal(t, []string{"a1", "b2", "c3"}, vals)
}

func TestTableNewIteratorHonorsReadOptionsBoundsAndSnapshot(t *testing.T) {
	storage := NewMemStorage()
	err := WriteTable(storage, "000002.sst", nil, NoSync, func(add EntryWriter) error {
		if err := add(base.MakeInternalKey([]byte("a"), 1, base.InternalKeyKindSet), []byte("a1")); err != nil {
			return err
		}
		if err := add(base.MakeInternalKey([]byte("b"), 5, base.InternalKeyKindSet), []byte("b5")); err != nil {
			return err
		}
		return add(base.MakeInternalKey([]byte("c"), 2, base.InternalKeyKindSet), []byte("c2"))
	})
	require.NoError(t, err)

	tbl, err := OpenTable(storage, "000002.sst", nil)
	require.NoError(t, err)
	defer tbl.Close()

	// Snapshot 3 hides b's seq-5 write, leaving only a and c visible.
	it, err := tbl.NewIterator(&ReadOptions{Snapshot: 3}, nil, 1)
	require.NoError(t, err)
	var keys []string
	for valid := it.First(); valid; valid = it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.Equal(t, []string{"a", "c"}, keys)

	// A lower bound of "b" excludes "a" regardless of snapshot.
	it, err = tbl.NewIterator(&ReadOptions{LowerBound: []byte("b")}, nil, 1)
	require.NoError(t, err)
	keys = nil
	for valid := it.First(); valid; valid = it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.Equal(t, []string{"b", "c"}, keys)
}

func TestOpenTableMissingFileFails(t *testing.T) {
	storage := NewMemStorage()
	_, err := OpenTable(storage, "no-such-file.sst", nil)
	require.Error(t, err)
}
