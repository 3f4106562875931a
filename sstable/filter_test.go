package sstable

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luozeyaoGitHub/leveldb/sstable/bloom"
)

func TestFilterWriterReaderSingleWindow(t *testing.T) {
	fw := filterWriter{policy: bloom.FilterPolicy(10)}
	fw.appendKey([]byte("alpha"))
	fw.appendKey([]byte("beta"))
	fw.appendKey([]byte("gamma"))

	// The block ends well inside the first 2KiB window, so no filter is
	// emitted yet.
	require.NoError(t, fw.finishBlock(100))
	require.True(t, fw.hasKeys())

	data, err := fw.finish()
	require.NoError(t, err)

	var fr filterReader
	require.True(t, fr.init(data, bloom.FilterPolicy(10)))

	require.True(t, fr.mayContain(0, []byte("alpha")))
	require.True(t, fr.mayContain(0, []byte("beta")))
	require.True(t, fr.mayContain(0, []byte("gamma")))

	// An offset past every recorded window has no filter to consult and
	// must be treated as a positive match.
	require.True(t, fr.mayContain(1<<20, []byte("anything")))
}

func TestFilterWriterMultipleWindows(t *testing.T) {
	fw := filterWriter{policy: bloom.FilterPolicy(10)}

	fw.appendKey([]byte("window0-a"))
	fw.appendKey([]byte("window0-b"))
	// Crossing the 2KiB boundary forces the first window's filter to be
	// emitted before the second window's keys are added.
	require.NoError(t, fw.finishBlock(1<<filterBaseLog+10))
	require.False(t, fw.hasKeys())

	fw.appendKey([]byte("window1-a"))
	require.NoError(t, fw.finishBlock(2*(1<<filterBaseLog)+10))

	data, err := fw.finish()
	require.NoError(t, err)

	var fr filterReader
	require.True(t, fr.init(data, bloom.FilterPolicy(10)))

	require.True(t, fr.mayContain(0, []byte("window0-a")))
	require.True(t, fr.mayContain(0, []byte("window0-b")))
	require.True(t, fr.mayContain(1<<filterBaseLog, []byte("window1-a")))
}

func TestFilterReaderEmptyWindowIsDefinitiveNegative(t *testing.T) {
	fw := filterWriter{policy: bloom.FilterPolicy(10)}
	fw.appendKey([]byte("window0-a"))
	// Jump three windows ahead in one call: this emits window0's filter
	// (has "window0-a") followed by two empty windows with no keys at all.
	require.NoError(t, fw.finishBlock(3*(1<<filterBaseLog)+5))

	data, err := fw.finish()
	require.NoError(t, err)

	var fr filterReader
	require.True(t, fr.init(data, bloom.FilterPolicy(10)))

	require.True(t, fr.mayContain(0, []byte("window0-a")))
	require.False(t, fr.mayContain(1<<filterBaseLog, []byte("anything")))
}

func TestFilterReaderRejectsTruncatedBlock(t *testing.T) {
	var fr filterReader
	require.False(t, fr.init([]byte{1, 2, 3}, bloom.FilterPolicy(10)))
	require.False(t, fr.valid())
}

func TestFilterWriterEmptyBlockStillEmits(t *testing.T) {
	fw := filterWriter{policy: bloom.FilterPolicy(10)}
	data, err := fw.finish()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	var fr filterReader
	require.True(t, fr.init(data, bloom.FilterPolicy(10)))
}
