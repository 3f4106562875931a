package base

// FilterPolicy is an algorithm for probabilistically testing set
// membership. The canonical implementation is a Bloom filter (see the
// sstable/bloom package).
//
// Every FilterPolicy has a Name. The name is written alongside the filter
// data in a table's metaindex block; a table read with a FilterPolicy whose
// Name does not match the one it was written with will have its filter
// block ignored (this affects performance, not correctness).
type FilterPolicy interface {
	// Name identifies the filter algorithm, not any single instance of it.
	Name() string

	// AppendFilter appends to dst an encoded filter that holds keys.
	AppendFilter(dst []byte, keys [][]byte) []byte

	// MayContain reports whether the encoded filter may contain key. False
	// positives are allowed: MayContain may return true for a key that was
	// never passed to AppendFilter. It must never return false for a key
	// that was.
	MayContain(filter, key []byte) bool
}
