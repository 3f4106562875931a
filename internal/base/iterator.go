package base

// InternalIterator iterates over internal key/value pairs in key order. An
// iterator must be closed after use, but need not be read to exhaustion.
//
// Unlike the on-disk key/value pairs of a single user key, InternalKey
// encodes both the value's sequence number and kind, so an InternalIterator
// may expose multiple versions of the same user key.
//
// An InternalIterator is not required to be goroutine-safe, though it is
// always safe to use distinct iterators from distinct goroutines
// concurrently.
type InternalIterator interface {
	// SeekGE moves the iterator to the first key/value pair whose key is
	// greater than or equal to the given key.
	SeekGE(key []byte) bool

	// First moves the iterator to the first key/value pair.
	First() bool

	// Last moves the iterator to the last key/value pair.
	Last() bool

	// Next moves the iterator to the next key/value pair in ascending
	// order and returns whether the iterator is positioned at a valid
	// entry.
	Next() bool

	// Prev moves the iterator to the previous key/value pair in ascending
	// order and returns whether the iterator is positioned at a valid
	// entry.
	Prev() bool

	// Key returns the internal key at the current position. The returned
	// key is only valid until the next positioning call.
	Key() InternalKey

	// Value returns the value at the current position. The returned slice
	// is only valid until the next positioning call.
	Value() []byte

	// Valid reports whether the iterator is positioned at a valid
	// key/value pair.
	Valid() bool

	// Error returns any accumulated error.
	Error() error

	// Close closes the iterator and releases any held resources. It is
	// valid to call Close more than once.
	Close() error
}
