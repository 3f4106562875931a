// Package base holds the small set of types shared by every layer of the
// storage engine: the internal key encoding, comparer and filter-policy
// contracts, and the internal iterator interface.
package base

import "bytes"

// Compare returns -1, 0, or +1 depending on whether a is 'less than',
// 'equal to' or 'greater than' b. The two arguments can only be 'equal' if
// their contents are exactly equal. The empty slice must be 'less than'
// any non-empty slice.
type Compare func(a, b []byte) int

// Equal reports whether a and b are equivalent. For a given Comparer,
// Equal(a, b) must agree with Compare(a, b) == 0.
type Equal func(a, b []byte) bool

// Separator appends a sequence of bytes x to dst such that a <= x && x < b,
// where 'less than' is consistent with Compare. It returns the enlarged
// slice, like the built-in append function.
//
// Precondition: either a is 'less than' b, or b is empty. An empty b means
// 'positive infinity', and appending any x such that a <= x is valid.
//
// A correct implementation may simply be "return append(dst, a...)", but
// appending fewer bytes produces smaller index blocks.
type Separator func(dst, a, b []byte) []byte

// Successor appends a key x to dst such that x >= a. A correct
// implementation may simply be "return append(dst, a...)".
type Successor func(dst, a []byte) []byte

// Comparer defines a total ordering over the space of []byte keys.
//
// The Name is not stored in the table file, and opening a table does not
// check it; TableBuilder.ChangeOptions rejects a Comparer whose Name differs
// from the one the builder was created with.
type Comparer struct {
	Compare   Compare
	Equal     Equal
	Separator Separator
	Successor Successor
	Name      string
}

// DefaultComparer orders keys lexicographically by their contents, using
// the same ordering as bytes.Compare. It is the on-disk default of the
// original LevelDB format, and its Name is chosen to remain compatible with
// files produced by that implementation.
var DefaultComparer = &Comparer{
	Compare: bytes.Compare,
	Equal:   bytes.Equal,

	Separator: func(dst, a, b []byte) []byte {
		i, n := SharedPrefixLen(a, b), len(dst)
		dst = append(dst, a...)

		min := len(a)
		if min > len(b) {
			min = len(b)
		}
		if i >= min {
			// One key is a prefix of the other; do not shorten.
			return dst
		}

		if a[i] >= b[i] {
			// a is already the shortest possible separator.
			return dst
		}

		if i < len(b)-1 || a[i]+1 < b[i] {
			i += n
			dst[i]++
			return dst[:i+1]
		}

		i += n + 1
		for ; i < len(dst); i++ {
			if dst[i] != 0xff {
				dst[i]++
				return dst[:i+1]
			}
		}
		return dst
	},

	Successor: func(dst, a []byte) []byte {
		for i := 0; i < len(a); i++ {
			if a[i] != 0xff {
				dst = append(dst, a[:i+1]...)
				dst[len(dst)-1]++
				return dst
			}
		}
		return append(dst, a...)
	},

	Name: "leveldb.BytewiseComparator",
}

// SharedPrefixLen returns the largest i such that a[:i] equals b[:i].
func SharedPrefixLen(a, b []byte) int {
	i, n := 0, len(a)
	if n > len(b) {
		n = len(b)
	}
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
