package base

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// SeqNum is a sequence number defining precedence among identical user
// keys: a key with a higher sequence number takes precedence over an equal
// user key with a lower sequence number. Sequence numbers are stored
// durably as a 7-byte (uint56) field within the internal key trailer.
type SeqNum uint64

const (
	// SeqNumZero is the smallest valid sequence number.
	SeqNumZero SeqNum = 0
	// SeqNumMax is the largest valid sequence number.
	SeqNumMax SeqNum = 1<<56 - 1
)

func (s SeqNum) String() string {
	if s == SeqNumMax {
		return "inf"
	}
	return fmt.Sprintf("%d", uint64(s))
}

// SafeFormat implements redact.SafeFormatter.
func (s SeqNum) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Print(redact.SafeString(s.String()))
}

// InternalKeyKind enumerates the kind of entry an InternalKey encodes.
type InternalKeyKind uint8

// These constants are part of the on-disk format and must not be changed.
const (
	// InternalKeyKindDelete marks a user key as deleted (a tombstone).
	InternalKeyKindDelete InternalKeyKind = 0
	// InternalKeyKindSet associates a user key with a value.
	InternalKeyKindSet InternalKeyKind = 1
	// InternalKeyKindSeek does not appear on disk. It is used to build a
	// search key for SeekGE-style lookups: paired with SeqNumMax, it sorts
	// before every real internal key sharing the same user key, since ties
	// in the user key are broken by descending (seqnum, kind).
	InternalKeyKindSeek InternalKeyKind = 2

	// InternalKeyKindMax is the largest kind stored on disk.
	InternalKeyKindMax InternalKeyKind = InternalKeyKindSet
	// InternalKeyKindInvalid marks a key that failed to decode.
	InternalKeyKindInvalid InternalKeyKind = 255
)

func (k InternalKeyKind) String() string {
	switch k {
	case InternalKeyKindDelete:
		return "DEL"
	case InternalKeyKindSet:
		return "SET"
	case InternalKeyKindSeek:
		return "SEEK"
	case InternalKeyKindInvalid:
		return "INVALID"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(k))
	}
}

// SafeFormat implements redact.SafeFormatter.
func (k InternalKeyKind) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Print(redact.SafeString(k.String()))
}

// InternalKey is a key used in the on-disk and in-memory representations of
// the store: a user key followed by an 8-byte trailer packing a sequence
// number and a kind.
type InternalKey struct {
	UserKey []byte
	Trailer uint64
}

// MakeTrailer packs a sequence number and kind into a single uint64: the
// sequence number occupies the high 56 bits, the kind the low 8.
func MakeTrailer(seqNum SeqNum, kind InternalKeyKind) uint64 {
	return (uint64(seqNum) << 8) | uint64(kind)
}

// MakeInternalKey constructs an InternalKey for the given user key,
// sequence number and kind.
func MakeInternalKey(userKey []byte, seqNum SeqNum, kind InternalKeyKind) InternalKey {
	return InternalKey{UserKey: userKey, Trailer: MakeTrailer(seqNum, kind)}
}

// MakeSearchKey builds an InternalKey suitable for SeekGE-style lookups: it
// sorts before every internal key sharing userKey, regardless of that
// key's actual sequence number or kind, because ties on the user key are
// broken by descending (seqnum, kind) and SeqNumMax/InternalKeyKindSeek
// dominate every real key's trailer.
func MakeSearchKey(userKey []byte) InternalKey {
	return MakeInternalKey(userKey, SeqNumMax, InternalKeyKindSeek)
}

// DecodeInternalKey decodes an internal key from its on-disk
// representation: the user key followed by an 8-byte little-endian
// trailer. A slice shorter than 8 bytes decodes to an invalid key.
func DecodeInternalKey(encodedKey []byte) InternalKey {
	n := len(encodedKey) - 8
	if n < 0 {
		return InternalKey{UserKey: encodedKey, Trailer: uint64(InternalKeyKindInvalid)}
	}
	return InternalKey{
		UserKey: encodedKey[:n:n],
		Trailer: binary.LittleEndian.Uint64(encodedKey[n:]),
	}
}

// SeqNum returns the key's sequence number.
func (k InternalKey) SeqNum() SeqNum {
	return SeqNum(k.Trailer >> 8)
}

// Kind returns the key's kind.
func (k InternalKey) Kind() InternalKeyKind {
	return InternalKeyKind(k.Trailer & 0xff)
}

// Valid reports whether the key decoded successfully.
func (k InternalKey) Valid() bool {
	return k.Kind() <= InternalKeyKindMax || k.Kind() == InternalKeyKindSeek
}

// Size returns the length of the key's encoded form.
func (k InternalKey) Size() int {
	return len(k.UserKey) + 8
}

// Encode writes the key's on-disk representation into buf, which must be
// at least k.Size() bytes long.
func (k InternalKey) Encode(buf []byte) {
	i := copy(buf, k.UserKey)
	binary.LittleEndian.PutUint64(buf[i:], k.Trailer)
}

// Clone returns a deep copy of the key.
func (k InternalKey) Clone() InternalKey {
	if len(k.UserKey) == 0 {
		return k
	}
	return InternalKey{
		UserKey: append([]byte(nil), k.UserKey...),
		Trailer: k.Trailer,
	}
}

func (k InternalKey) String() string {
	return fmt.Sprintf("%s#%s,%s", k.UserKey, k.SeqNum(), k.Kind())
}

// SafeFormat implements redact.SafeFormatter, redacting the user key while
// leaving the sequence number and kind visible.
func (k InternalKey) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Print(k.UserKey)
	w.Printf("#%s,%s", k.SeqNum(), k.Kind())
}

// InternalCompare orders two internal keys: first by user key (using
// userCmp), then by descending sequence number, then by descending kind.
// Descending order on the trailer means that, for equal user keys, the
// internal key with the most recent sequence number (and, within a
// sequence number, the "larger" kind) sorts first.
func InternalCompare(userCmp Compare, a, b InternalKey) int {
	if x := userCmp(a.UserKey, b.UserKey); x != 0 {
		return x
	}
	switch {
	case a.Trailer < b.Trailer:
		return 1
	case a.Trailer > b.Trailer:
		return -1
	default:
		return 0
	}
}

// ErrCorruption is the marker used to tag corruption errors (see
// errors.Mark / errors.Is). Callers should not rely on the error's message
// remaining stable.
var ErrCorruption = errors.New("leveldb: corruption")

// ErrNotFound is returned by lookups that find no entry for a key.
var ErrNotFound = errors.New("leveldb: not found")

// ErrClosed is returned by operations performed on a closed reader, writer
// or iterator.
var ErrClosed = errors.New("leveldb: use of closed object")

// ErrInvalidArgument is returned when a caller passes an invalid
// combination of arguments, such as changing a table's comparer mid-write.
var ErrInvalidArgument = errors.New("leveldb: invalid argument")

// MarkCorruption wraps err (or, if err is nil, creates a new error from
// msg) and marks it so that errors.Is(result, ErrCorruption) is true.
func MarkCorruption(err error, format string, args ...interface{}) error {
	if err == nil {
		return errors.Mark(errors.Newf(format, args...), ErrCorruption)
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrCorruption)
}
