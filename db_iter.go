package leveldb

import "github.com/luozeyaoGitHub/leveldb/internal/base"

type dbIterDirection int8

const (
	dirForward dbIterDirection = iota
	dirBackward
)

// SampleFunc is called, roughly once per readBytesPeriod bytes of internal
// entries examined, as the iterator steps over the underlying stream —
// whether or not the entry in question is ever surfaced to the caller.
// bytesRead is the approximate size of the internal entry that tripped the
// sample. An embedding database can use this to charge reads against a
// table's compaction-sampling budget without the DB iterator needing to
// know anything about tables or compactions itself.
type SampleFunc func(userKey []byte, bytesRead int)

// readBytesPeriod is the target number of internal-entry bytes between
// read-sampling hook invocations. The actual gap is drawn uniformly from
// [0, 2*readBytesPeriod) and redrawn after every firing, so that
// read-triggered compactions do not synchronize with any regular access
// pattern. 1<<20 matches classic LevelDB's kReadBytesPeriod.
const readBytesPeriod = 1 << 20

// lcg is the linear-congruential generator classic LevelDB's Random type
// implements (multiplier 16807, modulus 2^31-1, the Park-Miller "minimal
// standard" generator). It exists so read-sampling decisions are
// reproducible from a caller-supplied seed instead of depending on
// process-wide random state.
type lcg struct {
	state uint32
}

func newLCG(seed uint32) lcg {
	seed &= 0x7fffffff
	if seed == 0 || seed == 0x7fffffff {
		seed = 1
	}
	return lcg{state: seed}
}

func (r *lcg) next() uint32 {
	const m = 0x7fffffff // 2^31 - 1
	const a = 16807
	product := uint64(r.state) * a
	r.state = uint32(product>>31) + uint32(product&m)
	if r.state > m {
		r.state -= m
	}
	return r.state
}

// uniform returns a pseudo-random value in [0, n).
func (r *lcg) uniform(n int) int {
	return int(r.next() % uint32(n))
}

// DBIterator presents a single versioned internal-key stream (typically
// the output of a MergingIterator) as a plain, snapshot-isolated
// key/value iterator: exactly one entry per live user key, tombstones and
// old versions collapsed away.
type DBIterator struct {
	iter       base.InternalIterator
	cmp        base.Compare
	snapshot   base.SeqNum
	lowerBound []byte
	upperBound []byte
	sample     SampleFunc

	rnd              lcg
	bytesUntilSample int64

	dir     dbIterDirection
	valid   bool
	err     error
	key     []byte
	value   []byte
	keyBuf  []byte
	valBuf  []byte
}

// NewDBIterator returns a DBIterator over iter, using cmp to order user
// keys. iter is positioned freely by the DBIterator; the caller should not
// use it directly afterwards. Bounds and sample may be nil. seed drives the
// read-sampling generator; callers that don't care about reproducibility
// can pass any nonzero value.
func NewDBIterator(
	iter base.InternalIterator,
	cmp base.Compare,
	snapshot base.SeqNum,
	lowerBound, upperBound []byte,
	sample SampleFunc,
	seed uint32,
) *DBIterator {
	if snapshot == 0 {
		snapshot = base.SeqNumMax
	}
	i := &DBIterator{
		iter:       iter,
		cmp:        cmp,
		snapshot:   snapshot,
		lowerBound: lowerBound,
		upperBound: upperBound,
		sample:     sample,
		rnd:        newLCG(seed),
	}
	i.bytesUntilSample = i.randomCompactionPeriod()
	return i
}

func (i *DBIterator) saveKey(k []byte) {
	i.keyBuf = append(i.keyBuf[:0], k...)
	i.key = i.keyBuf
}

func (i *DBIterator) saveValue(v []byte) {
	i.valBuf = append(i.valBuf[:0], v...)
	i.value = i.valBuf
}

// randomCompactionPeriod draws a fresh byte budget for the next
// read-sampling trigger, uniformly distributed over [0, 2*readBytesPeriod).
func (i *DBIterator) randomCompactionPeriod() int64 {
	return int64(i.rnd.uniform(2 * readBytesPeriod))
}

// recordReadSample is called for every internal entry the iterator
// examines, surfaced or not, mirroring the byte-counter compaction
// sampling classic LevelDB drives from its internal key parsing step. It
// fires sample roughly once per readBytesPeriod bytes read, redrawing the
// next period on every firing; an entry larger than the remaining budget
// can trip the hook more than once.
func (i *DBIterator) recordReadSample(ikey base.InternalKey, value []byte) {
	if i.sample == nil {
		return
	}
	bytesRead := int64(ikey.Size() + len(value))
	for i.bytesUntilSample < bytesRead {
		i.bytesUntilSample += i.randomCompactionPeriod()
		i.sample(ikey.UserKey, ikey.Size()+len(value))
	}
	i.bytesUntilSample -= bytesRead
}

// findNextUserEntry scans forward from the iterator's current position
// looking for the next live user entry. skip, when true, means the entry
// at i.key has already been surfaced (or shadowed) and any further
// versions of it seen before a different user key must be skipped too.
func (i *DBIterator) findNextUserEntry(skip bool) bool {
	for i.iter.Valid() {
		ikey := i.iter.Key()
		i.recordReadSample(ikey, i.iter.Value())

		if i.upperBound != nil && i.cmp(ikey.UserKey, i.upperBound) >= 0 {
			return false
		}

		if ikey.SeqNum() > i.snapshot {
			i.iter.Next()
			continue
		}

		if skip && i.cmp(ikey.UserKey, i.key) == 0 {
			i.iter.Next()
			continue
		}
		skip = false

		switch ikey.Kind() {
		case base.InternalKeyKindDelete:
			i.saveKey(ikey.UserKey)
			skip = true
			i.iter.Next()

		case base.InternalKeyKindSet:
			i.saveKey(ikey.UserKey)
			i.saveValue(i.iter.Value())
			i.iter.Next()
			return true

		default:
			i.iter.Next()
		}
	}
	return false
}

// findPrevUserEntry scans backward from the iterator's current position
// looking for the previous live user entry, applying the same visibility
// rules as findNextUserEntry but in reverse. Entries for a given user key
// sort with the newest (highest sequence number) first, so walking
// backward visits a key's versions oldest-to-newest: every visible entry
// for the current key overwrites the previously saved one, so by the time
// the key changes (or the iterator is exhausted) the saved state reflects
// the newest version. valueKind doubles as "no live entry for the current
// key yet", using InternalKeyKindDelete as that sentinel: it lets the loop
// cross into an older key's entries without stopping whenever the newest
// version of the current key turned out to be a tombstone.
func (i *DBIterator) findPrevUserEntry() bool {
	valueKind := base.InternalKeyKindDelete
	for i.iter.Valid() {
		ikey := i.iter.Key()
		i.recordReadSample(ikey, i.iter.Value())

		if ikey.SeqNum() > i.snapshot {
			i.iter.Prev()
			continue
		}

		if valueKind != base.InternalKeyKindDelete && i.cmp(ikey.UserKey, i.key) < 0 {
			// The user key changed and the key we were accumulating had a
			// live version. That's the answer; this entry is left
			// unconsumed for the next call.
			break
		}

		i.saveKey(ikey.UserKey)
		valueKind = ikey.Kind()
		if valueKind == base.InternalKeyKindSet {
			i.saveValue(i.iter.Value())
		}
		i.iter.Prev()
	}
	if valueKind != base.InternalKeyKindSet {
		return false
	}
	if i.lowerBound != nil && i.cmp(i.key, i.lowerBound) < 0 {
		return false
	}
	return true
}

// SeekGE positions the iterator at the first live entry whose user key is
// >= key.
func (i *DBIterator) SeekGE(key []byte) bool {
	if i.lowerBound != nil && i.cmp(key, i.lowerBound) < 0 {
		key = i.lowerBound
	}
	i.dir = dirForward
	i.iter.SeekGE(key)
	i.valid = i.findNextUserEntry(false)
	i.err = i.iter.Error()
	return i.valid
}

// SeekLT positions the iterator at the last live entry whose user key is
// < key.
func (i *DBIterator) SeekLT(key []byte) bool {
	if i.upperBound != nil && i.cmp(key, i.upperBound) > 0 {
		key = i.upperBound
	}
	i.dir = dirBackward
	if !i.iter.SeekGE(key) {
		i.iter.Last()
	} else {
		i.iter.Prev()
	}
	i.valid = i.findPrevUserEntry()
	i.err = i.iter.Error()
	return i.valid
}

// First positions the iterator at the first live entry.
func (i *DBIterator) First() bool {
	i.dir = dirForward
	if i.lowerBound != nil {
		return i.SeekGE(i.lowerBound)
	}
	i.iter.First()
	i.valid = i.findNextUserEntry(false)
	i.err = i.iter.Error()
	return i.valid
}

// Last positions the iterator at the last live entry.
func (i *DBIterator) Last() bool {
	i.dir = dirBackward
	if i.upperBound != nil {
		return i.SeekLT(i.upperBound)
	}
	i.iter.Last()
	i.valid = i.findPrevUserEntry()
	i.err = i.iter.Error()
	return i.valid
}

// Next advances to the next live entry.
func (i *DBIterator) Next() bool {
	if !i.valid {
		return false
	}
	if i.dir == dirBackward {
		// findPrevUserEntry leaves the underlying iterator just before the
		// entries for the current key, or invalid if the current key was
		// the very first entry in the stream. Either way, step (or reseek)
		// into its range so findNextUserEntry can skip past its remaining
		// versions.
		if !i.iter.Valid() {
			i.iter.First()
		} else {
			i.iter.Next()
		}
		if !i.iter.Valid() {
			i.valid = false
			i.err = i.iter.Error()
			return false
		}
		i.dir = dirForward
		i.valid = i.findNextUserEntry(true)
		i.err = i.iter.Error()
		return i.valid
	}
	i.valid = i.findNextUserEntry(true)
	i.err = i.iter.Error()
	return i.valid
}

// Prev moves to the previous live entry.
func (i *DBIterator) Prev() bool {
	if !i.valid {
		return false
	}
	if i.dir == dirForward {
		// findNextUserEntry steps past the entry it returns, so the
		// underlying iterator can already be invalid here even though this
		// DBIterator is still validly positioned on the last live key
		// (that happens whenever the returned entry was also the last
		// entry in the whole stream). Reseek to the end before walking
		// backward past every version of the current key.
		if !i.iter.Valid() {
			i.iter.Last()
		}
		for {
			if !i.iter.Prev() {
				i.valid = false
				i.err = i.iter.Error()
				return false
			}
			if i.cmp(i.iter.Key().UserKey, i.key) != 0 {
				break
			}
		}
		i.dir = dirBackward
		i.valid = i.findPrevUserEntry()
		i.err = i.iter.Error()
		return i.valid
	}
	// Already scanning backward: back up past the version of i.key we are
	// sitting on so findPrevUserEntry starts from the next older user key.
	for i.iter.Valid() && i.cmp(i.iter.Key().UserKey, i.key) == 0 {
		i.iter.Prev()
	}
	i.valid = i.findPrevUserEntry()
	i.err = i.iter.Error()
	return i.valid
}

// Key returns the user key at the current position.
func (i *DBIterator) Key() []byte {
	return i.key
}

// Value returns the value at the current position.
func (i *DBIterator) Value() []byte {
	return i.value
}

// Valid reports whether the iterator is positioned at a live entry.
func (i *DBIterator) Valid() bool {
	return i.valid
}

// Error returns any error encountered by the underlying iterator.
func (i *DBIterator) Error() error {
	return i.err
}

// Close closes the underlying iterator.
func (i *DBIterator) Close() error {
	err := i.iter.Close()
	if i.err == nil {
		i.err = err
	}
	return err
}
