// Package bloom implements a classic per-block Bloom filter, usable as an
// sstable FilterPolicy. It reproduces the original LevelDB Bloom filter
// bit layout (a Murmur-like hash with double hashing via a fixed delta,
// and a trailing byte recording the number of probes), so filters written
// by this package can be read by any implementation of the same format.
package bloom

import "github.com/luozeyaoGitHub/leveldb/internal/base"

var _ base.FilterPolicy = (*policy)(nil)

// FilterPolicy returns a base.FilterPolicy implementing a Bloom filter
// with approximately bitsPerKey bits allotted per key, choosing the number
// of hash probes that minimizes the false positive rate for that bit
// budget.
func FilterPolicy(bitsPerKey int) *policy {
	return &policy{bitsPerKey: bitsPerKey}
}

type policy struct {
	bitsPerKey int
}

func (p *policy) Name() string {
	return "leveldb.BuiltinBloomFilter"
}

func (p *policy) AppendFilter(dst []byte, keys [][]byte) []byte {
	bitsPerKey := p.bitsPerKey
	if bitsPerKey < 0 {
		bitsPerKey = 0
	}
	// 0.69 is approximately ln(2); this is the number of probes that
	// minimizes the false positive rate for a given bits-per-key budget.
	k := uint32(float64(bitsPerKey) * 0.69)
	if k < 1 {
		k = 1
	}
	if k > 30 {
		k = 30
	}

	nBits := len(keys) * bitsPerKey
	if nBits < 64 {
		// A very small filter has an unacceptably high false-positive
		// rate; enforce a floor.
		nBits = 64
	}
	nBytes := (nBits + 7) / 8
	nBits = nBytes * 8

	base := len(dst)
	dst = append(dst, make([]byte, nBytes+1)...)
	buf := dst[base:]

	for _, key := range keys {
		h := hash(key)
		delta := h>>17 | h<<15
		for j := uint32(0); j < k; j++ {
			bitPos := h % uint32(nBits)
			buf[bitPos/8] |= 1 << (bitPos % 8)
			h += delta
		}
	}
	buf[nBytes] = uint8(k)
	return dst
}

func (p *policy) MayContain(filter, key []byte) bool {
	if len(filter) < 2 {
		return false
	}
	k := filter[len(filter)-1]
	if k > 30 {
		// Reserved for future filter encodings; treat as a match rather
		// than risk a false negative.
		return true
	}
	nBits := uint32(8 * (len(filter) - 1))
	h := hash(key)
	delta := h>>17 | h<<15
	for j := uint8(0); j < k; j++ {
		bitPos := h % nBits
		if filter[bitPos/8]&(1<<(bitPos%8)) == 0 {
			return false
		}
		h += delta
	}
	return true
}

// hash implements a hashing algorithm similar to Murmur, matching the
// original LevelDB Bloom filter implementation bit-for-bit.
func hash(b []byte) uint32 {
	const (
		seed = 0xbc9f1d34
		m    = 0xc6a4a793
	)
	h := uint32(seed) ^ uint32(len(b)*m)
	for ; len(b) >= 4; b = b[4:] {
		h += uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		h *= m
		h ^= h >> 16
	}
	switch len(b) {
	case 3:
		h += uint32(b[2]) << 16
		fallthrough
	case 2:
		h += uint32(b[1]) << 8
		fallthrough
	case 1:
		h += uint32(b[0])
		h *= m
		h ^= h >> 24
	}
	return h
}
