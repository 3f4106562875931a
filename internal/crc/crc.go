// Package crc implements the masked CRC32C (Castagnoli) checksum used to
// protect each block trailer, matching the classic LevelDB on-disk format.
package crc

import "hash/crc32"

var table = crc32.MakeTable(crc32.Castagnoli)

const maskDelta = 0xa282ead8

// CRC is a masked CRC32C checksum in progress.
type CRC uint32

// New returns the CRC of the given bytes.
func New(b []byte) CRC {
	return CRC(0).Update(b)
}

// Update adds more bytes to the checksum, returning the extended CRC.
func (c CRC) Update(b []byte) CRC {
	return CRC(crc32.Update(uint32(c), table, b))
}

// Value returns the masked checksum, the value actually stored on disk.
// Masking (rather than storing the raw CRC) avoids bad interactions with
// code that computes a CRC of data that itself contains an embedded CRC.
func (c CRC) Value() uint32 {
	return (uint32(c)>>15 | uint32(c)<<17) + maskDelta
}

// Unmask reverses Value, returning the CRC that was masked to produce v.
func Unmask(v uint32) CRC {
	v -= maskDelta
	return CRC(v>>17 | v<<15)
}
