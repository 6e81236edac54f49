// Package bitcodec is the little-endian encode/decode and CRC32C facade
// underlying every on-disk structure in HN4.
package bitcodec

import (
	"encoding/binary"
	"hash/crc32"
)

// Seed is the initial CRC32C accumulator value used by CRC.
const Seed uint32 = 0xFFFFFFFF

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// CRC computes CRC32C over data seeded with seed, inverting the
// accumulator in and out.
func CRC(seed uint32, data []byte) uint32 {
	return ^crc32.Update(^seed, castagnoliTable, data)
}

// CRCFresh computes CRC32C over data starting from the standard Seed.
func CRCFresh(data []byte) uint32 {
	return CRC(Seed, data)
}

// PutU16 stores v little-endian at b[off:off+2].
func PutU16(b []byte, off int, v uint16) { binary.LittleEndian.PutUint16(b[off:], v) }

// PutU32 stores v little-endian at b[off:off+4].
func PutU32(b []byte, off int, v uint32) { binary.LittleEndian.PutUint32(b[off:], v) }

// PutU64 stores v little-endian at b[off:off+8].
func PutU64(b []byte, off int, v uint64) { binary.LittleEndian.PutUint64(b[off:], v) }

// PutU128 stores a 128-bit value as two little-endian u64 words, lo first.
func PutU128(b []byte, off int, lo, hi uint64) {
	binary.LittleEndian.PutUint64(b[off:], lo)
	binary.LittleEndian.PutUint64(b[off+8:], hi)
}

// GetU16 reads a little-endian uint16 at b[off:off+2].
func GetU16(b []byte, off int) uint16 { return binary.LittleEndian.Uint16(b[off:]) }

// GetU32 reads a little-endian uint32 at b[off:off+4].
func GetU32(b []byte, off int) uint32 { return binary.LittleEndian.Uint32(b[off:]) }

// GetU64 reads a little-endian uint64 at b[off:off+8].
func GetU64(b []byte, off int) uint64 { return binary.LittleEndian.Uint64(b[off:]) }

// GetU128 reads a 128-bit value as two little-endian u64 words, lo first.
func GetU128(b []byte, off int) (lo, hi uint64) {
	return binary.LittleEndian.Uint64(b[off:]), binary.LittleEndian.Uint64(b[off+8:])
}
