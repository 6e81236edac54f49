// Package cortex implements the Cortex namespace:
// the open-addressed, CRC-verified metadata table, its name/extension
// chain, and the resonance scan.
package cortex

// murmur3Finalizer applies the standard Murmur3 64-bit finalizer mix.
func murmur3Finalizer(h uint64) uint64 {
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return h
}

// fold128 combines a 128-bit id's two words into the single 64-bit value
// the Cortex hash starts from.
func fold128(lo, hi uint64) uint64 {
	return lo ^ hi
}

// SlotHash computes the starting probe slot for a 128-bit id over a table
// of totalSlots entries.
func SlotHash(lo, hi uint64, totalSlots uint64) uint64 {
	if totalSlots == 0 {
		return 0
	}
	h := murmur3Finalizer(fold128(lo, hi))
	return h % totalSlots
}
