package cortex

// popcountLUT maps a byte to its set-bit count. It is built once by the
// package's init(), before any other package code can observe it, so no
// one-shot atomic flag is needed here.
var popcountLUT [256]uint8

func init() {
	for i := range popcountLUT {
		var n uint8
		for v := i; v != 0; v >>= 1 {
			n += uint8(v & 1)
		}
		popcountLUT[i] = n
	}
}

// popcount64 counts set bits in v via the byte-indexed LUT.
func popcount64(v uint64) int {
	n := 0
	for i := 0; i < 8; i++ {
		n += int(popcountLUT[byte(v>>(8*uint(i)))])
	}
	return n
}
