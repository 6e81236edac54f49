// Package addr implements HN4's address arithmetic: 64-bit and
// 128-bit logical block addressing with carry, checked downcasts, and exact
// 128-bit multiply/divide/modulo.
package addr

import (
	log "github.com/sirupsen/logrus"
)

// U64Max is the sentinel returned by To64 when an Address does not fit in
// 64 bits.
const U64Max uint64 = 1<<64 - 1

// Address is an opaque LBA. Hi is zero in native (64-bit) mode; extended
// mode uses both words. hi==0 in extended mode is bit-for-bit equivalent to
// native mode.
type Address struct {
	Lo uint64
	Hi uint64
}

// FromU64 builds a native-mode Address from a plain 64-bit LBA.
func FromU64(v uint64) Address {
	return Address{Lo: v}
}

// To64 downcasts a to a uint64. When a.Hi != 0 it returns U64Max and emits a
// critical log record.
func To64(a Address) uint64 {
	if a.Hi != 0 {
		log.WithFields(log.Fields{
			"component": "addr",
			"lo":        a.Lo,
			"hi":        a.Hi,
		}).Error("addr: To64 overflow, address does not fit in 64 bits")
		return U64Max
	}
	return a.Lo
}

// Try64 downcasts a to a uint64 without logging ("silent path"). ok is
// false when a.Hi != 0, in which case the returned value is U64Max.
func Try64(a Address) (v uint64, ok bool) {
	if a.Hi != 0 {
		return U64Max, false
	}
	return a.Lo, true
}

// Add returns a+delta, carrying from Lo into Hi. Wraparound past
// Hi==U64Max is not reachable in normal geometry; this implementation
// wraps.
func Add(a Address, delta uint64) Address {
	sum := a.Lo + delta
	out := Address{Lo: sum, Hi: a.Hi}
	if sum < a.Lo {
		out.Hi++
	}
	return out
}

// Cmp returns -1, 0, or 1 comparing a and b as unsigned 128-bit values.
func Cmp(a, b Address) int {
	if a.Hi != b.Hi {
		if a.Hi < b.Hi {
			return -1
		}
		return 1
	}
	switch {
	case a.Lo < b.Lo:
		return -1
	case a.Lo > b.Lo:
		return 1
	default:
		return 0
	}
}

// IsNative reports whether a is bit-for-bit equivalent to a native-mode
// address (Hi == 0).
func IsNative(a Address) bool {
	return a.Hi == 0
}
