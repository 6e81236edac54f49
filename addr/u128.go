package addr

import "math/bits"

// U128 is an unsigned 128-bit integer, separate from Address and used for
// capacities and general geometry arithmetic.
type U128 struct {
	Lo uint64
	Hi uint64
}

// U128FromU64 widens a uint64 into a U128.
func U128FromU64(v uint64) U128 {
	return U128{Lo: v}
}

// U128Cmp is a total order over U128: antisymmetric and transitive.
func U128Cmp(a, b U128) int {
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

// U128Sub returns a-b with borrow; result is only meaningful when a >= b.
func U128Sub(a, b U128) U128 {
	lo, borrow := bits.Sub64(a.Lo, b.Lo, 0)
	hi, _ := bits.Sub64(a.Hi, b.Hi, borrow)
	return U128{Lo: lo, Hi: hi}
}

// U128MulU64 computes a*b as a 128-bit product: bits.Mul64 gives the exact
// 128-bit product of a.Lo and b, and a.Hi*b is added into its high word.
// Bits of the product above 128 are discarded.
func U128MulU64(a U128, b uint64) U128 {
	hiLo, lo := bits.Mul64(a.Lo, b)
	hi := a.Hi*b + hiLo
	return U128{Lo: lo, Hi: hi}
}

// U128DivU64 divides a by b, returning the quotient. Division by zero
// returns the all-ones sentinel.
func U128DivU64(a U128, b uint64) U128 {
	if b == 0 {
		return U128{Lo: U64Max, Hi: U64Max}
	}
	if a.Hi == 0 {
		return U128{Lo: a.Lo / b}
	}
	// bits.Div64 requires hi < b to avoid overflow, so the high word is
	// divided by b first and only its remainder (always < b) is fed to
	// bits.Div64 together with the low word.
	quoHi, remHi := a.Hi/b, a.Hi%b
	quoLo, _ := bits.Div64(remHi, a.Lo, b)
	return U128{Lo: quoLo, Hi: quoHi}
}

// U128Mod returns a mod b. Modulo by zero returns zero.
func U128Mod(a U128, b U128) U128 {
	if b.Hi == 0 {
		if b.Lo == 0 {
			return U128{}
		}
		q := U128DivU64(a, b.Lo)
		prod := U128MulU64(q, b.Lo)
		return U128Sub(a, prod)
	}
	// b has a high word: a mod b == a when a < b, else iterative
	// subtraction is bounded because a.Hi/b.Hi is small in any realistic
	// geometry (b.Hi != 0 only for capacities beyond 2^64 bytes).
	for U128Cmp(a, b) >= 0 {
		a = U128Sub(a, b)
	}
	return a
}
