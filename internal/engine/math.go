package engine

import "math/bits"

// isqrt returns floor(sqrt(y)) using the Babylonian method.
// https://github.com/Uniswap/v2-core/blob/ee547b17853e71ed4e0101ccfd52e70d5acded58/contracts/libraries/Math.sol#L10
func isqrt(y uint64) uint64 {
	if y > 3 {
		z := y
		x := (y / 2) + 1
		for x < z {
			z = x
			x = (y/x + x) / 2
		}
		return z
	} else if y != 0 {
		return 1
	}
	return 0
}

// mulDiv computes a*b/d with a 128-bit intermediate product. It fails with
// ErrAmountOverflow when d is zero or the quotient does not fit in 64 bits.
func mulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrAmountOverflow
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, ErrAmountOverflow
	}
	quo, _ := bits.Div64(hi, lo, d)
	return quo, nil
}

// addChecked returns a+b, failing with ErrAmountOverflow on wraparound.
func addChecked(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrAmountOverflow
	}
	return sum, nil
}
