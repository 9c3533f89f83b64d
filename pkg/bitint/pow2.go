// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-two helpers used to size FFT plans.

Capture windows arrive with whatever length the render loop drained, so the
spectrum transform rounds each window up to the next power of two and
zero-pads the remainder.

	n := bitint.NextPowerOfTwo(len(window)) // 735 -> 1024
	ok := bitint.IsPowerOfTwo(n)            // true

NextPowerOfTwo subtracts one before taking the bit length so that an exact
power of two maps to itself: for 8, bits.Len(7) = 3 and 1<<3 = 8, whereas
bits.Len(8) = 4 would double it.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size.
// Non-positive sizes return 1.
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
