// Package codec provides 2-bit nucleotide encoding used for k-mer hashing
// and shift-based table indexing.
package codec

import "errors"

// ErrNotPowerOfTwo is returned by Log2Exact for inputs that are not an
// exact power of two.
var ErrNotPowerOfTwo = errors.New("not a power of two")

// Encode maps a nucleotide character to its 2-bit code by taking bits 1-2
// of the ASCII value: A=0, C=1, T=2, G=3. The mapping is a stable bijection
// used for hashing only; it carries no biological meaning. 'N' must never
// be encoded (N bases are tracked in separate counters).
func Encode(base byte) uint64 {
	return uint64(base>>1) & 3
}

// Valid reports whether base is one of A, C, G, T (uppercase).
// N and any other character are invalid for 2-bit encoding.
func Valid(base byte) bool {
	return base == 'A' || base == 'C' || base == 'G' || base == 'T'
}

// decodeTable is the inverse of Encode for the four valid codes.
var decodeTable = [4]byte{'A', 'C', 'T', 'G'}

// Decode converts a 2-bit packed value back into a nucleotide string of
// the given length. The last base occupies the lowest two bits. Used only
// for human-readable reporting of k-mer and duplication keys.
func Decode(packed uint64, length int) string {
	out := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		out[i] = decodeTable[packed&3]
		packed >>= 2
	}
	return string(out)
}

// Mask returns the bit mask selecting the lowest 2*k bits of a rolling
// k-mer window.
func Mask(k int) uint64 {
	return (uint64(1) << (2 * k)) - 1
}

// Log2Exact returns n for x = 2^n. It fails with ErrNotPowerOfTwo for any
// other input, including zero. Used to precompute shift amounts so that
// multiplying a position by a table row width becomes a left shift.
func Log2Exact(x uint64) (uint, error) {
	if x == 0 || x&(x-1) != 0 {
		return 0, ErrNotPowerOfTwo
	}
	var n uint
	for x > 1 {
		x >>= 1
		n++
	}
	return n, nil
}
