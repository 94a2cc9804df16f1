// Package hash implements the fast modular hash used for seeded splits and dropout masks
package hash

// Hash mixes n with salt s and reduces the result into the range [0, max).
// A max of 0 always yields 0.
func Hash(n uint32, s uint32, max uint32) uint32 {
	// mixing stage, mix input with salt using subtraction
	var m = uint32(n) - uint32(s)

	// hashing stage, use xor shift with prime coefficients
	m ^= m << 2
	m ^= m << 3
	m ^= m >> 5
	m ^= m >> 7
	m ^= m << 11
	m ^= m << 13
	m ^= m >> 17
	m ^= m << 19

	// mixing stage 2, mix input with salt using addition
	m += s

	// multiply shift reduction by Daniel Lemire instead of modulo
	// https://lemire.me/blog/2016/06/27/a-fast-alternative-to-the-modulo-reduction/
	return uint32((uint64(m) * uint64(max)) >> 32)
}

// Unit maps the hash of n under salt s to a float in [0, 1).
func Unit(n uint32, s uint32) float64 {
	return float64(Hash(n, s, 0xFFFFFFFF)) / float64(1<<32)
}
