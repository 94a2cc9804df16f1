package hash

import "sort"

// Order returns the indices 0..n-1 sorted by their salted hash. Equal hashes
// keep ascending index order, so the result depends only on n and seed.
func Order(n int, seed uint32) []int {
	if n <= 0 {
		return nil
	}
	keys := make([]uint32, n)
	o := make([]int, n)
	for i := range o {
		o[i] = i
		keys[i] = Hash(uint32(i), seed, 0xFFFFFFFF)
	}
	sort.SliceStable(o, func(i, j int) bool {
		return keys[o[i]] < keys[o[j]]
	})
	return o
}
