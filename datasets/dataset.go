// Package datasets implements the dataset partitioning shared by every concrete dataset
package datasets

import "math"

import "github.com/neurlang/climapredict/hash"

// ValidationRatio is the share of samples held out for validation.
const ValidationRatio = 0.2

// ValidationSize reports how many of n samples go to validation: ceil(ratio·n).
// Rounding happens on a value with 1e-9 slack so 0.2·1000 stays 200.
func ValidationSize(n int, ratio float64) int {
	if n <= 0 || ratio <= 0 {
		return 0
	}
	if ratio >= 1 {
		return n
	}
	v := int(math.Ceil(float64(n)*ratio - 1e-9))
	if v > n {
		v = n
	}
	return v
}

// Split partitions the indices 0..n-1 into a train and a validation set.
// Indices are ranked by their hash under seed; the first ValidationSize of them
// form the validation set. Both outputs are in ascending index order, and
// len(train)+len(validation) == n for every n.
func Split(n int, seed uint32, ratio float64) (train, validation []int) {
	order := hash.Order(n, seed)
	v := ValidationSize(n, ratio)

	held := make([]bool, n)
	for _, idx := range order[:v] {
		held[idx] = true
	}
	train = make([]int, 0, n-v)
	validation = make([]int, 0, v)
	for i := 0; i < n; i++ {
		if held[i] {
			validation = append(validation, i)
		} else {
			train = append(train, i)
		}
	}
	return
}

// Batches cuts idx into consecutive mini-batches of size, the last one possibly shorter.
func Batches(idx []int, size int) (o [][]int) {
	if size <= 0 {
		size = len(idx)
	}
	for start := 0; start < len(idx); start += size {
		end := start + size
		if end > len(idx) {
			end = len(idx)
		}
		o = append(o, idx[start:end])
	}
	return
}
