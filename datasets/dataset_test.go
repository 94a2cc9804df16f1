package datasets

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCoversAllSamples(t *testing.T) {
	for n := 0; n <= 300; n++ {
		train, validation := Split(n, 42, ValidationRatio)
		require.Equal(t, n, len(train)+len(validation), "n=%d", n)
		require.Equal(t, ValidationSize(n, ValidationRatio), len(validation), "n=%d", n)

		seen := make(map[int]bool, n)
		for _, i := range append(append([]int{}, train...), validation...) {
			require.False(t, seen[i], "n=%d index %d twice", n, i)
			require.True(t, i >= 0 && i < n)
			seen[i] = true
		}
	}
}

func TestValidationSizeRounding(t *testing.T) {
	cases := map[int]int{
		0:    0,
		1:    1,
		4:    1,
		5:    1,
		6:    2,
		10:   2,
		11:   3,
		999:  200,
		1000: 200,
		1001: 201,
	}
	for n, want := range cases {
		assert.Equal(t, want, ValidationSize(n, ValidationRatio), "n=%d", n)
	}
}

func TestSplitStableForSeed(t *testing.T) {
	trainA, valA := Split(1000, 42, ValidationRatio)
	trainB, valB := Split(1000, 42, ValidationRatio)
	if diff := cmp.Diff(trainA, trainB); diff != "" {
		t.Errorf("train split changed (-a +b):\n%s", diff)
	}
	if diff := cmp.Diff(valA, valB); diff != "" {
		t.Errorf("validation split changed (-a +b):\n%s", diff)
	}
	assert.Len(t, trainA, 800)
	assert.Len(t, valA, 200)

	_, valC := Split(1000, 7, ValidationRatio)
	assert.NotEqual(t, valA, valC)
}

func TestSplitSorted(t *testing.T) {
	train, validation := Split(50, 3, ValidationRatio)
	assert.IsIncreasing(t, train)
	assert.IsIncreasing(t, validation)
}

func TestBatches(t *testing.T) {
	idx := []int{0, 1, 2, 3, 4, 5, 6}
	assert.Equal(t, [][]int{{0, 1, 2}, {3, 4, 5}, {6}}, Batches(idx, 3))
	assert.Equal(t, [][]int{{0, 1, 2, 3, 4, 5, 6}}, Batches(idx, 32))
	assert.Empty(t, Batches(nil, 3))
}
