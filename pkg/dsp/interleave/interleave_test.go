package interleave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestRoundTrip(t *testing.T) {
	iv := New(30)
	src := make([]int, 97)
	for i := range src {
		src[i] = i
	}
	permuted := iv.Permute(src)
	assert.NotEqual(t, src, permuted, "a real permutation should reorder a non-trivial block")
	back := iv.Deinterleave(permuted)
	assert.Equal(t, src, back)
}

func TestRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		blockSize := rapid.IntRange(1, 64).Draw(rt, "blockSize")
		n := rapid.IntRange(0, 400).Draw(rt, "n")
		iv := New(blockSize)
		src := make([]int, n)
		for i := range src {
			src[i] = i
		}
		back := iv.Deinterleave(iv.Permute(src))
		assert.Equal(rt, src, back)
	})
}

func TestComplexRoundTrip(t *testing.T) {
	iv := New(16)
	src := make([]complex128, 50)
	for i := range src {
		src[i] = complex(float64(i), float64(-i))
	}
	back := iv.DeinterleaveComplex(iv.PermuteComplex(src))
	assert.Equal(t, src, back)
}
