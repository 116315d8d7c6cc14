package ldpc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBits(r *rand.Rand, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(r.Intn(2))
	}
	return b
}

// llrFromBits turns hard bits directly into strong, noiseless LLRs using
// the DemapLLR sign convention: negative LLR => bit 1, positive => bit 0.
func llrFromBits(bits []byte, magnitude float64) []float64 {
	llr := make([]float64, len(bits))
	for i, b := range bits {
		if b == 1 {
			llr[i] = -magnitude
		} else {
			llr[i] = magnitude
		}
	}
	return llr
}

func TestEncodeProducesValidCodeword(t *testing.T) {
	code, err := NewCode(1400, 1)
	require.NoError(t, err)
	r := rand.New(rand.NewSource(2))
	data := randomBits(r, code.K)
	cw, err := code.Encode(data)
	require.NoError(t, err)
	assert.True(t, code.Syndrome(cw))
	assert.Equal(t, data, cw[:code.K])
}

// TestIdealChannelRoundTrip is the §8 property: a noiseless channel
// decodes in effectively the first iteration, checked at the lowest and
// highest rates the physical mode table uses (K=200 and K=1400).
func TestIdealChannelRoundTrip(t *testing.T) {
	for _, k := range []int{200, 1400} {
		code, err := NewCode(k, 7)
		require.NoError(t, err)
		r := rand.New(rand.NewSource(3))
		data := randomBits(r, code.K)
		cw, err := code.Encode(data)
		require.NoError(t, err)

		llr := llrFromBits(cw, 10)
		decoded, iters, ok := code.DecodeSPA(llr, 50)
		assert.True(t, ok)
		assert.LessOrEqual(t, iters, 2)
		assert.Equal(t, data, decoded)

		decodedGBF, _, okGBF := code.DecodeGBF(llr, 50, 0.5)
		assert.True(t, okGBF)
		assert.Equal(t, data, decodedGBF)
	}
}

func flipBits(llr []float64, positions []int) {
	for _, p := range positions {
		llr[p] = -llr[p]
	}
}

func TestSPACorrectsModerateErrors(t *testing.T) {
	code, err := NewCode(1400, 11)
	require.NoError(t, err)
	r := rand.New(rand.NewSource(4))
	data := randomBits(r, code.K)
	cw, err := code.Encode(data)
	require.NoError(t, err)

	llr := llrFromBits(cw, 6)
	// Flip a handful of LLR signs to simulate channel errors well within
	// the code's correction capability.
	positions := r.Perm(N)[:4]
	flipBits(llr, positions)

	decoded, _, ok := code.DecodeSPA(llr, 50)
	assert.True(t, ok)
	assert.Equal(t, data, decoded)
}

func TestDecodeUndecodedReturnsIterationCap(t *testing.T) {
	code, err := NewCode(1400, 12)
	require.NoError(t, err)
	// Pure noise: LLRs near zero magnitude carry almost no information,
	// so decoding should fail to converge within a tiny iteration cap.
	llr := make([]float64, N)
	r := rand.New(rand.NewSource(5))
	for i := range llr {
		llr[i] = r.NormFloat64() * 0.05
	}
	_, iters, ok := code.DecodeSPA(llr, 3)
	if !ok {
		assert.Equal(t, 3, iters)
	}
}
