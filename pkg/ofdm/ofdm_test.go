package ofdm

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rhizomatica/mercury-sub000/pkg/dsp/modem"
)

func testParams() Params {
	return Params{
		Nfft: 64, Nc: 16, Dx: 4, Dy: 3, Nsymb: 6, PreambleNsymb: 2,
		GuardInterval: 0.25, Constellation: modem.QPSK, PilotBoost: 1.4142135623730951,
		Seed: 42,
	}
}

func TestActiveBinsCountAndExcludesDC(t *testing.T) {
	p := testParams()
	bins := p.ActiveBins()
	assert.Len(t, bins, p.Nc)
	seen := map[int]bool{}
	for _, b := range bins {
		assert.NotEqual(t, 0, b, "DC bin must never be active")
		assert.False(t, seen[b], "bins must be unique")
		seen[b] = true
	}
}

func TestGridPilotSpacingAndBoundary(t *testing.T) {
	p := testParams()
	g := NewGrid(p)
	assert.True(t, g.HasPilots(0))
	assert.False(t, g.HasPilots(1))
	assert.True(t, g.HasPilots(3))

	cols := g.PilotColumns(0)
	assert.Contains(t, cols, 0)
	assert.Contains(t, cols, p.Nc-1, "boundary policy forces the last column to be a pilot on pilot rows")
}

func hardBits(llr []float64) []byte {
	bits := make([]byte, len(llr))
	for i, v := range llr {
		if v < 0 {
			bits[i] = 1
		}
	}
	return bits
}

// TestModulateDemodulateRoundTripNoiselessChannel is the §8 property: a
// frame embedded at an unknown offset in an otherwise silent buffer,
// with no channel impairment, recovers its exact original bits.
func TestModulateDemodulateRoundTripNoiselessChannel(t *testing.T) {
	p := testParams()
	mod := NewModulator(p)
	demod := NewDemodulator(p)

	r := rand.New(rand.NewSource(7))
	bits := make([]byte, p.DataBitsPerFrame())
	for i := range bits {
		bits[i] = byte(r.Intn(2))
	}

	frame, err := mod.Modulate(bits)
	require.NoError(t, err)

	leadingSilence := 37
	buf := make([]complex128, leadingSilence+len(frame)+20)
	copy(buf[leadingSilence:], frame)

	result, err := demod.Demodulate(buf)
	require.NoError(t, err)
	assert.InDelta(t, leadingSilence, result.FrameStart, float64(p.Ngi()), "sync should land within one CP length of the true start")

	decoded := hardBits(result.LLR)
	assert.Equal(t, bits, decoded)
}

// TestPreambleHalvesMatch checks the Schmidl & Cox structural property
// that the even-bins-only preamble symbol's two halves (before the
// cyclic prefix) are numerically identical, since that identity is what
// TimeSync's correlator relies on.
func TestPreambleHalvesMatch(t *testing.T) {
	p := testParams()
	pre := GeneratePreamble(p)
	ngi := p.Ngi()
	sym := pre.Samples[:p.Nfft+ngi][ngi:] // first preamble symbol, CP stripped
	half := p.Nfft / 2
	for i := 0; i < half; i++ {
		assert.InDelta(t, real(sym[i]), real(sym[i+half]), 1e-9)
		assert.InDelta(t, imag(sym[i]), imag(sym[i+half]), 1e-9)
	}
}

func TestModulateRejectsWrongBitCount(t *testing.T) {
	p := testParams()
	mod := NewModulator(p)
	_, err := mod.Modulate(make([]byte, p.DataBitsPerFrame()-1))
	assert.Error(t, err)
}
