// Package ofdm implements the OFDM engine: framer and pilot grid,
// preamble generation, symbol modulation/demodulation, time/frequency
// synchronization, channel estimation and equalization. Structurally
// grounded on the retrieval pack's non-cgo OFDM reference
// (other_examples/41cdf083_playok-audio-modem__pc-internal-modem-ofdm.go.go),
// which follows the same constructor-plus-Modulate/Demodulate pipeline
// shape; the teacher's own DSP code is a cgo transliteration of AFSK/PSK
// demod and offers no usable idiomatic model for an OFDM stack.
package ofdm

import "github.com/Rhizomatica/mercury-sub000/pkg/dsp/modem"

// Params fully determines one OFDM configuration. It mirrors the fields
// of physical.ModeParams that the OFDM engine actually needs; kept as an
// independent type so pkg/ofdm never imports pkg/physical (physical is
// the one that depends on ofdm, not the reverse).
type Params struct {
	Nfft          int
	Nc            int // active subcarriers, must be even
	Dx            int // pilot column spacing
	Dy            int // pilot row spacing
	Nsymb         int // data symbols per frame
	PreambleNsymb int
	GuardInterval float64 // fraction of Nfft
	Constellation modem.Constellation
	PilotBoost    float64
	Seed          uint32

	// ChannelVariant selects the estimator EstimateChannel runs; the
	// zero value is ZeroForcing.
	ChannelVariant Variant
}

// Ngi returns the cyclic-prefix length in samples.
func (p Params) Ngi() int {
	return int(float64(p.Nfft) * p.GuardInterval)
}

// SymbolLen returns one OFDM symbol's length including its cyclic prefix.
func (p Params) SymbolLen() int {
	return p.Nfft + p.Ngi()
}

// ActiveBins returns the Nc FFT bin indices carrying data/pilots,
// symmetric about DC and excluding both DC (bin 0) and Nyquist, ordered
// by increasing carrier index (carrier 0 is the lowest positive
// frequency, carrier Nc-1 the highest negative frequency just below DC).
func (p Params) ActiveBins() []int {
	bins := make([]int, p.Nc)
	half := p.Nc / 2
	for i := 0; i < half; i++ {
		bins[i] = i + 1
	}
	for i := 0; i < p.Nc-half; i++ {
		bins[half+i] = p.Nfft - (p.Nc - half) + i
	}
	return bins
}

// DataBitsPerFrame returns how many coded bits one frame's data symbols
// carry, i.e. the number of non-pilot carrier slots times the
// constellation's bits-per-symbol.
func (p Params) DataBitsPerFrame() int {
	grid := NewGrid(p)
	count := 0
	for _, row := range grid.Tags {
		for _, t := range row {
			if t == TagData {
				count++
			}
		}
	}
	return count * p.Constellation.BitsPerSymbol()
}
