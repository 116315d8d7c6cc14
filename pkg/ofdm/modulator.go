package ofdm

import (
	"errors"

	"github.com/Rhizomatica/mercury-sub000/pkg/dsp/fft"
	"github.com/Rhizomatica/mercury-sub000/pkg/dsp/modem"
)

// Modulator turns a frame's worth of coded bits into a passband-ready
// complex baseband waveform: preamble, then Nsymb OFDM symbols each
// carrying pilots at the grid's pilot slots and data at the rest.
type Modulator struct {
	params Params
	grid   *Grid
	mapper *modem.Mapper
	pilots []complex128
	bins   []int
}

// NewModulator builds a modulator for one mode. Grid, pilot sequence and
// active-bin layout are all derived once and reused for every frame.
func NewModulator(p Params) *Modulator {
	return &Modulator{
		params: p,
		grid:   NewGrid(p),
		mapper: modem.NewMapper(p.Constellation),
		pilots: PilotSequence(p),
		bins:   p.ActiveBins(),
	}
}

// DataSymbolsPerFrame returns how many constellation symbols one frame's
// data carriers hold (the grid's TagData slot count).
func (m *Modulator) DataSymbolsPerFrame() int {
	count := 0
	for _, row := range m.grid.Tags {
		for _, t := range row {
			if t == TagData {
				count++
			}
		}
	}
	return count
}

// Modulate encodes exactly Params.DataBitsPerFrame() bits into one
// frame's time-domain samples, preamble included. A convenience wrapper
// around ModulateSymbols for callers that have not already mapped and
// IQ-interleaved their bits (pkg/physical does both before framing, per
// §4.3 steps 3-5, so it calls ModulateSymbols directly).
func (m *Modulator) Modulate(dataBits []byte) ([]complex128, error) {
	want := m.params.DataBitsPerFrame()
	if len(dataBits) != want {
		return nil, errors.New("ofdm: Modulate requires exactly DataBitsPerFrame() bits")
	}
	return m.ModulateSymbols(m.mapper.Map(dataBits))
}

// ModulateSymbols frames already-mapped (and, in the façade's pipeline,
// already IQ-interleaved) constellation symbols into the OFDM grid,
// prepends the preamble, and returns the time-domain frame.
func (m *Modulator) ModulateSymbols(dataSymbols []complex128) ([]complex128, error) {
	want := m.DataSymbolsPerFrame()
	if len(dataSymbols) != want {
		return nil, errors.New("ofdm: ModulateSymbols requires exactly DataSymbolsPerFrame() symbols")
	}

	preamble := GeneratePreamble(m.params)
	out := append([]complex128(nil), preamble.Samples...)

	ngi := m.params.Ngi()
	symPos := 0
	for s := 0; s < m.params.Nsymb; s++ {
		freq := make([]complex128, m.params.Nfft)
		row := m.grid.Tags[s]
		for c, tag := range row {
			bin := m.bins[c]
			if tag == TagPilot {
				freq[bin] = m.pilots[c]
				continue
			}
			freq[bin] = dataSymbols[symPos]
			symPos++
		}
		timeSym := fft.Inverse(freq)
		out = append(out, addCyclicPrefix(timeSym, ngi)...)
	}
	return out, nil
}
