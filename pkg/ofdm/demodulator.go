package ofdm

import (
	"errors"

	"github.com/Rhizomatica/mercury-sub000/pkg/dsp/fft"
	"github.com/Rhizomatica/mercury-sub000/pkg/dsp/modem"
)

// Demodulator is the receive-side counterpart of Modulator: it locates a
// frame inside a stream of baseband samples, corrects for fractional
// CFO, equalizes against the pilot-derived channel estimate, and
// produces soft LLRs for the LDPC decoder in the same bit order the
// modulator used.
type Demodulator struct {
	params Params
	grid   *Grid
	mapper *modem.Mapper
	pilots []complex128
	bins   []int
}

// NewDemodulator builds a demodulator for one mode.
func NewDemodulator(p Params) *Demodulator {
	return &Demodulator{
		params: p,
		grid:   NewGrid(p),
		mapper: modem.NewMapper(p.Constellation),
		pilots: PilotSequence(p),
		bins:   p.ActiveBins(),
	}
}

// Result carries everything downstream code needs besides the LLRs
// themselves: where the frame was found, and the carrier frequency
// offset and noise estimates, for statistics and gear-shift decisions.
type Result struct {
	FrameStart int
	CFOFrac    float64
	NoiseVar   float64
	LLR        []float64
}

// FrameLen returns the number of samples one full frame (preamble plus
// data symbols) occupies.
func (p Params) FrameLen() int {
	return p.PreambleNsymb*p.SymbolLen() + p.Nsymb*p.SymbolLen()
}

// SymbolResult carries the equalized data-carrier symbols (in grid
// order) plus the frame-level metadata, for callers that still need to
// IQ-deinterleave before demapping (pkg/physical's façade).
type SymbolResult struct {
	FrameStart  int
	CFOFrac     float64
	NoiseVar    float64
	DataSymbols []complex128
}

// LastGoodSync carries the delay/CFO of the most recently successful
// decode on a connection, per §4.1's Time synchronization policy: a
// marginal-confidence candidate (correlation between 0.5 and 1.0) is
// corroborated against the last known-good offset before a frame is
// abandoned. Valid is false when no prior decode exists yet.
type LastGoodSync struct {
	Start   int
	CFOFrac float64
	Valid   bool
}

// DemodulateSymbols finds and channel-corrects exactly one frame inside
// rx, returning its equalized data-carrier symbols without demapping
// them to bits. last carries the caller's most recent successful
// sync, used to corroborate a marginal-confidence candidate; pass the
// zero value when none exists yet.
func (d *Demodulator) DemodulateSymbols(rx []complex128, last LastGoodSync) (*SymbolResult, error) {
	start, cfo, found := d.locateFrame(rx, last)
	if !found {
		return nil, errors.New("ofdm: no frame found")
	}

	needed := d.params.FrameLen()
	if start+needed > len(rx) {
		return nil, errors.New("ofdm: insufficient samples after sync for a full frame")
	}

	corrected := CorrectCFO(rx[start:start+needed], cfo, d.params.Nfft)

	dataStart := d.params.PreambleNsymb * d.params.SymbolLen()
	ngi := d.params.Ngi()

	y := make([][]complex128, d.params.Nsymb)
	for s := 0; s < d.params.Nsymb; s++ {
		symStart := dataStart + s*d.params.SymbolLen()
		body := corrected[symStart+ngi : symStart+ngi+d.params.Nfft]
		freq := fft.Forward(body)
		row := make([]complex128, d.params.Nc)
		for c, bin := range d.bins {
			row[c] = freq[bin]
		}
		y[s] = row
	}

	h := EstimateChannel(y, d.pilots, d.grid, d.params.ChannelVariant)
	eq := Equalize(y, h)
	boost := d.params.PilotBoost
	if boost <= 0 {
		boost = 1
	}
	eq = ApplyAGC(eq, d.grid, boost)
	noiseVar := EstimateNoiseVariance(eq, d.pilots, d.grid)

	var dataSymbols []complex128
	for s, row := range d.grid.Tags {
		for c, t := range row {
			if t == TagData {
				dataSymbols = append(dataSymbols, eq[s][c])
			}
		}
	}

	return &SymbolResult{FrameStart: start, CFOFrac: cfo, NoiseVar: noiseVar, DataSymbols: dataSymbols}, nil
}

// locateFrame runs the two detectors §4.1 requires "used together": the
// Schmidl & Cox preamble correlator (SearchPreamble) proposes up to two
// tie-broken candidates, and the cyclic-prefix correlator (CPCorrelate)
// confirms the exact symbol boundary near the chosen candidate. A
// candidate whose correlation falls in the marginal 0.5-1.0 band is
// moved to the strongest cyclic-prefix peak within one coarse stride.
// If the CP correlator has no peak of at least 0.5 there (or no
// candidate was found at all), last.Start is used whenever a full frame
// fits from it, recovering sync through a momentary deep fade the
// preamble correlator alone would miss; otherwise a marginal candidate
// is used as found.
func (d *Demodulator) locateFrame(rx []complex128, last LastGoodSync) (start int, cfoFrac float64, found bool) {
	candidates := SearchPreamble(rx, d.params, defaultMaxCandidates)
	ngi, nfft := d.params.Ngi(), d.params.Nfft

	if len(candidates) == 0 {
		if last.Valid && fitsFrame(rx, last.Start, ngi, nfft, d.params.FrameLen()) {
			return last.Start, last.CFOFrac, true
		}
		return 0, 0, false
	}

	best := candidates[0]
	if best.Metric >= marginalCeiling {
		return best.Start, best.CFOFrac, true
	}

	// Marginal confidence: refine against the cyclic-prefix correlator
	// and, failing that, against the last successful offset.
	cp := CPCorrelate(rx, ngi, nfft)
	if snapped, ok := snapToCPPeak(cp, best.Start); ok {
		return snapped, best.CFOFrac, true
	}
	if last.Valid && fitsFrame(rx, last.Start, ngi, nfft, d.params.FrameLen()) {
		return last.Start, last.CFOFrac, true
	}
	return best.Start, best.CFOFrac, true
}

// snapToCPPeak looks for the strongest cyclic-prefix correlation within
// one coarse stride of the preamble correlator's candidate and reports
// it if found, refining the coarse candidate to the CP detector's exact
// symbol boundary.
func snapToCPPeak(cp []float64, near int) (int, bool) {
	lo := near - coarseSearchStride
	if lo < 0 {
		lo = 0
	}
	hi := near + coarseSearchStride
	if hi > len(cp) {
		hi = len(cp)
	}
	bestIdx, bestVal := -1, 0.0
	for i := lo; i < hi; i++ {
		if cp[i] > bestVal {
			bestVal, bestIdx = cp[i], i
		}
	}
	if bestIdx < 0 || bestVal < noPreambleThreshold {
		return 0, false
	}
	return bestIdx, true
}

// fitsFrame reports whether offset s leaves enough samples in rx for a
// full frame and a cyclic-prefix check at its first symbol boundary.
func fitsFrame(rx []complex128, s, ngi, nfft, frameLen int) bool {
	if s < 0 || s+frameLen > len(rx) {
		return false
	}
	return s+ngi+nfft <= len(rx)
}

// Demodulate finds and decodes exactly one frame inside rx, which must
// contain at least one full frame starting somewhere within it. A
// convenience wrapper for callers (pkg/ofdm's own tests) that have not
// bit/IQ-interleaved their payload and have no decode history; pkg/physical
// calls DemodulateSymbols directly with its tracked LastGoodSync so it
// can IQ-deinterleave first and recover sync across frames.
func (d *Demodulator) Demodulate(rx []complex128) (*Result, error) {
	sr, err := d.DemodulateSymbols(rx, LastGoodSync{})
	if err != nil {
		return nil, err
	}
	llr := d.mapper.DemapLLR(sr.DataSymbols, sr.NoiseVar)
	return &Result{FrameStart: sr.FrameStart, CFOFrac: sr.CFOFrac, NoiseVar: sr.NoiseVar, LLR: llr}, nil
}
