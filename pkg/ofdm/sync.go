package ofdm

import "math"

// Candidate is one candidate preamble start returned by SearchPreamble,
// tie-broken to the leading edge of its correlation plateau.
type Candidate struct {
	Start   int
	CFOFrac float64
	Metric  float64
}

const (
	coarseSearchStride  = 100
	defaultMaxCandidates = 2

	// noPreambleThreshold and marginalCeiling are §4.1's Time
	// synchronization thresholds: below 0.5 the correlator reports no
	// preamble at all; between 0.5 and 1.0 ("marginal") a secondary
	// attempt also tries the last successful offset.
	noPreambleThreshold = 0.5
	marginalCeiling      = 1.0
)

// SearchPreamble locates up to maxCandidates candidate preamble starts
// using the Schmidl & Cox self-correlation metric, summed across all
// PreambleNsymb preamble symbols as §4.1 specifies ("Summed across all
// preamble_Nsymb symbols"). It runs at two resolutions: a coarse stride
// of ~100 samples over the full search region, then a single-sample
// refinement around the best coarse peak, and returns up to
// maxCandidates tie-broken local maxima in descending order of
// correlation strength. A correlation magnitude below 0.5 is "no
// preamble" and yields no candidates at all.
func SearchPreamble(rx []complex128, p Params, maxCandidates int) []Candidate {
	l := p.Nfft / 2
	symLen := p.SymbolLen()
	if l <= 0 || symLen <= 0 {
		return nil
	}
	n := len(rx) - 2*l - (p.PreambleNsymb-1)*symLen
	if n <= 0 {
		return nil
	}

	metricAt := func(d int) (float64, complex128) {
		var acc complex128
		var energy float64
		for s := 0; s < p.PreambleNsymb; s++ {
			base := d + s*symLen
			for m := 0; m < l; m++ {
				acc += cmplxConj(rx[base+m]) * rx[base+m+l]
				energy += cabs2(rx[base+m+l])
			}
		}
		return correlationMetric(acc, energy), acc
	}

	lo, hi := 0, n
	if n > coarseSearchStride {
		coarseBest, coarseVal := -1, -1.0
		for d := 0; d < n; d += coarseSearchStride {
			if v, _ := metricAt(d); v > coarseVal {
				coarseVal, coarseBest = v, d
			}
		}
		lo = coarseBest - coarseSearchStride
		if lo < 0 {
			lo = 0
		}
		hi = coarseBest + coarseSearchStride
		if hi > n {
			hi = n
		}
	}

	metric := make([]float64, hi-lo)
	phase := make([]complex128, hi-lo)
	for d := lo; d < hi; d++ {
		v, ph := metricAt(d)
		metric[d-lo] = v
		phase[d-lo] = ph
	}
	return tieBrokenPeaks(metric, phase, lo, maxCandidates)
}

// tieBrokenPeaks finds up to maxCandidates local maxima in metric, each
// tie-broken to the leading edge of its plateau (values within 1% of
// the local peak, per §4.1's sync policy favoring the leading edge of
// the cyclic prefix over its trailing edge). A found peak's plateau is
// excluded from consideration so the next iteration surfaces a genuinely
// distinct candidate rather than an adjacent sample of the same one.
func tieBrokenPeaks(metric []float64, phase []complex128, offset, maxCandidates int) []Candidate {
	used := make([]bool, len(metric))
	var out []Candidate
	for len(out) < maxCandidates {
		best, bestVal := -1, -1.0
		for i, v := range metric {
			if !used[i] && v > bestVal {
				bestVal, best = v, i
			}
		}
		if best < 0 || bestVal < noPreambleThreshold {
			break
		}
		threshold := bestVal * 0.99
		leading := best
		for leading > 0 && !used[leading-1] && metric[leading-1] >= threshold {
			leading--
		}
		for i := leading; i <= best; i++ {
			used[i] = true
		}
		for i := best + 1; i < len(metric) && metric[i] >= threshold; i++ {
			used[i] = true
		}
		cfo := math.Atan2(imag(phase[leading]), real(phase[leading])) / math.Pi
		out = append(out, Candidate{Start: leading + offset, CFOFrac: cfo, Metric: bestVal})
	}
	return out
}

// TimeSync locates the start of the preamble in a stream of received
// baseband samples and returns the strongest candidate from
// SearchPreamble's default two-candidate search, plus the fractional
// carrier-frequency offset recovered from its correlation phase:
// angle(P) = 2*pi*epsilon*L/Nfft, and L = Nfft/2 here, so
// epsilon = angle(P)/pi (§4.1, frequency sync). Demodulator.locateFrame
// additionally tries the last successful offset in the marginal band and
// cross-checks with the cyclic-prefix correlator; this package-level
// wrapper is for callers with no decode history (tests, one-shot scans).
func TimeSync(rx []complex128, p Params) (start int, cfoFrac float64, found bool) {
	candidates := SearchPreamble(rx, p, defaultMaxCandidates)
	if len(candidates) == 0 {
		return 0, 0, false
	}
	best := candidates[0]
	return best.Start, best.CFOFrac, true
}

// CPCorrelate implements §4.1's cyclic-prefix correlator: for each
// candidate offset it computes the normalized cross-correlation between
// a length-Ngi window and the window Nfft samples later — the cyclic
// prefix and the tail of the same OFDM symbol it was copied from. Peaks
// locate the boundary of any OFDM symbol, preamble or data, independent
// of the preamble's particular pilot pattern, so it is used alongside
// the preamble correlator (§4.1: "Two detectors, used together") to
// confirm a candidate's exact symbol boundary.
func CPCorrelate(rx []complex128, ngi, nfft int) []float64 {
	n := len(rx) - ngi - nfft
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for d := 0; d < n; d++ {
		var p complex128
		var e1, e2 float64
		for k := 0; k < ngi; k++ {
			a, b := rx[d+k], rx[d+k+nfft]
			p += cmplxConj(a) * b
			e1 += cabs2(a)
			e2 += cabs2(b)
		}
		denom := e1 * e2
		if denom == 0 {
			continue
		}
		out[d] = cabs2(p) / denom
	}
	return out
}

func correlationMetric(p complex128, r float64) float64 {
	if r <= 0 {
		return 0
	}
	pm := cabs2(p)
	return pm / (r * r)
}

func cmplxConj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}

func cabs2(c complex128) float64 {
	return real(c)*real(c) + imag(c)*imag(c)
}

// CorrectCFO multiplies every sample by exp(-j*2*pi*epsilon*n/Nfft),
// undoing a fractional carrier frequency offset of epsilon subcarrier
// spacings estimated by TimeSync/SearchPreamble.
func CorrectCFO(rx []complex128, epsilon float64, nfft int) []complex128 {
	out := make([]complex128, len(rx))
	for n, s := range rx {
		angle := -2 * math.Pi * epsilon * float64(n) / float64(nfft)
		rot := complex(math.Cos(angle), math.Sin(angle))
		out[n] = s * rot
	}
	return out
}
