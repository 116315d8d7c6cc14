package ofdm

import "math"

// Variant selects which channel-estimation algorithm EstimateChannel
// runs at each pilot row, per §4.1's three named estimators. It is a
// plain tagged dispatch (a closed set of constants switched over inside
// one function), not an interface hierarchy, per Design Note 9: "a
// single estimate(frame) -> grid operation, avoid inheritance hierarchy."
type Variant int

const (
	// ZeroForcing divides the received pilot by the known transmitted
	// pilot directly: H = Y/X.
	ZeroForcing Variant = iota
	// LeastSquares averages the zero-forcing estimate for a pilot
	// column over a moving window of adjacent pilot rows, trading
	// tracking responsiveness for noise averaging.
	LeastSquares
	// AmplitudeRestored runs zero-forcing then normalizes each
	// estimate to unit magnitude, keeping only the phase correction and
	// leaving amplitude restoration to the post-equalization AGC stage.
	AmplitudeRestored
)

// EstimateChannel computes a per-symbol, per-carrier channel estimate
// from the received frequency-domain grid Y (already FFT'd and CFO
// corrected), the known pilot sequence and the frame's pilot grid.
//
// Pilot-bearing carriers get an estimate from the chosen Variant.
// Remaining carriers on the same pilot row are filled by linear
// interpolation between the nearest pilot columns (the boundary policy
// in NewGrid guarantees the last column is always a pilot on pilot
// rows, so interpolation never needs to extrapolate past the edge).
// Non-pilot rows are bilinearly interpolated in time between the two
// bracketing pilot rows (§4.1: "interpolate... across all rows"); rows
// before the first or after the last pilot row reuse the nearest one.
func EstimateChannel(y [][]complex128, pilots []complex128, grid *Grid, variant Variant) [][]complex128 {
	nsymb := len(y)

	var pilotRows []int
	for s := 0; s < nsymb; s++ {
		if grid.HasPilots(s) {
			pilotRows = append(pilotRows, s)
		}
	}

	rowEstimate := make([][]complex128, len(pilotRows))
	for i, s := range pilotRows {
		cols := grid.PilotColumns(s)
		row := make([]complex128, grid.Nc)
		switch variant {
		case LeastSquares:
			for _, c := range cols {
				row[c] = lsWindowEstimate(y, pilots, pilotRows, i, c)
			}
		default:
			for _, c := range cols {
				row[c] = y[s][c] / pilots[c]
			}
		}
		interpolateRow(row, cols)
		if variant == AmplitudeRestored {
			restoreAmplitude(row)
		}
		rowEstimate[i] = row
	}

	h := make([][]complex128, nsymb)
	if len(pilotRows) == 0 {
		for s := range h {
			h[s] = unityRow(grid.Nc)
		}
		return h
	}

	for s := 0; s < nsymb; s++ {
		lowIdx, highIdx := -1, -1
		for i, ps := range pilotRows {
			if ps <= s {
				lowIdx = i
			}
			if ps >= s && highIdx == -1 {
				highIdx = i
			}
		}
		switch {
		case lowIdx == -1:
			h[s] = append([]complex128(nil), rowEstimate[highIdx]...)
		case highIdx == -1 || lowIdx == highIdx:
			h[s] = append([]complex128(nil), rowEstimate[lowIdx]...)
		default:
			s0, s1 := pilotRows[lowIdx], pilotRows[highIdx]
			frac := complex(float64(s-s0)/float64(s1-s0), 0)
			row := make([]complex128, grid.Nc)
			for c := range row {
				row[c] = rowEstimate[lowIdx][c] + frac*(rowEstimate[highIdx][c]-rowEstimate[lowIdx][c])
			}
			h[s] = row
		}
	}
	return h
}

// lsWindowEstimate averages the zero-forcing estimate at pilot column c
// across the pilot row at pilotRows[idx] and its immediate pilot-row
// neighbors (the "moving window" of §4.1), clamped at the first/last
// pilot row.
func lsWindowEstimate(y [][]complex128, pilots []complex128, pilotRows []int, idx, c int) complex128 {
	lo := idx - 1
	if lo < 0 {
		lo = 0
	}
	hi := idx + 1
	if hi >= len(pilotRows) {
		hi = len(pilotRows) - 1
	}
	var num complex128
	var den float64
	x := pilots[c]
	xe := cabs2(x)
	for w := lo; w <= hi; w++ {
		s := pilotRows[w]
		num += cmplxConj(x) * y[s][c]
		den += xe
	}
	if den == 0 {
		return 0
	}
	return num / complex(den, 0)
}

// restoreAmplitude normalizes every non-zero entry of row to unit
// magnitude in place, keeping only its phase.
func restoreAmplitude(row []complex128) {
	for c, v := range row {
		mag := math.Sqrt(cabs2(v))
		if mag == 0 {
			continue
		}
		row[c] = v / complex(mag, 0)
	}
}

func unityRow(nc int) []complex128 {
	row := make([]complex128, nc)
	for c := range row {
		row[c] = 1
	}
	return row
}

// interpolateRow fills the gaps between sorted pilot columns with
// linear interpolation in-place; columns before the first pilot reuse
// the first pilot's value.
func interpolateRow(row []complex128, pilotCols []int) {
	if len(pilotCols) == 0 {
		return
	}
	for c := 0; c < pilotCols[0]; c++ {
		row[c] = row[pilotCols[0]]
	}
	for i := 0; i < len(pilotCols)-1; i++ {
		c0, c1 := pilotCols[i], pilotCols[i+1]
		h0, h1 := row[c0], row[c1]
		span := c1 - c0
		for c := c0 + 1; c < c1; c++ {
			frac := float64(c-c0) / float64(span)
			row[c] = h0 + complex(frac, 0)*(h1-h0)
		}
	}
}

// Equalize divides each received carrier by its channel estimate
// (zero-forcing equalization).
func Equalize(y [][]complex128, h [][]complex128) [][]complex128 {
	out := make([][]complex128, len(y))
	for s := range y {
		out[s] = make([]complex128, len(y[s]))
		for c := range y[s] {
			if h[s][c] == 0 {
				out[s][c] = y[s][c]
				continue
			}
			out[s][c] = y[s][c] / h[s][c]
		}
	}
	return out
}

// ApplyAGC multiplies every carrier (data and pilot alike) by
// pilotBoost/mean(|pilot_received|), restoring the pilots' known
// transmit amplitude after equalization, per §4.1's Equalizer paragraph.
// This corrects the residual amplitude bias the LeastSquares and
// AmplitudeRestored variants leave behind; it is a no-op in expectation
// for an exact ZeroForcing estimate over a noiseless channel, since eq
// at a pilot column already equals the transmitted pilot value.
func ApplyAGC(eq [][]complex128, grid *Grid, pilotBoost float64) [][]complex128 {
	var sum float64
	var count int
	for s, row := range grid.Tags {
		for c, t := range row {
			if t == TagPilot {
				sum += math.Sqrt(cabs2(eq[s][c]))
				count++
			}
		}
	}
	if count == 0 || sum == 0 {
		return eq
	}
	scale := complex(pilotBoost/(sum/float64(count)), 0)
	out := make([][]complex128, len(eq))
	for s := range eq {
		out[s] = make([]complex128, len(eq[s]))
		for c := range eq[s] {
			out[s][c] = eq[s][c] * scale
		}
	}
	return out
}

// EstimateNoiseVariance returns the average per-dimension residual
// power between equalized pilot symbols and their known transmitted
// value, used as the LLR scale for soft demapping.
func EstimateNoiseVariance(eq [][]complex128, pilots []complex128, grid *Grid) float64 {
	var sum float64
	var count int
	for s, row := range grid.Tags {
		for c, t := range row {
			if t != TagPilot {
				continue
			}
			diff := eq[s][c] - pilots[c]
			sum += real(diff)*real(diff) + imag(diff)*imag(diff)
			count++
		}
	}
	if count == 0 {
		return 1
	}
	return sum / float64(2*count)
}
