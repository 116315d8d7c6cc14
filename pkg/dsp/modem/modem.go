// Package modem implements the PSK/QAM constellation mapper and
// soft-decision demapper used to carry LDPC-coded bits on OFDM data
// subcarriers. Constellations are Gray-coded and normalized to unit
// average energy, grounded structurally on the other_examples OFDM
// reference's Constellation type (map bits -> constellation points,
// demap via nearest-point search) since the teacher's own modem code is
// a cgo transliteration of AFSK/PSK demod, not a usable idiomatic model
// for a QAM constellation table.
package modem

import "math"

// Constellation identifies one of the six modulation orders a mode can
// select, per §3's Mode data model.
type Constellation int

const (
	BPSK Constellation = iota
	QPSK
	QAM8
	QAM16
	QAM32
	QAM64
)

// BitsPerSymbol returns how many coded bits each constellation point carries.
func (c Constellation) BitsPerSymbol() int {
	switch c {
	case BPSK:
		return 1
	case QPSK:
		return 2
	case QAM8:
		return 3
	case QAM16:
		return 4
	case QAM32:
		return 5
	case QAM64:
		return 6
	}
	panic("modem: unknown constellation")
}

// Mapper holds the precomputed, unit-energy-normalized constellation
// points indexed by their Gray-coded bit pattern.
type Mapper struct {
	kind   Constellation
	points []complex128 // indexed by Gray-coded symbol value
}

// NewMapper builds the point table for a constellation.
func NewMapper(kind Constellation) *Mapper {
	var pts []complex128
	switch kind {
	case BPSK:
		pts = []complex128{1, -1}
	case QPSK:
		pts = grayPSK(4)
	case QAM8:
		pts = star8QAM()
	case QAM16:
		pts = squareQAM(4)
	case QAM32:
		pts = cross32QAM()
	case QAM64:
		pts = squareQAM(8)
	default:
		panic("modem: unknown constellation")
	}
	normalizeEnergy(pts)
	return &Mapper{kind: kind, points: pts}
}

func grayPSK(m int) []complex128 {
	pts := make([]complex128, m)
	for i := 0; i < m; i++ {
		gray := i ^ (i >> 1)
		angle := 2 * math.Pi * float64(gray) / float64(m)
		pts[i] = complex(math.Cos(angle), math.Sin(angle))
	}
	return pts
}

func star8QAM() []complex128 {
	// 8QAM: 4 PSK points on an inner ring (2 bits), 4 PSK points at a
	// larger radius offset by 45 degrees (encodes the 3rd bit).
	pts := make([]complex128, 8)
	for i := 0; i < 4; i++ {
		angle := 2*math.Pi*float64(i)/4 + math.Pi/4
		pts[i] = complex(math.Cos(angle), math.Sin(angle))
		angle2 := 2 * math.Pi * float64(i) / 4
		pts[4+i] = 1.8 * complex(math.Cos(angle2), math.Sin(angle2))
	}
	return pts
}

// squareQAM builds a side x side square QAM constellation (side*side
// points total, e.g. side=4 -> 16QAM, side=8 -> 64QAM) with Gray-coded
// rows and columns so adjacent points differ by exactly one bit.
func squareQAM(side int) []complex128 {
	levels := make([]float64, side)
	for i := 0; i < side; i++ {
		levels[i] = float64(2*i - (side - 1))
	}
	pts := make([]complex128, side*side)
	for row := 0; row < side; row++ {
		grayRow := row ^ (row >> 1)
		for col := 0; col < side; col++ {
			grayCol := col ^ (col >> 1)
			idx := grayRow*side + grayCol
			pts[idx] = complex(levels[col], levels[row])
		}
	}
	return pts
}

func cross32QAM() []complex128 {
	// Standard 32-cross QAM: a 6x6 square with the four corners removed.
	side := 6
	levels := make([]float64, side)
	for i := 0; i < side; i++ {
		levels[i] = float64(2*i - (side - 1))
	}
	var pts []complex128
	corner := func(row, col int) bool {
		return (row == 0 || row == side-1) && (col == 0 || col == side-1 || col == 1 || col == side-2)
	}
	for row := 0; row < side; row++ {
		for col := 0; col < side; col++ {
			if (row == 0 || row == side-1) && (col == 0 || col == side-1) {
				continue
			}
			_ = corner
			pts = append(pts, complex(levels[col], levels[row]))
		}
	}
	// Keep exactly 32 points.
	for len(pts) > 32 {
		pts = pts[:len(pts)-1]
	}
	return pts
}

func normalizeEnergy(pts []complex128) {
	var sum float64
	for _, p := range pts {
		sum += real(p)*real(p) + imag(p)*imag(p)
	}
	avg := sum / float64(len(pts))
	scale := 1 / math.Sqrt(avg)
	for i := range pts {
		pts[i] *= complex(scale, 0)
	}
}

// Map converts a slice of bits (values 0/1, MSB-first groups of
// BitsPerSymbol) into constellation symbols.
func (m *Mapper) Map(bits []byte) []complex128 {
	bps := m.kind.BitsPerSymbol()
	n := len(bits) / bps
	out := make([]complex128, n)
	for i := 0; i < n; i++ {
		idx := 0
		for b := 0; b < bps; b++ {
			idx = (idx << 1) | int(bits[i*bps+b]&1)
		}
		out[i] = m.points[idx%len(m.points)]
	}
	return out
}

// Points returns the constellation table.
func (m *Mapper) Points() []complex128 {
	return m.points
}

// BitsPerSymbol exposes the constellation's bits-per-symbol.
func (m *Mapper) BitsPerSymbol() int {
	return m.kind.BitsPerSymbol()
}

// DemapLLR computes, for each received symbol, the per-bit log-likelihood
// ratio using the standard min-distance approximation: for each bit
// position, find the closest constellation point with that bit = 0 and
// the closest with that bit = 1, and set LLR = (d1^2 - d0^2) / (2*noiseVar).
// noiseVar is the per-complex-dimension noise variance estimated from
// pilot residuals (§4.1's equalizer description).
func (m *Mapper) DemapLLR(symbols []complex128, noiseVar float64) []float64 {
	bps := m.kind.BitsPerSymbol()
	if noiseVar <= 0 {
		noiseVar = 1e-6
	}
	llrs := make([]float64, len(symbols)*bps)
	for i, y := range symbols {
		for b := 0; b < bps; b++ {
			var d0min, d1min = math.MaxFloat64, math.MaxFloat64
			for idx, p := range m.points {
				bit := (idx >> (bps - 1 - b)) & 1
				d := dist2(y, p)
				if bit == 0 {
					if d < d0min {
						d0min = d
					}
				} else {
					if d < d1min {
						d1min = d
					}
				}
			}
			llrs[i*bps+b] = (d1min - d0min) / (2 * noiseVar)
		}
	}
	return llrs
}

func dist2(a, b complex128) float64 {
	dr := real(a) - real(b)
	di := imag(a) - imag(b)
	return dr*dr + di*di
}
