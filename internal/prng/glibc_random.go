// Package prng reimplements glibc's additive-feedback random() generator
// (TYPE_3: degree 31, separation 3) bit-for-bit, so that two stations
// produce identical pilot and preamble sequences from the same seed
// regardless of platform or language runtime.
package prng

const (
	degree     = 31
	separation = 3
	warmup     = degree * 10
)

// GlibcRandom is a self-contained instance of glibc's random() state
// machine. It never touches global state, unlike the C original, so two
// independent sequences (TX and RX sides, or two subcarriers) can run
// concurrently without interference.
type GlibcRandom struct {
	table [degree]int32
	fptr  int
	rptr  int
}

// NewGlibcRandom seeds a generator exactly as glibc's initstate/srandom
// does for the default TYPE_3 state size: seed the table with the minimal
// standard LCG, then discard 10*degree outputs to mix the feedback taps.
func NewGlibcRandom(seed uint32) *GlibcRandom {
	g := &GlibcRandom{}
	if seed == 0 {
		seed = 1
	}
	g.table[0] = int32(seed)
	for i := 1; i < degree; i++ {
		prev := int64(g.table[i-1])
		hi := prev / 127773
		lo := prev % 127773
		word := 16807*lo - 2836*hi
		if word < 0 {
			word += 2147483647
		}
		g.table[i] = int32(word)
	}
	g.fptr = separation
	g.rptr = 0
	for i := 0; i < warmup; i++ {
		g.Next()
	}
	return g
}

// Next returns the next pseudo-random value in [0, 2^31).
func (g *GlibcRandom) Next() uint32 {
	g.table[g.fptr] += g.table[g.rptr]
	result := uint32(g.table[g.fptr]) >> 1
	g.fptr++
	if g.fptr >= degree {
		g.fptr = 0
	}
	g.rptr++
	if g.rptr >= degree {
		g.rptr = 0
	}
	return result
}

// NextN fills dst with dst's length worth of successive outputs.
func (g *GlibcRandom) NextN(dst []uint32) {
	for i := range dst {
		dst[i] = g.Next()
	}
}

// Bit returns the low bit of the next output, a convenient source of a
// single pseudo-random binary digit for BPSK pilot/preamble construction.
func (g *GlibcRandom) Bit() int {
	return int(g.Next() & 1)
}

// TwoBits returns two pseudo-random binary digits packed as (b1<<1)|b0,
// used to pick one of the four QPSK preamble points.
func (g *GlibcRandom) TwoBits() int {
	v := g.Next()
	return int(v & 0x3)
}
