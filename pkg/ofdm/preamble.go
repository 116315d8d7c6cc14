package ofdm

import (
	"github.com/Rhizomatica/mercury-sub000/internal/prng"
	"github.com/Rhizomatica/mercury-sub000/pkg/dsp/fft"
	"github.com/Rhizomatica/mercury-sub000/pkg/dsp/modem"
)

// Preamble holds the time-domain samples (cyclic-prefixed, ready to
// concatenate ahead of the data symbols) used for frame detection and
// synchronization, per §4.1.
type Preamble struct {
	Samples []complex128
}

// GeneratePreamble builds a Schmidl & Cox style preamble: a QPSK symbol
// is placed on every active carrier whose FFT bin is even and zero on
// the rest, which makes the Nfft-point time-domain waveform two
// identical halves of length Nfft/2 — the property the correlator in
// sync.go exploits for coarse timing and fractional CFO estimation.
// Repeated PreambleNsymb times (each with its own cyclic prefix) so the
// receiver can average the correlation metric across multiple copies.
func GeneratePreamble(p Params) *Preamble {
	bins := p.ActiveBins()
	mapper := modem.NewMapper(modem.QPSK)
	rnd := prng.NewGlibcRandom(p.Seed ^ 0x50524541) // "PREA" tweak

	freq := make([]complex128, p.Nfft)
	for _, bin := range bins {
		if bin%2 != 0 {
			continue
		}
		bits := []byte{byte((rnd.TwoBits() >> 1) & 1), byte(rnd.TwoBits() & 1)}
		sym := mapper.Map(bits)
		freq[bin] = sym[0]
	}

	timeSym := fft.Inverse(freq)
	ngi := p.Ngi()
	symLen := p.Nfft + ngi

	out := make([]complex128, 0, symLen*p.PreambleNsymb)
	for n := 0; n < p.PreambleNsymb; n++ {
		out = append(out, addCyclicPrefix(timeSym, ngi)...)
	}
	_ = symLen
	return &Preamble{Samples: out}
}

func addCyclicPrefix(symbol []complex128, ngi int) []complex128 {
	n := len(symbol)
	out := make([]complex128, n+ngi)
	copy(out, symbol[n-ngi:])
	copy(out[ngi:], symbol)
	return out
}
