package physical

import (
	"math"

	"github.com/Rhizomatica/mercury-sub000/pkg/dsp/fir"
)

// The peak-clip PAPR limiter lives in pkg/physical/papr; see engine.go,
// which calls papr.Clip directly.

// passbandStage holds the interpolation, carrier-mixing and two-stage
// FIR machinery shared by up- and down-conversion, per §4.3 step 7
// ("Linear interpolation by interpolation_rate, then multiply by
// cos/sin, two-stage FIR, peak-clip") and its RX mirror. Grounded on the
// teacher's two-stage demodulation filter chain (demod_afsk.c's BP then
// LPF cascade), generalized from AFSK tone filtering to HF passband
// shaping, and from single-rate mixing to the interpolated rate §4.1
// requires so the OFDM engine's native symbol rate can sit inside a
// wider transmitted bandwidth.
type passbandStage struct {
	sampleRate float64 // post-interpolation rate, what the audio device runs at
	carrierHz  float64
	interpRate int

	// TX: a two-stage cascade, highpass then lowpass, shaping the
	// upconverted signal into the passband (§4.1's "two-stage FIR
	// (HPF then LPF)").
	txFilterHP, txFilterLP *fir.Filter

	// RX: two cascaded lowpass stages on each of I and Q, matching the
	// "two-stage FIR" note for extra stopband attenuation beyond what a
	// single windowed-sinc filter gives economically.
	rxFilterI1, rxFilterI2 *fir.Filter
	rxFilterQ1, rxFilterQ2 *fir.Filter

	phase float64
}

func newPassbandStage(p ModeParams) *passbandStage {
	sr := p.SampleRate()
	halfBW := p.MaxBandwidthHz / 2
	rate := p.InterpolationRate
	if rate < 1 {
		rate = 1
	}
	return &passbandStage{
		sampleRate: sr,
		carrierHz:  p.CarrierFreqHz,
		interpRate: rate,
		txFilterHP: fir.Design(fir.HighPass, 127, sr, p.CarrierFreqHz-halfBW, 0),
		txFilterLP: fir.Design(fir.LowPass, 127, sr, p.CarrierFreqHz+halfBW, 0),
		rxFilterI1: fir.Design(fir.LowPass, 63, sr, halfBW, 0),
		rxFilterI2: fir.Design(fir.LowPass, 63, sr, halfBW, 0),
		rxFilterQ1: fir.Design(fir.LowPass, 63, sr, halfBW, 0),
		rxFilterQ2: fir.Design(fir.LowPass, 63, sr, halfBW, 0),
	}
}

// upsampleLinear expands x by rate using linear interpolation between
// consecutive native-rate samples, per §4.1's "Linear interpolation by
// interpolation_rate" step run before up-conversion.
func upsampleLinear(x []complex128, rate int) []complex128 {
	if rate <= 1 || len(x) == 0 {
		return append([]complex128(nil), x...)
	}
	out := make([]complex128, len(x)*rate)
	for i, a := range x {
		b := a
		if i+1 < len(x) {
			b = x[i+1]
		}
		for k := 0; k < rate; k++ {
			frac := complex(float64(k)/float64(rate), 0)
			out[i*rate+k] = a + frac*(b-a)
		}
	}
	return out
}

// decimate keeps every rate-th sample, undoing upsampleLinear after the
// receive lowpass stage has removed the images it would otherwise alias
// down into the native-rate band.
func decimate(x []complex128, rate int) []complex128 {
	if rate <= 1 {
		return x
	}
	out := make([]complex128, len(x)/rate)
	for i := range out {
		out[i] = x[i*rate]
	}
	return out
}

// UpConvert interpolates a complex baseband signal up to the passband
// sample rate, mixes it up to a real passband signal centered at
// carrierHz, and runs it through the two-stage TX FIR, maintaining phase
// continuity across calls so back-to-back frames don't click at the
// boundary.
func (s *passbandStage) UpConvert(baseband []complex128) []float64 {
	interpolated := upsampleLinear(baseband, s.interpRate)
	out := make([]float64, len(interpolated))
	step := 2 * math.Pi * s.carrierHz / s.sampleRate
	for n, b := range interpolated {
		out[n] = real(b)*math.Cos(s.phase) - imag(b)*math.Sin(s.phase)
		s.phase += step
	}
	s.phase = math.Mod(s.phase, 2*math.Pi)
	out = s.txFilterHP.Apply(out)
	out = s.txFilterLP.Apply(out)
	return out
}

// DownConvert mixes a real passband signal back to complex baseband,
// lowpass-filters both components through the two-stage cascade, and
// decimates back down to the OFDM engine's native sample rate.
func (s *passbandStage) DownConvert(passband []float64) []complex128 {
	i := make([]float64, len(passband))
	q := make([]float64, len(passband))
	step := 2 * math.Pi * s.carrierHz / s.sampleRate
	phase := s.phase
	for n, v := range passband {
		i[n] = v * 2 * math.Cos(phase)
		q[n] = -v * 2 * math.Sin(phase)
		phase += step
	}
	s.phase = math.Mod(phase, 2*math.Pi)

	i = s.rxFilterI1.Apply(i)
	i = s.rxFilterI2.Apply(i)
	q = s.rxFilterQ1.Apply(q)
	q = s.rxFilterQ2.Apply(q)

	out := make([]complex128, len(passband))
	for n := range out {
		out[n] = complex(i[n], q[n])
	}
	return decimate(out, s.interpRate)
}
