// Package papr implements the peak-clip PAPR (peak-to-average power
// ratio) limiter used on the transmit path, per §4.1: "A peak-clip
// operation limits PAPR to a configured dB ratio per-section (preamble
// vs data may differ)." Split out as its own package because the
// preamble and data sections of a frame are clipped with independently
// configured ratios (ModeParams.PAPRClipPreambleDB /
// PAPRClipDataDB) and both the physical façade and any future
// standalone tooling (e.g. a waveform-inspection command) want to call
// the same limiter without pulling in the rest of pkg/physical.
package papr

import "math"

// Clip hard-clamps any sample whose magnitude exceeds clipDB above the
// signal's RMS to that ceiling, trading a small amount of in-band
// distortion for a bounded crest factor the HF power amplifier can
// tolerate. Clipping lowers the RMS, so the clamp is repeated against
// the clipped signal's RMS until its Ratio is within clipDB or a pass
// no longer lowers it.
func Clip(samples []float64, clipDB float64) []float64 {
	if len(samples) == 0 {
		return samples
	}
	var sumSq float64
	for _, v := range samples {
		sumSq += v * v
	}
	rms := math.Sqrt(sumSq / float64(len(samples)))
	if rms == 0 {
		return samples
	}
	ceiling := rms * math.Pow(10, clipDB/20)

	out := make([]float64, len(samples))
	for i, v := range samples {
		switch {
		case v > ceiling:
			out[i] = ceiling
		case v < -ceiling:
			out[i] = -ceiling
		default:
			out[i] = v
		}
	}
	if r := Ratio(out); r > clipDB+0.001 && r < Ratio(samples) {
		return Clip(out, clipDB)
	}
	return out
}

// Ratio reports the measured PAPR, in dB, of samples: the ratio of peak
// instantaneous power to average power. Useful for tests and for the
// statistics façade to report how much headroom Clip actually used.
func Ratio(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq, peakSq float64
	for _, v := range samples {
		sq := v * v
		sumSq += sq
		if sq > peakSq {
			peakSq = sq
		}
	}
	mean := sumSq / float64(len(samples))
	if mean == 0 {
		return 0
	}
	return 10 * math.Log10(peakSq/mean)
}
