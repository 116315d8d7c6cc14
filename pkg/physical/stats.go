package physical

import "math"

// estimateSNRFromNoiseVar converts the demapper's per-dimension noise
// variance (estimated from pilot residuals) into an approximate SNR in
// dB, assuming the unit-average-energy constellation normalization
// pkg/dsp/modem applies: signal power is 1, so SNR = 1/(2*noiseVar).
func estimateSNRFromNoiseVar(noiseVar float64) float64 {
	if noiseVar <= 0 {
		return 60
	}
	snr := 1 / (2 * noiseVar)
	return 10 * math.Log10(snr)
}

// signalStrengthDBm reports the received passband block's RMS power in
// dBm, referenced to a nominal 1.0 full-scale sample representing 0 dBm
// — a placeholder calibration until a real audio front-end's input gain
// is known, matching what an adapter layer would otherwise supply.
func signalStrengthDBm(samples []float64) float64 {
	if len(samples) == 0 {
		return -120
	}
	var sumSq float64
	for _, v := range samples {
		sumSq += v * v
	}
	rms := math.Sqrt(sumSq / float64(len(samples)))
	if rms <= 0 {
		return -120
	}
	return 20 * math.Log10(rms)
}
