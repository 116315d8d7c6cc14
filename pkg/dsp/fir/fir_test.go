package fir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func tone(freq, sampleRate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}
	return out
}

func rms(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func TestLowPassAttenuatesAboveCutoff(t *testing.T) {
	const sr = 48000.0
	f := Design(LowPass, 127, sr, 1000, 0)
	low := tone(300, sr, 4096)
	high := tone(8000, sr, 4096)

	lowOut := f.Apply(low)
	f.Reset()
	highOut := f.Apply(high)

	passGain := rms(lowOut[1000:]) / rms(low[1000:])
	stopGain := rms(highOut[1000:]) / rms(high[1000:])

	assert.Greater(t, passGain, 0.7)
	assert.Less(t, stopGain, 0.2)
}

func TestHighPassAttenuatesBelowCutoff(t *testing.T) {
	const sr = 48000.0
	f := Design(HighPass, 127, sr, 4000, 0)
	low := tone(300, sr, 4096)
	high := tone(10000, sr, 4096)

	lowOut := f.Apply(low)
	f.Reset()
	highOut := f.Apply(high)

	assert.Less(t, rms(lowOut[1000:])/rms(low[1000:]), 0.3)
	assert.Greater(t, rms(highOut[1000:])/rms(high[1000:]), 0.6)
}

func TestStreamingMatchesWholeBlock(t *testing.T) {
	const sr = 48000.0
	whole := Design(LowPass, 65, sr, 1500, 0)
	in := tone(800, sr, 2000)
	wholeOut := whole.Apply(in)

	streamed := Design(LowPass, 65, sr, 1500, 0)
	var streamedOut []float64
	for i := 0; i < len(in); i += 37 {
		end := i + 37
		if end > len(in) {
			end = len(in)
		}
		streamedOut = append(streamedOut, streamed.Apply(in[i:end])...)
	}

	for i := range wholeOut {
		assert.InDeltaf(t, wholeOut[i], streamedOut[i], 1e-9, "sample %d", i)
	}
}
