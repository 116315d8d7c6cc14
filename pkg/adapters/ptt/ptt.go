// Package ptt is the push-to-talk adapter (§4.5, §6): it drives the
// boolean PTT line that puts a radio into transmit, and times the audio
// output relative to PTT assertion/de-assertion so slow-keying radios
// don't clip the start of a transmission.
//
// Grounded on the teacher's ptt.go ("Activate the output control lines
// for push to talk"), which supports RTS/DTR serial bits, parallel-port
// bits, and Linux GPIO — reimagined here without cgo: a Line interface
// with one real backend per teacher-supported mechanism the pack has a
// pure-Go library for (GPIO via go-gpiocdev in ptt.go; RTS/DTR serial
// in serial.go; Hamlib CAT in pkg/adapters/hamlib).
package ptt

import (
	"math"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Line is anything that can assert or release a PTT keying signal.
// Implementations: GPIOLine (this file), SerialLine (serial.go,
// RTS/DTR), hamlib.Rig (CAT SET_PTT).
type Line interface {
	SetPTT(on bool) error
	Close() error
}

// GPIOLine keys PTT by driving a single Linux gpiochar line, the
// successor to the teacher's sysfs-GPIO PTT support, per the DOMAIN
// STACK's go-gpiocdev entry.
type GPIOLine struct {
	line *gpiocdev.Line
}

// OpenGPIO requests `offset` on `chip` (e.g. "gpiochip0") as an output
// line, initially de-asserted.
func OpenGPIO(chip string, offset int) (*GPIOLine, error) {
	l, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, err
	}
	return &GPIOLine{line: l}, nil
}

// SetPTT drives the line high (transmit) or low (receive).
func (g *GPIOLine) SetPTT(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return g.line.SetValue(v)
}

// Close releases the gpiochar line handle.
func (g *GPIOLine) Close() error {
	return g.line.Close()
}

// Timing holds the §4.5 keying delays: "the engine defers audio output
// by ptt_on_delay_ms after asserting PTT, and defers unkeying by the
// worst-case time for the sound playback buffer to drain plus
// ptt_off_delay_ms."
type Timing struct {
	OnDelay       time.Duration
	OffDelay      time.Duration
	PlaybackDrain time.Duration // worst-case time for the playback ring to empty after the last sample is queued

	// PilotTone, if non-zero, is the frequency of a single out-of-band
	// carrier emitted during OnDelay to trigger RF-sensing amplifiers,
	// per §4.5 ("typically 250 Hz").
	PilotTone    float64
	SampleRateHz float64
}

// DefaultTiming matches the spec's illustrative values: a 250 Hz pilot
// tone and delays generous enough for a typical HF transceiver's
// transmit-relay settling time.
func DefaultTiming(sampleRateHz float64) Timing {
	return Timing{
		OnDelay:       200 * time.Millisecond,
		OffDelay:      50 * time.Millisecond,
		PlaybackDrain: 100 * time.Millisecond,
		PilotTone:     250,
		SampleRateHz:  sampleRateHz,
	}
}

// Controller sequences one PTT-keyed transmission: assert the line,
// wait out the radio's turn-on delay (optionally emitting a pilot
// tone), let the caller stream audio, then wait for the playback buffer
// to drain plus the turn-off delay before releasing the line. Per §5's
// ordering guarantee, the whole sequence runs on the DSP-TX worker's
// goroutine and must not hold any mutex while sleeping — Controller
// holds none; its only state is the Line and Timing values.
type Controller struct {
	line   Line
	timing Timing
}

// NewController pairs a keying Line with its timing profile.
func NewController(line Line, timing Timing) *Controller {
	return &Controller{line: line, timing: timing}
}

// Key asserts PTT and blocks for OnDelay, returning the pilot-tone
// samples (if configured) the caller may play out during that delay;
// the returned slice is nil if no pilot tone is configured.
func (c *Controller) Key() ([]float64, error) {
	if err := c.line.SetPTT(true); err != nil {
		return nil, err
	}
	var tone []float64
	if c.timing.PilotTone > 0 && c.timing.SampleRateHz > 0 {
		tone = pilotToneSamples(c.timing.PilotTone, c.timing.SampleRateHz, c.timing.OnDelay)
	}
	time.Sleep(c.timing.OnDelay)
	return tone, nil
}

// Unkey waits for the playback buffer to drain plus OffDelay, then
// releases PTT.
func (c *Controller) Unkey() error {
	time.Sleep(c.timing.PlaybackDrain + c.timing.OffDelay)
	return c.line.SetPTT(false)
}

// pilotToneSamples renders a single real sinusoid at freqHz for
// duration, used as the short out-of-band tone §4.5 describes.
func pilotToneSamples(freqHz, sampleRateHz float64, duration time.Duration) []float64 {
	n := int(duration.Seconds() * sampleRateHz)
	out := make([]float64, n)
	step := 2 * math.Pi * freqHz / sampleRateHz
	for i := range out {
		out[i] = math.Sin(step * float64(i))
	}
	return out
}
