// Package audio is the audio-surface adapter (§6): it binds a portaudio
// duplex stream to the capture/playback ring buffers the physical-layer
// engine reads and writes. Grounded on the teacher's audio.go ("Purpose:
// Interface to audio device commonly called a sound card"), generalized
// from its cgo OSS/ALSA device handle to the portaudio library's duplex
// stream, since portaudio is already in the teacher's dependency stack
// and covers the same device-abstraction concern without cgo.
package audio

import (
	"errors"

	"github.com/gordonklaus/portaudio"

	"github.com/Rhizomatica/mercury-sub000/pkg/ring"
)

// Device owns one portaudio duplex stream, per §5's "audio capture
// producer" and "audio playback consumer" threads: portaudio drives
// both directions from a single callback invoked on its own internal
// thread, which fills the capture ring and drains the playback ring.
type Device struct {
	stream   *portaudio.Stream
	capture  *ring.SPSC[float64]
	playback *ring.SPSC[float64]
}

// Open initializes portaudio and opens the default duplex device at
// sampleRate, mono, per §6's "blocks of real-valued 64-bit float PCM
// samples at the mode-derived sample rate; mono."
func Open(sampleRate float64, framesPerBuffer int, capture, playback *ring.SPSC[float64]) (*Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	d := &Device{capture: capture, playback: playback}

	callback := func(in, out []float64) {
		d.capture.TryWrite(in)
		n := d.playback.TryRead(out)
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
	}

	stream, err := portaudio.OpenDefaultStream(1, 1, sampleRate, framesPerBuffer, callback)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	d.stream = stream
	return d, nil
}

// Start begins streaming.
func (d *Device) Start() error {
	if d.stream == nil {
		return errors.New("audio: device not open")
	}
	return d.stream.Start()
}

// Stop halts streaming without closing the device.
func (d *Device) Stop() error {
	if d.stream == nil {
		return errors.New("audio: device not open")
	}
	return d.stream.Stop()
}

// TxTransfer implements §6's tx_transfer: it writes samples to the
// playback ring, blocking until the whole block is queued.
func (d *Device) TxTransfer(samples []float64) error {
	return d.playback.Write(samples)
}

// RxTransfer implements §6's rx_transfer: it reads len(samples)
// samples from the capture ring, blocking until that many are
// available.
func (d *Device) RxTransfer(samples []float64) error {
	return d.capture.Read(samples)
}

// Close stops and releases the stream and terminates portaudio.
func (d *Device) Close() error {
	if d.stream == nil {
		return nil
	}
	if err := d.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}
