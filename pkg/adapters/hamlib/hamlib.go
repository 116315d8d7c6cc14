// Package hamlib is the Hamlib rig-control adapter named in the DOMAIN
// STACK: an alternate PTT and bandwidth-switching backend that talks to
// a real (or simulated) transceiver through the Hamlib rig-control
// library, instead of a dedicated GPIO line or serial RTS/DTR bit.
// Grounded on the teacher's ptt.go §1.3/1.4 Hamlib support notes ("In
// version 1.3, we add HAMLIB support") and wired to
// github.com/xylo04/goHamlib, the cgo Hamlib binding already present in
// the teacher's dependency stack. goHamlib mirrors the underlying
// Hamlib C API 1:1 (rig_open/rig_close/rig_set_ptt/rig_set_mode), so
// this package's surface is intentionally a thin, narrow wrapper
// exposing only what Mercury needs: PTT and the §6 BW2300/BW2500
// bandwidth switch.
package hamlib

import (
	"fmt"

	gohamlib "github.com/xylo04/goHamlib"
)

// Model is a Hamlib rig model id (RIG_MODEL_* in the C headers); callers
// look theirs up from Hamlib's rig list documentation or the `rigctl
// -l` command-line output.
type Model int

// Rig is one opened Hamlib-controlled transceiver.
type Rig struct {
	handle *gohamlib.Rig
}

// Open opens a rig of the given model over the given control port
// (e.g. a serial device path, or "localhost:4532" for rigctld).
func Open(model Model, port string) (*Rig, error) {
	handle := gohamlib.NewRig(int(model))
	handle.SetConf("rig_pathname", port)
	if err := handle.Open(); err != nil {
		return nil, fmt.Errorf("hamlib: open model %d on %s: %w", model, port, err)
	}
	return &Rig{handle: handle}, nil
}

// SetPTT implements the ptt.Line interface, so a Rig can be used
// anywhere a GPIO or serial PTT line is expected.
func (r *Rig) SetPTT(on bool) error {
	var v gohamlib.PTT
	if on {
		v = gohamlib.PTTOn
	} else {
		v = gohamlib.PTTOff
	}
	return r.handle.SetPTT(gohamlib.VFOCurrent, v)
}

// SetBandwidth implements §6's BW2300/BW2500 control command by
// narrowing or widening the rig's IF passband filter, keeping the
// currently selected mode.
func (r *Rig) SetBandwidth(hz int) error {
	mode, _, err := r.handle.GetMode(gohamlib.VFOCurrent)
	if err != nil {
		return fmt.Errorf("hamlib: get mode: %w", err)
	}
	return r.handle.SetMode(gohamlib.VFOCurrent, mode, hz)
}

// Close releases the Hamlib rig handle.
func (r *Rig) Close() error {
	return r.handle.Close()
}
