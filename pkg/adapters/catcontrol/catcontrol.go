// Package catcontrol is the serial CAT (computer-aided transceiver)
// adapter named in the DOMAIN STACK: a raw-mode serial line used to
// send rig-control commands (bandwidth switching) when no Hamlib
// backend is present. RTS/DTR PTT keying is not done here; it is
// pkg/adapters/ptt's SerialLine. Grounded on the teacher's serial_port.go ("Interface to
// serial port, hiding operating system differences"), which already
// uses github.com/pkg/term for the same raw-mode open/write/close
// shape; this package narrows that general serial interface down to
// the one CAT-framing concern §6's BW2300/BW2500 commands need.
package catcontrol

import (
	"bufio"
	"fmt"

	"github.com/pkg/term"
)

// Bandwidth is the two values the control TCP surface's BW2300/BW2500
// commands select between, per §6.
type Bandwidth int

const (
	BW2300 Bandwidth = 2300
	BW2500 Bandwidth = 2500
)

// Port is a CAT control serial line: line-oriented ASCII commands sent
// to the rig, with any reply read back for confirmation. Most HF rigs'
// native CAT protocols use rig-specific framing; Port deliberately
// exposes only the narrow vocabulary Mercury needs (bandwidth, and a
// generic command escape hatch) rather than modeling a full CAT
// command set — a real deployment typically prefers the Hamlib adapter
// (pkg/adapters/hamlib) for anything beyond this.
type Port struct {
	raw    *term.Term
	reader *bufio.Reader
}

// Open opens devicePath in raw mode at baud bps, matching the teacher's
// serial_port_open defaults (4800 bps fallback for unsupported speeds).
func Open(devicePath string, baud int) (*Port, error) {
	t, err := term.Open(devicePath, term.RawMode)
	if err != nil {
		return nil, err
	}
	switch baud {
	case 0:
	case 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200:
		if err := t.SetSpeed(baud); err != nil {
			t.Close()
			return nil, err
		}
	default:
		if err := t.SetSpeed(4800); err != nil {
			t.Close()
			return nil, err
		}
	}
	return &Port{raw: t, reader: bufio.NewReader(t)}, nil
}

// SetBandwidth sends the rig's bandwidth-select command for bw.
func (p *Port) SetBandwidth(bw Bandwidth) error {
	_, err := p.writeLine(fmt.Sprintf("BW %d", int(bw)))
	return err
}

// SendCommand writes a raw CAT command line and returns the rig's
// single-line reply, for commands Port doesn't otherwise wrap.
func (p *Port) SendCommand(cmd string) (string, error) {
	return p.writeLine(cmd)
}

// writeLine appends the CAT line terminator, writes it, and reads back
// one reply line.
func (p *Port) writeLine(cmd string) (string, error) {
	if _, err := p.raw.Write([]byte(cmd + "\r")); err != nil {
		return "", err
	}
	line, err := p.reader.ReadString('\r')
	if err != nil {
		return "", err
	}
	return line[:len(line)-1], nil
}

// Close releases the serial port.
func (p *Port) Close() error {
	return p.raw.Close()
}
