package ptt

import (
	"golang.org/x/sys/unix"

	"github.com/pkg/term"
)

// Linux TIOCM ioctl numbers and modem-control-line bits (asm-generic
// termios.h / termbits.h). golang.org/x/sys/unix doesn't export these
// as named constants on every platform, so they're pinned here exactly
// as the teacher's cgo ptt.go used them via direct ioctl() calls.
const (
	tiocmGet = 0x5415
	tiocmBis = 0x5416
	tiocmBic = 0x5417
	tiocmRTS = 0x004
	tiocmDTR = 0x002
)

// SerialLine keys PTT over a serial port's RTS or DTR modem-control
// line, the fallback path named in the DOMAIN STACK when no GPIO chip
// is available. Grounded on the teacher's ptt.go RTS/DTR support and
// serial_port.go's pkg/term-based port handle; the actual bit-toggle is
// a raw ioctl via golang.org/x/sys since pkg/term itself exposes no
// modem-control-line API.
type SerialLine struct {
	port *term.Term
	fd   uintptr
	bit  uint32 // tiocmRTS or tiocmDTR
}

// Signal selects which modem-control line carries PTT.
type Signal int

const (
	RTS Signal = iota
	DTR
)

// OpenSerial opens devicePath in raw mode and returns a Line that keys
// PTT by asserting/clearing the chosen modem-control signal.
func OpenSerial(devicePath string, signal Signal) (*SerialLine, error) {
	p, err := term.Open(devicePath, term.RawMode)
	if err != nil {
		return nil, err
	}
	bit := uint32(tiocmRTS)
	if signal == DTR {
		bit = tiocmDTR
	}
	return &SerialLine{port: p, fd: p.Fd(), bit: bit}, nil
}

// SetPTT asserts (on) or clears (off) the configured modem-control bit
// via TIOCMBIS/TIOCMBIC, matching the non-blocking ioctl fallback the
// DOMAIN STACK assigns to golang.org/x/sys.
func (s *SerialLine) SetPTT(on bool) error {
	req := uintptr(tiocmBic)
	if on {
		req = tiocmBis
	}
	return unix.IoctlSetInt(int(s.fd), uint(req), int(s.bit))
}

// Asserted reads back the modem-control lines via TIOCMGET and reports
// whether the configured PTT bit is currently set, so a caller can
// confirm the line state without an RF interface observing it.
func (s *SerialLine) Asserted() (bool, error) {
	bits, err := unix.IoctlGetInt(int(s.fd), uint(tiocmGet))
	if err != nil {
		return false, err
	}
	return uint32(bits)&s.bit != 0, nil
}

// Close releases the underlying serial port.
func (s *SerialLine) Close() error {
	return s.port.Close()
}
