package arq

import "errors"

// ErrNoConnection is returned by Disconnect when there is no active
// connection.
var ErrNoConnection = errors.New("arq: no active connection")

// SetCallsign implements the control TCP surface's `MYCALL` command
// (§6), changing the local callsign used on subsequent
// StartConnection calls.
func (e *Engine) SetCallsign(callsign string) {
	e.callsign = callsign
}

// Connect implements the control TCP surface's `CONNECT <src> <dst>`
// command: it adopts src as the local callsign (mirroring how a prior
// MYCALL may already have set it) and issues START_CONNECTION, per
// §4.4's connection lifecycle. The returned frame (if any) is picked up
// by whatever transmit loop drains pending control frames; Connect
// itself only validates and records intent, since the actual framing
// happens on the DSP-TX worker's schedule (§5).
func (e *Engine) Connect(src, dst string) error {
	if e.link != LinkIdle && e.link != LinkListening {
		return errors.New("arq: connect requested while link is " + e.link.String())
	}
	if src != "" {
		e.callsign = src
	}
	e.pendingControl = append(e.pendingControl, e.StartConnection(dst))
	return nil
}

// Disconnect implements `DISCONNECT`: it issues CLOSE_CONNECTION for
// the active connection, if any, per §4.4.
func (e *Engine) Disconnect() error {
	if e.conn == nil {
		return ErrNoConnection
	}
	e.link = LinkDisconnecting
	e.pendingControl = append(e.pendingControl, &Frame{
		Type: TypeControl, ConnectionID: e.conn.ID, Command: CmdCloseConnection,
	})
	return nil
}

// SetBandwidth implements `BW2300`/`BW2500`: it records the requested
// channel bandwidth (reported by BandwidthHz) and passes it to the hook
// registered with OnBandwidth, which issues the actual CAT/Hamlib
// command to the rig. Gear-shift mode selection does not consult it.
func (e *Engine) SetBandwidth(hz int) error {
	switch hz {
	case 2300, 2500:
		e.bandwidthHz = hz
		if e.onBandwidth != nil {
			return e.onBandwidth(hz)
		}
		return nil
	default:
		return errors.New("arq: unsupported bandwidth")
	}
}

// BandwidthHz reports the currently selected channel bandwidth, for a
// driving worker loop's CONNECTED notification (§6's `CONNECTED <src>
// <dst> <bw>` event).
func (e *Engine) BandwidthHz() int {
	return e.bandwidthHz
}

// BufferedTxBytes implements `BUFFER TX`: bytes still queued in the tx
// FIFO awaiting framing. Engine itself doesn't own the FIFO (it's an
// external ring.SPSC[byte] wired by the caller per §3); wire it with
// SetTxBuffer.
func (e *Engine) BufferedTxBytes() int {
	if e.txBuffer == nil {
		return 0
	}
	return e.txBuffer.Len()
}

// SetTxBuffer wires the tx byte FIFO (§3) so BufferedTxBytes can report
// on it.
func (e *Engine) SetTxBuffer(buf interface{ Len() int }) {
	e.txBuffer = buf
}

// DrainPendingControl returns and clears any control frames queued by
// Connect/Disconnect for the transmit worker to send
// on the next opportunity.
func (e *Engine) DrainPendingControl() []*Frame {
	out := e.pendingControl
	e.pendingControl = nil
	return out
}

// OnBandwidth registers the callback SetBandwidth invokes after
// recording a valid request, wiring the control surface's BW2300/BW2500
// command through to a real CAT/Hamlib adapter.
func (e *Engine) OnBandwidth(f func(hz int) error) {
	e.onBandwidth = f
}
