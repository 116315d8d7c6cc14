package arq

import (
	"time"

	"github.com/Rhizomatica/mercury-sub000/pkg/physical"
	"github.com/Rhizomatica/mercury-sub000/pkg/session/stats"
)

// Connection holds one active or negotiating session's state, per
// §4.4's connection lifecycle.
type Connection struct {
	ID            byte
	Caller, Callee string
	Status        ConnectionStatus
	Role          Role
	Batch         *Batch

	lastDecodeAt   time.Time
	lastRoleSwitch time.Time
	lastGearShift  time.Time
}

// Engine is the ARQ worker: it owns the link/connection state machines,
// the current connection's batch, and decides what to transmit next.
// Per §9's "Coroutine-like flow" note, the intended runtime shape is a
// single goroutine selecting over ack-timer expiry, rx-frame
// availability, control-socket commands and data-socket bytes — Engine
// exposes the event-handling methods that loop drives; see cmd/mercury-modem
// for the select loop that wires it to real channels.
type Engine struct {
	cfg      Config
	callsign string

	link       LinkStatus
	conn       *Connection
	listenMode bool

	currentMode physical.Mode
	lastSNRUp   float64
	lastSNRDown float64
	bandwidthHz int

	pendingControl []*Frame
	txBuffer       interface{ Len() int }

	Stats *stats.Counters

	onConnected    func(caller, callee string)
	onDisconnected func()
	onSetConfig    func(mode physical.Mode)
	onPTT          func(on bool)
	onBandwidth    func(hz int) error
}

// NewEngine builds an idle ARQ engine for the given local callsign.
func NewEngine(callsign string, cfg Config) *Engine {
	return &Engine{
		cfg:         cfg,
		callsign:    callsign,
		link:        LinkIdle,
		currentMode: physical.Config0,
		bandwidthHz: 2300,
		Stats:       &stats.Counters{},
	}
}

// SetCallbacks wires the engine's async events to the control TCP
// surface (§6): CONNECTED/DISCONNECTED notifications and SET_CONFIG
// mode reloads. onPTT is stored but never called: Engine does not key
// PTT itself, so it emits no PTT transition events.
func (e *Engine) SetCallbacks(onConnected func(caller, callee string), onDisconnected func(), onSetConfig func(physical.Mode), onPTT func(bool)) {
	e.onConnected = onConnected
	e.onDisconnected = onDisconnected
	e.onSetConfig = onSetConfig
	e.onPTT = onPTT
}

// Conn returns the active connection, or nil if none, so a driving
// worker loop can reach its Batch for data-plane framing without
// Engine itself owning the transmit schedule.
func (e *Engine) Conn() *Connection {
	return e.conn
}

// LinkState reports the current link_status, per §3, so a driving
// worker loop (e.g. cmd/mercury-modem's control worker) can mirror it
// into its own event-dispatch state without reaching into Engine's
// private fields.
func (e *Engine) LinkState() LinkStatus {
	return e.link
}

// Listen toggles auto-answer, per the control surface's `LISTEN ON/OFF`.
func (e *Engine) Listen(on bool) {
	e.listenMode = on
	if on && e.link == LinkIdle {
		e.link = LinkListening
	} else if !on && e.link == LinkListening {
		e.link = LinkIdle
	}
}

// StartConnection initiates an outbound call, per §4.4: "START_CONNECTION
// carries both callsigns and allocates a connection_id." The caller
// enters CONNECTING and transitions to NEGOTIATING only once the callee's
// ACK_CONTROL arrives (see handleAckControl).
func (e *Engine) StartConnection(dst string) *Frame {
	connID := byte(time.Now().UnixNano() & 0xff)
	e.conn = &Connection{
		ID: connID, Caller: e.callsign, Callee: dst,
		Status: ConnIdle, Role: RoleCommander, Batch: NewBatch(e.cfg),
		lastDecodeAt: time.Now(),
	}
	e.link = LinkConnecting
	e.Stats.IncControlSent()
	return &Frame{
		Type: TypeControl, ConnectionID: connID, Command: CmdStartConnection,
		CommandArgs: append([]byte(e.callsign+"\x00"), []byte(dst)...),
	}
}

// HandleControl processes an inbound CONTROL/ACK_CONTROL frame and
// returns any reply frame the engine wants to transmit (nil if none),
// per §4.4's connection lifecycle, role exchange and gear-shift
// exchanges.
func (e *Engine) HandleControl(f *Frame) *Frame {
	e.Stats.IncControlReceived()
	switch f.Type {
	case TypeControl:
		return e.handleControlCommand(f)
	case TypeAckControl:
		return e.handleAckControl(f)
	}
	return nil
}

func (e *Engine) handleControlCommand(f *Frame) *Frame {
	switch f.Command {
	case CmdStartConnection:
		if !e.listenMode {
			return nil
		}
		e.conn = &Connection{
			ID: f.ConnectionID, Status: ConnAccepted, Role: RoleResponder,
			Batch: NewBatch(e.cfg), lastDecodeAt: time.Now(),
		}
		e.link = LinkConnectionAccepted
		return &Frame{Type: TypeAckControl, ConnectionID: f.ConnectionID, Command: CmdStartConnection}

	case CmdCloseConnection:
		e.dropConnection()
		return &Frame{Type: TypeAckControl, ConnectionID: f.ConnectionID, Command: CmdCloseConnection}

	case CmdSwitchRole:
		if e.conn != nil {
			e.conn.Role = e.conn.Role.Flipped()
		}
		return &Frame{Type: TypeAckControl, ConnectionID: f.ConnectionID, Command: CmdSwitchRole}

	case CmdSetConfig:
		if len(f.CommandArgs) >= 1 {
			mode := physical.Mode(f.CommandArgs[0])
			e.currentMode = mode
			if e.onSetConfig != nil {
				e.onSetConfig(mode)
			}
		}
		if e.link == LinkConnectionAccepted && e.conn != nil {
			e.conn.Status = ConnEstablished
			e.link = LinkConnected
			if e.onConnected != nil {
				e.onConnected(e.conn.Caller, e.conn.Callee)
			}
		}
		return &Frame{Type: TypeAckControl, ConnectionID: f.ConnectionID, Command: CmdSetConfig}

	case CmdTestConnection:
		if len(f.CommandArgs) >= 4 {
			e.lastSNRUp = bytesToFloat32(f.CommandArgs[:4])
			e.maybeGearShift()
		}
		return &Frame{Type: TypeAckControl, ConnectionID: f.ConnectionID, Command: CmdTestConnection}

	case CmdRepeatLastAck:
		return nil // no reply: no last ACK is cached, so nothing is replayed
	}
	return nil
}

func (e *Engine) handleAckControl(f *Frame) *Frame {
	switch f.Command {
	case CmdStartConnection:
		if e.conn == nil {
			return nil
		}
		e.link = LinkNegotiating
		if e.cfg.AdaptiveModeEnabled {
			return &Frame{
				Type: TypeControl, ConnectionID: e.conn.ID, Command: CmdSetConfig,
				CommandArgs: []byte{byte(e.currentMode)},
			}
		}
		e.conn.Status = ConnEstablished
		e.link = LinkConnected
		if e.onConnected != nil {
			e.onConnected(e.conn.Caller, e.conn.Callee)
		}
	case CmdSetConfig:
		if e.conn != nil && e.link == LinkNegotiating {
			e.conn.Status = ConnEstablished
			e.link = LinkConnected
			if e.onConnected != nil {
				e.onConnected(e.conn.Caller, e.conn.Callee)
			}
		}
	case CmdCloseConnection:
		e.dropConnection()

	case CmdSwitchRole:
		// The side that originated SWITCH_ROLE (via CheckRoleSwitch) only
		// flips its own Role once the responder's ACK_CONTROL confirms the
		// switch, per §4.4: "On success both sides flip role."
		if e.conn != nil {
			e.conn.Role = e.conn.Role.Flipped()
		}
	}
	return nil
}

func (e *Engine) dropConnection() {
	wasCommander := e.conn != nil && e.conn.Role == RoleCommander
	e.conn = nil
	if wasCommander {
		e.link = LinkIdle
	} else if e.listenMode {
		e.link = LinkListening
	} else {
		e.link = LinkIdle
	}
	if e.onDisconnected != nil {
		e.onDisconnected()
	}
}

// NoteSuccessfulDecode resets the link_timer, per §5: "A link_timer
// reset on every successful decode; expiry drops the link."
func (e *Engine) NoteSuccessfulDecode() {
	if e.conn != nil {
		e.conn.lastDecodeAt = time.Now()
	}
}

// CheckConnectionTimeout abandons a negotiation that has been stuck in
// CONNECTING/NEGOTIATING/CONNECTION_ACCEPTED for longer than
// Config.ConnectionTimeout, per §5's "connection_timer bounds the
// negotiating phase" and §7's "connection_timer expiry -> negotiation
// abandoned."
func (e *Engine) CheckConnectionTimeout() bool {
	if e.conn == nil {
		return false
	}
	switch e.link {
	case LinkConnecting, LinkNegotiating, LinkConnectionReceived, LinkConnectionAccepted:
	default:
		return false
	}
	if time.Since(e.conn.lastDecodeAt) < e.cfg.ConnectionTimeout {
		return false
	}
	e.dropConnection()
	return true
}

// CheckLinkTimeout drops the session if link_timeout has elapsed with
// no successful decode, per §4.4: the commander returns to IDLE, the
// responder to LISTENING.
func (e *Engine) CheckLinkTimeout() bool {
	if e.conn == nil || e.link != LinkConnected {
		return false
	}
	if time.Since(e.conn.lastDecodeAt) < e.cfg.LinkTimeout {
		return false
	}
	e.link = LinkDropped
	e.dropConnection()
	return true
}

// CheckRoleSwitch returns a SWITCH_ROLE control frame when the
// commander's batch has no outstanding slots (every slot ACKED or
// FAILED) and switch_role_timeout has passed since this side's previous
// SWITCH_ROLE request. How long the batch has been idle is not tracked,
// and lastRoleSwitch starts at zero, so the first check needs only the
// idle batch.
func (e *Engine) CheckRoleSwitch() *Frame {
	if e.conn == nil || e.conn.Role != RoleCommander {
		return nil
	}
	if e.conn.Batch != nil && !e.conn.Batch.Done() {
		return nil
	}
	if time.Since(e.conn.lastRoleSwitch) < e.cfg.SwitchRoleTimeout {
		return nil
	}
	e.conn.lastRoleSwitch = time.Now()
	return &Frame{Type: TypeControl, ConnectionID: e.conn.ID, Command: CmdSwitchRole}
}

// maybeGearShift computes the target mode from the min of up/downlink
// SNR and issues SET_CONFIG if it differs from the current mode, per
// §4.4's gear-shift description.
func (e *Engine) maybeGearShift() {
	if !e.cfg.AdaptiveModeEnabled || e.conn == nil {
		return
	}
	snr := e.lastSNRUp
	if e.lastSNRDown < snr {
		snr = e.lastSNRDown
	}
	target := physical.GetConfiguration(snr)
	if target != e.currentMode {
		e.currentMode = target
		if e.onSetConfig != nil {
			e.onSetConfig(target)
		}
	}
}

// CheckGearShiftSafety falls back to Config0 if no successful decode
// has occurred for the safety window computed by
// Config.GearShiftSafetyFrames, and the caller supplies how long one
// frame-time is so the check can be expressed in wall-clock terms.
func (e *Engine) CheckGearShiftSafety(frameTime time.Duration) bool {
	if e.conn == nil {
		return false
	}
	safety := time.Duration(e.cfg.GearShiftSafetyFrames()) * frameTime
	if time.Since(e.conn.lastDecodeAt) < safety {
		return false
	}
	if e.currentMode == physical.Config0 {
		return false
	}
	e.currentMode = physical.Config0
	if e.onSetConfig != nil {
		e.onSetConfig(physical.Config0)
	}
	return true
}

func bytesToFloat32(b []byte) float64 {
	bits := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return float64(int32(bits)) / 100 // fixed-point: hundredths of a dB
}
