package main

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"

	"github.com/Rhizomatica/mercury-sub000/pkg/adapters/audio"
	"github.com/Rhizomatica/mercury-sub000/pkg/adapters/ptt"
	"github.com/Rhizomatica/mercury-sub000/pkg/adapters/tcp"
	"github.com/Rhizomatica/mercury-sub000/pkg/arq"
	"github.com/Rhizomatica/mercury-sub000/pkg/fsm"
	"github.com/Rhizomatica/mercury-sub000/pkg/ring"
)

// dspWorker is the "ARQ control worker" of §5's coroutine-like flow
// note: the fsm.Machine it drives is the single place that calls
// arq.Engine.HandleControl and touches Connection.Batch, so none of
// its bookkeeping needs its own lock — rxLoop and timerLoop only ever
// reach the engine by posting events through the Machine, and txLoop
// only ever reads the engine's published state (LinkState/Conn) plus
// drains its own outgoing channel.
type dspWorker struct {
	engine   *arq.Engine
	dsp      *dspGuard
	audioDev *audio.Device
	pttCtl   *ptt.Controller
	rxBytes  *ring.SPSC[byte]
	log      *log.Logger

	// timestampFormat is the teacher's -T option (kissutil.go/xmit.go):
	// an strftime pattern prefixing data-frame log lines, rather than
	// Go's own (incompatible) time.Format layout language.
	timestampFormat string

	outgoing chan *arq.Frame

	pendingAckIDs []byte
	nextAckSeq    byte
}

func newDSPWorker(engine *arq.Engine, dsp *dspGuard, audioDev *audio.Device, pttCtl *ptt.Controller, rxBytes *ring.SPSC[byte], logger *log.Logger, timestampFormat string) *dspWorker {
	return &dspWorker{
		engine:          engine,
		dsp:             dsp,
		audioDev:        audioDev,
		pttCtl:          pttCtl,
		rxBytes:         rxBytes,
		log:             logger,
		timestampFormat: timestampFormat,
		outgoing:        make(chan *arq.Frame, 64),
	}
}

// timestampPrefix renders the current time per timestampFormat, or ""
// if none was configured. Malformed formats are logged once and then
// treated as unset rather than spamming the log on every frame.
func (w *dspWorker) timestampPrefix() string {
	if w.timestampFormat == "" {
		return ""
	}
	s, err := strftime.Format(w.timestampFormat, time.Now())
	if err != nil {
		w.log.Warn("invalid --timestamp-format, disabling", "err", err)
		w.timestampFormat = ""
		return ""
	}
	return s
}

// frameDecodedEvent wraps one frame the rx loop successfully decoded,
// per §9's event list item (b) "rx-frame availability."
type frameDecodedEvent struct{ frame *arq.Frame }

// timerTickEvent drives the periodic checks of §9's item (a)
// "ack-timer expiry": link_timeout, connection_timer, switch_role_timeout
// and per-slot ack_timer all piggyback on one 1-second tick rather than
// each owning a separate time.Timer, trading a little latency for a
// much simpler worker loop.
type timerTickEvent struct{}

// handle is the fsm.Handler driving the whole ARQ control worker: it is
// the only code in this command that calls into arq.Engine's control-
// frame and timer methods, so no additional synchronization is needed
// around Engine or Connection.Batch.
func (w *dspWorker) handle(_ arq.LinkStatus, e fsm.Event) arq.LinkStatus {
	switch ev := e.(type) {
	case frameDecodedEvent:
		w.onFrame(ev.frame)
	case timerTickEvent:
		w.onTick()
	}
	return w.engine.LinkState()
}

func (w *dspWorker) onFrame(f *arq.Frame) {
	switch f.Type {
	case arq.TypeControl, arq.TypeAckControl:
		if reply := w.engine.HandleControl(f); reply != nil {
			w.enqueue(reply)
		}

	case arq.TypeDataLong, arq.TypeDataShort:
		w.engine.NoteSuccessfulDecode()
		w.log.Debug("data frame received", "ts", w.timestampPrefix(), "msg_id", f.MessageID, "bytes", len(f.Payload))
		if err := w.rxBytes.Write(f.Payload); err != nil {
			w.log.Warn("rx FIFO closed, dropping decoded payload", "err", err)
			return
		}
		w.pendingAckIDs = append(w.pendingAckIDs, f.MessageID)
		acks := arq.ConsolidateAcks(f.ConnectionID, w.nextAckSeq, w.pendingAckIDs)
		w.nextAckSeq += byte(len(acks))
		w.pendingAckIDs = w.pendingAckIDs[:0]
		for _, ack := range acks {
			w.enqueue(ack)
		}

	case arq.TypeAckRange:
		w.engine.NoteSuccessfulDecode()
		if conn := w.engine.Conn(); conn != nil && conn.Batch != nil {
			conn.Batch.AckRange(f.RangeStart, f.RangeEnd)
		}

	case arq.TypeAckMulti:
		w.engine.NoteSuccessfulDecode()
		if conn := w.engine.Conn(); conn != nil && conn.Batch != nil {
			conn.Batch.AckIDs(f.MultiIDs)
		}
	}
}

func (w *dspWorker) onTick() {
	w.engine.CheckConnectionTimeout()
	w.engine.CheckLinkTimeout()
	if f := w.engine.CheckRoleSwitch(); f != nil {
		w.enqueue(f)
	}
	if conn := w.engine.Conn(); conn != nil && conn.Batch != nil {
		conn.Batch.ExpireTimeouts(time.Now())
	}
}

func (w *dspWorker) enqueue(f *arq.Frame) {
	select {
	case w.outgoing <- f:
	default:
		w.log.Warn("outgoing queue full, dropping control frame", "command", f.Command)
	}
}

// rxLoop is the DSP-RX worker (§5): it pulls one frame's worth of
// passband samples from the audio device, demodulates/decodes them,
// and hands anything it successfully decodes to the fsm.Machine for
// dispatch. The sample window is recomputed every iteration since a
// gear shift can change the current mode's frame length mid-session.
func (w *dspWorker) rxLoop(ctx context.Context, machine *fsm.Machine[arq.LinkStatus]) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		params := w.dsp.Params()
		n := int(float64(params.PreambleNsymb+params.Nsymb) * float64(params.SymbolLen()) * float64(params.InterpolationRate))
		if n <= 0 {
			return
		}
		samples := make([]float64, n)
		if err := w.audioDev.RxTransfer(samples); err != nil {
			return
		}
		payload, stats, err := w.dsp.Receive(samples)
		if err != nil {
			w.log.Debug("frame sync failed", "err", err)
			continue
		}
		if !stats.MessageDecoded {
			continue
		}
		frame, err := arq.DecodeFrame(payload)
		if err != nil {
			w.log.Warn("decoding frame", "err", err)
			continue
		}
		machine.Post(frameDecodedEvent{frame: frame})
	}
}

// txLoop is the DSP-TX worker (§5): each cycle it drains whatever
// control frames the connection lifecycle queued (pkg/arq/session.go's
// DrainPendingControl), whatever replies/acks the control worker
// produced, and — once CONNECTED as commander — pads the current batch
// from the tx byte FIFO, then keys PTT once for the whole burst per
// §4.5's "PTT should not chatter within one transmission."
func (w *dspWorker) txLoop(ctx context.Context, txBytes *ring.SPSC[byte]) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frames := w.engine.DrainPendingControl()
		frames = append(frames, w.drainOutgoing()...)
		frames = append(frames, w.buildDataFrames(txBytes)...)

		if len(frames) == 0 {
			time.Sleep(20 * time.Millisecond)
			continue
		}

		if err := w.transmitBurst(frames); err != nil {
			w.log.Error("transmitting burst", "err", err)
		}
	}
}

func (w *dspWorker) drainOutgoing() []*arq.Frame {
	var out []*arq.Frame
	for {
		select {
		case f := <-w.outgoing:
			out = append(out, f)
		default:
			return out
		}
	}
}

// buildDataFrames pulls bytes waiting in the tx FIFO into the active
// connection's batch and returns the padded set of slots to (re)send,
// per §4.4's commander-side batching.
func (w *dspWorker) buildDataFrames(txBytes *ring.SPSC[byte]) []*arq.Frame {
	if w.engine.LinkState() != arq.LinkConnected {
		return nil
	}
	conn := w.engine.Conn()
	if conn == nil || conn.Role != arq.RoleCommander || conn.Batch == nil {
		return nil
	}

	// DATA_LONG's header (type, conn_id, seq, msg_id) costs 4 bytes of
	// the frame's K-bit payload capacity, per §6's frame layout table.
	const dataLongHeaderBytes = 4
	params := w.dsp.Params()
	payloadCap := params.PayloadBytesPerFrame() - dataLongHeaderBytes
	if payloadCap <= 0 {
		return nil
	}
	chunk := make([]byte, payloadCap)
	for {
		n := txBytes.TryRead(chunk)
		if n == 0 {
			break
		}
		if _, ok := conn.Batch.Enqueue(append([]byte(nil), chunk[:n]...)); !ok {
			break
		}
	}

	pad := conn.Batch.PadForTransmission()
	if len(pad) == 0 {
		return nil
	}
	now := time.Now()
	frames := make([]*arq.Frame, 0, len(pad))
	for _, slot := range pad {
		frames = append(frames, &arq.Frame{
			Type: arq.TypeDataLong, ConnectionID: conn.ID, MessageID: slot.ID, Payload: slot.Payload,
		})
		if slot.State == arq.SlotPending {
			slot.MarkSent(now)
		}
	}
	return frames
}

// transmitBurst keys PTT once, plays any pilot tone, transmits every
// frame back to back, then unkeys — matching §4.5's "key once per
// transmission, not once per frame."
func (w *dspWorker) transmitBurst(frames []*arq.Frame) error {
	tone, err := w.pttCtl.Key()
	if err != nil {
		return err
	}
	if len(tone) > 0 {
		if err := w.audioDev.TxTransfer(tone); err != nil {
			w.log.Warn("playing pilot tone", "err", err)
		}
	}
	for _, f := range frames {
		raw, err := f.Encode()
		if err != nil {
			w.log.Warn("encoding frame", "err", err)
			continue
		}
		samples, err := w.dsp.Transmit(raw)
		if err != nil {
			w.log.Warn("modulating frame", "err", err)
			continue
		}
		if err := w.audioDev.TxTransfer(samples); err != nil {
			return err
		}
	}
	return w.pttCtl.Unkey()
}

// timerLoop fires timerTickEvent once a second (§9's ack-timer/
// link-timer/connection-timer/switch-role-timer checks) and
// IAMALIVE broadcasts once a minute, per §6.
func (w *dspWorker) timerLoop(ctx context.Context, machine *fsm.Machine[arq.LinkStatus], controlSrv *tcp.ControlServer) {
	ticks := time.NewTicker(time.Second)
	defer ticks.Stop()
	alive := time.NewTicker(time.Minute)
	defer alive.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks.C:
			machine.TryPost(timerTickEvent{})
		case <-alive.C:
			controlSrv.NotifyAlive()
		}
	}
}
