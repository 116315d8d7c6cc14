package physical

import (
	"errors"

	"github.com/Rhizomatica/mercury-sub000/pkg/dsp/interleave"
	"github.com/Rhizomatica/mercury-sub000/pkg/dsp/modem"
	"github.com/Rhizomatica/mercury-sub000/pkg/ldpc"
	"github.com/Rhizomatica/mercury-sub000/pkg/ofdm"
	"github.com/Rhizomatica/mercury-sub000/pkg/physical/papr"
)

// Stats is the per-frame statistics record receive_byte returns, per
// §4.3: "message_decoded, iterations_done, delay ..., SNR,
// signal_strength_dBm, freq_offset, and the running last good
// delay/offset for use when the current frame is marginal."
type Stats struct {
	MessageDecoded     bool
	IterationsDone     int
	Delay              int
	SNR                float64
	SignalStrengthDBm  float64
	FreqOffset         float64
	LastGoodDelay      int
	LastGoodFreqOffset float64
}

// Engine is the telecom-system façade: it owns exactly one OFDM engine,
// one LDPC codec, one constellation mapper and the interleavers sized
// to the current mode, per §4.3. Callers drive it with LoadConfiguration
// then TransmitByte/ReceiveByte; switching modes tears down and rebuilds
// all of the above.
type Engine struct {
	mode   Mode
	params ModeParams

	code     *ldpc.Code
	mod      *ofdm.Modulator
	demod    *ofdm.Demodulator
	mapper   *modem.Mapper
	bitIv    *interleave.Interleaver
	iqIv     *interleave.Interleaver
	passband *passbandStage

	lastGoodDelay      int
	lastGoodFreqOffset float64
	haveLastGood       bool
}

// NewEngine builds a façade already loaded with the given mode.
func NewEngine(mode Mode) (*Engine, error) {
	e := &Engine{}
	if err := e.LoadConfiguration(mode); err != nil {
		return nil, err
	}
	return e, nil
}

// LoadConfiguration tears down the previous engine (if any) and rebuilds
// every owned component from the mode table, including regenerating the
// pilot and preamble sequences from the mode's seed (done implicitly by
// ofdm.NewModulator/NewDemodulator, which derive them from Params.Seed).
func (e *Engine) LoadConfiguration(mode Mode) error {
	if int(mode) < 0 || int(mode) >= len(ModeTable) {
		return errors.New("physical: unknown mode")
	}
	p := ModeTable[mode]

	code, err := ldpc.NewCode(p.K(), p.Seed)
	if err != nil {
		return err
	}

	op := ofdm.Params{
		Nfft: p.Nfft, Nc: p.Nc, Dx: p.Dx, Dy: p.Dy, Nsymb: p.Nsymb,
		PreambleNsymb: p.PreambleNsymb, GuardInterval: p.GuardInterval,
		Constellation: p.Constellation, PilotBoost: p.PilotBoost, Seed: p.Seed,
		ChannelVariant: p.ChannelVariant,
	}
	mod := ofdm.NewModulator(op)
	demod := ofdm.NewDemodulator(op)
	mapper := modem.NewMapper(p.Constellation)

	bitIv := interleave.New(maxInt(1, ldpc.N/10))
	iqIv := interleave.New(maxInt(1, mod.DataSymbolsPerFrame()/10))

	e.mode = mode
	e.params = p
	e.code = code
	e.mod = mod
	e.demod = demod
	e.mapper = mapper
	e.bitIv = bitIv
	e.iqIv = iqIv
	e.passband = newPassbandStage(p)
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Params returns the currently loaded mode's full parameter set.
func (e *Engine) Params() ModeParams { return e.params }

// padToK wraps `payload` to exactly K bits by repeating it from the
// start, per §4.3 step 1: "pad the virtual portion (N - nBits) with a
// wrap of the payload so the encoder is well-defined."
func padToK(payload []byte, k int) []byte {
	out := make([]byte, k)
	if len(payload) == 0 {
		return out
	}
	for i := range out {
		out[i] = payload[i%len(payload)]
	}
	return out
}

// bytesToBits unpacks bytes MSB-first into individual 0/1 bit values.
func bytesToBits(data []byte) []byte {
	bits := make([]byte, len(data)*8)
	for i, b := range data {
		for j := 0; j < 8; j++ {
			bits[i*8+j] = (b >> (7 - j)) & 1
		}
	}
	return bits
}

// bitsToBytes packs MSB-first 0/1 bit values back into bytes, truncating
// any trailing partial byte.
func bitsToBytes(bits []byte) []byte {
	out := make([]byte, len(bits)/8)
	for i := range out {
		var b byte
		for j := 0; j < 8; j++ {
			b = (b << 1) | (bits[i*8+j] & 1)
		}
		out[i] = b
	}
	return out
}

// TransmitByte runs §4.3's transmit pipeline end to end: pack `data`
// into the LDPC block (wrapping to fill K), encode, bit-interleave, map
// to symbols, IQ-interleave, frame into the OFDM grid with the
// preamble, symbol-modulate, then up-convert to passband, FIR-shape and
// peak-clip. Returns the real passband audio samples for one frame.
func (e *Engine) TransmitByte(data []byte) ([]float64, error) {
	kBits := bytesToBits(padToK(data, e.params.K()/8))
	if len(kBits) != e.params.K() {
		return nil, errors.New("physical: payload does not pack to exactly K bits")
	}

	codeword, err := e.code.Encode(kBits)
	if err != nil {
		return nil, err
	}

	interleavedBits := e.bitIv.PermuteBytes(codeword)
	symbols := e.mapper.Map(interleavedBits)
	iqInterleaved := e.iqIv.PermuteComplex(symbols)

	baseband, err := e.mod.ModulateSymbols(iqInterleaved)
	if err != nil {
		return nil, err
	}

	passband := e.passband.UpConvert(baseband)

	// Clip the preamble and data sections independently, per §4.1: "A
	// peak-clip operation limits PAPR to a configured dB ratio
	// per-section (preamble vs data may differ)." Both sections are
	// interpolated by the same InterpolationRate, so the preamble's
	// passband length scales by it too.
	preambleLen := e.params.PreambleNsymb * e.params.SymbolLen() * e.params.InterpolationRate
	if preambleLen > len(passband) {
		preambleLen = len(passband)
	}
	out := make([]float64, 0, len(passband))
	out = append(out, papr.Clip(passband[:preambleLen], e.params.PAPRClipPreambleDB)...)
	out = append(out, papr.Clip(passband[preambleLen:], e.params.PAPRClipDataDB)...)
	return out, nil
}

// ReceiveByte mirrors TransmitByte: down-converts passband samples to
// baseband, finds and channel-corrects a frame, IQ-deinterleaves the
// equalized symbols, demaps to soft LLRs, bit-deinterleaves them, and
// LDPC-decodes. It always returns a Stats record; when decoding fails,
// the payload is nil and Stats.MessageDecoded is false while the
// sync/SNR fields still reflect what was found, per §4.3.
func (e *Engine) ReceiveByte(passbandSamples []float64) ([]byte, Stats, error) {
	baseband := e.passband.DownConvert(passbandSamples)

	last := ofdm.LastGoodSync{Start: e.lastGoodDelay, CFOFrac: e.lastGoodFreqOffset, Valid: e.haveLastGood}
	sr, err := e.demod.DemodulateSymbols(baseband, last)
	if err != nil {
		return nil, Stats{LastGoodDelay: e.lastGoodDelay, LastGoodFreqOffset: e.lastGoodFreqOffset}, err
	}

	deinterleavedSymbols := e.iqIv.DeinterleaveComplex(sr.DataSymbols)
	llr := e.mapper.DemapLLR(deinterleavedSymbols, sr.NoiseVar)
	deinterleavedLLR := e.bitIv.DeinterleaveFloats(llr)

	decoded, iters, ok := e.code.DecodeSPA(deinterleavedLLR, 50)

	snr := estimateSNRFromNoiseVar(sr.NoiseVar)
	stats := Stats{
		MessageDecoded:     ok,
		IterationsDone:     iters,
		Delay:              sr.FrameStart,
		SNR:                snr,
		SignalStrengthDBm:  signalStrengthDBm(passbandSamples),
		FreqOffset:         sr.CFOFrac,
		LastGoodDelay:      e.lastGoodDelay,
		LastGoodFreqOffset: e.lastGoodFreqOffset,
	}

	if ok {
		e.lastGoodDelay = sr.FrameStart
		e.lastGoodFreqOffset = sr.CFOFrac
		e.haveLastGood = true
		return bitsToBytes(decoded), stats, nil
	}
	return nil, stats, nil
}
