// Command mercury-modem is the demonstration entry point that wires the
// OFDM/LDPC physical layer (pkg/physical) and the batched
// selective-repeat ARQ engine (pkg/arq) to real adapters: a duplex
// sound card (pkg/adapters/audio), a PTT keying line
// (pkg/adapters/ptt, pkg/adapters/catcontrol or pkg/adapters/hamlib),
// and the control/data TCP surfaces (pkg/adapters/tcp) described in
// §6.
//
// CLI parsing itself is out of scope of the specification (§1), but a
// runnable core still needs some way to pick a callsign, audio device
// and PTT backend at startup; this follows the teacher's own
// cmd/kissutil in using github.com/spf13/pflag for that, plus an
// optional YAML override file in the style of the teacher's
// deviceid.go.
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/Rhizomatica/mercury-sub000/pkg/adapters/audio"
	"github.com/Rhizomatica/mercury-sub000/pkg/adapters/catcontrol"
	"github.com/Rhizomatica/mercury-sub000/pkg/adapters/hamlib"
	"github.com/Rhizomatica/mercury-sub000/pkg/adapters/ptt"
	"github.com/Rhizomatica/mercury-sub000/pkg/adapters/tcp"
	"github.com/Rhizomatica/mercury-sub000/pkg/arq"
	"github.com/Rhizomatica/mercury-sub000/pkg/fsm"
	"github.com/Rhizomatica/mercury-sub000/pkg/physical"
	"github.com/Rhizomatica/mercury-sub000/pkg/ring"
)

func main() {
	callsign := pflag.StringP("callsign", "c", "NOCALL", "Local station callsign (MYCALL)")
	initialMode := pflag.IntP("initial-mode", "m", 0, "Initial physical-layer mode, 0-6 (Config0 is most robust)")
	configPath := pflag.String("config", "", "Optional YAML file overriding these defaults")
	controlAddr := pflag.String("control-addr", "127.0.0.1:8500", "Control TCP surface listen address (§6)")
	dataAddr := pflag.String("data-addr", "127.0.0.1:8501", "Data TCP surface listen address (§6)")
	framesPerCallback := pflag.Int("audio-frames", 2048, "portaudio frames per callback")
	pttBackend := pflag.String("ptt", "none", "PTT backend: gpio, serial, hamlib, or none")
	gpioChip := pflag.String("gpio-chip", "gpiochip0", "gpiochar device for --ptt=gpio")
	gpioLine := pflag.Int("gpio-line", 17, "GPIO line offset for --ptt=gpio")
	catDevice := pflag.String("cat-device", "", "Serial CAT device for bandwidth switching (and --ptt=serial keying)")
	catBaud := pflag.Int("cat-baud", 9600, "Serial CAT device baud rate")
	hamlibModel := pflag.Int("hamlib-model", 0, "Hamlib rig model id for --ptt=hamlib")
	hamlibPort := pflag.String("hamlib-port", "/dev/ttyUSB0", "Hamlib control port for --ptt=hamlib")
	timestampFormat := pflag.StringP("timestamp-format", "T", "", "Precede data-frame log lines with this 'strftime' format time stamp")
	pflag.Parse()

	logger := log.New(os.Stderr)
	logger.SetLevel(log.InfoLevel)

	file, err := loadFileConfig(*configPath)
	if err != nil {
		logger.Fatal("loading config file", "path", *configPath, "err", err)
	}
	applyFileConfig(file, callsign, controlAddr, dataAddr, pttBackend, gpioChip, catDevice, gpioLine, catBaud, hamlibModel, hamlibPort, framesPerCallback, initialMode)

	mode := physical.Mode(*initialMode)
	physEngine, err := physical.NewEngine(mode)
	if err != nil {
		logger.Fatal("loading initial physical-layer mode", "mode", mode, "err", err)
	}
	dsp := &dspGuard{eng: physEngine}
	params := dsp.Params()

	arqEngine := arq.NewEngine(*callsign, arq.DefaultConfig())

	txBytes := ring.NewSPSC[byte](1 << 16)
	rxBytes := ring.NewSPSC[byte](1 << 16)
	arqEngine.SetTxBuffer(txBytes)

	capture := ring.NewSPSC[float64](int(params.SampleRate()) * 2)
	playback := ring.NewSPSC[float64](int(params.SampleRate()) * 2)
	dev, err := audio.Open(params.SampleRate(), *framesPerCallback, capture, playback)
	if err != nil {
		logger.Fatal("opening audio device", "err", err)
	}
	defer dev.Close()
	if err := dev.Start(); err != nil {
		logger.Fatal("starting audio stream", "err", err)
	}

	keyer, closeKeyer := buildKeyer(logger, *pttBackend, *gpioChip, *gpioLine, *catDevice, *catBaud, hamlib.Model(*hamlibModel), *hamlibPort)
	defer closeKeyer()
	pttCtl := ptt.NewController(keyer, ptt.DefaultTiming(params.SampleRate()))

	setBandwidth, closeBandwidth := buildBandwidthSetter(logger, *pttBackend, *catDevice, *catBaud, hamlib.Model(*hamlibModel), *hamlibPort, keyer)
	defer closeBandwidth()

	controlSrv := tcp.NewControlServer(arqEngine)
	dataSrv := tcp.NewDataServer(txBytes, rxBytes)

	arqEngine.SetCallbacks(
		func(caller, callee string) {
			logger.Info("connection established", "caller", caller, "callee", callee)
			controlSrv.NotifyConnected(caller, callee, arqEngine.BandwidthHz())
		},
		func() {
			logger.Info("connection dropped")
			controlSrv.NotifyDisconnected()
		},
		func(m physical.Mode) {
			logger.Info("gear shift", "mode", m)
			if err := dsp.Reconfigure(m); err != nil {
				logger.Error("reconfiguring physical layer", "mode", m, "err", err)
			}
		},
		func(on bool) {
			controlSrv.NotifyPTT(on)
		},
	)
	arqEngine.OnBandwidth(setBandwidth)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := newDSPWorker(arqEngine, dsp, dev, pttCtl, rxBytes, logger, *timestampFormat)

	machine := fsm.New(arq.LinkIdle, 64, worker.handle)
	machine.OnTransition(func(from, to arq.LinkStatus) {
		logger.Info("link state", "from", from, "to", to)
	})
	go machine.Run(ctx)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); worker.rxLoop(ctx, machine) }()
	go func() { defer wg.Done(); worker.txLoop(ctx, txBytes) }()
	go func() { defer wg.Done(); worker.timerLoop(ctx, machine, controlSrv) }()

	controlLn, err := net.Listen("tcp", *controlAddr)
	if err != nil {
		logger.Fatal("listening on control address", "addr", *controlAddr, "err", err)
	}
	dataLn, err := net.Listen("tcp", *dataAddr)
	if err != nil {
		logger.Fatal("listening on data address", "addr", *dataAddr, "err", err)
	}
	go controlSrv.Serve(controlLn)
	go dataSrv.Serve(dataLn)

	logger.Info("mercury-modem ready", "callsign", *callsign, "mode", mode, "control", *controlAddr, "data", *dataAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	cancel()
	controlLn.Close()
	dataLn.Close()
	txBytes.Close()
	rxBytes.Close()
	wg.Wait()
}

func applyFileConfig(file fileConfig, callsign, controlAddr, dataAddr, pttBackend, gpioChip, catDevice *string, gpioLine, catBaud, hamlibModel *int, hamlibPort *string, framesPerCallback, initialMode *int) {
	if file.Callsign != "" {
		*callsign = file.Callsign
	}
	if file.ControlAddr != "" {
		*controlAddr = file.ControlAddr
	}
	if file.DataAddr != "" {
		*dataAddr = file.DataAddr
	}
	if file.PTTBackend != "" {
		*pttBackend = file.PTTBackend
	}
	if file.GPIOChip != "" {
		*gpioChip = file.GPIOChip
	}
	if file.GPIOLine != 0 {
		*gpioLine = file.GPIOLine
	}
	if file.CATDevice != "" {
		*catDevice = file.CATDevice
	}
	if file.CATBaud != 0 {
		*catBaud = file.CATBaud
	}
	if file.HamlibModel != 0 {
		*hamlibModel = file.HamlibModel
	}
	if file.HamlibPort != "" {
		*hamlibPort = file.HamlibPort
	}
	if file.AudioFramesPerCall != 0 {
		*framesPerCallback = file.AudioFramesPerCall
	}
	if file.InitialMode != 0 {
		*initialMode = file.InitialMode
	}
}

// dspGuard serializes access to the physical-layer façade: §5's
// half-duplex assumption means TX and RX never run concurrently in
// practice, but a gear-shift mode reload (triggered from the arq
// Machine's goroutine) can race either worker, so every entry point is
// funneled through one mutex.
type dspGuard struct {
	mu  sync.Mutex
	eng *physical.Engine
}

func (g *dspGuard) Transmit(data []byte) ([]float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.eng.TransmitByte(data)
}

func (g *dspGuard) Receive(samples []float64) ([]byte, physical.Stats, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.eng.ReceiveByte(samples)
}

func (g *dspGuard) Reconfigure(mode physical.Mode) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.eng.LoadConfiguration(mode)
}

func (g *dspGuard) Params() physical.ModeParams {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.eng.Params()
}

// buildKeyer opens the requested PTT keying backend. "none" is valid
// for bench-testing without a radio attached: SetPTT becomes a no-op.
func buildKeyer(logger *log.Logger, backend, gpioChip string, gpioLine int, catDevice string, catBaud int, hamlibModel hamlib.Model, hamlibPort string) (ptt.Line, func()) {
	switch backend {
	case "gpio":
		line, err := ptt.OpenGPIO(gpioChip, gpioLine)
		if err != nil {
			logger.Fatal("opening GPIO PTT line", "chip", gpioChip, "line", gpioLine, "err", err)
		}
		return line, func() { line.Close() }
	case "serial":
		if catDevice == "" {
			logger.Fatal("--ptt=serial requires --cat-device")
		}
		line, err := ptt.OpenSerial(catDevice, ptt.RTS)
		if err != nil {
			logger.Fatal("opening serial PTT line", "device", catDevice, "err", err)
		}
		return line, func() { line.Close() }
	case "hamlib":
		rig, err := hamlib.Open(hamlibModel, hamlibPort)
		if err != nil {
			logger.Fatal("opening Hamlib rig", "model", hamlibModel, "port", hamlibPort, "err", err)
		}
		return rig, func() { rig.Close() }
	default:
		return noopLine{}, func() {}
	}
}

// buildBandwidthSetter wires §6's BW2300/BW2500 control command to
// whichever backend can actually change the rig's IF filter: a Hamlib
// rig already opened as the PTT keyer, or a dedicated CAT serial port
// (which may be the same physical port used for RTS/DTR PTT, or a
// second one, e.g. on rigs whose CAT protocol ignores RTS).
func buildBandwidthSetter(logger *log.Logger, pttBackend, catDevice string, catBaud int, hamlibModel hamlib.Model, hamlibPort string, keyer ptt.Line) (func(hz int) error, func()) {
	if pttBackend == "hamlib" {
		if rig, ok := keyer.(*hamlib.Rig); ok {
			return rig.SetBandwidth, func() {}
		}
	}
	if catDevice == "" {
		return func(int) error { return nil }, func() {}
	}
	port, err := catcontrol.Open(catDevice, catBaud)
	if err != nil {
		logger.Fatal("opening CAT bandwidth port", "device", catDevice, "err", err)
	}
	return func(hz int) error { return port.SetBandwidth(catcontrol.Bandwidth(hz)) }, func() { port.Close() }
}

type noopLine struct{}

func (noopLine) SetPTT(bool) error { return nil }
func (noopLine) Close() error      { return nil }
