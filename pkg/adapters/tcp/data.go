package tcp

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Rhizomatica/mercury-sub000/pkg/ring"
)

// DataServer implements §6's data TCP surface: an opaque byte stream in
// both directions. Bytes written by the client are queued onto `tx`
// for the ARQ engine to frame and transmit; bytes decoded by the ARQ
// engine are pushed onto `rx` and forwarded to the client as soon as a
// frame is received intact. Only one client is meaningfully connected
// at a time (the session is strictly two-party per spec.md §1's
// non-goals), but Serve accepts sequentially so a client can reconnect
// without restarting the server.
type DataServer struct {
	tx  *ring.SPSC[byte]
	rx  *ring.SPSC[byte]
	log *log.Logger

	mu   sync.Mutex
	conn net.Conn
}

// NewDataServer wires a DataServer to the ARQ engine's tx/rx byte
// FIFOs (§3's "Buffers").
func NewDataServer(tx, rx *ring.SPSC[byte]) *DataServer {
	return &DataServer{tx: tx, rx: rx, log: log.With("component", "tcp-data")}
}

// Serve accepts one client connection at a time from ln, pumping bytes
// in both directions until the client disconnects, then waits for the
// next one.
func (s *DataServer) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		s.serveClient(conn)
	}
}

func (s *DataServer) serveClient(conn net.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()
		conn.Close()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.pumpClientToTx(conn)
	}()
	s.pumpRxToClient(conn, done)
}

// pumpClientToTx reads bytes the client writes and blocks them onto the
// tx FIFO, per §3: "tx (outgoing payload awaiting framing)." A write
// never drops data; it blocks until the ARQ engine drains the FIFO,
// which is the resource-back-pressure policy §7 requires ("Ring-buffer
// full on TX ... write blocks; never dropped.").
func (s *DataServer) pumpClientToTx(conn net.Conn) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if werr := s.tx.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				s.log.Warn("data client read failed", "err", err)
			}
			return
		}
	}
}

// pumpRxToClient drains whatever the ARQ engine decodes onto rx and
// forwards it to the client, stopping when the client side of the pump
// (pumpClientToTx) exits.
func (s *DataServer) pumpRxToClient(conn net.Conn, done <-chan struct{}) {
	buf := make([]byte, 256)
	for {
		select {
		case <-done:
			return
		default:
		}
		n := s.rx.TryRead(buf)
		if n == 0 {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if _, err := conn.Write(buf[:n]); err != nil {
			return
		}
	}
}

// BufferedTxBytes reports how much data is still queued awaiting
// framing, implementing §6's `BUFFER TX` control command.
func (s *DataServer) BufferedTxBytes() int {
	return s.tx.Len()
}
