// Package tcp is the control/data TCP surface (§6): two line- and
// byte-oriented socket servers that let an external front-end (GUI,
// CLI, another process) drive the ARQ engine without linking against
// it directly. Grounded on the teacher's kissnet.go/server.go accept-loop
// shape (net.Listen, SO_REUSEADDR, one goroutine per accepted client)
// and on the line-oriented command vocabulary and parsing style of
// other_examples/58523aa5_LA5NTA-wl2k-go's ardop `command.go` (an ARQ
// modem's own TNC control protocol, the closest domain analogue in the
// pack to §6's MYCALL/LISTEN/CONNECT/DISCONNECT/BW/BUFFER command set).
package tcp

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Session is the subset of the ARQ engine the control surface drives.
// Kept as an interface so this package doesn't import pkg/arq directly
// and can be tested against a fake.
type Session interface {
	SetCallsign(callsign string)
	Listen(on bool)
	Connect(src, dst string) error
	Disconnect() error
	SetBandwidth(hz int) error
	BufferedTxBytes() int
}

// ControlServer implements §6's control TCP surface: line-oriented
// ASCII commands terminated by \r, replying synchronously and pushing
// asynchronous events (PTT, IAMALIVE, CONNECTED/DISCONNECTED) to every
// attached client.
type ControlServer struct {
	session Session
	log     *log.Logger

	mu      sync.Mutex
	clients map[net.Conn]struct{}
}

// NewControlServer wires a ControlServer to the given Session.
func NewControlServer(session Session) *ControlServer {
	return &ControlServer{
		session: session,
		log:     log.With("component", "tcp-control"),
		clients: make(map[net.Conn]struct{}),
	}
}

// Serve accepts connections on addr until the listener is closed or
// ln.Accept fails, spawning one goroutine per client per §5's
// "per-port TCP accept/read/write workers."
func (s *ControlServer) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		s.addClient(conn)
		go s.serveClient(conn)
	}
}

func (s *ControlServer) addClient(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *ControlServer) removeClient(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c)
}

func (s *ControlServer) serveClient(conn net.Conn) {
	defer conn.Close()
	defer s.removeClient(conn)

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\r')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		reply := s.dispatch(line)
		if reply != "" {
			if _, err := conn.Write([]byte(reply)); err != nil {
				return
			}
		}
	}
}

// dispatch implements §6's command table.
func (s *ControlServer) dispatch(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "WRONG\r"
	}
	cmd := strings.ToUpper(fields[0])

	switch cmd {
	case "MYCALL":
		if len(fields) != 2 {
			return "WRONG\r"
		}
		s.session.SetCallsign(fields[1])
		return "OK\r"

	case "LISTEN":
		if len(fields) != 2 {
			return "WRONG\r"
		}
		switch strings.ToUpper(fields[1]) {
		case "ON":
			s.session.Listen(true)
		case "OFF":
			s.session.Listen(false)
		default:
			return "WRONG\r"
		}
		return "OK\r"

	case "CONNECT":
		if len(fields) != 3 {
			return "WRONG\r"
		}
		if err := s.session.Connect(fields[1], fields[2]); err != nil {
			s.log.Error("connect failed", "err", err)
			return "WRONG\r"
		}
		return "OK\r"

	case "DISCONNECT":
		if err := s.session.Disconnect(); err != nil {
			s.log.Warn("disconnect with no active connection", "err", err)
		}
		return "OK\r"

	case "BW2300":
		if err := s.session.SetBandwidth(2300); err != nil {
			return "WRONG\r"
		}
		return "OK\r"

	case "BW2500":
		if err := s.session.SetBandwidth(2500); err != nil {
			return "WRONG\r"
		}
		return "OK\r"

	case "BUFFER":
		if len(fields) != 2 || strings.ToUpper(fields[1]) != "TX" {
			return "WRONG\r"
		}
		return fmt.Sprintf("BUFFER %d\r", s.session.BufferedTxBytes())
	}
	return "WRONG\r"
}

// Broadcast sends an asynchronous event line (PTT ON/OFF, IAMALIVE,
// CONNECTED .../DISCONNECTED) to every currently attached client, per
// §6's "Asynchronous events to the client."
func (s *ControlServer) Broadcast(line string) {
	s.mu.Lock()
	clients := make([]net.Conn, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if _, err := c.Write([]byte(line)); err != nil {
			s.log.Warn("broadcast write failed", "err", err)
		}
	}
}

// NotifyPTT implements the `PTT ON\r` / `PTT OFF\r` async events.
func (s *ControlServer) NotifyPTT(on bool) {
	if on {
		s.Broadcast("PTT ON\r")
	} else {
		s.Broadcast("PTT OFF\r")
	}
}

// NotifyConnected implements `CONNECTED <src> <dst> <bw>\r`.
func (s *ControlServer) NotifyConnected(src, dst string, bandwidthHz int) {
	s.Broadcast(fmt.Sprintf("CONNECTED %s %s %d\r", src, dst, bandwidthHz))
}

// NotifyDisconnected implements `DISCONNECTED\r`.
func (s *ControlServer) NotifyDisconnected() {
	s.Broadcast("DISCONNECTED\r")
}

// NotifyAlive implements `IAMALIVE\r`, sent once per minute per §6; the
// caller is expected to drive this from a time.Ticker.
func (s *ControlServer) NotifyAlive() {
	s.Broadcast("IAMALIVE\r")
}
