package catcontrol

import (
	"bufio"
	"os"
	"testing"
	"time"

	"github.com/creack/pty"
)

// openTestPort wires a Port to the slave end of a pty pair so the CAT
// framing can be exercised without a real serial port, per the DOMAIN
// STACK's note that creack/pty exists in this pack specifically for
// this package's tests.
func openTestPort(t *testing.T) (port *Port, master *os.File, cleanup func()) {
	t.Helper()
	m, s, err := pty.Open()
	if err != nil {
		t.Fatalf("pty.Open: %v", err)
	}
	p, err := Open(s.Name(), 0)
	if err != nil {
		m.Close()
		s.Close()
		t.Fatalf("catcontrol.Open: %v", err)
	}
	return p, m, func() {
		p.Close()
		m.Close()
	}
}

func TestSetBandwidthWritesExpectedFrame(t *testing.T) {
	p, master, cleanup := openTestPort(t)
	defer cleanup()
	masterReader := bufio.NewReader(master)

	done := make(chan error, 1)
	go func() {
		done <- p.SetBandwidth(BW2300)
	}()

	// The simulated rig echoes back an OK reply terminated by \r.
	line, err := masterReader.ReadString('\r')
	if err != nil {
		t.Fatalf("reading frame from pty master: %v", err)
	}
	if line != "BW 2300\r" {
		t.Fatalf("frame = %q, want %q", line, "BW 2300\r")
	}

	if _, err := master.Write([]byte("OK\r")); err != nil {
		t.Fatalf("writing rig reply: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("SetBandwidth: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for SetBandwidth to return")
	}
}

func TestSendCommandRoundTrip(t *testing.T) {
	p, master, cleanup := openTestPort(t)
	defer cleanup()
	masterReader := bufio.NewReader(master)

	replies := make(chan string, 1)
	go func() {
		reply, err := p.SendCommand("FREQ?")
		if err != nil {
			replies <- ""
			return
		}
		replies <- reply
	}()

	line, err := masterReader.ReadString('\r')
	if err != nil {
		t.Fatalf("reading command from pty master: %v", err)
	}
	if line != "FREQ?\r" {
		t.Fatalf("command = %q, want %q", line, "FREQ?\r")
	}
	if _, err := master.Write([]byte("14070000\r")); err != nil {
		t.Fatalf("writing reply: %v", err)
	}

	select {
	case reply := <-replies:
		if reply != "14070000" {
			t.Fatalf("reply = %q, want %q", reply, "14070000")
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for SendCommand to return")
	}
}
