package tcp

import (
	"net"
	"testing"
	"time"

	"github.com/Rhizomatica/mercury-sub000/pkg/ring"
)

func TestDataServerClientToTx(t *testing.T) {
	tx := ring.NewSPSC[byte](64)
	rx := ring.NewSPSC[byte](64)
	srv := NewDataServer(tx, rx)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go srv.Serve(ln)

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	payload := []byte("hello mercury")
	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := make([]byte, len(payload))
	if err := tx.Read(got); err != nil {
		t.Fatalf("tx.Read: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("tx got %q, want %q", got, payload)
	}
}

func TestDataServerRxToClient(t *testing.T) {
	tx := ring.NewSPSC[byte](64)
	rx := ring.NewSPSC[byte](64)
	srv := NewDataServer(tx, rx)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go srv.Serve(ln)

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	payload := []byte("decoded frame payload")
	if err := rx.Write(payload); err != nil {
		t.Fatalf("rx.Write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got := make([]byte, len(payload))
	read := 0
	for read < len(got) {
		n, err := conn.Read(got[read:])
		if err != nil {
			t.Fatalf("conn.Read: %v", err)
		}
		read += n
	}
	if string(got) != string(payload) {
		t.Fatalf("client got %q, want %q", got, payload)
	}
}

func TestDataServerBufferedTxBytes(t *testing.T) {
	tx := ring.NewSPSC[byte](64)
	rx := ring.NewSPSC[byte](64)
	srv := NewDataServer(tx, rx)

	tx.TryWrite([]byte("abcde"))
	if got := srv.BufferedTxBytes(); got != 5 {
		t.Fatalf("BufferedTxBytes() = %d, want 5", got)
	}
}
