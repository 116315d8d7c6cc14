package ptt

import (
	"testing"
	"time"
)

type fakeLine struct {
	asserted bool
	calls    []bool
}

func (f *fakeLine) SetPTT(on bool) error {
	f.asserted = on
	f.calls = append(f.calls, on)
	return nil
}

func (f *fakeLine) Close() error { return nil }

func TestControllerKeySequence(t *testing.T) {
	line := &fakeLine{}
	timing := Timing{
		OnDelay:       5 * time.Millisecond,
		OffDelay:      1 * time.Millisecond,
		PlaybackDrain: 1 * time.Millisecond,
		PilotTone:     250,
		SampleRateHz:  8000,
	}
	c := NewController(line, timing)

	tone, err := c.Key()
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if !line.asserted {
		t.Fatalf("PTT not asserted after Key")
	}
	if len(tone) == 0 {
		t.Fatalf("expected pilot tone samples, got none")
	}

	if err := c.Unkey(); err != nil {
		t.Fatalf("Unkey: %v", err)
	}
	if line.asserted {
		t.Fatalf("PTT still asserted after Unkey")
	}
	if len(line.calls) != 2 || line.calls[0] != true || line.calls[1] != false {
		t.Fatalf("unexpected call sequence: %v", line.calls)
	}
}

func TestControllerNoPilotTone(t *testing.T) {
	line := &fakeLine{}
	c := NewController(line, Timing{})
	tone, err := c.Key()
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if tone != nil {
		t.Fatalf("expected nil tone when PilotTone unset, got %d samples", len(tone))
	}
	_ = c.Unkey()
}
