package fsm

import (
	"context"
	"sync"
	"testing"
	"time"
)

type trafficState int

const (
	stateRed trafficState = iota
	stateGreen
)

type advanceEvent struct{}

func TestMachineDispatchesAndTransitions(t *testing.T) {
	m := New[trafficState](stateRed, 4, func(s trafficState, e Event) trafficState {
		switch e.(type) {
		case advanceEvent:
			if s == stateRed {
				return stateGreen
			}
			return stateRed
		}
		return s
	})

	var mu sync.Mutex
	var transitions []string
	m.OnTransition(func(from, to trafficState) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, stateName(from)+"->"+stateName(to))
	})

	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)

	m.Post(advanceEvent{})
	waitForState(t, m, stateGreen)
	m.Post(advanceEvent{})
	waitForState(t, m, stateRed)

	cancel()

	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != 2 || transitions[0] != "red->green" || transitions[1] != "green->red" {
		t.Fatalf("unexpected transitions: %v", transitions)
	}
}

func TestTryPostDoesNotBlockWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	m := New[trafficState](stateRed, 1, func(s trafficState, e Event) trafficState {
		<-block
		return s
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	m.Post(advanceEvent{}) // occupies the single worker, blocked on <-block
	time.Sleep(10 * time.Millisecond)
	if !m.TryPost(advanceEvent{}) {
		t.Fatalf("expected first buffered TryPost to succeed")
	}
	if m.TryPost(advanceEvent{}) {
		t.Fatalf("expected TryPost to fail once queue is full")
	}
	close(block)
}

func TestPoolRunsAllJobs(t *testing.T) {
	p := NewPool(3)
	var mu sync.Mutex
	sum := 0
	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		n := i
		p.Submit(func() {
			defer wg.Done()
			mu.Lock()
			sum += n
			mu.Unlock()
		})
	}
	wg.Wait()
	p.Close()
	if sum != 55 {
		t.Fatalf("sum = %d, want 55", sum)
	}
}

func stateName(s trafficState) string {
	if s == stateRed {
		return "red"
	}
	return "green"
}

func waitForState(t *testing.T, m *Machine[trafficState], want trafficState) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if m.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %v, got %v", want, m.State())
}
