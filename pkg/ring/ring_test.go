package ring

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSPSCBasicRoundTrip(t *testing.T) {
	b := NewSPSC[byte](8)
	assert.NoError(t, b.Write([]byte("abcd")))
	assert.Equal(t, 4, b.Len())
	dst := make([]byte, 4)
	assert.NoError(t, b.Read(dst))
	assert.Equal(t, []byte("abcd"), dst)
}

func TestSPSCBlocksUntilAvailable(t *testing.T) {
	b := NewSPSC[byte](4)
	done := make(chan []byte, 1)
	go func() {
		dst := make([]byte, 3)
		_ = b.Read(dst)
		done <- dst
	}()
	_ = b.Write([]byte{1})
	_ = b.Write([]byte{2, 3})
	got := <-done
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestSPSCCloseUnblocks(t *testing.T) {
	b := NewSPSC[byte](4)
	errc := make(chan error, 1)
	go func() {
		errc <- b.Read(make([]byte, 10))
	}()
	b.Close()
	assert.ErrorIs(t, <-errc, ErrClosed)
}

// TestInterleavedReadWriteNeverDeadlocks is the §8 ring buffer property:
// interleaved random-size writes and reads over a large byte count with a
// small fixed capacity preserve order and never deadlock.
func TestInterleavedReadWriteNeverDeadlocks(t *testing.T) {
	const total = 1 << 16
	const capacity = 4096
	b := NewSPSC[byte](capacity)

	src := make([]byte, total)
	rand.New(rand.NewSource(1)).Read(src)

	var wg sync.WaitGroup
	wg.Add(2)
	var received []byte

	go func() {
		defer wg.Done()
		defer b.Close()
		off := 0
		r := rand.New(rand.NewSource(2))
		for off < total {
			n := 1 + r.Intn(500)
			if off+n > total {
				n = total - off
			}
			_ = b.Write(src[off : off+n])
			off += n
		}
	}()

	go func() {
		defer wg.Done()
		r := rand.New(rand.NewSource(3))
		for {
			n := 1 + r.Intn(500)
			chunk := make([]byte, n)
			if err := b.Read(chunk); err != nil {
				// Drain whatever is left without blocking forever.
				for {
					got := make([]byte, 256)
					k := b.TryRead(got)
					if k == 0 {
						return
					}
					received = append(received, got[:k]...)
				}
			}
			received = append(received, chunk...)
			if len(received) >= total {
				return
			}
		}
	}()

	wg.Wait()
	if len(received) > total {
		received = received[:total]
	}
	assert.Equal(t, src, received)
}

func TestRingBufferPropertyPreservesOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 64).Draw(rt, "capacity")
		n := rapid.IntRange(0, 256).Draw(rt, "n")
		src := make([]byte, n)
		for i := range src {
			src[i] = byte(i)
		}
		b := NewSPSC[byte](capacity)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Write(src)
		}()
		dst := make([]byte, n)
		_ = b.Read(dst)
		wg.Wait()
		assert.Equal(rt, src, dst)
	})
}

func TestBroadcastFansOutToAllSubscribers(t *testing.T) {
	br := NewBroadcast[int]()
	a := br.Subscribe(4)
	c := br.Subscribe(4)
	br.Publish([]int{1, 2, 3})

	da := make([]int, 3)
	dc := make([]int, 3)
	assert.NoError(t, a.Read(da))
	assert.NoError(t, c.Read(dc))
	assert.Equal(t, []int{1, 2, 3}, da)
	assert.Equal(t, []int{1, 2, 3}, dc)
}
