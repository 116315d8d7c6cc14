package arq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DataBatchSize = 4
	cfg.AckTimeout = 10 * time.Millisecond
	cfg.NResends = 2
	return cfg
}

func TestBatchEnqueueAndPad(t *testing.T) {
	cfg := testConfig()
	b := NewBatch(cfg)
	id0, ok := b.Enqueue([]byte("a"))
	require.True(t, ok)
	id1, ok := b.Enqueue([]byte("b"))
	require.True(t, ok)

	padded := b.PadForTransmission()
	assert.Len(t, padded, cfg.DataBatchSize, "short batches are padded by cyclic replay")
	assert.Equal(t, id0, padded[0].ID)
	assert.Equal(t, id1, padded[1].ID)
}

func TestBatchRejectsOverflow(t *testing.T) {
	cfg := testConfig()
	cfg.DataBatchSize = 1
	b := NewBatch(cfg)
	_, ok := b.Enqueue([]byte("a"))
	require.True(t, ok)
	_, ok = b.Enqueue([]byte("b"))
	assert.False(t, ok)
}

// TestAckTransitionsOnlyFromPendingOrTimedOut is the §8 property: every
// id that reaches ACKED transitioned from exactly one of
// {PENDING_ACK, ACK_TIMED_OUT}.
func TestAckTransitionsOnlyFromPendingOrTimedOut(t *testing.T) {
	cfg := testConfig()
	b := NewBatch(cfg)
	id, _ := b.Enqueue([]byte("a"))

	slot, _ := b.Slot(id)
	assert.False(t, slot.Ack(), "PENDING slots cannot be acked directly")

	slot.MarkSent(time.Now())
	assert.True(t, slot.Ack())
	assert.Equal(t, SlotAcked, slot.State)
}

func TestTimeoutSchedulesRetryThenFails(t *testing.T) {
	cfg := testConfig()
	b := NewBatch(cfg)
	id, _ := b.Enqueue([]byte("a"))
	slot, _ := b.Slot(id)
	slot.MarkSent(time.Now().Add(-cfg.AckTimeout * 2))

	b.ExpireTimeouts(time.Now())
	assert.Equal(t, SlotPending, slot.State, "first timeout rearms for retry")
	assert.Equal(t, 1, slot.Retries)

	slot.MarkSent(time.Now().Add(-cfg.AckTimeout * 2))
	b.ExpireTimeouts(time.Now())
	slot.MarkSent(time.Now().Add(-cfg.AckTimeout * 2))
	b.ExpireTimeouts(time.Now())
	assert.Equal(t, SlotFailed, slot.State, "exceeding nResends fails the id")
}

func TestBatchDoneRequiresTerminalStates(t *testing.T) {
	cfg := testConfig()
	b := NewBatch(cfg)
	id, _ := b.Enqueue([]byte("a"))
	assert.False(t, b.Done())
	slot, _ := b.Slot(id)
	slot.MarkSent(time.Now())
	slot.Ack()
	assert.True(t, b.Done())
}
