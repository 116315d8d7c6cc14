package arq

import "time"

// SlotState is a message slot's position in the batched selective-repeat
// lifecycle, per §4.4 and §7's error-handling table.
type SlotState int

const (
	SlotPending SlotState = iota
	SlotPendingAck
	SlotAckTimedOut
	SlotAcked
	SlotFailed
)

func (s SlotState) String() string {
	switch s {
	case SlotPending:
		return "PENDING"
	case SlotPendingAck:
		return "PENDING_ACK"
	case SlotAckTimedOut:
		return "ACK_TIMED_OUT"
	case SlotAcked:
		return "ACKED"
	case SlotFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Slot holds one outstanding message and its retransmission bookkeeping.
type Slot struct {
	ID      byte
	Payload []byte
	State   SlotState
	Retries int
	SentAt  time.Time
}

// MarkSent transitions the slot to PENDING_ACK and stamps its send time,
// starting the per-message ack_timer (§5's "Cancellation and timeout
// semantics").
func (s *Slot) MarkSent(now time.Time) {
	s.State = SlotPendingAck
	s.SentAt = now
}

// CheckTimeout transitions a PENDING_ACK slot to ACK_TIMED_OUT if
// ackTimeout has elapsed since it was sent, returning whether it fired.
func (s *Slot) CheckTimeout(now time.Time, ackTimeout time.Duration) bool {
	if s.State != SlotPendingAck {
		return false
	}
	if now.Sub(s.SentAt) < ackTimeout {
		return false
	}
	s.State = SlotAckTimedOut
	return true
}

// ScheduleRetry bumps the retry counter and either re-arms the slot as
// PENDING (eligible for the next batch) or marks it FAILED once
// nResends is exceeded, per §4.4: "after nResends failures the id is
// marked FAILED."
func (s *Slot) ScheduleRetry(nResends int) {
	s.Retries++
	if s.Retries > nResends {
		s.State = SlotFailed
		return
	}
	s.State = SlotPending
}

// Ack transitions the slot to ACKED. Per §8's invariant, this is only
// valid from PENDING_ACK or ACK_TIMED_OUT.
func (s *Slot) Ack() bool {
	if s.State != SlotPendingAck && s.State != SlotAckTimedOut {
		return false
	}
	s.State = SlotAcked
	return true
}
