package arq

import "time"

// Batch manages the commander side of batched selective repeat for one
// connection: up to Config.DataBatchSize outstanding message slots,
// keyed by id, per §4.4.
type Batch struct {
	cfg   Config
	slots map[byte]*Slot
	order []byte // insertion order, for padding replay
	nextID byte
}

// NewBatch creates an empty batch bound to cfg.
func NewBatch(cfg Config) *Batch {
	return &Batch{cfg: cfg, slots: make(map[byte]*Slot)}
}

// Enqueue adds a new PENDING message to the batch, returning its
// assigned id, or false if the batch is already at DataBatchSize.
func (b *Batch) Enqueue(payload []byte) (byte, bool) {
	if len(b.slots) >= b.cfg.DataBatchSize {
		return 0, false
	}
	id := b.nextID
	b.nextID++
	b.slots[id] = &Slot{ID: id, Payload: payload, State: SlotPending}
	b.order = append(b.order, id)
	return id, true
}

// Pending returns the ids currently eligible for transmission (PENDING
// state: either never sent, or rearmed by ScheduleRetry).
func (b *Batch) Pending() []byte {
	var ids []byte
	for _, id := range b.order {
		if s, ok := b.slots[id]; ok && s.State == SlotPending {
			ids = append(ids, id)
		}
	}
	return ids
}

// PadForTransmission returns exactly DataBatchSize payload/id pairs to
// send, replaying earlier (already-sent) messages cyclically to pad a
// short batch out to the configured size, per §4.4: "If the current
// batch has fewer than the batch size worth of messages, the engine
// replays earlier messages cyclically to fill to the configured batch
// size." Replayed ids keep their PENDING_ACK/ACKED state untouched —
// only the fresh PENDING ones are state-transitioned by MarkSent.
func (b *Batch) PadForTransmission() []*Slot {
	pending := b.Pending()
	var out []*Slot
	for _, id := range pending {
		out = append(out, b.slots[id])
	}
	if len(out) == 0 && len(b.order) == 0 {
		return nil
	}
	i := 0
	for len(out) < b.cfg.DataBatchSize && len(b.order) > 0 {
		id := b.order[i%len(b.order)]
		out = append(out, b.slots[id])
		i++
	}
	if len(out) > b.cfg.DataBatchSize {
		out = out[:b.cfg.DataBatchSize]
	}
	return out
}

// AckIDs marks every id in ids ACKED (the ACK_MULTI case); ACK_RANGE
// is handled by AckRange.
func (b *Batch) AckIDs(ids []byte) {
	for _, id := range ids {
		if s, ok := b.slots[id]; ok {
			s.Ack()
		}
	}
}

// AckRange marks every id in the inclusive [start,end] range ACKED.
func (b *Batch) AckRange(start, end byte) {
	for id := start; ; id++ {
		if s, ok := b.slots[id]; ok {
			s.Ack()
		}
		if id == end {
			break
		}
	}
}

// ExpireTimeouts walks every PENDING_ACK slot and, if its ack_timer has
// fired, transitions it to ACK_TIMED_OUT then schedules its retry
// (possibly to FAILED if nResends is exceeded).
func (b *Batch) ExpireTimeouts(now time.Time) {
	for _, id := range b.order {
		s := b.slots[id]
		if s.CheckTimeout(now, b.cfg.AckTimeout) {
			s.ScheduleRetry(b.cfg.NResends)
		}
	}
}

// Done reports whether every slot in the batch has reached a terminal
// state (ACKED or FAILED).
func (b *Batch) Done() bool {
	for _, s := range b.slots {
		if s.State != SlotAcked && s.State != SlotFailed {
			return false
		}
	}
	return true
}

// Slot looks up a slot by id.
func (b *Batch) Slot(id byte) (*Slot, bool) {
	s, ok := b.slots[id]
	return s, ok
}
