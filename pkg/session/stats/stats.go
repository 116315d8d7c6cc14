// Package stats holds the ARQ engine's message counters.
package stats

import "sync/atomic"

// Direction names the two link directions. Counters is not split by
// direction: one Counters value holds a single set covering both.
type Direction int

const (
	DirOutbound Direction = iota
	DirInbound
)

// Counters tracks sent/acked/received/lost/resent messages (plus failed
// for data), data and control tracked separately; there is no NACK
// counter. Every field is an atomic
// int64 so the ARQ worker and a statistics-printing goroutine can share
// them without a lock, per §5's "Statistics counters may be atomic
// integers."
type Counters struct {
	DataSent     int64
	DataAcked    int64
	DataReceived int64
	DataLost     int64
	DataResent   int64
	DataFailed   int64

	ControlSent     int64
	ControlAcked    int64
	ControlReceived int64
	ControlLost     int64
	ControlResent   int64
}

func (c *Counters) IncDataSent()     { atomic.AddInt64(&c.DataSent, 1) }
func (c *Counters) IncDataAcked()    { atomic.AddInt64(&c.DataAcked, 1) }
func (c *Counters) IncDataReceived() { atomic.AddInt64(&c.DataReceived, 1) }
func (c *Counters) IncDataLost()     { atomic.AddInt64(&c.DataLost, 1) }
func (c *Counters) IncDataResent()   { atomic.AddInt64(&c.DataResent, 1) }
func (c *Counters) IncDataFailed()   { atomic.AddInt64(&c.DataFailed, 1) }

func (c *Counters) IncControlSent()     { atomic.AddInt64(&c.ControlSent, 1) }
func (c *Counters) IncControlAcked()    { atomic.AddInt64(&c.ControlAcked, 1) }
func (c *Counters) IncControlReceived() { atomic.AddInt64(&c.ControlReceived, 1) }
func (c *Counters) IncControlLost()     { atomic.AddInt64(&c.ControlLost, 1) }
func (c *Counters) IncControlResent()   { atomic.AddInt64(&c.ControlResent, 1) }

// Snapshot is a point-in-time, non-atomic copy suitable for logging.
type Snapshot struct {
	DataSent, DataAcked, DataReceived, DataLost, DataResent, DataFailed int64
	ControlSent, ControlAcked, ControlReceived, ControlLost, ControlResent int64
}

// Snapshot reads every counter with Load, giving a consistent-enough
// view for periodic logging (not a transactional snapshot).
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		DataSent:     atomic.LoadInt64(&c.DataSent),
		DataAcked:    atomic.LoadInt64(&c.DataAcked),
		DataReceived: atomic.LoadInt64(&c.DataReceived),
		DataLost:     atomic.LoadInt64(&c.DataLost),
		DataResent:   atomic.LoadInt64(&c.DataResent),
		DataFailed:   atomic.LoadInt64(&c.DataFailed),

		ControlSent:     atomic.LoadInt64(&c.ControlSent),
		ControlAcked:    atomic.LoadInt64(&c.ControlAcked),
		ControlReceived: atomic.LoadInt64(&c.ControlReceived),
		ControlLost:     atomic.LoadInt64(&c.ControlLost),
		ControlResent:   atomic.LoadInt64(&c.ControlResent),
	}
}
