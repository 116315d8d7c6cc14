package arq

import "time"

// Config unifies the two overlapping `cl_configuration_arq` structs
// found in original_source/ into one authoritative set, per the spec's
// Design Note (b): only the fields §4.4 and §6 actually reference are
// kept, since the duplication there reads as incremental growth of one
// logical configuration rather than two semantically distinct ones.
type Config struct {
	DataBatchSize int // max outstanding data messages per commander batch
	AckBatchSize  int // max ACK frames per responder reply

	AckTimeout        time.Duration
	NResends          int
	SwitchRoleTimeout time.Duration
	LinkTimeout       time.Duration // default 100s, per §4.4
	ConnectionTimeout time.Duration

	AdaptiveModeEnabled bool
	GearShiftPeriod     time.Duration // period between TEST_CONNECTION exchanges

	InterFrameSilence time.Duration // end-of-transmission detection threshold
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		DataBatchSize:       8,
		AckBatchSize:        8,
		AckTimeout:          4 * time.Second,
		NResends:            5,
		SwitchRoleTimeout:   10 * time.Second,
		LinkTimeout:         100 * time.Second,
		ConnectionTimeout:   30 * time.Second,
		AdaptiveModeEnabled: true,
		GearShiftPeriod:     30 * time.Second,
		InterFrameSilence:   200 * time.Millisecond,
	}
}

// GearShiftSafetyFrames returns the frame-time count, per §4.4's
// secondary safety: "(nResends/2)*(data_batch_size+ack_batch_size+3)
// frame-times of no successful decodes" before both sides fall back to
// Config0.
func (c Config) GearShiftSafetyFrames() int {
	return (c.NResends / 2) * (c.DataBatchSize + c.AckBatchSize + 3)
}
