package arq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTripAllTypes(t *testing.T) {
	cases := []*Frame{
		{Type: TypeDataLong, ConnectionID: 1, Sequence: 2, MessageID: 3, Payload: []byte{9, 8, 7}},
		{Type: TypeDataShort, ConnectionID: 1, Sequence: 2, MessageID: 3, Length: 2, Payload: []byte{9, 8}},
		{Type: TypeAckRange, ConnectionID: 1, Sequence: 2, MessageID: 3, RangeStart: 5, RangeEnd: 9},
		{Type: TypeAckMulti, ConnectionID: 1, Sequence: 2, MessageID: 3, MultiIDs: []byte{1, 4, 7}},
		{Type: TypeControl, ConnectionID: 1, Sequence: 2, Command: CmdSetConfig, CommandArgs: []byte{4}},
		{Type: TypeAckControl, ConnectionID: 1, Sequence: 2, Command: CmdSetConfig, CommandArgs: []byte{4}},
	}
	for _, f := range cases {
		raw, err := f.Encode()
		require.NoError(t, err)
		decoded, err := DecodeFrame(raw)
		require.NoError(t, err)
		assert.Equal(t, f, decoded)
	}
}

func TestDecodeFrameRejectsTruncated(t *testing.T) {
	_, err := DecodeFrame([]byte{0x10, 1})
	assert.Error(t, err)
}

func TestConsolidateAcksPrefersRangeForm(t *testing.T) {
	frames := ConsolidateAcks(1, 0, []byte{3, 4, 5, 6, 9})
	require.Len(t, frames, 2)
	assert.Equal(t, TypeAckRange, frames[0].Type)
	assert.Equal(t, byte(3), frames[0].RangeStart)
	assert.Equal(t, byte(6), frames[0].RangeEnd)
	assert.Equal(t, TypeAckMulti, frames[1].Type)
	assert.Equal(t, []byte{9}, frames[1].MultiIDs)
}

func TestConsolidateAcksAllContiguous(t *testing.T) {
	frames := ConsolidateAcks(1, 0, []byte{0, 1, 2, 3})
	require.Len(t, frames, 1)
	assert.Equal(t, TypeAckRange, frames[0].Type)
}

func TestConsolidateAcksAllScattered(t *testing.T) {
	frames := ConsolidateAcks(1, 0, []byte{1, 3, 5, 7})
	require.Len(t, frames, 1)
	assert.Equal(t, TypeAckMulti, frames[0].Type)
	assert.Equal(t, []byte{1, 3, 5, 7}, frames[0].MultiIDs)
}
