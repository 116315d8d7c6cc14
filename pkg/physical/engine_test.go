package physical

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeTableDerivedFieldsAreSane(t *testing.T) {
	for _, p := range ModeTable {
		assert.Greater(t, p.K(), 0)
		assert.Greater(t, p.P(), 0)
		assert.Equal(t, 1600, p.K()+p.P())
		assert.Greater(t, p.PayloadBytesPerFrame(), 0)
		assert.Greater(t, p.SampleRate(), 0.0)
		assert.Greater(t, p.BitRate(), 0.0)
	}
}

func TestGetConfigurationThresholds(t *testing.T) {
	assert.Equal(t, Config0, GetConfiguration(5))
	assert.Equal(t, Config0, GetConfiguration(10))
	assert.Equal(t, Config1, GetConfiguration(10.1))
	assert.Equal(t, Config2, GetConfiguration(25))
	assert.Equal(t, Config3, GetConfiguration(32))
	assert.Equal(t, Config4, GetConfiguration(34))
	assert.Equal(t, Config5, GetConfiguration(38))
	assert.Equal(t, Config6, GetConfiguration(55))
}

// TestTransmitReceiveRoundTripIdealChannel is the §8 property: encoding
// and decoding a frame back-to-back through passband conversion with no
// added channel impairment recovers the original payload bytes.
func TestTransmitReceiveRoundTripIdealChannel(t *testing.T) {
	eng, err := NewEngine(Config0)
	require.NoError(t, err)

	r := rand.New(rand.NewSource(99))
	payload := make([]byte, eng.Params().PayloadBytesPerFrame())
	r.Read(payload)

	passband, err := eng.TransmitByte(payload)
	require.NoError(t, err)

	decoded, stats, err := eng.ReceiveByte(passband)
	require.NoError(t, err)
	require.True(t, stats.MessageDecoded)
	assert.Equal(t, payload, decoded[:len(payload)])
}

func TestLoadConfigurationSwitchesMode(t *testing.T) {
	eng, err := NewEngine(Config0)
	require.NoError(t, err)
	require.NoError(t, eng.LoadConfiguration(Config6))
	assert.Equal(t, Config6, eng.mode)
	assert.Equal(t, ModeTable[Config6].K(), eng.params.K())
}
