package arq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rhizomatica/mercury-sub000/pkg/physical"
)

// handshake drives a full CONNECT negotiation between caller and callee
// (START_CONNECTION -> ACK -> SET_CONFIG -> ACK, since DefaultConfig
// enables adaptive mode) and returns once both sides are CONNECTED.
func handshake(t *testing.T, caller, callee *Engine) {
	t.Helper()
	ackConn := callee.HandleControl(caller.StartConnection("CALLEE"))
	require.NotNil(t, ackConn)
	setConfig := caller.HandleControl(ackConn)
	require.NotNil(t, setConfig)
	ackConfig := callee.HandleControl(setConfig)
	require.NotNil(t, ackConfig)
	reply := caller.HandleControl(ackConfig)
	assert.Nil(t, reply)
}

func TestConnectionLifecycleHappyPath(t *testing.T) {
	cfg := DefaultConfig()
	caller := NewEngine("CALLER", cfg)
	callee := NewEngine("CALLEE", cfg)
	callee.Listen(true)
	assert.Equal(t, LinkListening, callee.link)

	start := caller.StartConnection("CALLEE")
	assert.Equal(t, LinkConnecting, caller.link)

	ackConn := callee.HandleControl(start)
	require.NotNil(t, ackConn)
	assert.Equal(t, LinkConnectionAccepted, callee.link)

	setConfig := caller.HandleControl(ackConn)
	require.NotNil(t, setConfig)
	assert.Equal(t, LinkNegotiating, caller.link)

	ackConfig := callee.HandleControl(setConfig)
	require.NotNil(t, ackConfig)
	assert.Equal(t, LinkConnected, callee.link)

	reply := caller.HandleControl(ackConfig)
	assert.Nil(t, reply)
	assert.Equal(t, LinkConnected, caller.link)
	assert.Equal(t, ConnEstablished, caller.conn.Status)
}

func TestCloseConnectionDropsBothSides(t *testing.T) {
	cfg := DefaultConfig()
	caller := NewEngine("CALLER", cfg)
	callee := NewEngine("CALLEE", cfg)
	callee.Listen(true)
	handshake(t, caller, callee)

	closeFrame := &Frame{Type: TypeControl, ConnectionID: caller.conn.ID, Command: CmdCloseConnection}
	ackClose := callee.HandleControl(closeFrame)
	require.NotNil(t, ackClose)
	assert.Nil(t, callee.conn)

	caller.HandleControl(ackClose)
	assert.Nil(t, caller.conn)
	assert.Equal(t, LinkIdle, caller.link)
}

func TestLinkTimeoutDropsSession(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LinkTimeout = time.Millisecond
	caller := NewEngine("CALLER", cfg)
	callee := NewEngine("CALLEE", cfg)
	callee.Listen(true)
	handshake(t, caller, callee)

	time.Sleep(2 * time.Millisecond)
	assert.True(t, caller.CheckLinkTimeout())
	assert.Equal(t, LinkIdle, caller.link)
}

func TestRoleSwitchScheduledAfterIdle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SwitchRoleTimeout = time.Millisecond
	caller := NewEngine("CALLER", cfg)
	callee := NewEngine("CALLEE", cfg)
	callee.Listen(true)
	handshake(t, caller, callee)

	time.Sleep(2 * time.Millisecond)
	f := caller.CheckRoleSwitch()
	require.NotNil(t, f)
	assert.Equal(t, CmdSwitchRole, f.Command)

	ack := callee.HandleControl(f)
	assert.Equal(t, RoleCommander, callee.conn.Role)

	require.NotNil(t, ack)
	caller.HandleControl(ack)
	assert.Equal(t, RoleResponder, caller.conn.Role)
}

func TestGearShiftPicksLowerModeOnPoorSNR(t *testing.T) {
	cfg := DefaultConfig()
	caller := NewEngine("CALLER", cfg)
	callee := NewEngine("CALLEE", cfg)
	callee.Listen(true)
	handshake(t, caller, callee)
	caller.currentMode = physical.Config4

	var selected physical.Mode
	caller.SetCallbacks(nil, nil, func(m physical.Mode) { selected = m }, nil)

	test := &Frame{
		Type: TypeControl, ConnectionID: caller.conn.ID, Command: CmdTestConnection,
		CommandArgs: floatToBytes(5), // 5 dB uplink SNR
	}
	caller.HandleControl(test)
	assert.Equal(t, physical.Config0, selected)
	assert.Equal(t, physical.Config0, caller.currentMode)
}

func floatToBytes(v float64) []byte {
	bits := uint32(int32(v * 100))
	return []byte{byte(bits >> 24), byte(bits >> 16), byte(bits >> 8), byte(bits)}
}
