package osc

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOneShot/fakeTransportClock let tests drive reconnect scheduling
// without real timers, mirroring the harness used in internal/trigger.
type fakeOneShotT struct {
	fired   bool
	stopped bool
	fn      func()
}

func (f *fakeOneShotT) stop() bool {
	f.stopped = true
	return !f.fired
}

type fakeTransportClock struct {
	pending []*fakeOneShotT
}

func (c *fakeTransportClock) after(_ time.Duration, f func()) oneShotTimer {
	t := &fakeOneShotT{fn: f}
	c.pending = append(c.pending, t)
	return t
}

func (c *fakeTransportClock) fireLatest() {
	if len(c.pending) == 0 {
		return
	}
	t := c.pending[len(c.pending)-1]
	if t.stopped || t.fired {
		return
	}
	t.fired = true
	t.fn()
}

type pipeConn struct {
	net.Conn
	written [][]byte
}

func (p *pipeConn) Write(b []byte) (int, error) {
	cp := append([]byte(nil), b...)
	p.written = append(p.written, cp)
	return len(b), nil
}

func (p *pipeConn) Close() error { return nil }

func newTestTransport() (*Transport, *fakeTransportClock) {
	tr := NewTransport()
	clk := &fakeTransportClock{}
	tr.clk = clk
	return tr, clk
}

func TestTransportDropsMessagesWhenDisabled(t *testing.T) {
	tr, _ := newTestTransport()
	tr.Enabled = false
	tr.UseTCP = false
	tr.udpConn = nil // no socket bound; Send should return before touching it

	tr.Send("/s2l/out/bpm=120", false)
	assert.Empty(t, tr.Log())
}

func TestTransportForcedSendBypassesDisabled(t *testing.T) {
	tr, _ := newTestTransport()
	tr.Enabled = false
	conn := &pipeConn{}
	tr.UseTCP = true
	tr.state = Connected
	tr.conn = conn

	tr.Send("/s2l/out/bpm=120", true)
	require.Len(t, conn.written, 1)
}

func TestTransportUserSubstitution(t *testing.T) {
	tr, _ := newTestTransport()
	tr.UserNumber = "3"
	conn := &pipeConn{}
	tr.UseTCP = true
	tr.state = Connected
	tr.conn = conn

	tr.Send("/s2l/<USER>/out/bpm=120", false)
	require.Len(t, conn.written, 1)

	dec := LengthPrefixDecoder{}
	packets := dec.Feed(conn.written[0], nil)
	require.Len(t, packets, 1)
	msg, err := DecodeMessage(packets[0])
	require.NoError(t, err)
	assert.Equal(t, "/s2l/3/out/bpm", msg.Address)
}

func TestTransportTCPDropsWhileDisconnected(t *testing.T) {
	tr, _ := newTestTransport()
	tr.UseTCP = true
	tr.state = Unconnected

	tr.Send("/s2l/out/bpm=120", false)
	// Dropped: no connection to write to, and no panic.
	assert.Len(t, tr.Log(), 1) // still logged as attempted outgoing
}

func TestTransportReconnectScheduledOnEnableTCP(t *testing.T) {
	tr, clk := newTestTransport()
	dialed := false
	tr.dial = func(addr string) (net.Conn, error) {
		dialed = true
		return &pipeConn{}, nil
	}

	tr.SetUseTCP(true)
	require.Len(t, clk.pending, 1)
	clk.fireLatest()

	assert.True(t, dialed)
	assert.Equal(t, Connected, tr.State())
}

func TestTransportReconnectBackoffOnDialError(t *testing.T) {
	tr, clk := newTestTransport()
	calls := 0
	tr.dial = func(addr string) (net.Conn, error) {
		calls++
		return nil, assertErr{}
	}

	tr.SetUseTCP(true)
	clk.fireLatest() // first attempt, fails
	assert.Equal(t, 1, calls)
	assert.Equal(t, Unconnected, tr.State())

	require.Len(t, clk.pending, 2) // backoff retry scheduled
	clk.fireLatest()
	assert.Equal(t, 2, calls)
}

func TestTransportSLIPFraming(t *testing.T) {
	tr, _ := newTestTransport()
	tr.UseTCP = true
	tr.state = Connected
	tr.Framing = FramingSLIP
	conn := &pipeConn{}
	tr.conn = conn

	tr.Send("/x=1", false)
	require.Len(t, conn.written, 1)

	var dec SLIPDecoder
	packets := dec.Feed(conn.written[0])
	require.Len(t, packets, 1)
	msg, err := DecodeMessage(packets[0])
	require.NoError(t, err)
	assert.Equal(t, "/x", msg.Address)
}

func TestTransportLogBoundedAndFilterable(t *testing.T) {
	tr, _ := newTestTransport()
	tr.UseTCP = true
	tr.state = Connected
	tr.conn = &pipeConn{}
	tr.LogInEnabled = false

	for i := 0; i < 5; i++ {
		tr.Send("/x=1", false)
	}
	assert.Len(t, tr.Log(), 5)

	tr.handleIncomingPacket(mustEncode(t, Message{Address: "/in"}))
	assert.Len(t, tr.Log(), 5) // incoming suppressed by LogInEnabled=false
}

func mustEncode(t *testing.T, m Message) []byte {
	t.Helper()
	data, err := EncodeMessage(m)
	require.NoError(t, err)
	return data
}

type assertErr struct{}

func (assertErr) Error() string { return "dial failed" }
