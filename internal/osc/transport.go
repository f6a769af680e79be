package osc

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// ConnState is the TCP transport's connection lifecycle state.
type ConnState int

const (
	Unconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unconnected"
	}
}

// LogEntry is one bounded-log record (spec.md §4.10).
type LogEntry struct {
	Time      time.Time
	Outgoing  bool
	Text      string
}

const maxLogEntries = 1000

const (
	reconnectDelay        = 20 * time.Millisecond
	reconnectBackoffDelay = 3000 * time.Millisecond
)

type oneShotTimer interface {
	stop() bool
}

type realOneShot struct{ t *time.Timer }

func (r *realOneShot) stop() bool { return r.t.Stop() }

type transportClock interface {
	after(d time.Duration, f func()) oneShotTimer
}

type realTransportClock struct{}

func (realTransportClock) after(d time.Duration, f func()) oneShotTimer {
	return &realOneShot{t: time.AfterFunc(d, f)}
}

// Dialer opens the TCP control connection; tests substitute a fake.
type Dialer func(address string) (net.Conn, error)

// Transport implements the OSC UDP/TCP wire transport: non-blocking UDP
// send/receive, a reconnecting TCP client with the two stream framings, and
// a bounded in/out message log.
type Transport struct {
	mu sync.Mutex

	Enabled    bool
	UseTCP     bool
	IP         string
	TxPort     int
	RxPort     int
	TCPPort    int
	UserNumber string
	Framing    FramingMode

	LogInEnabled  bool
	LogOutEnabled bool

	state   ConnState
	conn    net.Conn
	udpConn net.PacketConn

	lengthDecoder LengthPrefixDecoder
	slipDecoder   SLIPDecoder

	log []LogEntry

	dial  Dialer
	clk   transportClock
	timer oneShotTimer

	OnMessage func(Message)
	OnError   func(error)
}

// NewTransport returns a Transport with documented default ports (UDP Tx
// 8001, UDP Rx 8000, TCP 3032) and UDP selected.
func NewTransport() *Transport {
	return &Transport{
		IP:            "127.0.0.1",
		TxPort:        8001,
		RxPort:        8000,
		TCPPort:       3032,
		UserNumber:    "0",
		Enabled:       true,
		LogInEnabled:  true,
		LogOutEnabled: true,
		dial:          defaultDialer,
		clk:           realTransportClock{},
	}
}

func defaultDialer(address string) (net.Conn, error) {
	return net.DialTimeout("tcp", address, 2*time.Second)
}

// State returns the current TCP connection state.
func (t *Transport) State() ConnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Log returns a copy of the bounded message log, newest first.
func (t *Transport) Log() []LogEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]LogEntry, len(t.log))
	copy(out, t.log)
	return out
}

func (t *Transport) appendLog(outgoing bool, text string) {
	enabled := t.LogOutEnabled
	if !outgoing {
		enabled = t.LogInEnabled
	}
	if !enabled {
		return
	}
	t.log = append([]LogEntry{{Time: time.Now(), Outgoing: outgoing, Text: text}}, t.log...)
	if len(t.log) > maxLogEntries {
		t.log = t.log[:maxLogEntries]
	}
}

// SetUseTCP switches transport mode, tearing down any existing connection
// and scheduling a fresh reconnect attempt shortly after.
func (t *Transport) SetUseTCP(v bool) {
	t.mu.Lock()
	t.UseTCP = v
	t.teardownLocked()
	t.mu.Unlock()
	if v {
		t.scheduleReconnect(reconnectDelay)
	}
}

// SetIP updates the target host and reconnects if using TCP.
func (t *Transport) SetIP(ip string) {
	t.mu.Lock()
	t.IP = ip
	reconnect := t.UseTCP
	t.teardownLocked()
	t.mu.Unlock()
	if reconnect {
		t.scheduleReconnect(reconnectDelay)
	}
}

// SetTCPPort updates the TCP control port and reconnects if using TCP.
func (t *Transport) SetTCPPort(port int) {
	t.mu.Lock()
	t.TCPPort = port
	reconnect := t.UseTCP
	t.teardownLocked()
	t.mu.Unlock()
	if reconnect {
		t.scheduleReconnect(reconnectDelay)
	}
}

func (t *Transport) teardownLocked() {
	if t.timer != nil {
		t.timer.stop()
		t.timer = nil
	}
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.state = Unconnected
}

func (t *Transport) scheduleReconnect(d time.Duration) {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.stop()
	}
	t.timer = t.clk.after(d, t.connectTCP)
	t.mu.Unlock()
}

func (t *Transport) connectTCP() {
	t.mu.Lock()
	if !t.UseTCP {
		t.mu.Unlock()
		return
	}
	t.state = Connecting
	address := fmt.Sprintf("%s:%d", t.IP, t.TCPPort)
	dial := t.dial
	t.mu.Unlock()

	conn, err := dial(address)

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.UseTCP {
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		t.state = Unconnected
		if t.OnError != nil {
			t.OnError(err)
		}
		t.timer = t.clk.after(reconnectBackoffDelay, t.connectTCP)
		return
	}
	t.conn = conn
	t.state = Connected
}

// handlePeerError transitions out of Connected on a write/read failure and
// schedules the 3s reconnect cycle.
func (t *Transport) handlePeerError() {
	t.mu.Lock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.state = Unconnected
	t.mu.Unlock()
	t.scheduleReconnect(reconnectBackoffDelay)
}

// Send encodes and sends an OSC message built from a "/path=args" string
// (see MessageFromString). If Enabled is false and forced is false the
// message is dropped before encoding.
func (t *Transport) Send(messageString string, forced bool) {
	t.mu.Lock()
	enabled := t.Enabled
	t.mu.Unlock()
	if !enabled && !forced {
		return
	}

	messageString = t.substituteUser(messageString)
	msg := MessageFromString(messageString)
	t.sendMessage(msg, messageString)
}

// SendPath builds and sends a message from a path and a single string
// argument.
func (t *Transport) SendPath(path string, arg string, forced bool) {
	t.mu.Lock()
	enabled := t.Enabled
	t.mu.Unlock()
	if !enabled && !forced {
		return
	}

	path = t.substituteUser(path)
	msg := Message{Address: path, Arguments: []interface{}{arg}}
	t.sendMessage(msg, fmt.Sprintf("%s %q", path, arg))
}

func (t *Transport) substituteUser(s string) string {
	t.mu.Lock()
	user := t.UserNumber
	t.mu.Unlock()
	return strings.ReplaceAll(s, "<USER>", user)
}

func (t *Transport) sendMessage(msg Message, logText string) {
	packet, err := EncodeMessage(msg)
	if err != nil {
		if t.OnError != nil {
			t.OnError(err)
		}
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.appendLog(true, logText)

	if t.UseTCP {
		t.sendTCPLocked(packet)
	} else {
		t.sendUDPLocked(packet)
	}
}

func (t *Transport) sendTCPLocked(packet []byte) {
	if t.state != Connected || t.conn == nil {
		return // dropped while disconnected, per spec.md §4.10
	}

	var framed []byte
	var err error
	switch t.Framing {
	case FramingSLIP:
		framed = EncodeSLIP(packet)
	default:
		framed, err = EncodeLengthPrefixed(packet)
	}
	if err != nil {
		if t.OnError != nil {
			t.OnError(err)
		}
		return
	}

	if _, err := t.conn.Write(framed); err != nil {
		go t.handlePeerError()
	}
}

func (t *Transport) sendUDPLocked(packet []byte) {
	if t.udpConn == nil {
		return
	}
	addr := fmt.Sprintf("%s:%d", t.IP, t.TxPort)
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		if t.OnError != nil {
			t.OnError(err)
		}
		return
	}
	if _, err := t.udpConn.WriteTo(packet, raddr); err != nil {
		if t.OnError != nil {
			t.OnError(err)
		}
	}
}

// ListenUDP binds the UDP receive port and starts a read loop that decodes
// incoming packets and invokes OnMessage.
func (t *Transport) ListenUDP() error {
	conn, err := net.ListenPacket("udp", fmt.Sprintf(":%d", t.RxPort))
	if err != nil {
		return fmt.Errorf("osc: bind udp rx port: %w", err)
	}
	t.mu.Lock()
	t.udpConn = conn
	t.mu.Unlock()

	go func() {
		buf := make([]byte, 65536)
		for {
			n, _, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			t.handleIncomingPacket(append([]byte(nil), buf[:n]...))
		}
	}()
	return nil
}

// Close releases the UDP socket and any TCP connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.teardownLocked()
	if t.udpConn != nil {
		err := t.udpConn.Close()
		t.udpConn = nil
		return err
	}
	return nil
}

func (t *Transport) handleIncomingPacket(data []byte) {
	if IsBundle(data) {
		bundle, err := DecodeBundle(data)
		if err != nil {
			if t.OnError != nil {
				t.OnError(err)
			}
			return
		}
		t.dispatchBundle(bundle)
		return
	}

	msg, err := DecodeMessage(data)
	if err != nil {
		if t.OnError != nil {
			t.OnError(err)
		}
		return
	}
	t.mu.Lock()
	t.appendLog(false, msg.Address)
	t.mu.Unlock()
	if t.OnMessage != nil {
		t.OnMessage(msg)
	}
}

func (t *Transport) dispatchBundle(b Bundle) {
	for _, el := range b.Elements {
		switch v := el.(type) {
		case Message:
			t.mu.Lock()
			t.appendLog(false, v.Address)
			t.mu.Unlock()
			if t.OnMessage != nil {
				t.OnMessage(v)
			}
		case *Bundle:
			t.dispatchBundle(*v)
		}
	}
}
