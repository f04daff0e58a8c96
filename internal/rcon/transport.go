package rcon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

const (
	dialTimeout = 3 * time.Second
	maxDatagram = 65535
)

// Transport moves raw datagrams to and from a single game server.
// Implementations are not safe for concurrent use.
type Transport interface {
	Connect(ctx context.Context) error
	Send(data []byte) error
	Receive(timeout time.Duration) ([]byte, error)
	Close() error
}

// UDPTransport is a connected UDP association to a fixed host:port.
type UDPTransport struct {
	address string
	conn    net.Conn
	closed  bool
	buf     []byte
}

// NewUDPTransport creates a transport for host:port. Nothing is dialed
// until Connect is called.
func NewUDPTransport(host string, port int) *UDPTransport {
	return &UDPTransport{
		address: net.JoinHostPort(host, strconv.Itoa(port)),
	}
}

// Address returns the remote host:port
func (t *UDPTransport) Address() string {
	return t.address
}

// Connect dials the remote address. UDP has no handshake, so failures to
// reach the server only surface on Send or Receive. Calling Connect on an
// open transport is a no-op.
func (t *UDPTransport) Connect(ctx context.Context) error {
	if t.closed {
		return ErrNotConnected
	}
	if t.conn != nil {
		return nil
	}

	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "udp", t.address)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", t.address, err)
	}
	t.conn = conn
	t.buf = make([]byte, maxDatagram)
	return nil
}

// Send writes a single datagram.
func (t *UDPTransport) Send(data []byte) error {
	if t.closed || t.conn == nil {
		return ErrNotConnected
	}
	if _, err := t.conn.Write(data); err != nil {
		return fmt.Errorf("sending to %s: %w", t.address, err)
	}
	return nil
}

// Receive waits at most timeout for one datagram. An expired deadline
// returns ErrTimeout.
func (t *UDPTransport) Receive(timeout time.Duration) ([]byte, error) {
	if t.closed || t.conn == nil {
		return nil, ErrNotConnected
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("setting read deadline: %w", err)
	}

	n, err := t.conn.Read(t.buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, ErrTimeout
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrNotConnected
		}
		return nil, fmt.Errorf("reading from %s: %w", t.address, err)
	}

	out := make([]byte, n)
	copy(out, t.buf[:n])
	return out, nil
}

// Interrupt unblocks a pending Receive, which then reports ErrTimeout.
// It is the only method that may be called from another goroutine.
func (t *UDPTransport) Interrupt() {
	if t.conn != nil {
		t.conn.SetReadDeadline(time.Unix(1, 0))
	}
}

// Close releases the socket. Every later call fails with ErrNotConnected.
func (t *UDPTransport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
