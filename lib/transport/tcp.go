package transport

import (
	"context"
	"net"

	"github.com/go-i2p/txi2p/lib/frame"
)

// TCPEndpoint opens control connections to a router's BOB or SAM listener
// over plain TCP, framing every connection through lib/frame before it is
// handed to a state machine.
type TCPEndpoint struct {
	Addr string // host:port of the router's control listener
	// Dialer is used to open the connection; a zero-value net.Dialer is
	// used when nil.
	Dialer *net.Dialer
}

// NewTCPEndpoint returns a TCPEndpoint dialing addr with the default dialer.
func NewTCPEndpoint(addr string) *TCPEndpoint {
	return &TCPEndpoint{Addr: addr}
}

// Connect implements Endpoint.
func (e *TCPEndpoint) Connect(ctx context.Context) (Conn, error) {
	dialer := e.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	nc, err := dialer.DialContext(ctx, "tcp", e.Addr)
	if err != nil {
		return nil, err
	}
	return frame.New(nc), nil
}
