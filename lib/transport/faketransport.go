package transport

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"sync"
)

// FakeConn is an in-memory Conn used by package tests to drive a state
// machine without a real socket, the same role Twisted's
// proto_helpers.StringTransport plays in the original txi2p test suite:
// written bytes accumulate in Written() for assertions, and test code
// injects reply lines with Feed.
type FakeConn struct {
	mu      sync.Mutex
	written bytes.Buffer
	lines   chan string
	err     error
	closed  bool
}

// NewFakeConn creates a FakeConn whose injected-line channel buffers up to
// 64 lines.
func NewFakeConn() *FakeConn {
	return &FakeConn{lines: make(chan string, 64)}
}

// Write implements Conn.
func (c *FakeConn) Write(_ context.Context, p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosedFakeConn
	}
	c.written.Write(p)
	return nil
}

// Lines implements Conn.
func (c *FakeConn) Lines() <-chan string { return c.lines }

// Err implements Conn.
func (c *FakeConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close implements Conn.
func (c *FakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.lines)
	return nil
}

// Written returns everything written so far, as a string.
func (c *FakeConn) Written() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written.String()
}

// Clear drops everything written so far. Test code calls this between
// stimulus/assertion pairs, matching the original test suite's
// proto.transport.clear() idiom.
func (c *FakeConn) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written.Reset()
}

// Feed splits text on newlines and delivers each non-empty line to the
// consumer, as if the router had sent them. A trailing CR is stripped,
// blank lines are skipped, and a final line without a trailing newline is
// delivered as well.
func (c *FakeConn) Feed(text string) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		c.lines <- line
	}
}

// FeedClose closes the line channel with the given error, simulating a lost
// connection.
func (c *FakeConn) FeedClose(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.err = err
	c.mu.Unlock()
	close(c.lines)
}

// ErrClosedFakeConn is returned by Write after Close.
var ErrClosedFakeConn = errClosedFakeConn{}

type errClosedFakeConn struct{}

func (errClosedFakeConn) Error() string { return "faketransport: connection closed" }

// FakeEndpoint is an Endpoint backed by a single FakeConn (success) or a
// fixed error (failure), mirroring the original test suite's FakeEndpoint
// helper used for both the "connection refused" and "connection lost"
// scenarios.
type FakeEndpoint struct {
	Conn *FakeConn
	Err  error
}

// NewFakeEndpoint creates a FakeEndpoint that succeeds with a fresh FakeConn.
func NewFakeEndpoint() *FakeEndpoint {
	return &FakeEndpoint{Conn: NewFakeConn()}
}

// NewFailingFakeEndpoint creates a FakeEndpoint whose Connect always fails.
func NewFailingFakeEndpoint(err error) *FakeEndpoint {
	return &FakeEndpoint{Err: err}
}

// Connect implements Endpoint.
func (e *FakeEndpoint) Connect(_ context.Context) (Conn, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	return e.Conn, nil
}
