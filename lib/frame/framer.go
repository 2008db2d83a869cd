// Package frame implements the Line Framer: it turns a raw byte-oriented
// connection into the line-oriented transport.Conn the BOB and SAM state
// machines consume. It is the one place in this library that reads bytes
// directly off a socket; everything above it deals only in complete text
// lines.
package frame

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/go-i2p/txi2p/lib/util"
)

// MaxLineLength bounds a single buffered line. The router protocols in
// scope here (BOB, SAM v3) never legitimately produce a line anywhere near
// this size; it exists to keep a misbehaving or hostile router from
// exhausting memory via an unterminated line.
const MaxLineLength = 64 * 1024

// Conn wraps an io.ReadWriteCloser (typically a net.Conn dialed by an
// embedder-supplied transport.Endpoint) and exposes it as a
// transport.Conn, splitting inbound bytes into newline-terminated lines
// (CR stripped, if present) and running the read loop in its own goroutine.
type Conn struct {
	rwc io.ReadWriteCloser

	writeMu sync.Mutex

	lines chan string

	mu     sync.Mutex
	err    error
	closed bool
}

// New starts framing rwc. The read loop begins immediately; lines are
// available on Lines() as soon as they arrive.
func New(rwc io.ReadWriteCloser) *Conn {
	c := &Conn{
		rwc:   rwc,
		lines: make(chan string, 16),
	}
	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	reader := bufio.NewReaderSize(c.rwc, 4096)
	defer close(c.lines)

	var line []byte
	for {
		chunk, isPrefix, err := reader.ReadLine()
		if err != nil {
			c.setErr(translateReadErr(err))
			return
		}
		line = append(line, chunk...)
		if len(line) > MaxLineLength {
			c.setErr(util.ErrLineTooLong)
			return
		}
		if isPrefix {
			continue
		}
		c.lines <- string(line)
		line = nil
	}
}

func translateReadErr(err error) error {
	if err == io.EOF {
		return fmt.Errorf("%w: %v", util.ErrTransportLost, err)
	}
	return fmt.Errorf("%w: %v", util.ErrTransportLost, err)
}

func (c *Conn) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.err = err
	}
}

// Write implements transport.Conn.
func (c *Conn) Write(ctx context.Context, p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := c.rwc.Write(p)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %v", util.ErrTransportLost, err)
		}
		return nil
	}
}

// Lines implements transport.Conn.
func (c *Conn) Lines() <-chan string { return c.lines }

// Err implements transport.Conn.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.rwc.Close()
}
