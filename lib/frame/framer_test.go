package frame

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/go-i2p/txi2p/lib/util"
)

// pipeRWC adapts a reader/writer pair into an io.ReadWriteCloser for tests.
type pipeRWC struct {
	r      io.Reader
	w      io.Writer
	closed chan struct{}
}

func (p *pipeRWC) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeRWC) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p *pipeRWC) Close() error {
	select {
	case <-p.closed:
	default:
		close(p.closed)
	}
	return nil
}

func newPipe(in string) (*pipeRWC, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &pipeRWC{r: bytes.NewBufferString(in), w: out, closed: make(chan struct{})}, out
}

func recvLine(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case line, ok := <-ch:
		if !ok {
			t.Fatal("lines channel closed unexpectedly")
		}
		return line
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for line")
		return ""
	}
}

func TestConn_SplitsLinesAndStripsCR(t *testing.T) {
	rwc, _ := newPipe("BOB 00.00.10\r\nOK\n")
	c := New(rwc)

	if got := recvLine(t, c.Lines()); got != "BOB 00.00.10" {
		t.Fatalf("line 1 = %q, want %q", got, "BOB 00.00.10")
	}
	if got := recvLine(t, c.Lines()); got != "OK" {
		t.Fatalf("line 2 = %q, want %q", got, "OK")
	}
}

func TestConn_WriteRoundTrips(t *testing.T) {
	rwc, out := newPipe("")
	c := New(rwc)

	if err := c.Write(context.Background(), []byte("list\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if out.String() != "list\n" {
		t.Fatalf("written = %q, want %q", out.String(), "list\n")
	}
}

func TestConn_LineTooLong(t *testing.T) {
	huge := bytes.Repeat([]byte("a"), MaxLineLength+10)
	huge = append(huge, '\n')
	rwc, _ := newPipe(string(huge))
	c := New(rwc)

	select {
	case _, ok := <-c.Lines():
		if ok {
			t.Fatal("expected lines channel to close without emitting the oversized line")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
	if !errors.Is(c.Err(), util.ErrLineTooLong) {
		t.Fatalf("Err() = %v, want ErrLineTooLong", c.Err())
	}
}

func TestConn_ClosedConnectionReportsTransportLost(t *testing.T) {
	rwc, _ := newPipe("OK\n")
	c := New(rwc)
	recvLine(t, c.Lines())

	select {
	case _, ok := <-c.Lines():
		if ok {
			t.Fatal("expected EOF to close the lines channel")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
	if !errors.Is(c.Err(), util.ErrTransportLost) {
		t.Fatalf("Err() = %v, want ErrTransportLost", c.Err())
	}
}
