package session

import (
	"testing"

	"github.com/go-i2p/txi2p/lib/transport"
)

func newTestSession(autoClose bool) *Session {
	ep := transport.NewFakeEndpoint()
	return newSession("spam", ep, "3.1", "STREAM", "spam", "pubkey", "privkey", ep.Conn, autoClose)
}

func TestSession_AddStreamRejectedAfterClose(t *testing.T) {
	s := newTestSession(false)
	s.closeLocked()
	if err := s.AddStream(NewStream("x")); err == nil {
		t.Fatal("expected connection-done error on AddStream after close")
	}
}

func TestSession_RemoveStreamRejectedAfterClose(t *testing.T) {
	s := newTestSession(false)
	stream := NewStream("x")
	if err := s.AddStream(stream); err != nil {
		t.Fatalf("AddStream: %v", err)
	}
	s.closeLocked()
	if _, err := s.removeStream(stream); err == nil {
		t.Fatal("expected connection-done error on removeStream after close")
	}
}

func TestSession_AutoCloseOnlyWhenStreamsDrain(t *testing.T) {
	s := newTestSession(true)
	a, b := NewStream("a"), NewStream("b")
	_ = s.AddStream(a)
	_ = s.AddStream(b)

	if shouldClose, err := s.removeStream(a); err != nil || shouldClose {
		t.Fatalf("removeStream(a) = %v, %v; want shouldClose=false", shouldClose, err)
	}
	if shouldClose, err := s.removeStream(b); err != nil || !shouldClose {
		t.Fatalf("removeStream(b) = %v, %v; want shouldClose=true", shouldClose, err)
	}
}

func TestSession_NonAutoCloseNeverSignalsClose(t *testing.T) {
	s := newTestSession(false)
	stream := NewStream("only")
	_ = s.AddStream(stream)
	if shouldClose, err := s.removeStream(stream); err != nil || shouldClose {
		t.Fatalf("removeStream = %v, %v; want shouldClose=false for non-autoClose session", shouldClose, err)
	}
}

func TestStream_String(t *testing.T) {
	s := NewStream("conn-1")
	if s.String() != "conn-1" {
		t.Fatalf("String() = %q", s.String())
	}
}
