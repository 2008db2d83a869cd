package endpoint

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-i2p/txi2p/lib/session"
	"github.com/go-i2p/txi2p/lib/transport"
)

// sequencedEndpoint hands out a fresh, independently closable FakeConn on
// each Connect call, matching the real contract ("derived-stream control
// dialogues use separate control connections") that a single shared
// FakeConn can't model once the first accepted stream closes its conn.
type sequencedEndpoint struct {
	mu    sync.Mutex
	conns []*transport.FakeConn
	next  int
}

func (s *sequencedEndpoint) Connect(_ context.Context) (transport.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.conns) {
		return nil, errors.New("sequencedEndpoint: out of pre-seeded connections")
	}
	c := s.conns[s.next]
	s.next++
	return c, nil
}

func TestServerEndpoint_ListenAcceptsAndStopsOnCancel(t *testing.T) {
	reg := session.NewRegistry(nil)

	sessionConn := transport.NewFakeConn()
	sessionConn.Feed(sessionDialogue)

	firstAcceptConn := transport.NewFakeConn()
	firstAcceptConn.Feed("STREAM STATUS RESULT=OK\n")

	secondAcceptConn := transport.NewFakeConn() // left unfed; the second accept blocks until cancelled

	ep := &sequencedEndpoint{conns: []*transport.FakeConn{sessionConn, firstAcceptConn, secondAcceptConn}}

	server := NewServerEndpoint(reg, ep, "spam", false, nil)

	ctx, cancel := context.WithCancel(context.Background())
	handled := make(chan struct{}, 1)
	errCh := make(chan error, 1)

	go func() {
		errCh <- server.Listen(ctx, func(conn transport.Conn) {
			handled <- struct{}{}
		})
	}()

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the first inbound stream to reach the handler")
	}

	cancel()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected Listen to return a cancellation error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Listen never returned after cancellation")
	}

	wantSession := "HELLO VERSION MIN=3.0 MAX=3.3\n" +
		"SESSION CREATE STYLE=STREAM ID=spam DESTINATION=TRANSIENT\n" +
		"NAMING LOOKUP NAME=ME\n"
	if got := sessionConn.Written(); got != wantSession {
		t.Fatalf("session dialogue written = %q, want %q", got, wantSession)
	}
	if got := firstAcceptConn.Written(); got != "STREAM ACCEPT ID=spam\n" {
		t.Fatalf("first accept written = %q", got)
	}
	if got := secondAcceptConn.Written(); got != "STREAM ACCEPT ID=spam\n" {
		t.Fatalf("second accept written = %q", got)
	}
}
