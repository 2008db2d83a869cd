// Package session implements the Session type (spec.md §3) and the process-
// wide Session Registry (spec.md §4.4) that deduplicates concurrent
// requests for the same nickname and governs session teardown.
package session

import (
	"sync"

	"github.com/go-i2p/txi2p/lib/transport"
	"github.com/go-i2p/txi2p/lib/util"
)

// Stream is an opaque handle for a derived data stream, tracked by the
// owning Session purely by identity (spec.md §3 "streams: set of live
// derived streams"). The endpoint package constructs the real streams;
// this package only counts them.
type Stream struct {
	name string // for logging only
}

// NewStream returns a Stream handle identified by name, for logging.
func NewStream(name string) *Stream { return &Stream{name: name} }

func (s *Stream) String() string { return s.name }

// Session is a live SAM session: the router-side object binding a local
// I2P destination to derivable client/server streams (spec.md §3).
type Session struct {
	Nickname    string
	SAMEndpoint transport.Endpoint
	SAMVersion  string
	Style       string
	ID          string
	Address     string // the I2P destination this session speaks for
	PrivateKey  string // the keypair backing Address; opaque

	Proto     transport.Conn // control connection; owned exclusively by this Session
	AutoClose bool

	mu      sync.Mutex
	closed  bool
	streams map[*Stream]struct{}
}

func newSession(nickname string, ep transport.Endpoint, samVersion, style, id, address, privateKey string, proto transport.Conn, autoClose bool) *Session {
	return &Session{
		Nickname:    nickname,
		SAMEndpoint: ep,
		SAMVersion:  samVersion,
		Style:       style,
		ID:          id,
		Address:     address,
		PrivateKey:  privateKey,
		Proto:       proto,
		AutoClose:   autoClose,
		streams:     make(map[*Stream]struct{}),
	}
}

// Closed reports whether this Session has been closed (Registry.Close).
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// AddStream registers a derived stream against this session. It must only
// be called once the stream's own "STREAM STATUS RESULT=OK" has arrived
// (spec.md §5 ordering guarantee).
func (s *Session) AddStream(stream *Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return util.NewRegistryError(util.KindConnectionDone, s.Nickname, nil)
	}
	s.streams[stream] = struct{}{}
	return nil
}

// removeStream unregisters a derived stream. If the session has no streams
// left and AutoClose is set, it reports shouldClose=true; it does not close
// the session itself (spec.md §3 invariant: "A Session that is not
// autoClose never closes itself when streams drains; only an explicit
// close() does.").
//
// removeStream returns whether it triggered a close, so the Registry can
// remove the session from its map; callers should use Registry.Release
// instead of calling this directly so the registry stays consistent.
func (s *Session) removeStream(stream *Stream) (shouldClose bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, util.NewRegistryError(util.KindConnectionDone, s.Nickname, nil)
	}
	delete(s.streams, stream)
	if len(s.streams) == 0 && s.AutoClose {
		return true, nil
	}
	return false, nil
}

// closeLocked marks the session closed and drops all stream references.
// The caller (Registry.Close) is responsible for tearing down Proto and
// removing the session from the registry map.
func (s *Session) closeLocked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.streams = make(map[*Stream]struct{})
}
