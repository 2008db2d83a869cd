// Package endpoint implements the user-visible surface described in
// spec.md §4.5: a client stream endpoint that connects to a remote I2P
// destination, and a server stream endpoint that listens for inbound
// streams, each built on top of the session registry.
package endpoint

import (
	"context"
	"fmt"

	"github.com/go-i2p/txi2p/lib/samproto"
	"github.com/go-i2p/txi2p/lib/session"
	"github.com/go-i2p/txi2p/lib/transport"
	"github.com/go-i2p/txi2p/lib/util"
)

// StreamHandler receives an established data stream. The stream remains
// open for the duration of the call; the endpoint tears it down (and
// releases it from the owning session) once the handler returns.
type StreamHandler func(conn transport.Conn)

// ClientEndpoint implements spec.md §4.5's client stream endpoint.
type ClientEndpoint struct {
	registry    *session.Registry
	samEndpoint transport.Endpoint // only used by the "new" constructor form
	nickname    string
	autoClose   bool
	cfg         samproto.SessionConfig

	existing *session.Session // set by the instance-reuse constructor form

	remote string
}

// NewClientEndpoint is the "new" constructor form of spec.md §4.5: it
// acquires a fresh (or nickname-shared) session on each Connect call.
// options may be nil; it is cloned into the session-creation config
// immediately, so it survives even if the control connection that would
// use it never succeeds (spec.md §8 scenario 7).
func NewClientEndpoint(registry *session.Registry, samEndpoint transport.Endpoint, nickname, remote string, autoClose bool, options *util.Options) *ClientEndpoint {
	return &ClientEndpoint{
		registry:    registry,
		samEndpoint: samEndpoint,
		nickname:    nickname,
		autoClose:   autoClose,
		cfg:         samproto.SessionConfig{Nickname: nickname, Options: capturedOptions(options)},
		remote:      remote,
	}
}

// NewClientEndpointFromSession is the instance-reuse constructor form: it
// binds to an already-acquired Session instead of creating one.
func NewClientEndpointFromSession(registry *session.Registry, sess *session.Session, remote string) *ClientEndpoint {
	return &ClientEndpoint{registry: registry, existing: sess, remote: remote}
}

// Options returns the session-creation options captured at construction.
func (e *ClientEndpoint) Options() *util.Options {
	if e.cfg.Options == nil {
		return util.NewOptions()
	}
	return e.cfg.Options
}

// WithKeyfile sets the path used to persist/reuse the session's private key
// (spec.md §6), for the "new" constructor form. It has no effect on an
// endpoint built from an existing Session.
func (e *ClientEndpoint) WithKeyfile(path string) *ClientEndpoint {
	e.cfg.KeyfilePath = path
	return e
}

func capturedOptions(options *util.Options) *util.Options {
	if options == nil {
		return util.NewOptions()
	}
	return options.Clone()
}

// Connect acquires the endpoint's session, opens a new control connection
// derived from it, and issues STREAM CONNECT (spec.md §4.5). On success
// handler receives the established data stream; Connect returns once
// handler returns, at which point the stream is released from the session.
func (e *ClientEndpoint) Connect(ctx context.Context, handler StreamHandler) error {
	sess, err := e.session(ctx)
	if err != nil {
		return err
	}

	conn, err := sess.SAMEndpoint.Connect(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", util.ErrTransportRefused, err)
	}

	if err := conn.Write(ctx, []byte(samproto.BuildStreamConnect(sess.ID, e.remote))); err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: %v", util.ErrTransportLost, err)
	}

	if err := awaitStreamStatus(ctx, conn); err != nil {
		_ = conn.Close()
		return err
	}

	stream := session.NewStream("client:" + e.remote)
	if err := sess.AddStream(stream); err != nil {
		_ = conn.Close()
		return err
	}
	defer func() { _ = conn.Close() }()
	defer func() { _ = e.registry.Release(sess, stream) }()

	handler(conn)
	return nil
}

func (e *ClientEndpoint) session(ctx context.Context) (*session.Session, error) {
	if e.existing != nil {
		return e.existing, nil
	}
	return e.registry.Acquire(ctx, e.nickname, e.samEndpoint, e.autoClose, e.cfg)
}

// awaitStreamStatus reads exactly one reply line and validates it as a
// successful STREAM STATUS.
func awaitStreamStatus(ctx context.Context, conn transport.Conn) error {
	select {
	case <-ctx.Done():
		return util.NewDialogError(util.KindCancelled, "stream-connect", "", ctx.Err())
	case line, ok := <-conn.Lines():
		if !ok {
			if err := conn.Err(); err != nil {
				return err
			}
			return util.NewDialogError(util.KindTransportLost, "stream-connect", "connection closed awaiting STREAM STATUS", nil)
		}
		r, err := samproto.Parse(line)
		if err != nil {
			return err
		}
		return samproto.CheckStreamStatus(r)
	}
}
