package endpoint

import (
	"context"
	"fmt"

	"github.com/go-i2p/txi2p/lib/samproto"
	"github.com/go-i2p/txi2p/lib/session"
	"github.com/go-i2p/txi2p/lib/transport"
	"github.com/go-i2p/txi2p/lib/util"
)

// ServerEndpoint implements spec.md §4.5's server stream endpoint: it
// accepts inbound data streams addressed to a session's destination using
// repeated STREAM ACCEPT dialogues, one control connection per accepted
// stream.
type ServerEndpoint struct {
	registry    *session.Registry
	samEndpoint transport.Endpoint
	nickname    string
	autoClose   bool
	cfg         samproto.SessionConfig

	existing *session.Session
}

// NewServerEndpoint is the "new" constructor form: it acquires a fresh (or
// nickname-shared) session the first time Listen is called.
func NewServerEndpoint(registry *session.Registry, samEndpoint transport.Endpoint, nickname string, autoClose bool, options *util.Options) *ServerEndpoint {
	return &ServerEndpoint{
		registry:    registry,
		samEndpoint: samEndpoint,
		nickname:    nickname,
		autoClose:   autoClose,
		cfg:         samproto.SessionConfig{Nickname: nickname, Options: capturedOptions(options)},
	}
}

// NewServerEndpointFromSession is the instance-reuse constructor form.
func NewServerEndpointFromSession(registry *session.Registry, sess *session.Session) *ServerEndpoint {
	return &ServerEndpoint{registry: registry, existing: sess}
}

// Options returns the session-creation options captured at construction.
func (e *ServerEndpoint) Options() *util.Options {
	if e.cfg.Options == nil {
		return util.NewOptions()
	}
	return e.cfg.Options
}

// WithKeyfile sets the path used to persist/reuse the session's private key
// (spec.md §6), for the "new" constructor form.
func (e *ServerEndpoint) WithKeyfile(path string) *ServerEndpoint {
	e.cfg.KeyfilePath = path
	return e
}

func (e *ServerEndpoint) session(ctx context.Context) (*session.Session, error) {
	if e.existing != nil {
		return e.existing, nil
	}
	return e.registry.Acquire(ctx, e.nickname, e.samEndpoint, e.autoClose, e.cfg)
}

// Listen acquires the endpoint's session and repeatedly accepts inbound
// streams, delivering each to handler on its own goroutine, until ctx is
// done or a dialogue fails. The first dialogue failure (including
// cancellation) ends Listen and is returned to the caller; streams already
// handed to handler keep running independently.
func (e *ServerEndpoint) Listen(ctx context.Context, handler StreamHandler) error {
	sess, err := e.session(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return util.NewDialogError(util.KindCancelled, "stream-accept", "", ctx.Err())
		default:
		}

		conn, stream, err := e.acceptOnce(ctx, sess)
		if err != nil {
			return err
		}

		go func() {
			defer func() { _ = conn.Close() }()
			defer func() { _ = e.registry.Release(sess, stream) }()
			handler(conn)
		}()
	}
}

// acceptOnce drives a single STREAM ACCEPT dialogue to completion and
// registers the resulting stream against sess.
func (e *ServerEndpoint) acceptOnce(ctx context.Context, sess *session.Session) (transport.Conn, *session.Stream, error) {
	conn, err := sess.SAMEndpoint.Connect(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", util.ErrTransportRefused, err)
	}

	if err := conn.Write(ctx, []byte(samproto.BuildStreamAccept(sess.ID))); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%w: %v", util.ErrTransportLost, err)
	}

	if err := awaitStreamStatus(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	stream := session.NewStream("server:accept")
	if err := sess.AddStream(stream); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, stream, nil
}
