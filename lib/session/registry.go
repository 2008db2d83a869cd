package session

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/go-i2p/txi2p/lib/samproto"
	"github.com/go-i2p/txi2p/lib/transport"
	"github.com/go-i2p/txi2p/lib/util"
)

// destCacheSize bounds the registry's NAME=ME memoization cache (spec.md
// §11 DOMAIN STACK enrichment). The cache is filled by each successful
// session creation and read only through CachedDestination; Acquire does
// not consult it, so every new session runs the full dialogue, including
// NAMING LOOKUP.
const destCacheSize = 256

// pendingCreate is the shared completion handle concurrent acquirers of the
// same nickname suspend on, per spec.md §4.4/§5: "the first starts the
// dialogue, the rest suspend on a shared completion handle."
type pendingCreate struct {
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	waiters int

	session *Session
	err     error
}

// Registry is the process-wide nickname → Session map described in
// spec.md §4.4. The zero value is not usable; construct with NewRegistry.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	pending  map[string]*pendingCreate

	destCache *lru.Cache[string, string]
	log       util.Logger
}

// NewRegistry returns an empty Registry. log may be nil, in which case
// diagnostic messages (keyfile I/O failures) are simply dropped.
func NewRegistry(log util.Logger) *Registry {
	cache, _ := lru.New[string, string](destCacheSize)
	return &Registry{
		sessions:  make(map[string]*Session),
		pending:   make(map[string]*pendingCreate),
		destCache: cache,
		log:       log,
	}
}

// Acquire implements spec.md §4.4's getSession/acquire: if a Session for
// nickname already exists, it is returned immediately; if creation is
// already in flight, the caller attaches to the same pending result;
// otherwise this call starts the one dialogue that creates it.
//
// ep may be nil only when an existing (or already in-flight) Session for
// nickname is found; otherwise Acquire fails synchronously with
// invalid-argument, per spec.md §4.4: "Creation without samEndpoint
// supplied and without an existing entry fails synchronously."
func (r *Registry) Acquire(ctx context.Context, nickname string, ep transport.Endpoint, autoClose bool, cfg samproto.SessionConfig) (*Session, error) {
	r.mu.Lock()
	if s, ok := r.sessions[nickname]; ok {
		r.mu.Unlock()
		return s, nil
	}
	if p, ok := r.pending[nickname]; ok {
		p.waiters++
		r.mu.Unlock()
		return r.waitPending(ctx, p)
	}
	if ep == nil {
		r.mu.Unlock()
		return nil, util.NewRegistryError(util.KindInvalidArgument, nickname, nil)
	}

	dctx, cancel := context.WithCancel(context.Background())
	p := &pendingCreate{ctx: dctx, cancel: cancel, done: make(chan struct{}), waiters: 1}
	r.pending[nickname] = p
	r.mu.Unlock()

	go r.runCreate(p, nickname, ep, autoClose, cfg)

	return r.waitPending(ctx, p)
}

// waitPending blocks until either p completes or ctx is cancelled. A
// cancelled waiter detaches without affecting the others; only when the
// last waiter detaches does the dialogue itself get cancelled (spec.md §5
// Cancellation).
func (r *Registry) waitPending(ctx context.Context, p *pendingCreate) (*Session, error) {
	select {
	case <-p.done:
		return p.session, p.err
	case <-ctx.Done():
		r.mu.Lock()
		p.waiters--
		if p.waiters == 0 {
			p.cancel()
		}
		r.mu.Unlock()
		return nil, util.NewDialogError(util.KindCancelled, "acquire", "", ctx.Err())
	}
}

// runCreate drives the one-and-only dialogue for a pendingCreate to
// completion and publishes the result to every waiter.
func (r *Registry) runCreate(p *pendingCreate, nickname string, ep transport.Endpoint, autoClose bool, cfg samproto.SessionConfig) {
	sess, err := r.createSession(p.ctx, nickname, ep, autoClose, cfg)

	r.mu.Lock()
	delete(r.pending, nickname)
	if err == nil {
		r.sessions[nickname] = sess
	}
	r.mu.Unlock()

	p.session = sess
	p.err = err
	close(p.done)
}

func (r *Registry) createSession(ctx context.Context, nickname string, ep transport.Endpoint, autoClose bool, cfg samproto.SessionConfig) (*Session, error) {
	conn, err := ep.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrTransportRefused, err)
	}

	writePending := true
	if privKey, pending := loadKeyfile(cfg.KeyfilePath, r.log); !pending && privKey != "" {
		cfg.PrivKey = privKey
		writePending = false
	}

	res, err := runSessionDialogue(ctx, conn, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if writePending {
		saveKeyfile(cfg.KeyfilePath, res.PrivateKey, r.log)
	}
	if r.destCache != nil {
		r.destCache.Add(nickname, res.PublicKey)
	}

	return newSession(nickname, ep, res.Version, res.Style, res.ID, res.PublicKey, res.PrivateKey, conn, autoClose), nil
}

// Release implements spec.md §4.4's release(session, stream): it detaches
// stream from session and, if the session is now empty and autoClose, closes
// it.
func (r *Registry) Release(s *Session, stream *Stream) error {
	shouldClose, err := s.removeStream(stream)
	if err != nil {
		return err
	}
	if shouldClose {
		return r.Close(s)
	}
	return nil
}

// Close implements spec.md §4.4's close(session): marks the session closed,
// tears down its control connection, and removes it from the registry.
func (r *Registry) Close(s *Session) error {
	s.closeLocked()

	r.mu.Lock()
	if cur, ok := r.sessions[s.Nickname]; ok && cur == s {
		delete(r.sessions, s.Nickname)
	}
	r.mu.Unlock()

	return s.Proto.Close()
}

// CachedDestination returns the memoized public destination for nickname,
// if one was recorded by a prior successful Acquire.
func (r *Registry) CachedDestination(nickname string) (string, bool) {
	if r.destCache == nil {
		return "", false
	}
	return r.destCache.Get(nickname)
}
