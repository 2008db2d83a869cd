package samproto

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-i2p/txi2p/lib/util"
)

type creatorPhase int

const (
	phaseAwaitHelloReply creatorPhase = iota
	phaseAwaitSessionStatus
	phaseAwaitNamingReply
	phaseDone
)

// CreatorResult is the terminal value of a successful SAM session-creation
// dialogue (spec.md §4.3.3 step 5).
type CreatorResult struct {
	Version     string
	Style       string
	ID          string
	PublicKey   string
	PrivateKey  string // the canonical keypair per spec.md §9 design note
}

// SessionCreator drives the SAM v3 session-creation dialogue. Like
// bobproto.CreatorMachine, it is a pure state machine: Start returns the
// first command, Step consumes each reply and returns the next command (or
// none once the dialogue is done).
type SessionCreator struct {
	cfg SessionConfig
	id  string

	phase      creatorPhase
	privateKey string

	result *CreatorResult
	err    error
}

// NewSessionCreator validates cfg and returns a SessionCreator. It rejects
// any style other than STREAM (spec.md §3: "style: fixed to STREAM for
// session creation; other values must be rejected as unsupported").
func NewSessionCreator(cfg SessionConfig) (*SessionCreator, error) {
	if cfg.Style != "" && cfg.Style != StyleStream {
		return nil, util.NewDialogError(util.KindUnsupportedStyle, "init", "style "+cfg.Style, nil)
	}
	id := cfg.Nickname
	if id == "" {
		// spec.md §4.3.3 step 2 / §9: PID-derived nickname, collision hazard
		// across restarts acknowledged and left in place for compatibility.
		id = "txi2p-" + strconv.Itoa(os.Getpid())
	}
	return &SessionCreator{cfg: cfg, id: id}, nil
}

// Start returns the first command to write: HELLO VERSION.
func (m *SessionCreator) Start() string {
	return fmt.Sprintf("HELLO VERSION MIN=%s MAX=%s\n", m.cfg.minVersion(), m.cfg.maxVersion())
}

// Done reports whether the dialogue has reached a terminal state.
func (m *SessionCreator) Done() bool { return m.phase == phaseDone || m.err != nil }

// Result returns the terminal success value, or nil.
func (m *SessionCreator) Result() *CreatorResult { return m.result }

// Err returns the terminal failure, or nil.
func (m *SessionCreator) Err() error { return m.err }

// Step consumes one parsed Reply and returns the next command to write, or
// "" if none is due yet.
func (m *SessionCreator) Step(r *Reply) (string, error) {
	if m.Done() {
		return "", fmt.Errorf("%w: Step called after machine reached a terminal state", util.ErrProtocolMalformed)
	}
	cmd, err := m.step(r)
	if err != nil {
		m.err = err
		return "", err
	}
	return cmd, nil
}

func (m *SessionCreator) step(r *Reply) (string, error) {
	switch m.phase {
	case phaseAwaitHelloReply:
		return m.onHelloReply(r)
	case phaseAwaitSessionStatus:
		return m.onSessionStatus(r)
	case phaseAwaitNamingReply:
		return m.onNamingReply(r)
	default:
		return "", fmt.Errorf("%w: unreachable phase", util.ErrProtocolMalformed)
	}
}

func (m *SessionCreator) onHelloReply(r *Reply) (string, error) {
	if r.Verb != "HELLO" || r.Subverb != "REPLY" || !r.OK() {
		return m.fail(r, "HELLO")
	}
	version := r.Fields["VERSION"]

	cmd := fmt.Sprintf("SESSION CREATE STYLE=%s ID=%s DESTINATION=%s",
		m.cfg.style(), m.id, m.cfg.destinationOrTransient())
	m.cfg.Options.Each(func(k, v string) {
		cmd += " " + k + "=" + v
	})
	cmd += "\n"

	m.phase = phaseAwaitSessionStatus
	m.result = &CreatorResult{Version: version, Style: m.cfg.style(), ID: m.id}
	return cmd, nil
}

func (m *SessionCreator) onSessionStatus(r *Reply) (string, error) {
	if r.Verb != "SESSION" || r.Subverb != "STATUS" || !r.OK() {
		return m.fail(r, "SESSION CREATE")
	}
	// Per spec.md §9: record whatever the reply contains, whether it is the
	// caller's own private key echoed back or a freshly generated one. Do
	// not second-guess.
	m.privateKey = r.Fields["DESTINATION"]
	m.result.PrivateKey = m.privateKey

	m.phase = phaseAwaitNamingReply
	return "NAMING LOOKUP NAME=ME\n", nil
}

func (m *SessionCreator) onNamingReply(r *Reply) (string, error) {
	if r.Verb != "NAMING" || r.Subverb != "REPLY" || !r.OK() {
		return m.fail(r, "NAMING LOOKUP")
	}
	m.result.PublicKey = r.Fields["VALUE"]
	m.phase = phaseDone
	return "", nil
}

func (m *SessionCreator) fail(r *Reply, step string) (string, error) {
	if result := r.Result(); result != "" && result != "OK" {
		return "", util.NewDialogError(util.KindRouterError, step, result, nil)
	}
	return "", util.NewDialogError(util.KindProtocolMalformed, step,
		fmt.Sprintf("unexpected reply %s %s", r.Verb, r.Subverb), nil)
}
