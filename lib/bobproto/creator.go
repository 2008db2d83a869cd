package bobproto

import (
	"fmt"

	"github.com/go-i2p/txi2p/lib/util"
)

// Side selects which half of a tunnel a CreatorMachine is building: the
// client tunnel creator drives "inhost"/"inport"; the server tunnel
// creator drives "outhost"/"outport" (spec.md §4.3.1).
type Side int

const (
	SideClient Side = iota
	SideServer
)

type creatorPhase int

const (
	phaseAwaitBanner creatorPhase = iota
	phaseAwaitGreetingOK
	phaseAwaitListOK
	phaseAwaitSetNickOK
	phaseAwaitKeysOK
	phaseAwaitGetDestOK
	phaseAwaitGetKeysOK
	phaseAwaitGetNickOK
	phaseAwaitStopOK
	phaseAwaitHostOK
	phaseAwaitPortOK
	phaseAwaitStartOK
	phaseDone
)

func (p creatorPhase) String() string {
	names := map[creatorPhase]string{
		phaseAwaitBanner:     "P0-banner",
		phaseAwaitGreetingOK: "P0-greeting",
		phaseAwaitListOK:     "P1-list",
		phaseAwaitSetNickOK:  "P2-new",
		phaseAwaitKeysOK:     "P3-new",
		phaseAwaitGetDestOK:  "P4a-getdest",
		phaseAwaitGetKeysOK:  "P4b-getkeys",
		phaseAwaitGetNickOK:  "P2-adopt",
		phaseAwaitStopOK:     "P-stop",
		phaseAwaitHostOK:     "P5",
		phaseAwaitPortOK:     "P6",
		phaseAwaitStartOK:    "P7",
		phaseDone:            "done",
	}
	if n, ok := names[p]; ok {
		return n
	}
	return "unknown"
}

// CreatorResult is the terminal value of a successful tunnel-creation
// dialogue: the destination this tunnel now speaks for, and the keypair
// backing it (as returned or echoed by the router).
type CreatorResult struct {
	Destination string
	Keypair     string
}

// CreatorMachine drives the BOB client or server tunnel-creation dialogue
// (spec.md §4.3.1). It is a pure state machine: Step consumes one Reply and
// returns the next command line to write, if any. The caller owns all I/O;
// this type never touches a transport.Conn directly.
type CreatorMachine struct {
	cfg  TunnelConfig
	side Side

	phase       creatorPhase
	descriptors []*TunnelDescriptor
	matched     *TunnelDescriptor

	destination string
	keypair     string

	result *CreatorResult
	err    error
}

// NewClientCreator returns a Machine driving the client-side tunnel
// creation dialogue (binds a local inhost:inport to the tunnel).
func NewClientCreator(cfg TunnelConfig) *CreatorMachine {
	return &CreatorMachine{cfg: cfg, side: SideClient, phase: phaseAwaitBanner}
}

// NewServerCreator returns a Machine driving the server-side tunnel
// creation dialogue (binds a local outhost:outport to the tunnel).
func NewServerCreator(cfg TunnelConfig) *CreatorMachine {
	return &CreatorMachine{cfg: cfg, side: SideServer, phase: phaseAwaitBanner}
}

// Done reports whether the dialogue has reached a terminal state (success
// or failure). Step must not be called again once Done returns true.
func (m *CreatorMachine) Done() bool { return m.phase == phaseDone || m.err != nil }

// Result returns the terminal success value, or nil if the dialogue hasn't
// succeeded (yet, or at all).
func (m *CreatorMachine) Result() *CreatorResult { return m.result }

// Err returns the terminal failure, or nil.
func (m *CreatorMachine) Err() error { return m.err }

// Step consumes one parsed Reply and returns the next command line to
// write (including its trailing LF), or "" if no command is due yet. Once
// Done() is true, Step must not be called again.
func (m *CreatorMachine) Step(r *Reply) (string, error) {
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

func (m *CreatorMachine) step(r *Reply) (string, error) {
	switch m.phase {
	case phaseAwaitBanner:
		return m.onAwaitBanner(r)
	case phaseAwaitGreetingOK:
		return m.onAwaitGreetingOK(r)
	case phaseAwaitListOK:
		return m.onAwaitListOK(r)
	case phaseAwaitSetNickOK:
		return m.onAwaitSetNickOK(r)
	case phaseAwaitKeysOK:
		return m.onAwaitKeysOK(r)
	case phaseAwaitGetDestOK:
		return m.onAwaitGetDestOK(r)
	case phaseAwaitGetKeysOK:
		return m.onAwaitGetKeysOK(r)
	case phaseAwaitGetNickOK:
		return m.onAwaitGetNickOK(r)
	case phaseAwaitStopOK:
		return m.onAwaitStopOK(r)
	case phaseAwaitHostOK:
		return m.onAwaitHostOK(r)
	case phaseAwaitPortOK:
		return m.onAwaitPortOK(r)
	case phaseAwaitStartOK:
		return m.onAwaitStartOK(r)
	default:
		return "", fmt.Errorf("%w: unreachable phase %s", util.ErrProtocolMalformed, m.phase)
	}
}

func (m *CreatorMachine) fail(r *Reply, phase creatorPhase) (string, error) {
	if r.Kind == KindError {
		return "", util.NewDialogError(util.KindRouterError, phase.String(), r.Message, nil)
	}
	return "", util.NewDialogError(util.KindProtocolMalformed, phase.String(),
		fmt.Sprintf("unexpected reply kind %v", r.Kind), nil)
}

func (m *CreatorMachine) onAwaitBanner(r *Reply) (string, error) {
	if r.Kind != KindVersion {
		return m.fail(r, phaseAwaitBanner)
	}
	m.phase = phaseAwaitGreetingOK
	return "", nil
}

func (m *CreatorMachine) onAwaitGreetingOK(r *Reply) (string, error) {
	if r.Kind != KindOK {
		return m.fail(r, phaseAwaitGreetingOK)
	}
	m.phase = phaseAwaitListOK
	m.descriptors = nil
	return "list\n", nil
}

func (m *CreatorMachine) onAwaitListOK(r *Reply) (string, error) {
	switch r.Kind {
	case KindData:
		d, err := r.Descriptor()
		if err != nil {
			return "", err
		}
		m.descriptors = append(m.descriptors, d)
		return "", nil
	case KindOK:
		for _, d := range m.descriptors {
			if d.Nickname == m.cfg.Nickname {
				m.matched = d
				break
			}
		}
		if m.matched != nil {
			m.phase = phaseAwaitGetNickOK
			return "getnick " + m.cfg.Nickname + "\n", nil
		}
		m.phase = phaseAwaitSetNickOK
		return "setnick " + m.cfg.Nickname + "\n", nil
	default:
		return m.fail(r, phaseAwaitListOK)
	}
}

func (m *CreatorMachine) onAwaitSetNickOK(r *Reply) (string, error) {
	if r.Kind != KindOK {
		return m.fail(r, phaseAwaitSetNickOK)
	}
	m.phase = phaseAwaitKeysOK
	if m.cfg.Keypair != "" {
		return "setkeys " + m.cfg.Keypair + "\n", nil
	}
	return "newkeys\n", nil
}

func (m *CreatorMachine) onAwaitKeysOK(r *Reply) (string, error) {
	if r.Kind != KindOK {
		return m.fail(r, phaseAwaitKeysOK)
	}
	if m.cfg.Keypair != "" {
		m.phase = phaseAwaitGetDestOK
		return "getdest\n", nil
	}
	m.destination = r.Message
	m.phase = phaseAwaitGetKeysOK
	return "getkeys\n", nil
}

func (m *CreatorMachine) onAwaitGetDestOK(r *Reply) (string, error) {
	if r.Kind != KindOK {
		return m.fail(r, phaseAwaitGetDestOK)
	}
	m.destination = r.Message
	m.keypair = m.cfg.Keypair
	return m.enterHostPhase()
}

func (m *CreatorMachine) onAwaitGetKeysOK(r *Reply) (string, error) {
	if r.Kind != KindOK {
		return m.fail(r, phaseAwaitGetKeysOK)
	}
	m.keypair = r.Message
	return m.enterHostPhase()
}

func (m *CreatorMachine) onAwaitGetNickOK(r *Reply) (string, error) {
	if r.Kind != KindOK {
		return m.fail(r, phaseAwaitGetNickOK)
	}
	m.keypair = m.cfg.Keypair
	if m.matched.Running {
		m.phase = phaseAwaitStopOK
		return "stop\n", nil
	}
	return m.enterHostPhase()
}

func (m *CreatorMachine) onAwaitStopOK(r *Reply) (string, error) {
	if r.Kind != KindOK {
		return m.fail(r, phaseAwaitStopOK)
	}
	return m.enterHostPhase()
}

// enterHostPhase sends "inhost"/"outhost" per m.side and transitions to
// phaseAwaitHostOK, implementing spec.md §4.3.1's P5.
func (m *CreatorMachine) enterHostPhase() (string, error) {
	m.phase = phaseAwaitHostOK
	if m.side == SideClient {
		return "inhost " + m.cfg.inhostOrDefault() + "\n", nil
	}
	return "outhost " + m.cfg.outhostOrDefault() + "\n", nil
}

func (m *CreatorMachine) onAwaitHostOK(r *Reply) (string, error) {
	if r.Kind != KindOK {
		return m.fail(r, phaseAwaitHostOK)
	}
	m.phase = phaseAwaitPortOK
	if m.side == SideClient {
		return "inport " + m.cfg.inportOrDefault() + "\n", nil
	}
	return "outport " + m.cfg.outportOrDefault() + "\n", nil
}

func (m *CreatorMachine) onAwaitPortOK(r *Reply) (string, error) {
	if r.Kind != KindOK {
		return m.fail(r, phaseAwaitPortOK)
	}
	m.phase = phaseAwaitStartOK
	return "start\n", nil
}

func (m *CreatorMachine) onAwaitStartOK(r *Reply) (string, error) {
	if r.Kind != KindOK {
		return m.fail(r, phaseAwaitStartOK)
	}
	m.phase = phaseDone
	m.result = &CreatorResult{Destination: m.destination, Keypair: m.keypair}
	return "", nil
}
