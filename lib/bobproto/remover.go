package bobproto

import (
	"fmt"

	"github.com/go-i2p/txi2p/lib/util"
)

type removerPhase int

const (
	removerAwaitBanner removerPhase = iota
	removerAwaitGreetingOK
	removerAwaitListOK
	removerAwaitGetNickOK
	removerAwaitStopOK
	removerAwaitClearOK
	removerDone
)

// RemoverMachine drives the BOB tunnel-removal dialogue (spec.md §4.3.2).
// If no tunnel with the configured nickname exists, it terminates with no
// further output: an idempotent no-op.
type RemoverMachine struct {
	nickname string

	phase       removerPhase
	descriptors []*TunnelDescriptor
	matched     *TunnelDescriptor

	done bool
	err  error
}

// NewRemover returns a Machine that removes the tunnel named nickname, if
// one exists.
func NewRemover(nickname string) *RemoverMachine {
	return &RemoverMachine{nickname: nickname, phase: removerAwaitBanner}
}

// Done reports whether the dialogue has reached a terminal state.
func (m *RemoverMachine) Done() bool { return m.done || m.err != nil }

// Err returns the terminal failure, or nil.
func (m *RemoverMachine) Err() error { return m.err }

// Step consumes one parsed Reply and returns the next command to write, or
// "" if none is due. Retries of "clear" on "tunnel shutting down" are
// handled internally per spec.md §4.3.2 and §7; the caller sees only a
// stream of clear\n commands until Done() becomes true.
func (m *RemoverMachine) Step(r *Reply) (string, error) {
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

func (m *RemoverMachine) step(r *Reply) (string, error) {
	switch m.phase {
	case removerAwaitBanner:
		if r.Kind != KindVersion {
			return m.fail(r)
		}
		m.phase = removerAwaitGreetingOK
		return "", nil
	case removerAwaitGreetingOK:
		if r.Kind != KindOK {
			return m.fail(r)
		}
		m.phase = removerAwaitListOK
		m.descriptors = nil
		return "list\n", nil
	case removerAwaitListOK:
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
				if d.Nickname == m.nickname {
					m.matched = d
					break
				}
			}
			if m.matched == nil {
				m.done = true
				return "", nil
			}
			m.phase = removerAwaitGetNickOK
			return "getnick " + m.nickname + "\n", nil
		default:
			return m.fail(r)
		}
	case removerAwaitGetNickOK:
		if r.Kind != KindOK {
			return m.fail(r)
		}
		if m.matched.Running {
			m.phase = removerAwaitStopOK
			return "stop\n", nil
		}
		m.phase = removerAwaitClearOK
		return "clear\n", nil
	case removerAwaitStopOK:
		if r.Kind != KindOK {
			return m.fail(r)
		}
		m.phase = removerAwaitClearOK
		return "clear\n", nil
	case removerAwaitClearOK:
		switch r.Kind {
		case KindOK:
			m.done = true
			return "", nil
		case KindError:
			if r.Message == "tunnel shutting down" {
				// Retry exactly as the previous attempt, per spec.md §4.3.2/§7.
				// The machine keeps no clock and sets no retry limit: it sends
				// clear again on every such reply.
				return "clear\n", nil
			}
			return m.fail(r)
		default:
			return m.fail(r)
		}
	default:
		return "", fmt.Errorf("%w: unreachable remover phase", util.ErrProtocolMalformed)
	}
}

func (m *RemoverMachine) fail(r *Reply) (string, error) {
	if r.Kind == KindError {
		return "", util.NewDialogError(util.KindRouterError, "remover", r.Message, nil)
	}
	return "", util.NewDialogError(util.KindProtocolMalformed, "remover",
		fmt.Sprintf("unexpected reply kind %v", r.Kind), nil)
}
