package bobproto

import (
	"strconv"

	"github.com/go-i2p/txi2p/lib/util"
)

// Default ports per spec.md §6. The creator machines send these only
// when the caller's TunnelConfig did not supply a value.
const (
	DefaultInport  = 9000
	DefaultOutport = 9001
)

// DefaultHost is used for inhost/outhost when the caller leaves them unset.
// The BOB wire protocol does not document a host default the way it
// documents DEFAULT_INPORT/DEFAULT_OUTPORT; "localhost" is the
// conventional BOB tunnel host and is applied here for the same reason
// the port defaults are applied: TunnelConfig is frozen before any command
// is sent, so some value must be sent either way.
const DefaultHost = "localhost"

// TunnelConfig is the immutable input to a BOB tunnel-creation dialogue
// (spec.md §3); the tunnel remover takes only a nickname. Once passed to a
// Machine constructor it is never mutated.
type TunnelConfig struct {
	Nickname    string
	Keypair     string // opaque private-key blob; empty means "generate one"
	KeyfilePath string // path for a keypair file; not read by the machines in this package, which neither load nor save keys

	Inhost  string
	Inport  string
	Outhost string
	Outport string

	Options *util.Options
}

// inportOrDefault returns the configured inport, or the stringified
// DefaultInport when unset.
func (c TunnelConfig) inportOrDefault() string {
	if c.Inport != "" {
		return c.Inport
	}
	return strconv.Itoa(DefaultInport)
}

func (c TunnelConfig) outportOrDefault() string {
	if c.Outport != "" {
		return c.Outport
	}
	return strconv.Itoa(DefaultOutport)
}

func (c TunnelConfig) inhostOrDefault() string {
	if c.Inhost != "" {
		return c.Inhost
	}
	return DefaultHost
}

func (c TunnelConfig) outhostOrDefault() string {
	if c.Outhost != "" {
		return c.Outhost
	}
	return DefaultHost
}
