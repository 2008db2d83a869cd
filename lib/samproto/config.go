package samproto

import "github.com/go-i2p/txi2p/lib/util"

// StyleStream is the only session style this library supports (spec.md §1
// Non-goals: "only STREAM style is supported").
const StyleStream = "STREAM"

// Default SAM protocol version bounds offered in HELLO VERSION.
const (
	DefaultMinVersion = "3.0"
	DefaultMaxVersion = "3.3"
)

// TransientDestination is sent as DESTINATION= when the caller supplies no
// private key, asking the router to generate one.
const TransientDestination = "TRANSIENT"

// SessionConfig is the immutable input to a SAM session-creation dialogue
// (spec.md §3 TunnelConfig, specialized to SAM SESSION CREATE).
type SessionConfig struct {
	Nickname    string // session ID; synthesized if empty (spec.md §4.3.3 step 2)
	Style       string // must be "" or StyleStream
	PrivKey     string // opaque private-key blob; empty means TRANSIENT
	KeyfilePath string // optional path to persist the router-returned key (spec.md §6)
	MinVersion  string
	MaxVersion  string
	Options     *util.Options
}

func (c SessionConfig) minVersion() string {
	if c.MinVersion != "" {
		return c.MinVersion
	}
	return DefaultMinVersion
}

func (c SessionConfig) maxVersion() string {
	if c.MaxVersion != "" {
		return c.MaxVersion
	}
	return DefaultMaxVersion
}

func (c SessionConfig) style() string {
	if c.Style != "" {
		return c.Style
	}
	return StyleStream
}

func (c SessionConfig) destinationOrTransient() string {
	if c.PrivKey != "" {
		return c.PrivKey
	}
	return TransientDestination
}
