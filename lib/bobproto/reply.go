// Package bobproto implements the BOB (Basic Open Bridge) line protocol:
// parsing router replies and driving the tunnel-creation and
// tunnel-removal dialogues described in spec.md §4.2-4.3.
package bobproto

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-i2p/txi2p/lib/util"
)

// Kind classifies a parsed BOB reply line.
type Kind int

const (
	// KindVersion is the one-time "BOB <version>" banner.
	KindVersion Kind = iota
	// KindOK is a successful command acknowledgement.
	KindOK
	// KindError is a failed command acknowledgement.
	KindError
	// KindData is a tunnel descriptor row emitted during "list".
	KindData
)

// Reply is a single parsed line of BOB router output.
type Reply struct {
	Kind    Kind
	Version string             // set only when Kind == KindVersion
	Message string             // free text after OK/ERROR, verbatim
	Fields  map[string]string  // raw key:value pairs, set only when Kind == KindData
}

// Parse converts one line of BOB router output into a Reply. It never
// performs I/O; it is a pure function of its input text, per spec.md §4.2.
func Parse(line string) (*Reply, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, fmt.Errorf("%w: empty line", util.ErrProtocolMalformed)
	}

	switch {
	case strings.HasPrefix(line, "BOB "):
		return &Reply{Kind: KindVersion, Version: strings.TrimSpace(line[len("BOB "):])}, nil
	case line == "OK":
		return &Reply{Kind: KindOK}, nil
	case strings.HasPrefix(line, "OK "):
		return &Reply{Kind: KindOK, Message: line[len("OK "):]}, nil
	case line == "ERROR":
		return &Reply{Kind: KindError}, nil
	case strings.HasPrefix(line, "ERROR "):
		return &Reply{Kind: KindError, Message: line[len("ERROR "):]}, nil
	case strings.HasPrefix(line, "DATA "):
		fields, err := parseDataFields(line[len("DATA "):])
		if err != nil {
			return nil, err
		}
		return &Reply{Kind: KindData, Fields: fields}, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized BOB reply: %q", util.ErrProtocolMalformed, line)
	}
}

// parseDataFields splits "K1: V1 K2: V2 ..." into a map. Each key is
// terminated by a literal colon, as emitted by the router for "list".
func parseDataFields(rest string) (map[string]string, error) {
	tokens := strings.Fields(rest)
	fields := make(map[string]string)

	var key string
	for _, tok := range tokens {
		if strings.HasSuffix(tok, ":") {
			key = strings.TrimSuffix(tok, ":")
			continue
		}
		if key == "" {
			return nil, fmt.Errorf("%w: DATA value without key: %q", util.ErrProtocolMalformed, rest)
		}
		if existing, ok := fields[key]; ok {
			fields[key] = existing + " " + tok
		} else {
			fields[key] = tok
		}
		key = ""
	}
	return fields, nil
}

// Descriptor parses the Fields of a KindData reply into a TunnelDescriptor.
// It is only valid to call when r.Kind == KindData.
func (r *Reply) Descriptor() (*TunnelDescriptor, error) {
	if r.Kind != KindData {
		return nil, fmt.Errorf("%w: Descriptor called on non-DATA reply", util.ErrProtocolMalformed)
	}
	return descriptorFromFields(r.Fields)
}

// TunnelDescriptor is a parsed BOB tunnel listing row (spec.md §3).
type TunnelDescriptor struct {
	Nickname string
	Starting bool
	Running  bool
	Stopping bool
	HasKeys  bool
	Quiet    bool
	Inport   int
	Inhost   string
	Outport  int
	Outhost  string
}

// descriptorFromFields builds a TunnelDescriptor from a KindData Reply's Fields.
func descriptorFromFields(f map[string]string) (*TunnelDescriptor, error) {
	d := &TunnelDescriptor{
		Nickname: f["NICKNAME"],
		Inhost:   f["INHOST"],
		Outhost:  f["OUTHOST"],
	}

	var err error
	if d.Starting, err = parseBool(f, "STARTING"); err != nil {
		return nil, err
	}
	if d.Running, err = parseBool(f, "RUNNING"); err != nil {
		return nil, err
	}
	if d.Stopping, err = parseBool(f, "STOPPING"); err != nil {
		return nil, err
	}
	if d.HasKeys, err = parseBool(f, "KEYS"); err != nil {
		return nil, err
	}
	if d.Quiet, err = parseBool(f, "QUIET"); err != nil {
		return nil, err
	}
	if d.Inport, err = parseInt(f, "INPORT"); err != nil {
		return nil, err
	}
	if d.Outport, err = parseInt(f, "OUTPORT"); err != nil {
		return nil, err
	}
	return d, nil
}

func parseBool(f map[string]string, key string) (bool, error) {
	v, ok := f[key]
	if !ok {
		return false, nil
	}
	switch v {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("%w: DATA field %s has non-boolean value %q", util.ErrProtocolMalformed, key, v)
	}
}

func parseInt(f map[string]string, key string) (int, error) {
	v, ok := f[key]
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: DATA field %s has non-integer value %q", util.ErrProtocolMalformed, key, v)
	}
	return n, nil
}
