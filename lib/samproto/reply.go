// Package samproto implements the SAM v3 line protocol: parsing router
// replies and driving the session-creation dialogue described in
// spec.md §4.2 and §4.3.3.
package samproto

import (
	"fmt"
	"strings"

	"github.com/go-i2p/txi2p/lib/util"
)

// Reply is a single parsed line of SAM v3 router output: "<VERB> <SUBVERB>
// <key>=<value>...". Quoted values (containing spaces) are unescaped.
type Reply struct {
	Verb    string
	Subverb string
	Fields  map[string]string
}

// Result returns the RESULT field, or "" if absent.
func (r *Reply) Result() string { return r.Fields["RESULT"] }

// OK reports whether RESULT=OK.
func (r *Reply) OK() bool { return r.Result() == "OK" }

// Parse tokenizes one SAM reply line. It is a pure function of its input
// text; it never performs I/O.
func Parse(line string) (*Reply, error) {
	line = strings.TrimRight(line, "\r\n")
	tokens, err := tokenize(line)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty SAM reply", util.ErrProtocolMalformed)
	}

	r := &Reply{Verb: strings.ToUpper(tokens[0]), Fields: make(map[string]string)}
	idx := 1
	if len(tokens) > 1 && !strings.Contains(tokens[1], "=") {
		r.Subverb = strings.ToUpper(tokens[1])
		idx = 2
	}
	for _, tok := range tokens[idx:] {
		key, value, ok := splitKV(tok)
		if !ok {
			return nil, fmt.Errorf("%w: malformed key=value token %q", util.ErrProtocolMalformed, tok)
		}
		r.Fields[strings.ToUpper(key)] = value
	}
	return r, nil
}

func splitKV(tok string) (string, string, bool) {
	i := strings.IndexByte(tok, '=')
	if i < 0 {
		return "", "", false
	}
	return tok[:i], tok[i+1:], true
}

// tokenize splits a line on unquoted whitespace, honoring double-quoted
// values per spec.md §4.2 ("Values containing spaces are enclosed in
// double quotes").
func tokenize(line string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inQuote := false

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			inQuote = !inQuote
		case (ch == ' ' || ch == '\t') && !inQuote:
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("%w: unterminated quoted value", util.ErrProtocolMalformed)
	}
	flush()
	return tokens, nil
}
