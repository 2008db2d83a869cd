package samproto

import (
	"fmt"

	"github.com/go-i2p/txi2p/lib/util"
)

// BuildStreamConnect renders the command a client stream endpoint sends
// over a new control connection, opened through the session's endpoint, to
// open a data stream to a remote destination (spec.md §4.5 client stream
// endpoint).
func BuildStreamConnect(id, destination string) string {
	return fmt.Sprintf("STREAM CONNECT ID=%s DESTINATION=%s\n", id, destination)
}

// BuildStreamAccept renders the command a server stream endpoint sends to
// accept the next inbound data stream (spec.md §4.5 server stream
// endpoint).
func BuildStreamAccept(id string) string {
	return fmt.Sprintf("STREAM ACCEPT ID=%s\n", id)
}

// CheckStreamStatus validates a "STREAM STATUS RESULT=..." reply, returning
// a router-error *util.DialogError carrying the router's MESSAGE when RESULT
// is not OK.
func CheckStreamStatus(r *Reply) error {
	if r.Verb != "STREAM" || r.Subverb != "STATUS" {
		return fmt.Errorf("%w: expected STREAM STATUS, got %s %s", util.ErrProtocolMalformed, r.Verb, r.Subverb)
	}
	if !r.OK() {
		return util.NewDialogError(util.KindRouterError, "stream-status", r.Fields["MESSAGE"], nil)
	}
	return nil
}
