package session

import (
	"context"
	"fmt"

	"github.com/go-i2p/txi2p/lib/samproto"
	"github.com/go-i2p/txi2p/lib/transport"
	"github.com/go-i2p/txi2p/lib/util"
)

// runSessionDialogue drives a samproto.SessionCreator to completion over
// conn: it writes the machine's next command after each reply and returns
// once the machine reaches a terminal state, per spec.md §4.3.3 and the
// §5 ordering guarantee ("no command is issued before the reply to the
// previous command has been fully consumed").
func runSessionDialogue(ctx context.Context, conn transport.Conn, cfg samproto.SessionConfig) (*samproto.CreatorResult, error) {
	m, err := samproto.NewSessionCreator(cfg)
	if err != nil {
		return nil, err
	}

	if err := conn.Write(ctx, []byte(m.Start())); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrTransportLost, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, util.NewDialogError(util.KindCancelled, "dialogue", "", ctx.Err())
		case line, ok := <-conn.Lines():
			if !ok {
				if connErr := conn.Err(); connErr != nil {
					return nil, connErr
				}
				return nil, util.NewDialogError(util.KindTransportLost, "dialogue", "connection closed before dialogue completed", nil)
			}
			reply, err := samproto.Parse(line)
			if err != nil {
				return nil, err
			}
			cmd, err := m.Step(reply)
			if err != nil {
				return nil, err
			}
			if m.Done() {
				return m.Result(), nil
			}
			if cmd != "" {
				if err := conn.Write(ctx, []byte(cmd)); err != nil {
					return nil, fmt.Errorf("%w: %v", util.ErrTransportLost, err)
				}
			}
		}
	}
}
