package session

import (
	"os"

	"github.com/go-i2p/txi2p/lib/util"
)

// loadKeyfile implements the read half of spec.md §6's key persistence
// contract: "on dialogue start, read it; if readable, the content is the
// private key. If unreadable, mark writePending=true." A missing, unreadable,
// or empty keyfile is not an error in itself; it just means the dialogue
// will generate a fresh keypair and this path becomes the write target.
func loadKeyfile(path string, log util.Logger) (privKey string, writePending bool) {
	if path == "" {
		return "", false
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if log != nil {
			log.Warnf("could not load private key from %s: %v", path, err)
		}
		return "", true
	}
	return string(content), false
}

// saveKeyfile implements the write half: "on successful session creation
// with writePending=true, write the current private key back to that path;
// an I/O failure is logged but does not fail the session."
func saveKeyfile(path, privKey string, log util.Logger) {
	if path == "" {
		return
	}
	if err := os.WriteFile(path, []byte(privKey), 0o600); err != nil {
		if log != nil {
			log.Warnf("could not save private key to %s: %v", path, err)
		}
	}
}
