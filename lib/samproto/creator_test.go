package samproto

import (
	"strings"
	"testing"

	"github.com/go-i2p/txi2p/lib/util"
)

func step(t *testing.T, m *SessionCreator, line string) string {
	t.Helper()
	r, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse(%q): %v", line, err)
	}
	cmd, err := m.Step(r)
	if err != nil {
		t.Fatalf("Step(%q): %v", line, err)
	}
	return cmd
}

func TestSessionCreator_FullDialogue(t *testing.T) {
	opts := util.NewOptions()
	opts.Set("inbound.length", "5")
	opts.Set("outbound.length", "5")

	m, err := NewSessionCreator(SessionConfig{Nickname: "spam", Options: opts})
	if err != nil {
		t.Fatalf("NewSessionCreator: %v", err)
	}

	if got := m.Start(); got != "HELLO VERSION MIN=3.0 MAX=3.3\n" {
		t.Fatalf("Start() = %q", got)
	}

	cmd := step(t, m, "HELLO REPLY RESULT=OK VERSION=3.1")
	want := "SESSION CREATE STYLE=STREAM ID=spam DESTINATION=TRANSIENT inbound.length=5 outbound.length=5\n"
	if cmd != want {
		t.Fatalf("SESSION CREATE cmd = %q, want %q", cmd, want)
	}

	cmd = step(t, m, "SESSION STATUS RESULT=OK DESTINATION=privKeyBlob")
	if cmd != "NAMING LOOKUP NAME=ME\n" {
		t.Fatalf("naming lookup cmd = %q", cmd)
	}

	cmd = step(t, m, "NAMING REPLY RESULT=OK NAME=ME VALUE=pubKeyBlob")
	if cmd != "" {
		t.Fatalf("expected no further command, got %q", cmd)
	}
	if !m.Done() || m.Err() != nil {
		t.Fatalf("expected success, Done=%v Err=%v", m.Done(), m.Err())
	}
	res := m.Result()
	if res.Version != "3.1" || res.PublicKey != "pubKeyBlob" || res.PrivateKey != "privKeyBlob" || res.ID != "spam" {
		t.Fatalf("Result = %+v", res)
	}
}

func TestSessionCreator_SynthesizesNicknameWhenEmpty(t *testing.T) {
	m, err := NewSessionCreator(SessionConfig{})
	if err != nil {
		t.Fatalf("NewSessionCreator: %v", err)
	}
	m.Start()
	cmd := step(t, m, "HELLO REPLY RESULT=OK VERSION=3.1")
	if !strings.HasPrefix(cmd, "SESSION CREATE STYLE=STREAM ID=txi2p-") {
		t.Fatalf("cmd = %q, want synthesized txi2p-<pid> ID", cmd)
	}
}

func TestSessionCreator_RejectsUnsupportedStyle(t *testing.T) {
	_, err := NewSessionCreator(SessionConfig{Style: "DATAGRAM"})
	if err == nil {
		t.Fatal("expected error for unsupported style")
	}
}

func TestSessionCreator_RouterErrorAborts(t *testing.T) {
	m, err := NewSessionCreator(SessionConfig{Nickname: "spam"})
	if err != nil {
		t.Fatal(err)
	}
	m.Start()
	r, _ := Parse("HELLO REPLY RESULT=NOVERSION")
	if _, err := m.Step(r); err == nil {
		t.Fatal("expected error")
	}
	if !m.Done() {
		t.Fatal("expected terminal state after router error")
	}
}

func TestSessionCreator_OptionsEmptyWhenNotSupplied(t *testing.T) {
	m, err := NewSessionCreator(SessionConfig{Nickname: "spam"})
	if err != nil {
		t.Fatal(err)
	}
	m.Start()
	cmd := step(t, m, "HELLO REPLY RESULT=OK VERSION=3.1")
	if cmd != "SESSION CREATE STYLE=STREAM ID=spam DESTINATION=TRANSIENT\n" {
		t.Fatalf("cmd = %q", cmd)
	}
}
