package endpoint

import (
	"context"
	"testing"

	"github.com/go-i2p/txi2p/lib/samproto"
	"github.com/go-i2p/txi2p/lib/session"
	"github.com/go-i2p/txi2p/lib/transport"
	"github.com/go-i2p/txi2p/lib/util"
)

const sessionDialogue = "HELLO REPLY RESULT=OK VERSION=3.1\n" +
	"SESSION STATUS RESULT=OK DESTINATION=privkeyblob\n" +
	"NAMING REPLY RESULT=OK NAME=ME VALUE=pubkeyblob\n"

func TestClientEndpoint_ConnectHappyPath(t *testing.T) {
	reg := session.NewRegistry(nil)
	ep := transport.NewFakeEndpoint()
	ep.Conn.Feed(sessionDialogue)
	ep.Conn.Feed("STREAM STATUS RESULT=OK\n")

	client := NewClientEndpoint(reg, ep, "spam", "remote.b32.i2p", false, nil)

	var handled bool
	err := client.Connect(context.Background(), func(conn transport.Conn) {
		handled = true
		if conn == nil {
			t.Fatal("handler received a nil conn")
		}
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !handled {
		t.Fatal("expected the handler to run")
	}

	want := "HELLO VERSION MIN=3.0 MAX=3.3\n" +
		"SESSION CREATE STYLE=STREAM ID=spam DESTINATION=TRANSIENT\n" +
		"NAMING LOOKUP NAME=ME\n" +
		"STREAM CONNECT ID=spam DESTINATION=remote.b32.i2p\n"
	if got := ep.Conn.Written(); got != want {
		t.Fatalf("written = %q, want %q", got, want)
	}
}

func TestClientEndpoint_OptionsCapturedEvenWhenTransportRefused(t *testing.T) {
	opts := util.NewOptions()
	opts.Set("inbound.length", "5")
	opts.Set("outbound.length", "5")

	reg := session.NewRegistry(nil)
	ep := transport.NewFailingFakeEndpoint(util.ErrTransportRefused)

	client := NewClientEndpoint(reg, ep, "spam", "remote.b32.i2p", false, opts)

	err := client.Connect(context.Background(), func(transport.Conn) {
		t.Fatal("handler must not run when the session never establishes")
	})
	if err == nil {
		t.Fatal("expected transport-refused error")
	}

	got := client.Options()
	if v, _ := got.Get("inbound.length"); v != "5" {
		t.Fatalf("inbound.length = %q, want 5", v)
	}
	if v, _ := got.Get("outbound.length"); v != "5" {
		t.Fatalf("outbound.length = %q, want 5", v)
	}
}

func TestClientEndpoint_OptionsEmptyWhenOmitted(t *testing.T) {
	reg := session.NewRegistry(nil)
	ep := transport.NewFailingFakeEndpoint(util.ErrTransportRefused)
	client := NewClientEndpoint(reg, ep, "spam", "remote.b32.i2p", false, nil)

	if client.Options().Len() != 0 {
		t.Fatalf("Options().Len() = %d, want 0", client.Options().Len())
	}
}

func TestClientEndpoint_FromSessionReusesExistingSession(t *testing.T) {
	reg := session.NewRegistry(nil)
	ep := transport.NewFakeEndpoint()
	ep.Conn.Feed(sessionDialogue)

	sess, err := reg.Acquire(context.Background(), "spam", ep, false, samproto.SessionConfig{Nickname: "spam"})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	ep.Conn.Clear()
	ep.Conn.Feed("STREAM STATUS RESULT=OK\n")

	client := NewClientEndpointFromSession(reg, sess, "remote.b32.i2p")
	var handled bool
	if err := client.Connect(context.Background(), func(transport.Conn) { handled = true }); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !handled {
		t.Fatal("expected the handler to run")
	}
	if got := ep.Conn.Written(); got != "STREAM CONNECT ID=spam DESTINATION=remote.b32.i2p\n" {
		t.Fatalf("written = %q", got)
	}
}
