package samproto

import "testing"

func TestParse_HelloReply(t *testing.T) {
	r, err := Parse("HELLO REPLY RESULT=OK VERSION=3.1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Verb != "HELLO" || r.Subverb != "REPLY" || !r.OK() || r.Fields["VERSION"] != "3.1" {
		t.Fatalf("got %+v", r)
	}
}

func TestParse_SessionStatus(t *testing.T) {
	r, err := Parse("SESSION STATUS RESULT=OK DESTINATION=abc123")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Verb != "SESSION" || r.Subverb != "STATUS" || r.Fields["DESTINATION"] != "abc123" {
		t.Fatalf("got %+v", r)
	}
}

func TestParse_QuotedValue(t *testing.T) {
	r, err := Parse(`NAMING REPLY RESULT=KEY_NOT_FOUND MESSAGE="no such name"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Fields["MESSAGE"] != "no such name" {
		t.Fatalf("MESSAGE = %q", r.Fields["MESSAGE"])
	}
	if r.OK() {
		t.Fatal("expected non-OK result")
	}
}

func TestParse_NamingReply(t *testing.T) {
	r, err := Parse("NAMING REPLY RESULT=OK NAME=ME VALUE=pubkeyBlob")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Fields["NAME"] != "ME" || r.Fields["VALUE"] != "pubkeyBlob" {
		t.Fatalf("got %+v", r)
	}
}
