package bobproto

import "testing"

func driveRemover(t *testing.T, m *RemoverMachine, lines []string) []string {
	t.Helper()
	var out []string
	for _, line := range lines {
		r, err := Parse(line)
		if err != nil {
			t.Fatalf("Parse(%q): %v", line, err)
		}
		cmd, err := m.Step(r)
		if err != nil {
			t.Fatalf("Step(%q): %v", line, err)
		}
		if cmd != "" {
			out = append(out, cmd)
		}
	}
	return out
}

func TestRemover_NoMatchIsNoOp(t *testing.T) {
	m := NewRemover("spam")
	got := driveRemover(t, m, []string{"BOB 00.00.10", "OK", "OK Listing done"})
	if len(got) != 1 || got[0] != "list\n" {
		t.Fatalf("commands = %v, want only list", got)
	}
	if !m.Done() || m.Err() != nil {
		t.Fatalf("expected idempotent no-op success, Done=%v Err=%v", m.Done(), m.Err())
	}
}

func TestRemover_RunningTunnelStopsThenClears(t *testing.T) {
	m := NewRemover("spam")
	lines := []string{
		"BOB 00.00.10", "OK",
		"DATA NICKNAME: spam STARTING: false RUNNING: true STOPPING: false KEYS: true QUIET: false INPORT: 12345 INHOST: localhost OUTPORT: 23456 OUTHOST: localhost",
		"OK Listing done",
		"OK HTTP 418", // ack getnick -> stop
		"OK HTTP 418", // ack stop -> clear
		"OK",          // ack clear -> done
	}
	got := driveRemover(t, m, lines)
	want := []string{"list\n", "getnick spam\n", "stop\n", "clear\n"}
	assertCommands(t, got, want)
	if !m.Done() || m.Err() != nil {
		t.Fatalf("expected success, Done=%v Err=%v", m.Done(), m.Err())
	}
}

func TestRemover_ClearRetriesOnShuttingDown(t *testing.T) {
	m := NewRemover("spam")
	lines := []string{
		"BOB 00.00.10", "OK",
		"DATA NICKNAME: spam STARTING: false RUNNING: true STOPPING: false KEYS: true QUIET: false INPORT: 12345 INHOST: localhost OUTPORT: 23456 OUTHOST: localhost",
		"OK Listing done",
		"OK HTTP 418", // ack getnick -> stop
		"OK HTTP 418", // ack stop -> clear
		"ERROR tunnel shutting down", // retry clear
	}
	got := driveRemover(t, m, lines)
	want := []string{"list\n", "getnick spam\n", "stop\n", "clear\n", "clear\n"}
	assertCommands(t, got, want)
	if m.Done() {
		t.Fatal("machine should still be waiting for a successful clear")
	}

	final, err := Parse("OK")
	if err != nil {
		t.Fatal(err)
	}
	if cmd, err := m.Step(final); err != nil || cmd != "" {
		t.Fatalf("final Step = %q, %v", cmd, err)
	}
	if !m.Done() || m.Err() != nil {
		t.Fatalf("expected success after retried clear, Done=%v Err=%v", m.Done(), m.Err())
	}
}
