package lifecycle

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInspectReportsOpenSessionState(t *testing.T) {
	dir := sgMissionDir(t, "sg042")
	logPath := filepath.Join(dir, "session.log")
	writeLines(t, logPath,
		"Connected at 2024-01-15T11:00:00Z",
		"Counter: dive=7, gps=4730.1234N,12215.5678W, ts=2024-01-15T11:01:00Z",
	)

	st, err := Inspect(dir, logPath)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if st.GliderID != "42" {
		t.Errorf("GliderID = %q, want 42", st.GliderID)
	}
	if st.Dive != 7 {
		t.Errorf("Dive = %d, want 7", st.Dive)
	}
	if !st.Open {
		t.Error("expected Open = true for a session with no Disconnected yet")
	}
	if st.LastFix == "none" || st.LastFix == "" {
		t.Error("expected a formatted last fix")
	}
}

func TestInspectReportsDisconnectedState(t *testing.T) {
	dir := sgMissionDir(t, "sg042")
	logPath := filepath.Join(dir, "session.log")
	writeLines(t, logPath,
		"Connected at 2024-01-15T11:00:00Z",
		"Disconnected at 2024-01-15T11:05:00Z (logout)",
	)

	st, err := Inspect(dir, logPath)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if st.Open {
		t.Error("expected Open = false after an observed Disconnected")
	}
}

func TestInspectReportsLockLiveness(t *testing.T) {
	dir := sgMissionDir(t, "sg042")
	logPath := filepath.Join(dir, "session.log")
	lockPath := filepath.Join(dir, lockFileName)
	if err := os.WriteFile(lockPath, []byte("4242"), 0o644); err != nil {
		t.Fatal(err)
	}

	st, err := Inspect(dir, logPath)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if st.LockPID != 4242 {
		t.Errorf("LockPID = %d, want 4242", st.LockPID)
	}
}

func TestInspectNoLogFileYet(t *testing.T) {
	dir := sgMissionDir(t, "sg042")
	logPath := filepath.Join(dir, "session.log")

	st, err := Inspect(dir, logPath)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if st.GliderID != "42" {
		t.Errorf("GliderID = %q, want 42 (resolved from directory name alone)", st.GliderID)
	}
	if st.LastFix != "none" {
		t.Errorf("LastFix = %q, want none", st.LastFix)
	}
}
