package tailer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPassWritesCheckpointAfterSuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	writeFile(t, path, "Connected at 2024-01-15T00:00:00Z\n")

	tl := New(path, 0)
	if _, err := tl.Pass(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(CheckpointPath(path))
	if err != nil {
		t.Fatalf("checkpoint file not written: %v", err)
	}
	ino, offset, ok := parseCheckpoint(string(data))
	if !ok {
		t.Fatalf("checkpoint file unparsable: %q", data)
	}
	if offset != tl.Offset() {
		t.Errorf("checkpoint offset = %d, want %d", offset, tl.Offset())
	}
	if ino == 0 {
		t.Error("checkpoint inode = 0, want a real inode")
	}
}

func TestRestoreOffsetMatchingInode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	writeFile(t, path, "Connected at 2024-01-15T00:00:00Z\nReconnected at 2024-01-15T00:01:00Z\n")

	tl := New(path, 0)
	if _, err := tl.Pass(); err != nil {
		t.Fatal(err)
	}
	want := tl.Offset()

	if got := RestoreOffset(path); got != want {
		t.Errorf("RestoreOffset() = %d, want %d", got, want)
	}
}

func TestRestoreOffsetZeroAfterRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	writeFile(t, path, "Connected at 2024-01-15T00:00:00Z\n")

	tl := New(path, 0)
	if _, err := tl.Pass(); err != nil {
		t.Fatal(err)
	}

	// Simulate rotation: write the replacement beside the old file and
	// rename it over path. Both files exist at once, so the replacement
	// has a different inode (a plain remove-and-recreate may reuse the
	// freed inode number).
	rotated := path + ".new"
	writeFile(t, rotated, "Connected at 2024-02-01T00:00:00Z\n")
	if err := os.Rename(rotated, path); err != nil {
		t.Fatal(err)
	}

	if got := RestoreOffset(path); got != 0 {
		t.Errorf("RestoreOffset() after rotation = %d, want 0", got)
	}
}

func TestRestoreOffsetNoCheckpointFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	writeFile(t, path, "Connected at 2024-01-15T00:00:00Z\n")

	if got := RestoreOffset(path); got != 0 {
		t.Errorf("RestoreOffset() = %d, want 0 with no checkpoint file", got)
	}
}
