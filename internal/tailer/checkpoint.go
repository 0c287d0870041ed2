package tailer

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// checkpointSuffix names the sidecar file a Tailer persists its read offset
// to after every successful Pass, so a restarted monitor does not have to
// scan the whole log back from byte 0.
const checkpointSuffix = ".offset"

// CheckpointPath returns the checkpoint sidecar path for a tailed log at
// path.
func CheckpointPath(path string) string {
	return path + checkpointSuffix
}

// RestoreOffset reads the checkpoint file beside path and returns the
// offset a new Tailer for path should start from: the persisted offset if
// the checkpoint's recorded inode still matches path's current inode (the
// file has not been rotated since the checkpoint was written), or 0
// otherwise. Any read, parse, or stat failure is treated the same as "no
// usable checkpoint" — the caller falls back to a full scan-back, which is
// always safe, just slower.
func RestoreOffset(path string) int64 {
	data, err := os.ReadFile(CheckpointPath(path))
	if err != nil {
		return 0
	}
	ino, offset, ok := parseCheckpoint(string(data))
	if !ok {
		return 0
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	curIno, ok := inodeOf(info)
	if !ok || curIno != ino {
		return 0
	}
	return offset
}

func parseCheckpoint(s string) (ino uint64, offset int64, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	ino, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	offset, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return ino, offset, true
}

// saveCheckpoint persists t's current offset, tagged with path's inode, so
// RestoreOffset can tell a rotated file from one that simply grew. Failures
// are not fatal to the calling Pass — a stale or missing checkpoint just
// means the next restart scans back further than strictly necessary.
func (t *Tailer) saveCheckpoint(ino uint64) {
	body := fmt.Sprintf("%d:%d", ino, t.offset)
	_ = os.WriteFile(CheckpointPath(t.path), []byte(body), 0o644)
}

func inodeOf(info os.FileInfo) (uint64, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return st.Ino, true
}
