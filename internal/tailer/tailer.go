// Package tailer repeatedly reads newly appended, complete lines from a
// file past a remembered byte offset, tolerating a writer that is still
// appending and never losing a partially-written trailing line.
//
// Grounded on the teacher's poll-and-retry receive loop idiom
// (internal/netio's listener), generalized from a socket read to a file
// tail since no third-party tailing library (fsnotify or similar) appears
// anywhere in the example pack — see DESIGN.md.
package tailer

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/iop-apl-uw/glidermon/internal/errs"
)

// MaxConsecutiveFailures is the number of consecutive transient I/O
// failures the spec allows before the lifecycle controller terminates the
// monitor.
const MaxConsecutiveFailures = 5

// Tailer tracks the read offset and failure count for one log file. It is
// not safe for concurrent use; the controller drives it from a single
// goroutine, one Pass per poll tick.
type Tailer struct {
	path              string
	offset            int64
	consecutiveErrors int
}

// New creates a Tailer for path, starting at the given byte offset (0 for
// a cold start with no scan-back, or a prior run's persisted offset — see
// RestoreOffset). Pass persists the offset to a checkpoint sidecar file
// after every successful read, tagged with path's inode so a log rotation
// is never mistaken for a resumable restart.
func New(path string, offset int64) *Tailer {
	return &Tailer{path: path, offset: offset}
}

// Offset returns the current read offset, suitable for persisting across a
// restart.
func (t *Tailer) Offset() int64 { return t.offset }

// ConsecutiveFailures returns the number of consecutive transient failures
// since the last successful pass. The lifecycle controller terminates the
// monitor once this reaches MaxConsecutiveFailures.
func (t *Tailer) ConsecutiveFailures() int { return t.consecutiveErrors }

// Pass performs one poll: if the file doesn't exist yet, it returns no
// lines and no error (the caller should simply poll again after its normal
// sleep). If the file shrank since the last pass, Pass returns
// errs.ErrLogRotated, which the caller should treat as immediately fatal —
// it does not count against the consecutive-failure budget. Any other
// read/stat/open failure increments the consecutive-failure counter and
// returns an error wrapping errs.ErrTailerIO; a successful pass (even one
// that reads zero new lines) resets the counter to zero.
func (t *Tailer) Pass() ([]string, error) {
	info, err := os.Stat(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		t.consecutiveErrors++
		return nil, fmt.Errorf("%w: stat %s: %v", errs.ErrTailerIO, t.path, err)
	}

	if info.Size() < t.offset {
		return nil, fmt.Errorf("%w: %s shrank from %d to %d bytes", errs.ErrLogRotated, t.path, t.offset, info.Size())
	}

	f, err := os.Open(t.path)
	if err != nil {
		t.consecutiveErrors++
		return nil, fmt.Errorf("%w: open %s: %v", errs.ErrTailerIO, t.path, err)
	}
	defer f.Close()

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		t.consecutiveErrors++
		return nil, fmt.Errorf("%w: seek %s: %v", errs.ErrTailerIO, t.path, err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		t.consecutiveErrors++
		return nil, fmt.Errorf("%w: read %s: %v", errs.ErrTailerIO, t.path, err)
	}

	t.consecutiveErrors = 0

	lines, consumed := splitCompleteLines(data)
	t.offset += int64(consumed)
	if ino, ok := inodeOf(info); ok {
		t.saveCheckpoint(ino)
	}
	return lines, nil
}

// splitCompleteLines splits data into complete, newline-terminated lines
// (trailing "\r" trimmed, trailing "\n" stripped) and reports how many
// bytes those complete lines consumed. Any trailing bytes after the last
// newline are a partial line and are neither returned nor counted as
// consumed — re-reading from the unchanged offset next pass will see them
// again, prefixed with whatever the writer appends in between, which is
// exactly how a partial trailing line gets completed across polls.
func splitCompleteLines(data []byte) (lines []string, consumed int) {
	start := 0
	for i, b := range data {
		if b != '\n' {
			continue
		}
		line := data[start:i]
		line = trimCR(line)
		lines = append(lines, string(line))
		start = i + 1
	}
	return lines, start
}

func trimCR(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\r' {
		return b[:n-1]
	}
	return b
}
