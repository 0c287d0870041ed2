package lifecycle

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/iop-apl-uw/glidermon/internal/errs"
)

// evictWait is the maximum time to wait for a superseded peer monitor to
// exit after SIGKILL, per spec §4.8 step 3 and scenario S4.
const evictWait = 10 * time.Second

const evictPollInterval = 100 * time.Millisecond

// AcquireLock implements the singleton protocol named in spec §9's design
// note: exclusive-create with the current pid, then on conflict read the
// peer pid and evict it. Returns errs.ErrSingletonConflict (non-retryable;
// the caller should exit non-zero per §6) if the peer cannot be evicted
// within evictWait.
func AcquireLock(path string, probe ProcessProbe) error {
	pid := os.Getpid()

	if err := writeLockExclusive(path, pid); err == nil {
		return nil
	} else if !os.IsExist(err) {
		return fmt.Errorf("lifecycle: create lock file %s: %w", path, err)
	}

	peerPID, err := readLockPID(path)
	if err != nil {
		return fmt.Errorf("lifecycle: read existing lock file %s: %w", path, err)
	}

	if probe.Alive(peerPID) {
		if killErr := syscall.Kill(peerPID, syscall.SIGKILL); killErr != nil && probe.Alive(peerPID) {
			return fmt.Errorf("%w: signal pid %d: %v", errs.ErrSingletonConflict, peerPID, killErr)
		}

		deadline := time.Now().Add(evictWait)
		for probe.Alive(peerPID) {
			if time.Now().After(deadline) {
				return fmt.Errorf("%w: pid %d did not exit within %s", errs.ErrSingletonConflict, peerPID, evictWait)
			}
			time.Sleep(evictPollInterval)
		}
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lifecycle: remove stale lock file %s: %w", path, err)
	}
	if err := writeLockExclusive(path, pid); err != nil {
		return fmt.Errorf("%w: re-create lock file %s after eviction: %v", errs.ErrSingletonConflict, path, err)
	}
	return nil
}

// ReleaseLock removes the lock file. Per §4.8 ("on any path that exits the
// loop: remove the lock file"), this is best-effort cleanup; a missing file
// is not an error.
func ReleaseLock(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func writeLockExclusive(path string, pid int) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(strconv.Itoa(pid))
	return err
}

func readLockPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid from lock file %s: %w", path, err)
	}
	return pid, nil
}
