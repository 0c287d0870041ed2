package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iop-apl-uw/glidermon/internal/gpsfix"
	"github.com/iop-apl-uw/glidermon/internal/logline"
	"github.com/iop-apl-uw/glidermon/internal/session"
	"github.com/iop-apl-uw/glidermon/internal/tailer"
)

// Status is a point-in-time read of a mission directory, built without
// running (or disturbing) a live Controller. glidermonctl status uses this
// to answer "what is this mission's monitor doing right now" from the
// outside.
type Status struct {
	MissionDir string
	GliderID   string
	Dive       int
	LastFix    string // formatted ddmm.mmmm, or "none" if no fix seen yet
	Open       bool   // true if the replayed log ends mid-session
	LockPID    int    // 0 if no lock file present
	LockAlive  bool   // whether LockPID names a live process
}

// Inspect replays missionDir's session log from byte zero (a scan-back
// with no callbacks, mirroring the controller's own cold-start pass) and
// reports the resulting session state plus whatever the singleton lock
// file says about a possibly-running monitor. The only file it writes is
// the `<log>.offset` checkpoint that tailer.Pass saves beside logPath.
func Inspect(missionDir, logPath string) (Status, error) {
	st := Status{MissionDir: missionDir}

	lockPath := filepath.Join(missionDir, lockFileName)
	if pid, err := readLockPID(lockPath); err == nil {
		st.LockPID = pid
		st.LockAlive = osProcessProbe{}.Alive(pid)
	} else if !os.IsNotExist(err) {
		return Status{}, fmt.Errorf("lifecycle: read lock file: %w", err)
	}

	commLog := &session.CommLog{}
	reducer := session.NewReducer(session.NoopVisitor{}, commLog)
	reducer.FirstTime = true

	t := tailer.New(logPath, 0)
	lines, err := t.Pass()
	if err != nil {
		return Status{}, fmt.Errorf("lifecycle: read session log: %w", err)
	}
	for _, line := range lines {
		reducer.Feed(logline.Classify(line))
	}

	st.GliderID = resolveGliderID(commLog, missionDir)
	snap, err := commLog.LastSurfacing()
	if err != nil {
		st.Dive = session.DiveUnknown
		st.LastFix = "none"
		return st, nil
	}

	st.Dive = snap.Dive
	st.Open = commLog.Current != nil
	if snap.LastFix.Valid {
		formatted, err := snap.LastFix.Format(gpsfix.FormatDDMM)
		if err == nil {
			st.LastFix = formatted
		} else {
			st.LastFix = "unformattable"
		}
	} else {
		st.LastFix = "none"
	}
	return st, nil
}

// String renders a Status as the one-shot human summary glidermonctl prints.
func (s Status) String() string {
	state := "no session observed"
	switch {
	case s.Open:
		state = "connected"
	case s.GliderID != "" || s.Dive != session.DiveUnknown:
		state = "disconnected"
	}

	lock := "not held"
	if s.LockPID != 0 {
		lock = fmt.Sprintf("pid %d (%s)", s.LockPID, aliveWord(s.LockAlive))
	}

	dive := "unknown"
	if s.Dive != session.DiveUnknown {
		dive = fmt.Sprintf("%d", s.Dive)
	}

	return fmt.Sprintf("mission:   %s\nglider id: %s\nstate:     %s\ndive:      %s\nlast fix:  %s\nlock:      %s\nas of:     %s",
		s.MissionDir, orNone(s.GliderID), state, dive, s.LastFix, lock, time.Now().UTC().Format(time.RFC3339))
}

func aliveWord(alive bool) string {
	if alive {
		return "alive"
	}
	return "not running"
}

func orNone(s string) string {
	if s == "" {
		return "(unresolved)"
	}
	return s
}
