// Package lifecycle implements the monitor's startup/shutdown protocol:
// singleton lock acquisition with peer eviction, the 1-second cooperative
// poll loop that drives the tailer and reducer, the parent-shell watchdog,
// and synthetic disconnect. Grounded on the teacher's cmd/gobfd run/
// runServers split (errgroup-free here, since the spec's concurrency model
// is explicitly single-threaded cooperative with one background HTTP
// concern — see cmd/glidermon for where that concern is wired in).
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/iop-apl-uw/glidermon/internal/dispatch"
	"github.com/iop-apl-uw/glidermon/internal/errs"
	"github.com/iop-apl-uw/glidermon/internal/logline"
	"github.com/iop-apl-uw/glidermon/internal/metrics"
	"github.com/iop-apl-uw/glidermon/internal/session"
	"github.com/iop-apl-uw/glidermon/internal/tailer"
)

// lockFileName is the fixed dotfile name written into the mission
// directory, per spec §6 ("path is a fixed dotfile in the mission
// directory containing an ASCII decimal process id").
const lockFileName = ".glidermon.lock"

// livenessMarkerName is the dotfile a Controller creates while a session is
// open and removes on disconnect (real or synthetic), per §4.8 step 3. It
// carries no content of its own — its mere presence is what an external
// watcher (or a future glidermonctl command) would check.
const livenessMarkerName = ".glidermon.session-open"

// pollInterval is the run loop's tick, per spec §4.8 step 5.
const pollInterval = 1 * time.Second

// defaultLateGPSThreshold is how long after Connected a first GPS fix may
// arrive before the dispatcher is asked to fire lategps instead of gps.
// The spec names the two event kinds but leaves the threshold unspecified;
// ten minutes is a judgment call, documented in DESIGN.md.
const defaultLateGPSThreshold = 10 * time.Minute

// Controller runs one mission's monitor lifecycle end to end.
type Controller struct {
	MissionDir string
	LogPath    string
	ParentPID  int
	GliderID   string // may be empty; resolved on the first pass

	Dispatcher *dispatch.Dispatcher
	Metrics    *metrics.Collector
	Logger     *slog.Logger

	LateGPSThreshold time.Duration

	// AuxInputs, if set, is consulted before every reducer-triggered
	// dispatch to supply the bodies only an out-of-scope collaborator
	// (scientific conversion, archival, upload pipeline) can produce. A
	// nil AuxInputs means those event kinds are never non-trivially
	// populated by this controller — they remain reachable only through
	// glidermonctl send-test or a direct Dispatcher.Dispatch call from
	// whatever process does own that pipeline.
	AuxInputs func() dispatch.AuxInputs

	// ProcessProbe overrides the watchdog/lock-eviction process probe;
	// nil uses the real OS probe. Tests inject a fake process table here.
	ProcessProbe ProcessProbe

	// OnStatus, if set, is called after every pass with the currently
	// known glider id, so a caller (cmd/glidermon) can publish a /status
	// snapshot without the controller knowing anything about HTTP.
	OnStatus func(gliderID string, at time.Time)

	lockPath string
	commLog  *session.CommLog
}

// New builds a Controller with the production process probe and default
// late-GPS threshold.
func New(missionDir, logPath string, parentPID int, d *dispatch.Dispatcher, m *metrics.Collector, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		MissionDir:       missionDir,
		LogPath:          logPath,
		ParentPID:        parentPID,
		Dispatcher:       d,
		Metrics:          m,
		Logger:           logger,
		LateGPSThreshold: defaultLateGPSThreshold,
	}
}

// markerPath returns the liveness marker's path inside the mission
// directory.
func (c *Controller) markerPath() string {
	return filepath.Join(c.MissionDir, livenessMarkerName)
}

// writeLivenessMarker creates the liveness marker file, truncating it if it
// somehow already exists (e.g. left behind by an ungraceful prior exit).
// Best-effort: a failure here is logged but never aborts the session.
func (c *Controller) writeLivenessMarker() {
	f, err := os.OpenFile(c.markerPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		c.Logger.Warn("failed to write liveness marker", slog.String("error", err.Error()))
		return
	}
	f.Close()
}

// removeLivenessMarker removes the liveness marker file. A missing file is
// not an error — it just means the session was never marked open (or was
// already cleaned up).
func (c *Controller) removeLivenessMarker() {
	if err := os.Remove(c.markerPath()); err != nil && !os.IsNotExist(err) {
		c.Logger.Warn("failed to remove liveness marker", slog.String("error", err.Error()))
	}
}

func (c *Controller) buildAuxInputs() dispatch.AuxInputs {
	if c.AuxInputs == nil {
		return dispatch.AuxInputs{}
	}
	return c.AuxInputs()
}

// Run executes the full lifecycle: lock acquisition, the cooperative poll
// loop, and teardown. It returns nil on any normal exit path (status 0 per
// §6 — including a watchdog-triggered synthetic disconnect or an observed
// Disconnected) and a non-nil error (status 1) on setup failure, on a log
// that shrank (errs.ErrLogRotated), or once the tailer reaches
// tailer.MaxConsecutiveFailures consecutive I/O failures: the caller
// (cmd/glidermon) maps the returned error to an exit code.
func (c *Controller) Run(ctx context.Context) error {
	probe := c.ProcessProbe
	if probe == nil {
		probe = osProcessProbe{}
	}

	c.lockPath = filepath.Join(c.MissionDir, lockFileName)
	if err := AcquireLock(c.lockPath, probe); err != nil {
		return fmt.Errorf("lifecycle: acquire lock: %w", err)
	}
	defer func() {
		if err := ReleaseLock(c.lockPath); err != nil {
			c.Logger.Warn("failed to remove lock file", slog.String("path", c.lockPath), slog.String("error", err.Error()))
		}
	}()

	watchdog := NewWatchdog(c.ParentPID, probe)

	c.commLog = &session.CommLog{}
	visitor := &dispatchVisitor{controller: c}
	reducer := session.NewReducer(visitor, c.commLog)
	t := tailer.New(c.LogPath, tailer.RestoreOffset(c.LogPath))

	firstPass := true

	for {
		if ctx.Err() != nil {
			return nil
		}

		lines, err := t.Pass()
		if err != nil {
			if errors.Is(err, errs.ErrLogRotated) {
				return fmt.Errorf("lifecycle: %w", err)
			}
			c.Logger.Warn("tailer pass failed", slog.String("error", err.Error()))
			if t.ConsecutiveFailures() >= tailer.MaxConsecutiveFailures {
				return fmt.Errorf("lifecycle: tailer exceeded %d consecutive failures: %w", tailer.MaxConsecutiveFailures, err)
			}
		}

		reducer.FirstTime = firstPass
		for _, line := range lines {
			c.feedLine(reducer, line)
		}
		if c.Metrics != nil {
			c.Metrics.RecordTailerPass(len(lines), t.ConsecutiveFailures())
		}

		if firstPass {
			firstPass = false
			if c.GliderID == "" {
				c.GliderID = resolveGliderID(c.commLog, c.MissionDir)
				if c.Dispatcher != nil {
					c.Dispatcher.GliderID = c.GliderID
				}
			}
		}

		if c.OnStatus != nil {
			c.OnStatus(c.GliderID, time.Now().UTC())
		}

		if visitor.disconnected {
			return nil
		}

		if watchdog.Tick() {
			c.syntheticDisconnect(reducer)
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(pollInterval):
		}
	}
}

// feedLine classifies and feeds one line, catching any panic a callback
// raises at the loop boundary and logging it as critical, per §7
// ("unhandled reducer/callback exception: logged critical, process
// exits") — here, narrowed to isolate one bad line rather than crash the
// whole monitor, since the dispatcher's own per-sink isolation already
// covers the far more common failure mode.
func (c *Controller) feedLine(reducer *session.Reducer, line string) {
	defer func() {
		if r := recover(); r != nil {
			c.Logger.Error("reducer callback panicked on line, state preserved",
				slog.String("line", line), slog.Any("panic", r))
		}
	}()
	reducer.Feed(logline.Classify(line))
}

// syntheticDisconnect implements §4.8's watchdog action (scenario S3):
// append a synthetic Disconnected line to the session log so the next
// tailer pass (which never comes, since the controller is about to exit)
// would have observed it, and feed the reducer the same record directly so
// its Disconnected callback still runs for whatever session was open —
// including removing the liveness marker file, since that callback is
// shared with the normal disconnect path.
func (c *Controller) syntheticDisconnect(reducer *session.Reducer) {
	now := time.Now().UTC()
	line := fmt.Sprintf("Disconnected at %s (shell_disappeared)", now.Format(time.RFC3339))

	f, err := os.OpenFile(c.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		c.Logger.Error("synthetic disconnect: failed to append to session log",
			slog.String("path", c.LogPath), slog.String("error", err.Error()))
	} else {
		if _, err := fmt.Fprintln(f, line); err != nil {
			c.Logger.Error("synthetic disconnect: write failed", slog.String("error", err.Error()))
		}
		f.Close()
	}

	c.Logger.Warn("parent shell absent for too many consecutive ticks, synthetic disconnect",
		slog.Int("max_missing_ticks", MaxMissingTicks))

	c.feedLine(reducer, line)
}
