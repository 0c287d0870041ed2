package lifecycle

// MaxMissingTicks is the number of consecutive ticks the parent login shell
// may be absent before the controller performs a synthetic disconnect
// (spec §4.8, scenario S3).
const MaxMissingTicks = 4

// Watchdog tracks consecutive absences of the parent login shell process.
// It is not safe for concurrent use; the controller drives it from its
// single run-loop goroutine, one Tick per poll.
type Watchdog struct {
	ParentPID int

	probe        ProcessProbe
	missingTicks int
}

// NewWatchdog creates a Watchdog for parentPID. A parentPID <= 0 disables
// the watchdog entirely (Tick always returns false) — the monitor was
// launched without a parent-shell pid to supervise.
func NewWatchdog(parentPID int, probe ProcessProbe) *Watchdog {
	if probe == nil {
		probe = osProcessProbe{}
	}
	return &Watchdog{ParentPID: parentPID, probe: probe}
}

// Tick probes the parent once and reports whether MaxMissingTicks
// consecutive absences have now been observed, meaning the controller
// should perform a synthetic disconnect and exit.
func (w *Watchdog) Tick() bool {
	if w.ParentPID <= 0 {
		return false
	}
	if w.probe.Alive(w.ParentPID) {
		w.missingTicks = 0
		return false
	}
	w.missingTicks++
	return w.missingTicks >= MaxMissingTicks
}
