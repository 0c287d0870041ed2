package session

import (
	"errors"
	"fmt"

	"github.com/iop-apl-uw/glidermon/internal/gpsfix"
)

// CommLog is the append-only ordered sequence of completed sessions plus
// the currently open session (nil between sessions). Sessions are strictly
// time-ordered by connect instant: Reducer only ever appends to Sessions
// from onDisconnected, in the order records were fed to it, so this
// invariant holds by construction as long as a single Reducer owns the log.
type CommLog struct {
	Sessions []Session
	Current  *Session
}

// ErrNoSessions indicates a query was asked of a CommLog with no completed
// or open sessions at all.
var ErrNoSessions = errors.New("commlog: no sessions recorded")

// LastSurfacing returns a Snapshot of the most recent session — the
// current open session if one is open, otherwise the last completed
// session. Returns ErrNoSessions if the log is empty.
func (c *CommLog) LastSurfacing() (Snapshot, error) {
	if c.Current != nil {
		return c.Current.snapshot(), nil
	}
	if n := len(c.Sessions); n > 0 {
		return Snapshot(c.Sessions[n-1]), nil
	}
	return Snapshot{}, ErrNoSessions
}

// HasGliderRebooted reports whether the current (or, if none is open, the
// most recently completed) session's dive number is inconsistent with a
// continuously running glider: per the monotone-dive-number invariant, dive
// numbers never decrease across sessions in normal operation, so a
// decrease (or repeat) relative to the last known prior dive is evidence
// the glider's onboard controller restarted its dive counter.
//
// Sessions is always in connect-time order (Reducer only appends, in the
// order records arrive), so the "last known dive before the session under
// test" is simply the nearest preceding entry with a known dive number.
func (c *CommLog) HasGliderRebooted() bool {
	var cur *Session
	priorEnd := len(c.Sessions)
	switch {
	case c.Current != nil:
		cur = c.Current
	case len(c.Sessions) > 0:
		cur = &c.Sessions[len(c.Sessions)-1]
		priorEnd--
	default:
		return false
	}
	if !diveKnown(cur.Dive) {
		return false
	}

	for i := priorEnd - 1; i >= 0; i-- {
		if diveKnown(c.Sessions[i].Dive) {
			return cur.Dive <= c.Sessions[i].Dive
		}
	}
	return false
}

// ValidateDiveMonotonicity checks invariant 6 across the completed session
// history: successive known dive numbers never decrease. Used by tests; the
// live reducer does not enforce this (a violation is a reboot signal, not
// a data error).
func (c *CommLog) ValidateDiveMonotonicity() error {
	last := -1
	for i, s := range c.Sessions {
		if !diveKnown(s.Dive) {
			continue
		}
		if last != -1 && s.Dive < last {
			return fmt.Errorf("commlog: dive number decreased at session %d (%d -> %d)", i, last, s.Dive)
		}
		last = s.Dive
	}
	return nil
}

// DriftPrediction is the formatted bundle of derived inputs a (not in
// scope) scientific drift model would consume.
type DriftPrediction struct {
	GliderID string
	Dive     int
	Inputs   DriftInputs
}

// PredictDrift returns the current or last session's drift inputs. The
// bool result is true when a session was available to draw inputs from
// and false when there is none.
func (c *CommLog) PredictDrift() (DriftPrediction, bool) {
	var cur *Session
	switch {
	case c.Current != nil:
		cur = c.Current
	case len(c.Sessions) > 0:
		cur = &c.Sessions[len(c.Sessions)-1]
	default:
		return DriftPrediction{}, false
	}
	return DriftPrediction{GliderID: cur.GliderID, Dive: cur.Dive, Inputs: cur.Drift}, true
}

// FormatLastGPSAndRecovery renders the last known fix (in the requested
// representation) and any active recovery/escape state as one line, for
// use in notification bodies. Returns ErrNoSessions if there is no session
// to draw from, and passes through any error from gpsfix.Fix.Format.
func (c *CommLog) FormatLastGPSAndRecovery(format gpsfix.Format) (string, error) {
	snap, err := c.LastSurfacing()
	if err != nil {
		return "", err
	}
	if !snap.LastFix.Valid {
		return "no GPS fix available", nil
	}
	coords, err := snap.LastFix.Format(format)
	if err != nil {
		return "", err
	}
	switch {
	case snap.RecoveryCode != "":
		return fmt.Sprintf("%s recovery=%s", coords, snap.RecoveryCode), nil
	case snap.EscapeReason != "":
		return fmt.Sprintf("%s escape=%s", coords, snap.EscapeReason), nil
	default:
		return coords, nil
	}
}
