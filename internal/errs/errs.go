// Package errs holds the sentinel errors that give the spec's error
// taxonomy (transient transport failure, endpoint configuration failure,
// config-document failure, tailer I/O failure, singleton conflict,
// unhandled reducer exception) concrete Go types, so callers can classify
// a failure with errors.Is instead of string matching, and tests can
// assert on a specific class without depending on message text.
//
// The sentinels here do not change the propagation policy described in the
// spec: they only make the existing classes typed.
package errs

import "errors"

var (
	// ErrTailerIO is a transient tailer read/stat/open failure. Five
	// consecutive occurrences terminate the monitor (internal/lifecycle).
	ErrTailerIO = errors.New("tailer: transient I/O failure")

	// ErrLogRotated indicates the session log shrank between polls —
	// treated as fatal immediately, not subject to the consecutive-failure
	// retry budget.
	ErrLogRotated = errors.New("tailer: log file shrank (rotated?)")

	// ErrSingletonConflict indicates a prior monitor instance for the same
	// mission directory could not be evicted; the new instance must exit
	// non-zero rather than run alongside it.
	ErrSingletonConflict = errors.New("lifecycle: could not evict prior monitor instance")

	// ErrConfigLoad wraps a failure loading or merging the layered
	// subscription configuration; the triggering event is abandoned, the
	// process continues, and the next event reloads fresh.
	ErrConfigLoad = errors.New("config: load or merge failure")

	// ErrEndpointConfig indicates one endpoint's configuration was
	// malformed (missing required keys); the sink logs it and the
	// dispatch continues to sibling endpoints.
	ErrEndpointConfig = errors.New("sink: endpoint configuration failure")
)
