// Package logline classifies one line of a glider communications log into
// a tagged Record. Classify is pure: it performs no I/O and never blocks,
// so the Tailer (internal/tailer) can feed it lines as fast as they arrive
// without the lexer ever becoming a suspension point.
package logline

import (
	"time"

	"github.com/iop-apl-uw/glidermon/internal/gpsfix"
)

// Kind is the closed set of line classifications this log format produces.
type Kind uint8

const (
	// KindConnected marks the start of a session.
	KindConnected Kind = iota

	// KindReconnected marks a mid-session radio reconnect.
	KindReconnected

	// KindDisconnected marks the end of a session.
	KindDisconnected

	// KindFileTransferred records an outbound file transfer to the glider.
	KindFileTransferred

	// KindFileReceived records an inbound file transfer from the glider.
	KindFileReceived

	// KindInRecovery records the glider reporting a recovery condition.
	KindInRecovery

	// KindCounterLine records one of the two bracketing data-exchange
	// counter lines (dive number, GPS fix, assorted flags).
	KindCounterLine

	// KindIridiumGeolocation records an Iridium-network-derived position
	// estimate, independent of the glider's own GPS fix.
	KindIridiumGeolocation

	// KindVer records a glider software version banner line.
	KindVer

	// KindIgnored is every line this lexer does not recognize, or
	// recognizes but cannot fully parse (e.g. an unparsable timestamp).
	// Per spec, an Ignored classification never aborts the stream.
	KindIgnored
)

// String returns the human-readable name of the kind, used in log fields.
func (k Kind) String() string {
	switch k {
	case KindConnected:
		return "Connected"
	case KindReconnected:
		return "Reconnected"
	case KindDisconnected:
		return "Disconnected"
	case KindFileTransferred:
		return "FileTransferred"
	case KindFileReceived:
		return "FileReceived"
	case KindInRecovery:
		return "InRecovery"
	case KindCounterLine:
		return "CounterLine"
	case KindIridiumGeolocation:
		return "IridiumGeolocation"
	case KindVer:
		return "Ver"
	case KindIgnored:
		return "Ignored"
	default:
		return "Unknown"
	}
}

// Record is the single tagged variant Classify returns. Only the fields
// relevant to Kind are populated; the rest hold their zero value.
type Record struct {
	Kind Kind

	// Raw is the original line, trailing newline stripped. Always set,
	// primarily useful for diagnosing KindIgnored lines.
	Raw string

	// Time is set for KindConnected, KindReconnected, KindDisconnected.
	Time time.Time

	// LogoutSeen is set for KindDisconnected: whether the glider's own
	// logout sequence was observed before the link dropped, as opposed to
	// an abrupt radio loss.
	LogoutSeen bool

	// Reason is set for KindDisconnected (optional trailing parenthetical)
	// and KindInRecovery (the recovery/escape reason text).
	Reason string

	// FileName and FileBytes are set for KindFileTransferred / KindFileReceived.
	FileName  string
	FileBytes int64

	// Dive, GPS and Fields are set for KindCounterLine. Dive is -1 when
	// the dive number was absent from the line. GPS.Valid is false when no
	// gps= field was present or it failed to parse, or when there was no
	// usable ts= field (a fix needs lat, lon and time). Fields carries every
	// key=value pair seen on the line (including dive/gps/ts so a reducer
	// or operator tool can inspect raw flags without re-parsing).
	Dive   int
	GPS    gpsfix.Fix
	Fields map[string]string

	// Lat, Lon, CEP are set for KindIridiumGeolocation (plain decimal
	// degrees, not the ddmm.mmmm wire form — the Iridium geolocation line
	// is already emitted in decimal).
	Lat, Lon, CEP float64
}
