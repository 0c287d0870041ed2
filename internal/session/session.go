// Package session folds a stream of logline.Record values into an evolving
// Session, the comm-log history (CommLog) of past sessions, and fires a
// caller-supplied Visitor's callbacks on each state transition. The reducer
// itself holds no notion of sinks, subscriptions, or transport — per the
// design note in the spec, callbacks are delivered through a visitor value
// rather than a mutable global callback table, so a scan-back replay can
// supply a no-op visitor and the dispatch layer (internal/dispatch) can
// supply a real one without the reducer knowing the difference.
package session

import (
	"time"

	"github.com/iop-apl-uw/glidermon/internal/gpsfix"
)

// DiveUnknown is the sentinel dive number before the first CounterLine of a
// session has been observed.
const DiveUnknown = -1

// diveKnown reports whether d is a dive number monotonicity/reboot checks
// may compare against: per invariant 6, both DiveUnknown and 0 ("unknown")
// are excluded, since the onboard counter name 0 for "not yet assigned" the
// same way it uses -1 here.
func diveKnown(d int) bool {
	return d != DiveUnknown && d != 0
}

// TransferDirection distinguishes outbound (to the glider) from inbound
// (from the glider) file transfers.
type TransferDirection uint8

const (
	// TransferSent is a file pushed to the glider.
	TransferSent TransferDirection = iota
	// TransferReceived is a file pulled from the glider.
	TransferReceived
)

// Transfer records one file transfer observed during a session.
type Transfer struct {
	Direction TransferDirection
	Name      string
	Bytes     int64
}

// IridiumEstimate is an Iridium-network-derived position estimate,
// independent of (and generally coarser than) the glider's own GPS fix.
type IridiumEstimate struct {
	Lat, Lon, CEP float64
}

// DriftInputs holds the derived scalars a (not-in-scope) drift predictor
// would consume. Populated from CounterLine flags when present; zero values
// mean "not reported this session", not "measured as zero".
type DriftInputs struct {
	HaveDepth, HavePitch, HaveTemp bool
	Depth, Pitch, Temperature      float64
	Voltages                      []float64
}

// Session is one glider radio contact, from Connected to Disconnected.
// It is owned by the Reducer; everything else sees it only as a read-only
// Snapshot (a value copy, so it safely outlives the Feed call that
// produced it).
type Session struct {
	GliderID string // may be empty: unknown until resolved from elsewhere
	Dive     int    // DiveUnknown until the first CounterLine

	ConnectTime    time.Time
	ReconnectCount int
	DisconnectTime time.Time // zero while the session is still open
	LogoutSeen     bool

	LastFix gpsfix.Fix

	HaveIridium bool
	Iridium     IridiumEstimate

	RecoveryCode string // e.g. "DEEP_PRESSURE"; empty if never in recovery
	EscapeReason string // set instead of RecoveryCode for escape-flavored reasons

	Transfers []Transfer

	Drift DriftInputs

	counterLinesSeen int
	closed           bool
}

// Snapshot is a read-only copy of a Session at one instant. Visitor callbacks
// receive a Snapshot, never the live Session, so they cannot mutate reducer
// state out from under it and may be retained past the Feed call that
// produced them (e.g. to build a notification body) without racing the
// next record.
type Snapshot Session

// Open reports whether the session has not yet seen Disconnected.
func (s Snapshot) Open() bool { return s.DisconnectTime.IsZero() }

// snapshot makes a defensive copy of s, including its slice fields, so a
// Snapshot handed to a visitor cannot be mutated via aliasing as the
// reducer keeps processing records.
func (s *Session) snapshot() Snapshot {
	cp := *s
	if len(s.Transfers) > 0 {
		cp.Transfers = append([]Transfer(nil), s.Transfers...)
	}
	if len(s.Drift.Voltages) > 0 {
		cp.Drift.Voltages = append([]float64(nil), s.Drift.Voltages...)
	}
	return Snapshot(cp)
}
