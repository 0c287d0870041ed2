// Package dispatch implements the per-event-kind subject/body decision
// table of §4.7: given a CommLog and a few auxiliary inputs the out-of-
// scope collaborators (conversion, archival) produce, it builds a subject
// and body, resolves the live subscription table (never cached — the
// mission operator may edit it between events), and invokes each matching
// sink with per-sink fault isolation.
//
// Grounded on the teacher's consumer-loop-with-per-event-isolation shape
// (internal/gobgp's handler Run/handleStateChange loop), generalized from
// one BGP state-change channel consumer to one call per observed session
// callback.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iop-apl-uw/glidermon/internal/config"
	"github.com/iop-apl-uw/glidermon/internal/gpsfix"
	"github.com/iop-apl-uw/glidermon/internal/metrics"
	"github.com/iop-apl-uw/glidermon/internal/session"
	"github.com/iop-apl-uw/glidermon/internal/sink"
	"github.com/iop-apl-uw/glidermon/internal/subscribe"
)

// AuxInputs bundles the text bodies produced by out-of-scope collaborators
// (scientific conversion, archival, the upload pipeline) that several
// event kinds' dispatch depends on. An empty string means "nothing to
// report for this event", which suppresses the dispatch per §4.7's "if
// the subject resolves to null" rule.
type AuxInputs struct {
	ProcessedFilesBody  string // comp, divetar, errors, traceback
	UploadBody          string // upload
	CriticalCaptureBody string // critical, and alerts elevation
}

// Dispatcher builds and sends one event's notifications.
type Dispatcher struct {
	GliderID    string
	Layers      config.SubscriptionLayers
	LoadOptions config.LoadOptions
	Registry    sink.Registry
	Logger      *slog.Logger

	// Metrics, if non-nil, receives a RecordDispatchSent/RecordDispatchFailed
	// call for every sink send attempted. Nil is valid — callers that have no
	// Prometheus registry to report to (e.g. a one-shot CLI invocation)
	// simply leave it unset.
	Metrics *metrics.Collector
}

// New builds a Dispatcher. A nil logger falls back to slog.Default().
func New(gliderID string, layers config.SubscriptionLayers, opts config.LoadOptions, registry sink.Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{GliderID: gliderID, Layers: layers, LoadOptions: opts, Registry: registry, Logger: logger}
}

// Dispatch implements §4.7 for one event kind. It never returns an error
// that should abort the caller's loop — failures are logged and the
// dispatch for this event is simply abandoned (config-document failure)
// or partially delivered (per-sink failure); per §7 propagation policy,
// the dispatcher never propagates to the reducer/tailer.
func (d *Dispatcher) Dispatch(ctx context.Context, kind subscribe.EventKind, commLog *session.CommLog, aux AuxInputs) {
	snap, err := commLog.LastSurfacing()
	if err != nil {
		d.Logger.Debug("dispatch: no session to report on", slog.String("event", string(kind)))
		return
	}

	effectiveKind, subject, bodyFor := d.decide(kind, snap, commLog, aux)
	if subject == "" {
		return // suppressed: subject resolved to null
	}

	table, warnings, err := config.LoadSubscriptions(d.Layers, d.LoadOptions)
	if err != nil {
		d.Logger.Error("dispatch: subscription config load failed, event abandoned",
			slog.String("event", string(kind)), slog.Any("error", err))
		return
	}
	for _, w := range warnings {
		d.Logger.Warn("dispatch: subscription canonicalization warning", slog.String("warning", w))
	}

	var fix *gpsfix.Fix
	if snap.LastFix.Valid {
		f := snap.LastFix
		fix = &f
	}

	for _, item := range subscribe.Resolve(table, effectiveKind) {
		s, ok := d.Registry[item.Kind]
		if !ok {
			d.Logger.Error("dispatch: no sink registered for kind", slog.String("kind", string(item.Kind)))
			continue
		}
		d.sendIsolated(ctx, s, item, effectiveKind, subject, bodyFor(item), fix)
	}
}

// sendIsolated invokes one sink's Send, converting both an error return
// and a panic into a logged failure so one malformed sink can never
// affect its siblings (invariant 5).
func (d *Dispatcher) sendIsolated(ctx context.Context, s sink.Sink, item subscribe.DispatchItem, kind subscribe.EventKind, subject, body string, fix *gpsfix.Fix) {
	failed := true
	defer func() {
		if r := recover(); r != nil {
			d.Logger.Error("dispatch: sink panicked, isolated",
				slog.String("user", item.User), slog.String("kind", string(item.Kind)), slog.Any("panic", r))
		}
		if d.Metrics != nil {
			if failed {
				d.Metrics.RecordDispatchFailed(string(item.Kind), string(kind))
			} else {
				d.Metrics.RecordDispatchSent(string(item.Kind), string(kind))
			}
		}
	}()

	if err := s.Send(ctx, d.GliderID, item, subject, body, fix); err != nil {
		d.Logger.Error("dispatch: sink send failed",
			slog.String("user", item.User), slog.String("kind", string(item.Kind)), slog.Any("error", err))
		return
	}
	failed = false
}

func divePrefix(snap session.Snapshot) string {
	if snap.Dive == session.DiveUnknown {
		return "(dive unknown)"
	}
	return fmt.Sprintf("(dive %d)", snap.Dive)
}
