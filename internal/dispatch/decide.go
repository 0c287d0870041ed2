package dispatch

import (
	"fmt"
	"strings"

	"github.com/iop-apl-uw/glidermon/internal/session"
	"github.com/iop-apl-uw/glidermon/internal/subscribe"
)

// decide implements the per-event-kind subject/body decision table: given
// the event kind that triggered a callback, the current session snapshot,
// the comm log (for GPS/recovery formatting and drift inputs), and the
// auxiliary bodies from out-of-scope collaborators, it returns the
// subscription kind to resolve against (normally kind itself, except
// alerts elevates to critical), the subject line, and a per-item body
// builder. An empty subject suppresses the dispatch entirely.
func (d *Dispatcher) decide(kind subscribe.EventKind, snap session.Snapshot, commLog *session.CommLog, aux AuxInputs) (effectiveKind subscribe.EventKind, subject string, bodyFor func(subscribe.DispatchItem) string) {
	effectiveKind = kind
	rebooted := commLog.HasGliderRebooted()

	switch kind {
	case subscribe.EventGPS, subscribe.EventLateGPS:
		subject = fmt.Sprintf("GPS SG%s %s", d.GliderID, divePrefix(snap))
		bodyFor = func(item subscribe.DispatchItem) string {
			s, _ := commLog.FormatLastGPSAndRecovery(item.LatLon)
			return s
		}

	case subscribe.EventCritical:
		switch {
		case rebooted:
			subject = fmt.Sprintf("REBOOTED SG%s %s", d.GliderID, divePrefix(snap))
		case snap.RecoveryCode != "" && !isQuitCommand(snap.RecoveryCode):
			subject = fmt.Sprintf("IN NON-QUIT RECOVERY SG%s %s", d.GliderID, snap.RecoveryCode)
		}
		bodyFor = fixedBody(aux.CriticalCaptureBody)

	case subscribe.EventRecov:
		switch {
		case rebooted:
			subject = fmt.Sprintf("REBOOTED SG%s %s", d.GliderID, divePrefix(snap))
		case snap.RecoveryCode != "":
			subject = fmt.Sprintf("IN RECOVERY SG%s %s", d.GliderID, snap.RecoveryCode)
		case snap.EscapeReason != "":
			subject = fmt.Sprintf("IN ESCAPE SG%s %s", d.GliderID, snap.EscapeReason)
		}
		bodyFor = func(item subscribe.DispatchItem) string {
			s, _ := commLog.FormatLastGPSAndRecovery(item.LatLon)
			return s
		}

	case subscribe.EventDrift:
		if pred, ok := commLog.PredictDrift(); ok {
			subject = fmt.Sprintf("Drift SG%s", d.GliderID)
			bodyFor = fixedBody(formatDrift(pred))
		}

	case subscribe.EventAlerts:
		if aux.CriticalCaptureBody != "" {
			subject = fmt.Sprintf("CRITICAL ERROR IN CAPTURE SG%s", d.GliderID)
			effectiveKind = subscribe.EventCritical
		}
		bodyFor = fixedBody(aux.CriticalCaptureBody)

	case subscribe.EventComp:
		if aux.ProcessedFilesBody != "" {
			subject = fmt.Sprintf("Processing Complete SG%s", d.GliderID)
		}
		bodyFor = fixedBody(aux.ProcessedFilesBody)

	case subscribe.EventDiveTar:
		if aux.ProcessedFilesBody != "" {
			subject = fmt.Sprintf("New Dive Tarball(s) SG%s", d.GliderID)
		}
		bodyFor = fixedBody(aux.ProcessedFilesBody)

	case subscribe.EventErrors, subscribe.EventTraceback:
		if aux.ProcessedFilesBody != "" {
			subject = fmt.Sprintf("Warnings and Errors from SG%s conversion", d.GliderID)
		}
		bodyFor = fixedBody(aux.ProcessedFilesBody)

	case subscribe.EventUpload:
		if aux.UploadBody != "" {
			subject = fmt.Sprintf("SG%s NETWORK EVENT", d.GliderID)
		}
		bodyFor = fixedBody(aux.UploadBody)
	}

	return effectiveKind, subject, bodyFor
}

func isQuitCommand(code string) bool {
	return strings.EqualFold(code, "QUIT_COMMAND")
}

// fixedBody returns a bodyFor closure that ignores the resolved item and
// always returns s. Every event kind except gps/lategps/recov has a body
// independent of which endpoint it's headed to.
func fixedBody(s string) func(subscribe.DispatchItem) string {
	return func(subscribe.DispatchItem) string { return s }
}

// formatDrift renders a DriftPrediction's inputs into a dispatch body.
// Fields with Have*==false render as "not reported" rather than 0, since a
// zero reading and an absent one are not the same thing.
func formatDrift(pred session.DriftPrediction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "dive %d drift inputs:\n", pred.Dive)

	if pred.Inputs.HaveDepth {
		fmt.Fprintf(&b, "  depth: %.1f m\n", pred.Inputs.Depth)
	} else {
		b.WriteString("  depth: not reported\n")
	}

	if pred.Inputs.HavePitch {
		fmt.Fprintf(&b, "  pitch: %.1f deg\n", pred.Inputs.Pitch)
	} else {
		b.WriteString("  pitch: not reported\n")
	}

	if pred.Inputs.HaveTemp {
		fmt.Fprintf(&b, "  temperature: %.1f C\n", pred.Inputs.Temperature)
	} else {
		b.WriteString("  temperature: not reported\n")
	}

	if len(pred.Inputs.Voltages) == 0 {
		b.WriteString("  voltages: not reported")
	} else {
		parts := make([]string, len(pred.Inputs.Voltages))
		for i, v := range pred.Inputs.Voltages {
			parts[i] = fmt.Sprintf("%.2f", v)
		}
		fmt.Fprintf(&b, "  voltages: [%s]", strings.Join(parts, ", "))
	}

	return b.String()
}
