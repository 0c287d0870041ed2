package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iop-apl-uw/glidermon/internal/dispatch"
	"github.com/iop-apl-uw/glidermon/internal/session"
	"github.com/iop-apl-uw/glidermon/internal/subscribe"
)

// dispatchVisitor adapts the reducer's Visitor callbacks to dispatcher
// calls. Event-kind attribution follows the closest physical trigger for
// each of the eleven event kinds that the reducer itself can observe
// (comp/divetar/errors/traceback/upload's richer bodies come from the
// out-of-scope conversion/archival pipeline via AuxInputs, which this
// visitor leaves empty — a caller that does have that pipeline wired sets
// Controller.AuxInputs):
//
//   - CounterLine carries the session's first GPS fix: it is the trigger for
//     gps/lategps (lategps if the fix arrived more than LateGPSThreshold
//     after Connected) and for critical (reboot detection needs a known
//     dive number, which only CounterLine provides).
//   - InRecovery is the trigger for recov and critical.
//   - Disconnected is the trigger for drift (the fullest set of drift
//     inputs is available once the session is complete).
//   - Transferred/Received are the trigger for upload (a literal network
//     event), with a best-effort body describing the transfer.
//   - Connected, Reconnected, Iridium have no corresponding event kind.
//     Connected writes the liveness marker and updates metrics;
//     Reconnected and Iridium only log at Debug.
type dispatchVisitor struct {
	session.NoopVisitor

	controller *Controller

	connectTime      time.Time
	firstFixReported bool

	disconnected bool
}

func (v *dispatchVisitor) Connected(snap session.Snapshot) {
	v.connectTime = snap.ConnectTime
	v.firstFixReported = false
	v.controller.writeLivenessMarker()
	if v.controller.Metrics != nil {
		v.controller.Metrics.RecordConnected(v.controller.GliderID)
	}
}

func (v *dispatchVisitor) Reconnected(session.Snapshot) {
	v.controller.Logger.Debug("glider reconnected mid-session")
}

func (v *dispatchVisitor) Disconnected(snap session.Snapshot) {
	v.disconnected = true
	v.controller.removeLivenessMarker()
	if v.controller.Metrics != nil {
		v.controller.Metrics.RecordDisconnected(v.controller.GliderID)
	}
	v.dispatch(subscribe.EventDrift)
}

func (v *dispatchVisitor) Transferred(snap session.Snapshot) {
	v.dispatchUpload(snap, "sent")
}

func (v *dispatchVisitor) Received(snap session.Snapshot) {
	v.dispatchUpload(snap, "received")
}

func (v *dispatchVisitor) dispatchUpload(snap session.Snapshot, direction string) {
	if len(snap.Transfers) == 0 {
		return
	}
	last := snap.Transfers[len(snap.Transfers)-1]
	body := fmt.Sprintf("%s %d bytes of %s", direction, last.Bytes, last.Name)
	v.dispatchWithAux(subscribe.EventUpload, dispatch.AuxInputs{UploadBody: body})
}

func (v *dispatchVisitor) Recovery(session.Snapshot) {
	v.dispatch(subscribe.EventRecov)
	v.dispatch(subscribe.EventCritical)
}

func (v *dispatchVisitor) CounterLine(snap session.Snapshot) {
	if !v.firstFixReported && snap.LastFix.Valid {
		v.firstFixReported = true
		kind := subscribe.EventGPS
		if !v.connectTime.IsZero() && snap.LastFix.Time.Sub(v.connectTime) > v.controller.LateGPSThreshold {
			kind = subscribe.EventLateGPS
		}
		v.dispatch(kind)
	}
	v.dispatch(subscribe.EventCritical)
}

func (v *dispatchVisitor) Iridium(session.Snapshot) {
	v.controller.Logger.Debug("iridium geolocation observed")
}

func (v *dispatchVisitor) dispatch(kind subscribe.EventKind) {
	v.dispatchWithAux(kind, v.controller.buildAuxInputs())
}

func (v *dispatchVisitor) dispatchWithAux(kind subscribe.EventKind, aux dispatch.AuxInputs) {
	if v.controller.Dispatcher == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			v.controller.Logger.Error("dispatch callback panicked, isolated",
				slog.String("event", string(kind)), slog.Any("panic", r))
		}
	}()
	v.controller.Dispatcher.Dispatch(context.Background(), kind, v.controller.commLog, aux)
}
