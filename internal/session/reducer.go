package session

import (
	"strconv"
	"strings"

	"github.com/iop-apl-uw/glidermon/internal/logline"
)

// Reducer folds logline.Record values into the CommLog it owns, firing
// Visitor callbacks as transitions happen. It is not safe for concurrent
// use from multiple goroutines: the tailer/controller feed it records from
// a single goroutine, per the spec's single-threaded cooperative model.
type Reducer struct {
	visitor Visitor
	log     *CommLog

	// FirstTime gates callback delivery. true during cold-start scan-back
	// replay (only the Session value is materialized, no notifications
	// fire); false during normal forward processing. Exported so the
	// controller can flip it once scan-back completes.
	FirstTime bool
}

// NewReducer creates a Reducer delivering callbacks to v and folding into
// log. Pass a fresh, empty *CommLog for a cold start, or one restored from
// a prior run's persisted history to preserve cross-session queries (e.g.
// dive monotonicity) across a monitor restart.
func NewReducer(v Visitor, log *CommLog) *Reducer {
	if v == nil {
		v = NoopVisitor{}
	}
	if log == nil {
		log = &CommLog{}
	}
	return &Reducer{visitor: v, log: log}
}

// CommLog returns the reducer's backing comm log.
func (r *Reducer) CommLog() *CommLog { return r.log }

// Feed applies one record to the current session, updating the CommLog and
// firing the corresponding Visitor callback (unless FirstTime is set).
// KindIgnored records are dropped silently (neither the lexer nor the
// reducer logs them) and the reducer's state is left untouched, per the
// "parse failure never aborts the stream, state is preserved" policy.
func (r *Reducer) Feed(rec logline.Record) {
	switch rec.Kind {
	case logline.KindConnected:
		r.onConnected(rec)
	case logline.KindReconnected:
		r.onReconnected(rec)
	case logline.KindDisconnected:
		r.onDisconnected(rec)
	case logline.KindFileTransferred:
		r.onTransferred(rec)
	case logline.KindFileReceived:
		r.onReceived(rec)
	case logline.KindInRecovery:
		r.onRecovery(rec)
	case logline.KindCounterLine:
		r.onCounterLine(rec)
	case logline.KindIridiumGeolocation:
		r.onIridium(rec)
	case logline.KindVer, logline.KindIgnored:
		// No session effect. Ver is informational; Ignored already means
		// "nothing usable was parsed".
	}
}

func (r *Reducer) onConnected(rec logline.Record) {
	r.log.Current = &Session{
		Dive:        DiveUnknown,
		ConnectTime: rec.Time,
	}
	if !r.FirstTime {
		r.visitor.Connected(r.log.Current.snapshot())
	}
}

func (r *Reducer) onReconnected(rec logline.Record) {
	s := r.log.Current
	if s == nil {
		return
	}
	s.ReconnectCount++
	if !r.FirstTime {
		r.visitor.Reconnected(s.snapshot())
	}
}

func (r *Reducer) onDisconnected(rec logline.Record) {
	s := r.log.Current
	if s == nil {
		return
	}
	s.DisconnectTime = rec.Time
	s.LogoutSeen = s.LogoutSeen || rec.LogoutSeen
	s.closed = true

	snap := s.snapshot()
	r.log.Sessions = append(r.log.Sessions, Session(snap))
	r.log.Current = nil

	if !r.FirstTime {
		r.visitor.Disconnected(snap)
	}
}

func (r *Reducer) onTransferred(rec logline.Record) {
	s := r.log.Current
	if s == nil {
		return
	}
	s.Transfers = append(s.Transfers, Transfer{
		Direction: TransferSent,
		Name:      rec.FileName,
		Bytes:     rec.FileBytes,
	})
	if !r.FirstTime {
		r.visitor.Transferred(s.snapshot())
	}
}

func (r *Reducer) onReceived(rec logline.Record) {
	s := r.log.Current
	if s == nil {
		return
	}
	s.Transfers = append(s.Transfers, Transfer{
		Direction: TransferReceived,
		Name:      rec.FileName,
		Bytes:     rec.FileBytes,
	})
	if !r.FirstTime {
		r.visitor.Received(s.snapshot())
	}
}

func (r *Reducer) onRecovery(rec logline.Record) {
	s := r.log.Current
	if s == nil {
		return
	}
	if strings.Contains(strings.ToUpper(rec.Reason), "ESCAPE") {
		s.EscapeReason = rec.Reason
	} else {
		s.RecoveryCode = rec.Reason
	}
	if !r.FirstTime {
		r.visitor.Recovery(s.snapshot())
	}
}

func (r *Reducer) onCounterLine(rec logline.Record) {
	s := r.log.Current
	if s == nil {
		return
	}

	s.counterLinesSeen++
	if s.counterLinesSeen == 1 {
		if rec.Dive >= 0 {
			s.Dive = rec.Dive
		}
		if rec.GPS.Valid {
			s.LastFix = rec.GPS
		}
		if code, ok := rec.Fields["recov_code"]; ok && code != "" {
			s.RecoveryCode = code
		}
		applyDriftFields(&s.Drift, rec.Fields)
	}

	if logoutSeen(rec.Fields) {
		s.LogoutSeen = true
	}

	if !r.FirstTime {
		r.visitor.CounterLine(s.snapshot())
	}
}

func (r *Reducer) onIridium(rec logline.Record) {
	s := r.log.Current
	if s == nil {
		return
	}
	s.HaveIridium = true
	s.Iridium = IridiumEstimate{Lat: rec.Lat, Lon: rec.Lon, CEP: rec.CEP}
	if !r.FirstTime {
		r.visitor.Iridium(s.snapshot())
	}
}

func logoutSeen(fields map[string]string) bool {
	v, ok := fields["logout_seen"]
	if !ok {
		v, ok = fields["logout"]
	}
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func applyDriftFields(d *DriftInputs, fields map[string]string) {
	if v, ok := fields["depth"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			d.Depth, d.HaveDepth = f, true
		}
	}
	if v, ok := fields["pitch"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			d.Pitch, d.HavePitch = f, true
		}
	}
	if v, ok := fields["temp"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			d.Temperature, d.HaveTemp = f, true
		}
	}
	if v, ok := fields["volts"]; ok {
		for _, tok := range strings.Split(v, "/") {
			if f, err := strconv.ParseFloat(tok, 64); err == nil {
				d.Voltages = append(d.Voltages, f)
			}
		}
	}
}
