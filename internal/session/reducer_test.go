package session

import (
	"testing"

	"github.com/iop-apl-uw/glidermon/internal/logline"
)

// recordingVisitor counts callback invocations by name.
type recordingVisitor struct {
	NoopVisitor
	calls []string
	last  Snapshot
}

func (r *recordingVisitor) Connected(s Snapshot)    { r.calls = append(r.calls, "connected"); r.last = s }
func (r *recordingVisitor) Reconnected(s Snapshot)  { r.calls = append(r.calls, "reconnected"); r.last = s }
func (r *recordingVisitor) Disconnected(s Snapshot) { r.calls = append(r.calls, "disconnected"); r.last = s }
func (r *recordingVisitor) Transferred(s Snapshot)  { r.calls = append(r.calls, "transferred"); r.last = s }
func (r *recordingVisitor) Received(s Snapshot)     { r.calls = append(r.calls, "received"); r.last = s }
func (r *recordingVisitor) Recovery(s Snapshot)     { r.calls = append(r.calls, "recovery"); r.last = s }
func (r *recordingVisitor) CounterLine(s Snapshot)  { r.calls = append(r.calls, "counter_line"); r.last = s }
func (r *recordingVisitor) Iridium(s Snapshot)      { r.calls = append(r.calls, "iridium"); r.last = s }

func feedLines(r *Reducer, lines ...string) {
	for _, l := range lines {
		r.Feed(logline.Classify(l))
	}
}

// S1 from the spec: single fix then disconnect.
func TestScenarioS1SingleFixThenDisconnect(t *testing.T) {
	v := &recordingVisitor{}
	r := NewReducer(v, nil)

	feedLines(r,
		"Connected at 2024-01-15T00:00:00Z",
		"Counter: dive=42, gps=4730.1234N,12215.5678W, ts=2024-01-15T00:00:10Z",
		"Disconnected at 2024-01-15T00:05:00Z",
	)

	wantCalls := []string{"connected", "counter_line", "disconnected"}
	if len(v.calls) != len(wantCalls) {
		t.Fatalf("calls = %v, want %v", v.calls, wantCalls)
	}
	for i := range wantCalls {
		if v.calls[i] != wantCalls[i] {
			t.Errorf("calls[%d] = %q, want %q", i, v.calls[i], wantCalls[i])
		}
	}

	if len(r.CommLog().Sessions) != 1 {
		t.Fatalf("Sessions = %d, want 1", len(r.CommLog().Sessions))
	}
	final := r.CommLog().Sessions[0]
	if final.Dive != 42 {
		t.Errorf("Dive = %d, want 42", final.Dive)
	}
	dddd, err := final.LastFix.Format("dddd")
	if err != nil {
		t.Fatal(err)
	}
	if dddd != "47.5021,-122.2595" {
		t.Errorf("LastFix = %q, want 47.5021,-122.2595", dddd)
	}
}

// S2: recovery scenario.
func TestScenarioS2Recovery(t *testing.T) {
	v := &recordingVisitor{}
	r := NewReducer(v, nil)

	feedLines(r,
		"Connected at 2024-02-01T00:00:00Z",
		"Counter: dive=10, recov_code=DEEP_PRESSURE",
		"In Recovery: DEEP_PRESSURE",
		"Disconnected at 2024-02-01T00:10:00Z",
	)

	final := r.CommLog().Sessions[0]
	if final.RecoveryCode != "DEEP_PRESSURE" {
		t.Errorf("RecoveryCode = %q, want DEEP_PRESSURE", final.RecoveryCode)
	}
}

// S5: partial trailing line reassembled by the tailer before reaching
// Classify produces exactly one Connected record, not two.
func TestScenarioS5PartialLineReassembly(t *testing.T) {
	v := &recordingVisitor{}
	r := NewReducer(v, nil)

	// Simulates the tailer delivering the reassembled line once the
	// second poll supplies the rest of it; the reducer never sees the
	// bare "Conn" prefix as a line of its own.
	feedLines(r, "Connected at 2024-01-15T00:00:00Z")

	count := 0
	for _, c := range v.calls {
		if c == "connected" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("connected callbacks = %d, want 1", count)
	}
}

// S6: filter respected is a subscribe-package concern; here we verify the
// reducer fires independent callbacks for gps and recov events so the
// dispatcher has distinct triggers to filter on.
func TestCounterLineAndRecoveryAreDistinctCallbacks(t *testing.T) {
	v := &recordingVisitor{}
	r := NewReducer(v, nil)
	feedLines(r,
		"Connected at 2024-01-15T00:00:00Z",
		"Counter: dive=1, gps=4730.1234N,12215.5678W",
		"In Recovery: SURFACE_LEAK",
	)
	if v.calls[1] != "counter_line" || v.calls[2] != "recovery" {
		t.Fatalf("calls = %v", v.calls)
	}
}

func TestSecondCounterLineSuppressesGPSDiveButFiresCallback(t *testing.T) {
	v := &recordingVisitor{}
	r := NewReducer(v, nil)
	feedLines(r,
		"Connected at 2024-01-15T00:00:00Z",
		"Counter: dive=5, gps=4730.1234N,12215.5678W, ts=2024-01-15T00:00:10Z",
		"Counter: dive=99, gps=0001.0000N,00001.0000E, ts=2024-01-15T00:00:20Z",
	)

	counterCalls := 0
	for _, c := range v.calls {
		if c == "counter_line" {
			counterCalls++
		}
	}
	if counterCalls != 2 {
		t.Fatalf("counter_line callbacks = %d, want 2", counterCalls)
	}

	if r.CommLog().Current.Dive != 5 {
		t.Errorf("Dive = %d, want 5 (first CounterLine wins)", r.CommLog().Current.Dive)
	}
	dddd, _ := r.CommLog().Current.LastFix.Format("dddd")
	if dddd != "47.5021,-122.2595" {
		t.Errorf("LastFix = %q, want first CounterLine's fix", dddd)
	}
}

func TestSecondCounterLineSetsLogoutSeen(t *testing.T) {
	v := &recordingVisitor{}
	r := NewReducer(v, nil)
	feedLines(r,
		"Connected at 2024-01-15T00:00:00Z",
		"Counter: dive=5",
		"Counter: dive=5, logout_seen=true",
	)
	if !r.CommLog().Current.LogoutSeen {
		t.Error("LogoutSeen = false, want true after second CounterLine")
	}
}

// Invariant 2: scan-back (FirstTime) fires zero callbacks and yields the
// same final Session as normal processing.
func TestFirstTimeSuppressesCallbacksButMaterializesSession(t *testing.T) {
	lines := []string{
		"Connected at 2024-01-15T00:00:00Z",
		"Counter: dive=42, gps=4730.1234N,12215.5678W",
		"Reconnected at 2024-01-15T00:02:00Z",
		"Disconnected at 2024-01-15T00:05:00Z",
	}

	vNormal := &recordingVisitor{}
	rNormal := NewReducer(vNormal, nil)
	feedLines(rNormal, lines...)

	vScan := &recordingVisitor{}
	rScan := NewReducer(vScan, nil)
	rScan.FirstTime = true
	feedLines(rScan, lines...)

	if len(vScan.calls) != 0 {
		t.Errorf("scan-back calls = %v, want none", vScan.calls)
	}
	if len(vNormal.calls) == 0 {
		t.Error("normal processing fired no callbacks")
	}

	got := rScan.CommLog().Sessions[0]
	want := rNormal.CommLog().Sessions[0]
	if got.Dive != want.Dive || got.ReconnectCount != want.ReconnectCount || !got.DisconnectTime.Equal(want.DisconnectTime) {
		t.Errorf("scan-back session = %+v, want %+v", got, want)
	}
}

// Invariant 1: idempotent replay across a split.
func TestIdempotentReplayAcrossSplit(t *testing.T) {
	lines := []string{
		"Connected at 2024-01-15T00:00:00Z",
		"Counter: dive=42, gps=4730.1234N,12215.5678W",
		"Reconnected at 2024-01-15T00:02:00Z",
		"Disconnected at 2024-01-15T00:05:00Z",
	}

	rWhole := NewReducer(NoopVisitor{}, nil)
	feedLines(rWhole, lines...)

	rSplit := NewReducer(NoopVisitor{}, nil)
	feedLines(rSplit, lines[:2]...)
	feedLines(rSplit, lines[2:]...)

	a := rWhole.CommLog().Sessions[0]
	b := rSplit.CommLog().Sessions[0]
	if a.Dive != b.Dive || a.ReconnectCount != b.ReconnectCount || !a.DisconnectTime.Equal(b.DisconnectTime) {
		t.Errorf("whole = %+v, split = %+v", a, b)
	}
}

func TestIgnoredRecordPreservesState(t *testing.T) {
	r := NewReducer(NoopVisitor{}, nil)
	feedLines(r, "Connected at 2024-01-15T00:00:00Z", "garbage line that means nothing")
	if r.CommLog().Current == nil {
		t.Fatal("Current session lost after Ignored record")
	}
}
