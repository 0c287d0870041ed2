package session

// Visitor receives a callback for each named state transition in the
// reducer's state machine, invoked synchronously on the caller's goroutine
// as records are consumed. Every method receives a read-only Snapshot of
// the session at the moment of the transition.
//
// During scan-back replay the reducer is given a NoopVisitor so state can
// be reconstructed without re-notifying for events the operator already
// saw the first time the monitor ran.
type Visitor interface {
	Connected(Snapshot)
	Reconnected(Snapshot)
	Disconnected(Snapshot)
	Transferred(Snapshot)
	Received(Snapshot)
	Recovery(Snapshot)
	CounterLine(Snapshot)
	Iridium(Snapshot)
}

// NoopVisitor implements Visitor with every method a no-op. Embed it to get
// a Visitor that only needs to override the callbacks it cares about.
type NoopVisitor struct{}

func (NoopVisitor) Connected(Snapshot)    {}
func (NoopVisitor) Reconnected(Snapshot)  {}
func (NoopVisitor) Disconnected(Snapshot) {}
func (NoopVisitor) Transferred(Snapshot)  {}
func (NoopVisitor) Received(Snapshot)     {}
func (NoopVisitor) Recovery(Snapshot)     {}
func (NoopVisitor) CounterLine(Snapshot)  {}
func (NoopVisitor) Iridium(Snapshot)      {}

var _ Visitor = NoopVisitor{}
