// Package sink implements one adapter per notification transport named in
// §4.6: email, two flavors of chat webhook, a satellite-text gateway, a
// push service, and a legacy plain HTTP POST. Every adapter shares the
// Sink capability interface so the dispatcher (internal/dispatch) can
// invoke all six uniformly, per the design note in §9 on representing
// sink kind as a closed sum dispatched through a capability interface
// rather than source's original name->function table.
//
// Grounded on the teacher's adapter-per-external-protocol shape
// (internal/server's per-protocol handler structs) generalized from gRPC
// services to outbound notification transports.
package sink

import (
	"context"
	"net/http"
	"time"

	"github.com/iop-apl-uw/glidermon/internal/gpsfix"
	"github.com/iop-apl-uw/glidermon/internal/subscribe"
)

// SendTimeout bounds the single transport attempt of every HTTP-transport
// sink (webhook, satellite, push, httppost), per §5 ("bounded timeouts
// prevent the loop from stalling beyond the worst-case transport timeout").
// The email sink is not bounded by it: net/smtp's SendMail takes no context
// or deadline, so EmailSink only checks ctx before submitting.
const SendTimeout = 10 * time.Second

// Sink is the capability interface every adapter implements: identify its
// kind, validate one endpoint's shape, and perform exactly one
// best-effort send. Send never returns an error that the dispatcher
// propagates to siblings — it returns one only so the dispatcher can log
// it; per §4.6 a failed send is swallowed, not raised further up.
type Sink interface {
	Kind() subscribe.SinkKind
	Validate(ep subscribe.Endpoint) error
	Send(ctx context.Context, gliderID string, item subscribe.DispatchItem, subject, body string, fix *gpsfix.Fix) error
}

// httpClient is shared by every HTTP-transport sink (webhook, satellite,
// push, httppost); the per-call context deadline is what actually bounds
// each request, not a client-level Timeout, so a slow sink can't wedge a
// different in-flight request sharing the same client.
//
//nolint:gochecknoglobals // stateless, safe for concurrent reuse across sinks.
var httpClient = &http.Client{}

// Registry maps sink kind to its adapter, built once at startup (by
// cmd/glidermon, or by glidermonctl send-test) and never mutated afterward.
type Registry map[subscribe.SinkKind]Sink

// DefaultRegistry wires every adapter with its production configuration.
// cfg carries the cross-sink settings that don't belong to any one
// endpoint: the SMTP forwarder (if any) and the visualization base URL
// used by push's deep links.
func DefaultRegistry(cfg Config) Registry {
	return Registry{
		subscribe.SinkEmail:     NewEmailSink(cfg.SMTP),
		subscribe.SinkSlack:     NewChatWebhookSink(subscribe.SinkSlack),
		subscribe.SinkWebhook:   NewChatWebhookSink(subscribe.SinkWebhook),
		subscribe.SinkSatellite: NewSatelliteSink(cfg.Satellite),
		subscribe.SinkPush:      NewPushSink(cfg.VisualizationBaseURL),
		subscribe.SinkHTTPPost:  NewHTTPPostSink(),
	}
}

// Config bundles the process-wide settings sink adapters need beyond what
// travels in an individual Endpoint.
type Config struct {
	SMTP                 SMTPConfig
	Satellite            SatelliteConfig
	VisualizationBaseURL string
}

// SMTPConfig names the outbound mail relay. When Host is empty, email.go
// submits to localhost:25 (the historical basestation MTA); when set, it
// submits via authenticated STARTTLS on Port (587 by convention).
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SatelliteConfig names the shared base URL of the Iridium-style gateway;
// individual endpoints carry their own IMEI and credentials.
type SatelliteConfig struct {
	BaseURL string
}
