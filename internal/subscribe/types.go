// Package subscribe holds the subscription data model — Endpoint, User,
// SubscriptionTable, and the closed set of event kinds — plus the resolver
// that turns an event kind and a canonicalized table into the ordered list
// of destinations a Dispatch call should notify.
//
// The table itself is loaded and merged by internal/config; this package
// only knows how to canonicalize and resolve one, never how to read it
// from disk.
package subscribe

import "github.com/iop-apl-uw/glidermon/internal/gpsfix"

// SinkKind names one of the six recognized endpoint shapes. Unlike the
// teacher's BFD session/peer types, an Endpoint's meaning varies by which
// of these keys it was decoded under, so SinkKind travels with it even
// though it is not itself a YAML field.
type SinkKind string

const (
	SinkEmail     SinkKind = "email"
	SinkSlack     SinkKind = "slack"   // chat-webhook type A: {text} only
	SinkWebhook   SinkKind = "webhook" // chat-webhook type B: text/username/channel/mention
	SinkSatellite SinkKind = "satellite"
	SinkHTTPPost  SinkKind = "httppost"
	SinkPush      SinkKind = "push"
)

// EventKind is one of the closed set of notification triggers a User may
// subscribe to.
type EventKind string

const (
	EventLateGPS   EventKind = "lategps"
	EventGPS       EventKind = "gps"
	EventRecov     EventKind = "recov"
	EventCritical  EventKind = "critical"
	EventDrift     EventKind = "drift"
	EventDiveTar   EventKind = "divetar"
	EventComp      EventKind = "comp"
	EventAlerts    EventKind = "alerts"
	EventErrors    EventKind = "errors"
	EventUpload    EventKind = "upload"
	EventTraceback EventKind = "traceback"
)

//nolint:gochecknoglobals // closed-set lookup table, mirrors gpsfix.validFormats.
var knownEventKinds = map[EventKind]bool{
	EventLateGPS: true, EventGPS: true, EventRecov: true, EventCritical: true,
	EventDrift: true, EventDiveTar: true, EventComp: true, EventAlerts: true,
	EventErrors: true, EventUpload: true, EventTraceback: true,
}

// ValidEventKind reports whether k is one of the eleven recognized event
// kinds.
func ValidEventKind(k EventKind) bool { return knownEventKinds[k] }

// Endpoint is a typed sink configuration. Which fields are meaningful
// depends on Kind; the zero value of an unused field is never sent over
// the wire by the owning sink adapter.
type Endpoint struct {
	Kind SinkKind `koanf:"-"`

	// email
	Address string `koanf:"address"`
	Format  string `koanf:"format"` // "plain" or "html"

	// chat-webhook (both flavors share this shape)
	Hook       string `koanf:"hook"`
	Username   string `koanf:"username"`
	Channel    string `koanf:"channel"`
	MentionRaw any    `koanf:"mention"` // string, or ordered list of strings

	// satellite-text gateway
	IMEI     string `koanf:"imei"`
	User     string `koanf:"usr"`
	Password string `koanf:"pwd"`

	// plain HTTP POST
	URL string `koanf:"url"`

	// push
	Topic    string         `koanf:"topic"`
	Priority map[string]int `koanf:"priority"`

	// common to every sink kind
	Filters []string `koanf:"filters"`
	Status  *bool    `koanf:"status"`
	LatLon  gpsfix.Format `koanf:"latlon"`
}

// Mentions normalizes MentionRaw — which YAML may have given us as a bare
// string or as a list — into an ordered slice, the form chatwebhook.go
// needs to build its prefix. Any element that isn't a string is skipped
// rather than erroring; canonicalization doesn't validate mention shape
// because the spec doesn't name it as a canonicalization concern.
func (e Endpoint) Mentions() []string {
	switch v := e.MentionRaw.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// endpointKey identifies an endpoint for the resolver's de-duplication
// pass: two endpoints of the same kind with the same primary target are
// considered the same destination, regardless of how many times the
// layered config concatenated them in.
func (e Endpoint) endpointKey() string {
	switch e.Kind {
	case SinkEmail:
		return e.Address
	case SinkSlack, SinkWebhook:
		return e.Hook
	case SinkSatellite:
		return e.IMEI
	case SinkHTTPPost:
		return e.URL
	case SinkPush:
		return e.Topic
	default:
		return ""
	}
}

// User maps sink-kind to an ordered list of Endpoints, plus user-level
// defaults an Endpoint may override.
type User struct {
	Email     []Endpoint `koanf:"email"`
	Slack     []Endpoint `koanf:"slack"`
	Webhook   []Endpoint `koanf:"webhook"`
	Satellite []Endpoint `koanf:"satellite"`
	HTTPPost  []Endpoint `koanf:"httppost"`
	Push      []Endpoint `koanf:"push"`

	Status *bool         `koanf:"status"`
	LatLon gpsfix.Format `koanf:"latlon"`
}

// endpointLists returns every (kind, slice) pair a User carries, in a
// fixed order, so canonicalization and resolution don't each need their
// own copy of the sink-kind enumeration.
func (u *User) endpointLists() []struct {
	kind SinkKind
	eps  *[]Endpoint
} {
	return []struct {
		kind SinkKind
		eps  *[]Endpoint
	}{
		{SinkEmail, &u.Email},
		{SinkSlack, &u.Slack},
		{SinkWebhook, &u.Webhook},
		{SinkSatellite, &u.Satellite},
		{SinkHTTPPost, &u.HTTPPost},
		{SinkPush, &u.Push},
	}
}

// SubscriptionTable is the two-map document described in the data model:
// which users are subscribed to which event kinds, and what each user's
// endpoints look like.
type SubscriptionTable struct {
	Subscriptions map[EventKind][]string `koanf:"subscriptions"`
	Users         map[string]*User       `koanf:"users"`
}

// DispatchItem is one resolved destination for one event: a user's single
// endpoint, the sink kind it belongs to, and the formatting options in
// effect for it.
type DispatchItem struct {
	User      string
	Kind      SinkKind
	Endpoint  Endpoint
	LatLon    gpsfix.Format
	EventKind EventKind
}
