package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/iop-apl-uw/glidermon/internal/errs"
	"github.com/iop-apl-uw/glidermon/internal/gpsfix"
	"github.com/iop-apl-uw/glidermon/internal/subscribe"
)

// defaultPriority is the fallback priority per event kind when an endpoint
// doesn't override it in its own Priority map. recov's value of 5 matches
// scenario S2.
//
//nolint:gochecknoglobals // closed lookup table, same idiom as eventTags.
var defaultPriority = map[subscribe.EventKind]int{
	subscribe.EventCritical:  10,
	subscribe.EventAlerts:    10,
	subscribe.EventRecov:     5,
	subscribe.EventErrors:    4,
	subscribe.EventTraceback: 4,
	subscribe.EventGPS:       3,
	subscribe.EventLateGPS:   3,
	subscribe.EventDrift:     3,
	subscribe.EventDiveTar:   3,
	subscribe.EventComp:      3,
	subscribe.EventUpload:    3,
}

// eventTags is the fixed event-kind -> tag lookup §4.6 names for push's
// optional tags array.
//
//nolint:gochecknoglobals // closed lookup table.
var eventTags = map[subscribe.EventKind]string{
	subscribe.EventRecov:     "stop_sign",
	subscribe.EventCritical:  "rotating_light",
	subscribe.EventAlerts:    "rotating_light",
	subscribe.EventGPS:       "round_pushpin",
	subscribe.EventLateGPS:   "hourglass",
	subscribe.EventDrift:     "ocean",
	subscribe.EventDiveTar:   "package",
	subscribe.EventComp:      "white_check_mark",
	subscribe.EventErrors:    "warning",
	subscribe.EventTraceback: "bug",
	subscribe.EventUpload:    "arrow_up",
}

// baselogSentinel marks a timestamp token in a dispatch body that push
// should turn into a "baselog/<timestamp>" deep link action.
const baselogSentinel = "baselog:"

// PushSink posts a JSON notification to a push-notification service
// (e.g. ntfy/Pushover-style HTTP API).
type PushSink struct {
	visualizationBaseURL string
	logger               *slog.Logger
}

// NewPushSink builds a PushSink. visualizationBaseURL may be empty, in
// which case Send omits the actions array entirely.
func NewPushSink(visualizationBaseURL string) *PushSink {
	return &PushSink{visualizationBaseURL: visualizationBaseURL, logger: slog.Default()}
}

func (s *PushSink) Kind() subscribe.SinkKind { return subscribe.SinkPush }

func (s *PushSink) Validate(ep subscribe.Endpoint) error {
	if ep.Topic == "" {
		return fmt.Errorf("%w: push endpoint missing topic", errs.ErrEndpointConfig)
	}
	return nil
}

type pushAction struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type pushPayload struct {
	Title    string       `json:"title"`
	Message  string       `json:"message"`
	Topic    string       `json:"topic"`
	Priority int          `json:"priority"`
	Actions  []pushAction `json:"actions,omitempty"`
	Tags     []string     `json:"tags,omitempty"`
}

func (s *PushSink) Send(ctx context.Context, gliderID string, item subscribe.DispatchItem, subject, body string, fix *gpsfix.Fix) error {
	ep := item.Endpoint
	if err := s.Validate(ep); err != nil {
		s.logger.Error("push: invalid endpoint", slog.String("user", item.User), slog.Any("error", err))
		return err
	}

	payload := pushPayload{
		Title:    subject,
		Message:  body,
		Topic:    ep.Topic,
		Priority: s.priorityFor(ep, item.EventKind),
		Actions:  s.actionsFor(gliderID, body),
	}
	if tag, ok := eventTags[item.EventKind]; ok {
		payload.Tags = []string{tag}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("push: encode payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, SendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("push: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		s.logger.Error("push: transport failure", slog.String("user", item.User), slog.Any("error", err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("push: non-2xx response", slog.String("user", item.User), slog.Int("status", resp.StatusCode))
		return fmt.Errorf("push: service returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *PushSink) priorityFor(ep subscribe.Endpoint, kind subscribe.EventKind) int {
	if ep.Priority != nil {
		if p, ok := ep.Priority[string(kind)]; ok {
			return p
		}
	}
	return defaultPriority[kind]
}

func (s *PushSink) actionsFor(gliderID, body string) []pushAction {
	if s.visualizationBaseURL == "" {
		return nil
	}
	actions := []pushAction{
		{Title: "dives", URL: s.visualizationBaseURL + "/dives/" + gliderID},
		{Title: "map", URL: s.visualizationBaseURL + "/map/" + gliderID},
	}
	if ts, ok := extractBaselogTimestamp(body); ok {
		actions = append(actions, pushAction{Title: "baselog", URL: s.visualizationBaseURL + "/baselog/" + ts})
	}
	return actions
}

// extractBaselogTimestamp pulls the token following baselogSentinel out of
// body, if present.
func extractBaselogTimestamp(body string) (string, bool) {
	idx := strings.Index(body, baselogSentinel)
	if idx < 0 {
		return "", false
	}
	rest := strings.TrimLeft(body[idx+len(baselogSentinel):], " \t")
	end := strings.IndexAny(rest, " \t\n")
	if end >= 0 {
		rest = rest[:end]
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", false
	}
	if _, err := strconv.ParseInt(rest, 10, 64); err != nil {
		// Not purely numeric; still usable as an opaque path segment.
		return rest, true
	}
	return rest, true
}
