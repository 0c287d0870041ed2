package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iop-apl-uw/glidermon/internal/errs"
	"github.com/iop-apl-uw/glidermon/internal/gpsfix"
	"github.com/iop-apl-uw/glidermon/internal/subscribe"
)

// ChatWebhookSink posts a JSON envelope to an incoming-webhook URL. It
// serves both flavors named in §4.6: type A (subscribe.SinkSlack) sends
// only {text}; type B (subscribe.SinkWebhook) additionally sends
// username/channel and prepends any configured mention(s) to the text.
type ChatWebhookSink struct {
	kind   subscribe.SinkKind
	logger *slog.Logger
}

// NewChatWebhookSink builds a ChatWebhookSink for the given flavor.
func NewChatWebhookSink(kind subscribe.SinkKind) *ChatWebhookSink {
	return &ChatWebhookSink{kind: kind, logger: slog.Default()}
}

func (s *ChatWebhookSink) Kind() subscribe.SinkKind { return s.kind }

func (s *ChatWebhookSink) Validate(ep subscribe.Endpoint) error {
	if ep.Hook == "" {
		return fmt.Errorf("%w: chat webhook endpoint missing hook URL", errs.ErrEndpointConfig)
	}
	return nil
}

type chatPayloadA struct {
	Text string `json:"text"`
}

type chatPayloadB struct {
	Text     string `json:"text"`
	Username string `json:"username,omitempty"`
	Channel  string `json:"channel,omitempty"`
}

func (s *ChatWebhookSink) Send(ctx context.Context, gliderID string, item subscribe.DispatchItem, subject, body string, fix *gpsfix.Fix) error {
	ep := item.Endpoint
	if err := s.Validate(ep); err != nil {
		s.logger.Error("chatwebhook: invalid endpoint", slog.String("user", item.User), slog.Any("error", err))
		return err
	}

	text := subject + ":" + body

	var payload any
	if s.kind == subscribe.SinkSlack {
		payload = chatPayloadA{Text: text}
	} else {
		if mentions := ep.Mentions(); len(mentions) > 0 {
			text = strings.Join(mentions, "") + text
		}
		payload = chatPayloadB{Text: text, Username: ep.Username, Channel: ep.Channel}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("chatwebhook: encode payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, SendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.Hook, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("chatwebhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		s.logger.Error("chatwebhook: transport failure", slog.String("user", item.User), slog.Any("error", err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("chatwebhook: non-2xx response", slog.String("user", item.User), slog.Int("status", resp.StatusCode))
		return fmt.Errorf("chatwebhook: hook returned status %d", resp.StatusCode)
	}
	return nil
}
