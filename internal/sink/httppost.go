package sink

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iop-apl-uw/glidermon/internal/errs"
	"github.com/iop-apl-uw/glidermon/internal/gpsfix"
	"github.com/iop-apl-uw/glidermon/internal/subscribe"
)

// HTTPPostSink is the legacy plain HTTP POST adapter: the body is the raw
// "<subject>:<body>" string, submitted with content-type application/json
// even though it isn't JSON — §4.6 preserves this historical mismatch
// for compatibility with existing receivers.
type HTTPPostSink struct {
	logger *slog.Logger
}

// NewHTTPPostSink builds an HTTPPostSink.
func NewHTTPPostSink() *HTTPPostSink {
	return &HTTPPostSink{logger: slog.Default()}
}

func (s *HTTPPostSink) Kind() subscribe.SinkKind { return subscribe.SinkHTTPPost }

func (s *HTTPPostSink) Validate(ep subscribe.Endpoint) error {
	if ep.URL == "" {
		return fmt.Errorf("%w: http post endpoint missing url", errs.ErrEndpointConfig)
	}
	return nil
}

func (s *HTTPPostSink) Send(ctx context.Context, gliderID string, item subscribe.DispatchItem, subject, body string, fix *gpsfix.Fix) error {
	ep := item.Endpoint
	if err := s.Validate(ep); err != nil {
		s.logger.Error("httppost: invalid endpoint", slog.String("user", item.User), slog.Any("error", err))
		return err
	}

	payload := subject + ":" + body

	ctx, cancel := context.WithTimeout(ctx, SendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, strings.NewReader(payload))
	if err != nil {
		return fmt.Errorf("httppost: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		s.logger.Error("httppost: transport failure", slog.String("user", item.User), slog.Any("error", err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("httppost: non-2xx response", slog.String("user", item.User), slog.Int("status", resp.StatusCode))
		return fmt.Errorf("httppost: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
