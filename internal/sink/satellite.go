package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/iop-apl-uw/glidermon/internal/errs"
	"github.com/iop-apl-uw/glidermon/internal/gpsfix"
	"github.com/iop-apl-uw/glidermon/internal/subscribe"
)

// SatelliteSink posts the Iridium-style JSON envelope §4.6 names to a
// satellite-text gateway. It requires a valid GPS fix — without one the
// message has no ReferencePoint to attach, so Send logs and returns
// without attempting a request.
type SatelliteSink struct {
	cfg    SatelliteConfig
	logger *slog.Logger
}

// NewSatelliteSink builds a SatelliteSink posting to cfg.BaseURL.
func NewSatelliteSink(cfg SatelliteConfig) *SatelliteSink {
	return &SatelliteSink{cfg: cfg, logger: slog.Default()}
}

func (s *SatelliteSink) Kind() subscribe.SinkKind { return subscribe.SinkSatellite }

func (s *SatelliteSink) Validate(ep subscribe.Endpoint) error {
	if ep.IMEI == "" {
		return fmt.Errorf("%w: satellite endpoint missing imei", errs.ErrEndpointConfig)
	}
	if ep.User == "" || ep.Password == "" {
		return fmt.Errorf("%w: satellite endpoint missing usr/pwd", errs.ErrEndpointConfig)
	}
	return nil
}

type satelliteEnvelope struct {
	Messages []satelliteMessage `json:"Messages"`
}

type satelliteMessage struct {
	Message        string             `json:"Message"`
	Recipients     []string           `json:"Recipients"`
	ReferencePoint satelliteReference `json:"ReferencePoint"`
	Sender         string             `json:"Sender"`
	Timestamp      string             `json:"Timestamp"`
}

type satelliteReference struct {
	Altitude     int               `json:"Altitude"`
	Coordinate   satelliteCoord    `json:"Coordinate"`
	Course       int               `json:"Course"`
	Label        string            `json:"Label"`
	LocationType int               `json:"LocationType"`
	Speed        int               `json:"Speed"`
}

type satelliteCoord struct {
	Latitude  float64 `json:"Latitude"`
	Longitude float64 `json:"Longitude"`
}

func (s *SatelliteSink) Send(ctx context.Context, gliderID string, item subscribe.DispatchItem, subject, body string, fix *gpsfix.Fix) error {
	ep := item.Endpoint
	if err := s.Validate(ep); err != nil {
		s.logger.Error("satellite: invalid endpoint", slog.String("user", item.User), slog.Any("error", err))
		return err
	}
	if fix == nil || !fix.Valid {
		s.logger.Info("satellite: skipping send, no valid GPS fix", slog.String("user", item.User))
		return nil
	}

	envelope := satelliteEnvelope{Messages: []satelliteMessage{{
		Message:    subject + ": " + body,
		Recipients: []string{ep.IMEI},
		ReferencePoint: satelliteReference{
			Coordinate:   satelliteCoord{Latitude: fix.LatDecimal(), Longitude: fix.LonDecimal()},
			Label:        fmt.Sprintf("SG%03s", gliderID),
			LocationType: 0,
		},
		Sender:    ep.User,
		Timestamp: fmt.Sprintf("/Date(%d)/", fix.Time.UnixMilli()),
	}}}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("satellite: encode payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, SendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("satellite: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(ep.User, ep.Password)

	resp, err := httpClient.Do(req)
	if err != nil {
		s.logger.Error("satellite: transport failure", slog.String("user", item.User), slog.Any("error", err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("satellite: non-2xx response", slog.String("user", item.User), slog.Int("status", resp.StatusCode))
		return fmt.Errorf("satellite: gateway returned status %d", resp.StatusCode)
	}
	return nil
}
