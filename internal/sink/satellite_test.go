package sink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iop-apl-uw/glidermon/internal/gpsfix"
	"github.com/iop-apl-uw/glidermon/internal/subscribe"
)

func TestSatelliteSinkSkipsWithoutValidFix(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSatelliteSink(SatelliteConfig{BaseURL: srv.URL})
	item := subscribe.DispatchItem{Endpoint: subscribe.Endpoint{IMEI: "300012345678", User: "u", Password: "p"}}
	if err := s.Send(context.Background(), "42", item, "GPS SG42", "body", nil); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("satellite sink should not call the gateway without a valid fix")
	}
}

func TestSatelliteSinkSendsEnvelope(t *testing.T) {
	var envelope satelliteEnvelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			t.Error(err)
		}
		u, p, ok := r.BasicAuth()
		if !ok || u != "iopuser" || p != "secret" {
			t.Errorf("basic auth = %q/%q ok=%v", u, p, ok)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	fix, err := gpsfix.New(4730.1234, -12215.5678, time.Date(2024, 1, 15, 0, 0, 10, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}

	s := NewSatelliteSink(SatelliteConfig{BaseURL: srv.URL})
	item := subscribe.DispatchItem{Endpoint: subscribe.Endpoint{IMEI: "300012345678", User: "iopuser", Password: "secret"}}
	if err := s.Send(context.Background(), "42", item, "GPS SG42", "body", &fix); err != nil {
		t.Fatal(err)
	}

	if len(envelope.Messages) != 1 {
		t.Fatalf("Messages = %v, want 1", envelope.Messages)
	}
	m := envelope.Messages[0]
	if m.Recipients[0] != "300012345678" {
		t.Errorf("Recipients = %v", m.Recipients)
	}
	if m.ReferencePoint.Coordinate.Latitude == 0 {
		t.Error("Latitude should be nonzero")
	}
}

func TestSatelliteSinkValidate(t *testing.T) {
	s := NewSatelliteSink(SatelliteConfig{})
	if err := s.Validate(subscribe.Endpoint{}); err == nil {
		t.Error("expected error for missing imei")
	}
	if err := s.Validate(subscribe.Endpoint{IMEI: "x"}); err == nil {
		t.Error("expected error for missing usr/pwd")
	}
}
