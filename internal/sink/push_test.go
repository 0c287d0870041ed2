package sink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iop-apl-uw/glidermon/internal/subscribe"
)

// S2: recovery push, priority 5, tag stop_sign.
func TestPushSinkRecoveryPriorityAndTag(t *testing.T) {
	var payload pushPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Error(err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewPushSink("")
	item := subscribe.DispatchItem{
		Kind:      subscribe.SinkPush,
		EventKind: subscribe.EventRecov,
		Endpoint:  subscribe.Endpoint{Topic: "gliders", URL: srv.URL},
	}
	if err := s.Send(context.Background(), "42", item, "IN RECOVERY SG42", "DEEP_PRESSURE", nil); err != nil {
		t.Fatal(err)
	}
	if payload.Priority != 5 {
		t.Errorf("Priority = %d, want 5", payload.Priority)
	}
	if len(payload.Tags) != 1 || payload.Tags[0] != "stop_sign" {
		t.Errorf("Tags = %v, want [stop_sign]", payload.Tags)
	}
}

func TestPushSinkEndpointPriorityOverridesDefault(t *testing.T) {
	var payload pushPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewPushSink("")
	ep := subscribe.Endpoint{Topic: "gliders", URL: srv.URL, Priority: map[string]int{"recov": 9}}
	item := subscribe.DispatchItem{EventKind: subscribe.EventRecov, Endpoint: ep}
	if err := s.Send(context.Background(), "42", item, "x", "y", nil); err != nil {
		t.Fatal(err)
	}
	if payload.Priority != 9 {
		t.Errorf("Priority = %d, want endpoint override 9", payload.Priority)
	}
}

func TestPushSinkActionsWithVisualizationBaseURL(t *testing.T) {
	var payload pushPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewPushSink("https://viz.example.org")
	item := subscribe.DispatchItem{EventKind: subscribe.EventGPS, Endpoint: subscribe.Endpoint{Topic: "gliders", URL: srv.URL}}
	if err := s.Send(context.Background(), "42", item, "x", "baselog: 1705276800 more text", nil); err != nil {
		t.Fatal(err)
	}
	if len(payload.Actions) != 3 {
		t.Fatalf("Actions = %v, want 3 (dives, map, baselog)", payload.Actions)
	}
	if payload.Actions[2].URL != "https://viz.example.org/baselog/1705276800" {
		t.Errorf("baselog action URL = %q", payload.Actions[2].URL)
	}
}

func TestPushSinkNoActionsWithoutVisualizationBaseURL(t *testing.T) {
	s := NewPushSink("")
	if actions := s.actionsFor("42", "baselog: 123"); actions != nil {
		t.Errorf("actions = %v, want nil", actions)
	}
}
