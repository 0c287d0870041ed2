package subscribe

import (
	"testing"

	"github.com/iop-apl-uw/glidermon/internal/gpsfix"
)

func boolPtr(b bool) *bool { return &b }

func TestSanitizeRawUsersDropsUnknownSinkKind(t *testing.T) {
	raw := map[string]any{
		"users": map[string]any{
			"alice": map[string]any{"email": map[string]any{"address": "a@example.org"}},
			"bob":   map[string]any{"emale": map[string]any{"address": "typo@example.org"}},
		},
	}
	cleaned, warnings := SanitizeRawUsers(raw)
	users := cleaned["users"].(map[string]any)
	if _, ok := users["alice"]; !ok {
		t.Error("alice should survive sanitization")
	}
	if _, ok := users["bob"]; ok {
		t.Error("bob should be dropped for unknown sink kind")
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want 1", warnings)
	}
}

func TestCanonicalizeFillsDefaults(t *testing.T) {
	tbl := &SubscriptionTable{
		Users: map[string]*User{
			"alice": {Email: []Endpoint{{Address: "a@example.org"}}},
		},
	}
	AssignKinds(tbl)
	Canonicalize(tbl)

	u := tbl.Users["alice"]
	if u.Status == nil || !*u.Status {
		t.Error("Status should default to true")
	}
	if u.LatLon != gpsfix.FormatDDMM {
		t.Errorf("LatLon = %q, want ddmm default", u.LatLon)
	}
	if tbl.Subscriptions == nil || tbl.Users == nil {
		t.Error("nil maps should be replaced with empty maps")
	}
}

func TestCanonicalizeInvalidLatLonForced(t *testing.T) {
	tbl := &SubscriptionTable{
		Users: map[string]*User{
			"alice": {LatLon: "nonsense", Email: []Endpoint{{Address: "a@example.org"}}},
		},
	}
	warnings := Canonicalize(tbl)
	if tbl.Users["alice"].LatLon != gpsfix.FormatDDMM {
		t.Errorf("LatLon = %q, want forced to ddmm", tbl.Users["alice"].LatLon)
	}
	if len(warnings) == 0 {
		t.Error("expected a warning for invalid latlon")
	}
}

func TestCanonicalizeRemovesUnknownFilterKeepsEndpoint(t *testing.T) {
	tbl := &SubscriptionTable{
		Users: map[string]*User{
			"alice": {Email: []Endpoint{{Address: "a@example.org", Filters: []string{"gps", "bogus"}}}},
		},
	}
	AssignKinds(tbl)
	warnings := Canonicalize(tbl)
	ep := tbl.Users["alice"].Email[0]
	if len(ep.Filters) != 1 || ep.Filters[0] != "gps" {
		t.Errorf("Filters = %v, want [gps]", ep.Filters)
	}
	if len(warnings) == 0 {
		t.Error("expected a warning for the dropped filter")
	}
}

func TestCanonicalizePrunesSubscriptionsToUndefinedUsers(t *testing.T) {
	tbl := &SubscriptionTable{
		Subscriptions: map[EventKind][]string{EventGPS: {"alice", "ghost"}},
		Users:         map[string]*User{"alice": {Email: []Endpoint{{Address: "a@example.org"}}}},
	}
	Canonicalize(tbl)
	got := tbl.Subscriptions[EventGPS]
	if len(got) != 1 || got[0] != "alice" {
		t.Errorf("Subscriptions[gps] = %v, want [alice]", got)
	}
}

// Invariant 3: canonicalize(canonicalize(T)) == canonicalize(T).
func TestCanonicalizeIsIdempotent(t *testing.T) {
	tbl := &SubscriptionTable{
		Subscriptions: map[EventKind][]string{EventGPS: {"alice"}},
		Users: map[string]*User{
			"alice": {
				LatLon: "garbage",
				Email:  []Endpoint{{Address: "a@example.org", Filters: []string{"gps", "bogus"}}},
			},
		},
	}
	AssignKinds(tbl)
	Canonicalize(tbl)
	first := *tbl.Users["alice"]

	secondWarnings := Canonicalize(tbl)
	second := *tbl.Users["alice"]

	if len(secondWarnings) != 0 {
		t.Errorf("second canonicalize pass produced warnings: %v", secondWarnings)
	}
	if first.LatLon != second.LatLon || len(first.Email[0].Filters) != len(second.Email[0].Filters) {
		t.Errorf("canonicalize not idempotent: first=%+v second=%+v", first, second)
	}
}
