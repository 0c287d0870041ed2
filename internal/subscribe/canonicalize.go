package subscribe

import (
	"fmt"
	"sort"

	"github.com/iop-apl-uw/glidermon/internal/gpsfix"
)

//nolint:gochecknoglobals // closed set, same pattern as knownEventKinds.
var knownSinkKeys = map[string]bool{
	"email": true, "slack": true, "webhook": true,
	"satellite": true, "httppost": true, "push": true,
	"status": true, "latlon": true,
}

// SanitizeRawUsers walks the raw, merged (pre-typed-decode) document and
// drops any user whose mapping contains a key outside the recognized
// sink-kind/status/latlon set, per §4.4's "unknown sink-kinds under a user
// produce a warning and that user is dropped". This has to run on the raw
// map[string]any tree rather than the typed SubscriptionTable because an
// unrecognized key simply has nowhere to land once decoded — by the time
// it's a Go struct the information that it was present at all is gone.
func SanitizeRawUsers(raw map[string]any) (map[string]any, []string) {
	var warnings []string

	usersAny, ok := raw["users"]
	if !ok {
		return raw, nil
	}
	users, ok := usersAny.(map[string]any)
	if !ok {
		return raw, nil
	}

	// Deterministic order so warnings (and therefore logs) are stable
	// across runs for the same input.
	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	sort.Strings(names)

	clean := make(map[string]any, len(users))
	for _, name := range names {
		fields, ok := users[name].(map[string]any)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("user %q: not a mapping, dropped", name))
			continue
		}
		bad := false
		for key := range fields {
			if !knownSinkKeys[key] {
				warnings = append(warnings, fmt.Sprintf("user %q: unknown sink kind %q, user dropped", name, key))
				bad = true
				break
			}
		}
		if bad {
			continue
		}
		clean[name] = fields
	}

	raw["users"] = clean
	return raw, warnings
}

// AssignKinds stamps each Endpoint in t with the SinkKind of the list it
// was decoded into. koanf's typed Unmarshal has no way to know this on its
// own since the kind lives in the surrounding map key, not the endpoint's
// own fields.
func AssignKinds(t *SubscriptionTable) {
	for _, u := range t.Users {
		for _, group := range u.endpointLists() {
			for i := range *group.eps {
				(*group.eps)[i].Kind = group.kind
			}
		}
	}
}

// Canonicalize enforces the remaining invariants from §4.4 on an already
// kind-assigned, sink-sanitized SubscriptionTable: endpoint lists were
// already lifted to single-element slices by the WeaklyTypedInput decode
// (internal/config), so the rest here is defaults and value validation.
// Calling Canonicalize twice in a row is a no-op on the table's value and
// produces no warnings the second time, since every field it might have
// forced to a default is already at that default.
func Canonicalize(t *SubscriptionTable) []string {
	var warnings []string

	if t.Subscriptions == nil {
		t.Subscriptions = map[EventKind][]string{}
	}
	if t.Users == nil {
		t.Users = map[string]*User{}
	}

	for name, u := range t.Users {
		if u.Status == nil {
			def := true
			u.Status = &def
		}
		if u.LatLon == "" {
			u.LatLon = gpsfix.FormatDDMM
		} else if !gpsfix.ValidFormat(u.LatLon) {
			warnings = append(warnings, fmt.Sprintf("user %q: invalid latlon %q, forced to ddmm", name, u.LatLon))
			u.LatLon = gpsfix.FormatDDMM
		}

		for _, group := range u.endpointLists() {
			for i := range *group.eps {
				ep := &(*group.eps)[i]
				if ep.LatLon != "" && !gpsfix.ValidFormat(ep.LatLon) {
					warnings = append(warnings, fmt.Sprintf("user %q %s endpoint: invalid latlon %q, forced to ddmm", name, group.kind, ep.LatLon))
					ep.LatLon = gpsfix.FormatDDMM
				}
				ep.Filters, warnings = filterKnownEventKinds(name, group.kind, ep.Filters, warnings)
			}
		}
	}

	for kind, names := range t.Subscriptions {
		var kept []string
		for _, name := range names {
			if _, ok := t.Users[name]; !ok {
				warnings = append(warnings, fmt.Sprintf("subscriptions[%s]: user %q not defined, removed", kind, name))
				continue
			}
			kept = append(kept, name)
		}
		t.Subscriptions[kind] = kept
	}

	return warnings
}

// filterKnownEventKinds drops any filter entry that doesn't name a known
// event kind, warning once per dropped entry but keeping the endpoint
// itself — per §4.4, an unknown filter is not grounds for dropping the
// endpoint, only the bad name.
func filterKnownEventKinds(user string, kind SinkKind, filters []string, warnings []string) ([]string, []string) {
	if len(filters) == 0 {
		return filters, warnings
	}
	kept := make([]string, 0, len(filters))
	for _, f := range filters {
		if ValidEventKind(EventKind(f)) {
			kept = append(kept, f)
			continue
		}
		warnings = append(warnings, fmt.Sprintf("user %q %s endpoint: unknown filter %q, removed", user, kind, f))
	}
	return kept, warnings
}
