package subscribe

import "github.com/iop-apl-uw/glidermon/internal/gpsfix"

// Resolve implements §4.5: for each user subscribed to kind, iterate their
// endpoints across all sink kinds, apply filter/status/latlon resolution,
// and emit one DispatchItem per surviving endpoint.
//
// Two de-duplication passes guard invariant 4 ("at most one item per
// (user, endpoint) pair"): the subscriber list itself is de-duplicated
// (the layered config's list-concatenation merge can legitimately name the
// same user twice for one event kind), and within a user's own endpoint
// lists a (kind, target) pair already emitted is skipped, since the same
// open question that allows list concatenation to duplicate subscriber
// names can just as easily duplicate an endpoint entry.
func Resolve(t *SubscriptionTable, kind EventKind) []DispatchItem {
	var items []DispatchItem

	seenUser := make(map[string]bool)
	for _, name := range t.Subscriptions[kind] {
		if seenUser[name] {
			continue
		}
		seenUser[name] = true

		user, ok := t.Users[name]
		if !ok {
			continue
		}

		seenEndpoint := make(map[string]bool)
		for _, group := range user.endpointLists() {
			for _, ep := range *group.eps {
				if !endpointWantsEvent(ep, kind) {
					continue
				}
				dedupeKey := string(group.kind) + "|" + ep.endpointKey()
				if seenEndpoint[dedupeKey] {
					continue
				}
				seenEndpoint[dedupeKey] = true

				if !effectiveStatus(ep, user) {
					continue
				}

				items = append(items, DispatchItem{
					User:      name,
					Kind:      group.kind,
					Endpoint:  ep,
					LatLon:    effectiveLatLon(ep, user),
					EventKind: kind,
				})
			}
		}
	}

	return items
}

func endpointWantsEvent(ep Endpoint, kind EventKind) bool {
	if len(ep.Filters) == 0 {
		return true
	}
	for _, f := range ep.Filters {
		if EventKind(f) == kind {
			return true
		}
	}
	return false
}

// effectiveStatus implements "endpoint.status ∨ user.status (endpoint
// overrides)": an endpoint that sets its own Status wins outright; absent
// that, the user's Status (always non-nil post-canonicalization) applies.
func effectiveStatus(ep Endpoint, user *User) bool {
	if ep.Status != nil {
		return *ep.Status
	}
	if user.Status != nil {
		return *user.Status
	}
	return true
}

func effectiveLatLon(ep Endpoint, user *User) gpsfix.Format {
	if ep.LatLon != "" {
		return ep.LatLon
	}
	return user.LatLon
}
