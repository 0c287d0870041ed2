package commands

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iop-apl-uw/glidermon/internal/config"
	"github.com/iop-apl-uw/glidermon/internal/subscribe"
)

func validateSubscriptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-subscriptions <file>...",
		Short: "Load, merge, and canonicalize 1-3 subscription layer files",
		Long: "Loads between one and three subscription YAML files as the basestation/group/mission layers " +
			"(a single file is treated as the mission layer, two as basestation+mission, three as " +
			"basestation+group+mission), merges and canonicalizes them exactly as the monitor would at " +
			"dispatch time, and prints any canonicalization warnings plus the resulting table.",
		Args: cobra.RangeArgs(1, 3),
		RunE: func(_ *cobra.Command, args []string) error {
			layers := layersFromArgs(args)

			table, warnings, err := config.LoadSubscriptions(layers, config.DefaultLoadOptions())
			if err != nil {
				return fmt.Errorf("load subscriptions: %w", err)
			}

			for _, w := range warnings {
				fmt.Printf("warning: %s\n", w)
			}
			if len(warnings) > 0 {
				fmt.Println()
			}

			fmt.Print(formatSubscriptionTable(table))
			return nil
		},
	}
}

// layersFromArgs assigns 1-3 positional file arguments to the three
// priority layers config.SubscriptionLayers names, per the documented rule:
// one file is the mission layer, two are basestation+mission, three are
// basestation+group+mission.
func layersFromArgs(args []string) config.SubscriptionLayers {
	switch len(args) {
	case 1:
		return config.SubscriptionLayers{Mission: args[0]}
	case 2:
		return config.SubscriptionLayers{Basestation: args[0], Mission: args[1]}
	default:
		return config.SubscriptionLayers{Basestation: args[0], Group: args[1], Mission: args[2]}
	}
}

func formatSubscriptionTable(t *subscribe.SubscriptionTable) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "EVENT\tUSER\tKIND\tTARGET")
	kinds := make([]subscribe.EventKind, 0, len(t.Subscriptions))
	for k := range t.Subscriptions {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	for _, kind := range kinds {
		for _, item := range subscribe.Resolve(t, kind) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", kind, item.User, item.Kind, endpointTarget(item.Endpoint, item.Kind))
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Sprintf("flush table: %v\n", err)
	}
	return buf.String()
}

func endpointTarget(e subscribe.Endpoint, kind subscribe.SinkKind) string {
	switch kind {
	case subscribe.SinkEmail:
		return e.Address
	case subscribe.SinkSlack, subscribe.SinkWebhook:
		return e.Hook
	case subscribe.SinkSatellite:
		return e.IMEI
	case subscribe.SinkHTTPPost:
		return e.URL
	case subscribe.SinkPush:
		return e.Topic
	default:
		return ""
	}
}
