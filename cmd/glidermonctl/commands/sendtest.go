package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iop-apl-uw/glidermon/internal/config"
	"github.com/iop-apl-uw/glidermon/internal/dispatch"
	"github.com/iop-apl-uw/glidermon/internal/lifecycle"
	"github.com/iop-apl-uw/glidermon/internal/logline"
	"github.com/iop-apl-uw/glidermon/internal/session"
	"github.com/iop-apl-uw/glidermon/internal/sink"
	"github.com/iop-apl-uw/glidermon/internal/subscribe"
	"github.com/iop-apl-uw/glidermon/internal/tailer"
)

func sendTestCmd() *cobra.Command {
	var basestationSubs, groupSubs string

	cmd := &cobra.Command{
		Use:   "send-test <mission-dir-or-logfile> <event-kind>",
		Short: "Send a synthetic dispatch for one event kind against a mission's live subscriptions",
		Long: "Replays the mission's session log to build the same subject/body context a real dispatch would " +
			"see, resolves the subscription table exactly as the monitor would, and sends it through the real " +
			"sinks (using the process's SMTP/satellite/visualization settings) — for verifying that an " +
			"operator's subscription entries and outbound sink configuration actually work, without waiting for " +
			"a real glider contact.",
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			kind := subscribe.EventKind(args[1])
			if !subscribe.ValidEventKind(kind) {
				return fmt.Errorf("unrecognized event kind %q", args[1])
			}

			missionDir, logPath, err := lifecycle.ResolveMissionPaths(args[0])
			if err != nil {
				return fmt.Errorf("resolve mission path: %w", err)
			}

			commLog, gliderID, err := replayCommLog(missionDir, logPath)
			if err != nil {
				return fmt.Errorf("replay session log: %w", err)
			}

			procCfg, err := config.LoadProcessConfig()
			if err != nil {
				return fmt.Errorf("load process config: %w", err)
			}

			logger := slog.Default()
			registry := sink.DefaultRegistry(sink.Config{
				SMTP: sink.SMTPConfig{
					Host:     procCfg.SMTPHost,
					Port:     procCfg.SMTPPort,
					Username: procCfg.SMTPUsername,
					Password: procCfg.SMTPPassword,
				},
				Satellite:            sink.SatelliteConfig{BaseURL: procCfg.SatelliteBaseURL},
				VisualizationBaseURL: procCfg.VisualizationBaseURL,
			})

			layers := config.SubscriptionLayers{
				Basestation: basestationSubs,
				Group:       groupSubs,
				Mission:     filepath.Join(missionDir, "subscriptions.yml"),
			}
			d := dispatch.New(gliderID, layers, config.DefaultLoadOptions(), registry, logger)

			aux := dispatch.AuxInputs{
				ProcessedFilesBody:  "glidermonctl send-test: synthetic processed-files body",
				UploadBody:          "glidermonctl send-test: synthetic upload description",
				CriticalCaptureBody: "glidermonctl send-test: synthetic critical capture",
			}

			d.Dispatch(context.Background(), kind, commLog, aux)
			fmt.Printf("sent synthetic %q dispatch for glider %s (see monitor logs for per-sink results)\n", kind, gliderID)
			return nil
		},
	}

	cmd.Flags().StringVar(&basestationSubs, "basestation-subscriptions", "", "path to the basestation-wide subscription layer")
	cmd.Flags().StringVar(&groupSubs, "group-subscriptions", "", "path to the mission-group subscription layer")

	return cmd
}

// replayCommLog rebuilds a CommLog by feeding a mission's whole session log
// through a no-op reducer, the same scan-back lifecycle.Inspect performs
// (tailer.Pass saves its `<log>.offset` checkpoint along the way), so
// send-test's dispatch sees the same session context (dive,
// last fix, recovery state) a live monitor would have in hand.
func replayCommLog(missionDir, logPath string) (*session.CommLog, string, error) {
	commLog := &session.CommLog{}
	reducer := session.NewReducer(session.NoopVisitor{}, commLog)
	reducer.FirstTime = true

	t := tailer.New(logPath, 0)
	lines, err := t.Pass()
	if err != nil {
		return nil, "", err
	}
	for _, line := range lines {
		reducer.Feed(logline.Classify(line))
	}

	st, err := lifecycle.Inspect(missionDir, logPath)
	if err != nil {
		return nil, "", err
	}
	return commLog, st.GliderID, nil
}
