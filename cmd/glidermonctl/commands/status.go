package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iop-apl-uw/glidermon/internal/lifecycle"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <mission-dir-or-logfile>",
		Short: "Report a mission's glider id, dive, last fix, and monitor liveness",
		Long:  "Replays the mission's session log from the start (a read-only scan-back, never disturbing a live monitor) and reports the resulting session state, plus whatever the singleton lock file says about a running monitor.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			missionDir, logPath, err := lifecycle.ResolveMissionPaths(args[0])
			if err != nil {
				return fmt.Errorf("resolve mission path: %w", err)
			}

			st, err := lifecycle.Inspect(missionDir, logPath)
			if err != nil {
				return fmt.Errorf("inspect mission: %w", err)
			}

			fmt.Println(st.String())
			return nil
		},
	}
}
