// Package commands implements the glidermonctl CLI commands.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the top-level cobra command for glidermonctl. Unlike the
// teacher's gobfdctl, which talks to a running daemon over ConnectRPC,
// glidermonctl has no RPC surface to dial: every subcommand reads the
// mission directory (lock file, session log, subscription files) directly
// off disk, since a shore-side monitor exposes no control plane beyond its
// optional /metrics and /status HTTP endpoints.
var rootCmd = &cobra.Command{
	Use:   "glidermonctl",
	Short: "Operator tool for inspecting and testing glidermon missions",
	Long:  "glidermonctl reads a mission directory's lock file, session log, and subscription layers directly, without requiring the monitor to expose an RPC surface.",

	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(validateSubscriptionsCmd())
	rootCmd.AddCommand(sendTestCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
