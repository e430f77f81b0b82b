package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the fleetctl command tree
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fleetctl",
		Short: "Manage a fleet of remote agents and their service allocations",
		Long: `fleetctl talks to the fleet backend to list agents, provision and
release service allocations on them, and watch the fleet change over time.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add subcommands
	rootCmd.AddCommand(NewLoginCmd())
	rootCmd.AddCommand(NewRegisterCmd())
	rootCmd.AddCommand(NewLogoutCmd())
	rootCmd.AddCommand(NewStatusCmd())
	rootCmd.AddCommand(NewHealthCmd())
	rootCmd.AddCommand(NewPortsCmd())
	rootCmd.AddCommand(NewAgentsCmd())
	rootCmd.AddCommand(NewAllocCmd())
	rootCmd.AddCommand(NewCleanupCmd())
	rootCmd.AddCommand(NewHooksCmd())
	rootCmd.AddCommand(NewWatchCmd())
	rootCmd.AddCommand(NewExecCmd())

	return rootCmd
}
