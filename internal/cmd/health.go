package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewHealthCmd creates the health command
func NewHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			health, err := a.client.CheckHealth(cmd.Context())
			if err != nil {
				return a.apiError("check health", err)
			}

			status := health.Status
			switch status {
			case "ok", "healthy":
				status = color.GreenString(status)
			default:
				status = color.YellowString(status)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", a.cfg.BaseURL(), status)
			return nil
		},
	}
}

// NewPortsCmd creates the ports command
func NewPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "Show the remote port pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireAuth(); err != nil {
				return err
			}

			pool, err := a.client.PortsAvailable(cmd.Context())
			if err != nil {
				return a.apiError("get port pool", err)
			}

			total := pool.Max - pool.Min + 1
			free := total - pool.AllocatedCount
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Range:     %d-%d\n", pool.Min, pool.Max)
			_, _ = fmt.Fprintf(out, "Allocated: %d\n", pool.AllocatedCount)
			if free <= 0 {
				_, _ = fmt.Fprintf(out, "Free:      %s\n", color.RedString("%d", free))
			} else {
				_, _ = fmt.Fprintf(out, "Free:      %d\n", free)
			}
			return nil
		},
	}
}
