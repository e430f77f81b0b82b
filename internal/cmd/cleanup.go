package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/thatjpcsguy/fleetctl/internal/api"
)

// NewCleanupCmd creates the cleanup command
func NewCleanupCmd() *cobra.Command {
	var (
		agent  int64
		dryRun bool
		perSec float64
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Release failed allocations",
		Long: `Releases every allocation the backend reports as failed so its port
returns to the pool. Use --agent to limit the sweep to one agent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if perSec <= 0 {
				return fmt.Errorf("--rate must be positive")
			}
			if err := a.requireAuth(); err != nil {
				return err
			}
			if !a.fleet.Refresh(cmd.Context()) {
				return a.failed("load agents")
			}

			var failed []api.Allocation
			for _, ag := range a.fleet.Agents() {
				if cmd.Flags().Changed("agent") && ag.ID != agent {
					continue
				}
				for _, alloc := range ag.ActiveAllocations {
					if alloc.Status == api.AllocationFailed {
						failed = append(failed, alloc)
					}
				}
			}

			out := cmd.OutOrStdout()
			if len(failed) == 0 {
				_, _ = fmt.Fprintln(out, "No failed allocations found")
				return nil
			}

			red := color.New(color.FgRed).SprintFunc()

			_, _ = fmt.Fprintln(out, "Found failed allocations:")
			for _, alloc := range failed {
				_, _ = fmt.Fprintf(out, "  - #%d %s on agent %d %s\n", alloc.ID, alloc.Service, alloc.AgentID, red("(failed)"))
			}
			_, _ = fmt.Fprintln(out)

			if dryRun {
				_, _ = fmt.Fprintln(out, "Dry run - no changes made")
				return nil
			}

			limiter := rate.NewLimiter(rate.Limit(perSec), 1)
			released := 0
			for _, alloc := range failed {
				if err := limiter.Wait(cmd.Context()); err != nil {
					return fmt.Errorf("cleanup interrupted: %w", err)
				}
				if a.mutator.Release(cmd.Context(), alloc.ID) {
					_, _ = fmt.Fprintf(out, "  ✓ Released #%d (port %d)\n", alloc.ID, alloc.RemotePort)
					released++
					continue
				}

				a.session.Sync()
				if !a.session.IsAuthenticated() {
					return ErrNotLoggedIn
				}
				_, _ = fmt.Fprintf(out, "  Warning: failed to release #%d\n", alloc.ID)
			}

			_, _ = fmt.Fprintf(out, "\n✅ Cleanup complete! Released %d allocation(s)\n", released)
			return nil
		},
	}

	cmd.Flags().Int64Var(&agent, "agent", 0, "Only clean up allocations on this agent")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be released")
	cmd.Flags().Float64Var(&perSec, "rate", 5, "Maximum releases per second")

	return cmd
}
