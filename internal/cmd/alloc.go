package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thatjpcsguy/fleetctl/internal/api"
	"github.com/thatjpcsguy/fleetctl/internal/fleet"
	"github.com/thatjpcsguy/fleetctl/internal/hooks"
)

// NewAllocCmd creates the alloc command and its subcommands
func NewAllocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alloc",
		Short: "Create, release and list allocations",
	}

	cmd.AddCommand(newAllocCreateCmd())
	cmd.AddCommand(newAllocReleaseCmd())
	cmd.AddCommand(newAllocListCmd())

	return cmd
}

func newAllocCreateCmd() *cobra.Command {
	var (
		service string
		noHooks bool
	)

	cmd := &cobra.Command{
		Use:   "create <agent-id>",
		Short: "Provision a service on an agent",
		Long: `Asks the backend to start a service on an agent. The post-create hook
runs afterwards with the new allocation in its environment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agentID, err := parseID("agent", args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireAuth(); err != nil {
				return err
			}

			if service == "" {
				service = a.cfg.DefaultService
			}

			alloc, ok := a.mutator.CreateAllocation(cmd.Context(), agentID, service)
			if !ok {
				return a.failed(fmt.Sprintf("create %s allocation on agent %d", service, agentID))
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "✅ Allocation %d created on agent %d\n", alloc.ID, agentID)
			_, _ = fmt.Fprintf(out, "  %s\n", allocationLine(*alloc))

			if !noHooks {
				runAllocationHook(cmd, hooks.PostCreate, a.cfg.PostCreateScript, *alloc)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "Service to provision (defaults to DEFAULT_SERVICE)")
	cmd.Flags().BoolVar(&noHooks, "no-hooks", false, "Skip the post-create hook")

	return cmd
}

func newAllocReleaseCmd() *cobra.Command {
	var noHooks bool

	cmd := &cobra.Command{
		Use:   "release <allocation-id>",
		Short: "Tear an allocation down",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("allocation", args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireAuth(); err != nil {
				return err
			}

			// look the allocation up for the hook before it is torn down.
			// The unfiltered listing also resolves released allocations.
			var (
				alloc api.Allocation
				found bool
			)
			if !noHooks {
				allocations, err := a.client.ListAllocations(cmd.Context(), nil)
				if err != nil {
					return a.apiError("list allocations", err)
				}
				alloc, found = findAllocation(allocations, id)
			}

			if !a.mutator.Release(cmd.Context(), id) {
				return a.failed(fmt.Sprintf("release allocation %d", id))
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✅ Allocation %d released\n", id)

			if noHooks {
				return nil
			}
			if !found {
				yellow := color.New(color.FgYellow).SprintFunc()
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), yellow(fmt.Sprintf("Warning: skipping %s hook, allocation %d is not listed", hooks.PostRelease, id)))
				return nil
			}

			alloc.Status = api.AllocationReleasing
			runAllocationHook(cmd, hooks.PostRelease, a.cfg.PostReleaseScript, alloc)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noHooks, "no-hooks", false, "Skip the post-release hook")

	return cmd
}

func newAllocListCmd() *cobra.Command {
	var (
		agent int64
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List allocations",
		Long:  `Lists allocations, optionally for one agent. Released allocations are hidden unless --all is given.`,
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

			var filter *int64
			if cmd.Flags().Changed("agent") {
				filter = &agent
			}

			allocations, err := a.client.ListAllocations(cmd.Context(), filter)
			if err != nil {
				return a.apiError("list allocations", err)
			}

			renderAllocations(cmd.OutOrStdout(), allocations, all)
			return nil
		},
	}

	cmd.Flags().Int64Var(&agent, "agent", 0, "Only show allocations on this agent")
	cmd.Flags().BoolVar(&all, "all", false, "Include released allocations")

	return cmd
}

func renderAllocations(out io.Writer, allocations []api.Allocation, all bool) {
	shown := 0
	for _, alloc := range allocations {
		if !all && !fleet.Listed(alloc) {
			continue
		}
		_, _ = fmt.Fprintf(out, "agent %d: %s\n", alloc.AgentID, allocationLine(alloc))
		shown++
	}
	if shown == 0 {
		_, _ = fmt.Fprintln(out, "No allocations found")
	}
}

func findAllocation(allocations []api.Allocation, id int64) (api.Allocation, bool) {
	for _, alloc := range allocations {
		if alloc.ID == id {
			return alloc, true
		}
	}
	return api.Allocation{}, false
}

// runAllocationHook runs a hook for alloc. A failing hook is reported but
// does not undo the allocation change that already happened.
func runAllocationHook(cmd *cobra.Command, hookType hooks.HookType, scriptFromConfig string, alloc api.Allocation) {
	runner := hooks.NewRunner()
	runner.Stdout = cmd.OutOrStdout()
	runner.Stderr = cmd.ErrOrStderr()

	if _, err := runner.Execute(hookType, scriptFromConfig, hooks.AllocationEnv(alloc)); err != nil {
		yellow := color.New(color.FgYellow).SprintFunc()
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", yellow(fmt.Sprintf("Warning: %s hook failed: %v", hookType, err)))
	}
}
