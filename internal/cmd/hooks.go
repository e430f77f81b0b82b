package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thatjpcsguy/fleetctl/internal/hooks"
)

// NewHooksCmd creates the hooks command
func NewHooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hooks <hook-name> <allocation-id>",
		Short: "Manually run allocation hooks",
		Long: `Manually execute an allocation hook against an existing allocation.

Hooks are read from .fleetctl/hooks/<hook-name>.sh, falling back to the
POST_CREATE_SCRIPT / POST_RELEASE_SCRIPT config keys.

Available hooks:
  post-create   - Runs after an allocation is created
  post-release  - Runs after an allocation is released

Examples:
  fleetctl hooks post-create 12`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hookName := args[0]

			// Validate hook name
			var hookType hooks.HookType
			switch hookName {
			case string(hooks.PostCreate):
				hookType = hooks.PostCreate
			case string(hooks.PostRelease):
				hookType = hooks.PostRelease
			default:
				return fmt.Errorf("invalid hook name: %s. Valid options: post-create, post-release", hookName)
			}

			id, err := parseID("allocation", args[1])
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

			allocations, err := a.client.ListAllocations(cmd.Context(), nil)
			if err != nil {
				return a.apiError("list allocations", err)
			}

			for _, alloc := range allocations {
				if alloc.ID != id {
					continue
				}

				script := a.cfg.PostCreateScript
				if hookType == hooks.PostRelease {
					script = a.cfg.PostReleaseScript
				}

				runner := hooks.NewRunner()
				runner.Stdout = cmd.OutOrStdout()
				runner.Stderr = cmd.ErrOrStderr()

				ran, err := runner.Execute(hookType, script, hooks.AllocationEnv(alloc))
				if err != nil {
					return fmt.Errorf("hook execution failed: %w", err)
				}
				if !ran {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No %s hook defined\n", hookType)
					return nil
				}

				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "✅ Hook completed successfully!")
				return nil
			}

			return fmt.Errorf("allocation %d not found", id)
		},
	}

	return cmd
}
