package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/thatjpcsguy/fleetctl/internal/api"
)

// NewAgentsCmd creates the agents command
func NewAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List agents and their allocations",
		Long:  `Lists every agent with its status and the allocations that have not been released.`,
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
			if !a.fleet.Refresh(cmd.Context()) {
				return a.failed("load agents")
			}

			renderAgents(cmd.OutOrStdout(), a.fleet.Agents())
			return nil
		},
	}

	cmd.AddCommand(newAgentDeleteCmd())
	cmd.AddCommand(newAgentInviteCmd())

	return cmd
}

func newAgentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <agent-id>",
		Short: "Remove an agent from the fleet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("agent", args[0])
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
			if !a.fleet.DeleteAgent(cmd.Context(), id) {
				return a.failed(fmt.Sprintf("delete agent %d", id))
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✅ Agent %d deleted\n", id)
			return nil
		},
	}
}

func newAgentInviteCmd() *cobra.Command {
	var showQR bool

	cmd := &cobra.Command{
		Use:   "invite <name>",
		Short: "Create a one-time secret an agent registers with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireAuth(); err != nil {
				return err
			}

			invite, err := a.client.CreateAgentInvite(cmd.Context(), args[0])
			if err != nil {
				return a.apiError("create invite", err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Agent:  %s\n", invite.Name)
			_, _ = fmt.Fprintf(out, "Secret: %s\n", color.New(color.Bold).Sprint(invite.Secret))
			_, _ = fmt.Fprintln(out, "The secret is shown once. Pass it to the agent when it starts.")

			if showQR {
				printQRCode(out, invite.Secret)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showQR, "qr", false, "Also print the secret as a QR code")

	return cmd
}

// printQRCode prints data as a terminal QR code
func printQRCode(out io.Writer, data string) {
	qr, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		_, _ = fmt.Fprintf(out, "Warning: failed to generate QR code: %v\n", err)
		return
	}
	_, _ = fmt.Fprintln(out, qr.ToSmallString(false))
}

func renderAgents(out io.Writer, agents []api.Agent) {
	if len(agents) == 0 {
		_, _ = fmt.Fprintln(out, "No agents found")
		return
	}

	_, _ = fmt.Fprintln(out, "Agents")
	_, _ = fmt.Fprintln(out, "======")
	_, _ = fmt.Fprintln(out)

	for _, agent := range agents {
		_, _ = fmt.Fprintf(out, "%s #%d (%s)\n", agent.Name, agent.ID, agentStatus(agent.Status))
		if agent.IP != nil {
			_, _ = fmt.Fprintf(out, "  IP:        %s\n", *agent.IP)
		}
		if agent.LastSeenAt != nil {
			_, _ = fmt.Fprintf(out, "  Last seen: %s\n", *agent.LastSeenAt)
		}

		if len(agent.ActiveAllocations) == 0 {
			_, _ = fmt.Fprintln(out, "  No allocations")
		}
		for _, alloc := range agent.ActiveAllocations {
			_, _ = fmt.Fprintf(out, "  - %s\n", allocationLine(alloc))
		}

		_, _ = fmt.Fprintln(out)
	}
}

func allocationLine(alloc api.Allocation) string {
	line := fmt.Sprintf("#%d %s port %d (%s)", alloc.ID, alloc.Service, alloc.RemotePort, allocationStatus(alloc.Status))
	if alloc.AccessURL != nil {
		line += " " + *alloc.AccessURL
	}
	return line
}

func agentStatus(status api.AgentStatus) string {
	switch status {
	case api.AgentOnline:
		return color.GreenString(string(status))
	case api.AgentOffline:
		return color.RedString(string(status))
	}
	return string(status)
}

func allocationStatus(status api.AllocationStatus) string {
	switch status {
	case api.AllocationActive:
		return color.GreenString(string(status))
	case api.AllocationRequested, api.AllocationStarting, api.AllocationReleasing:
		return color.YellowString(string(status))
	case api.AllocationFailed, api.AllocationReleased:
		return color.RedString(string(status))
	}
	return string(status)
}
