package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session info",
		Long:  `Shows the backend fleetctl talks to and who is signed in. Makes no network calls.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			green := color.New(color.FgGreen).SprintFunc()
			red := color.New(color.FgRed).SprintFunc()

			_, _ = fmt.Fprintf(out, "API:      %s\n", a.cfg.BaseURL())
			_, _ = fmt.Fprintf(out, "Store:    %s (%s)\n", a.cfg.TokenStore, a.cfg.StateDir)

			if !a.session.IsAuthenticated() {
				_, _ = fmt.Fprintf(out, "Session:  %s\n", red("logged out"))
				return nil
			}

			claims, err := a.session.Claims()
			if err != nil {
				// opaque tokens are still valid bearer tokens
				_, _ = fmt.Fprintf(out, "Session:  %s\n", green("logged in"))
				return nil
			}

			_, _ = fmt.Fprintf(out, "Session:  %s as %s\n", green("logged in"), claims.Subject)
			switch {
			case claims.ExpiresAt.IsZero():
				_, _ = fmt.Fprintln(out, "Expires:  never")
			case claims.Expired(time.Now()):
				_, _ = fmt.Fprintf(out, "Expires:  %s\n", red(fmt.Sprintf("expired %s", claims.ExpiresAt.Format("2006-01-02 15:04:05"))))
			default:
				_, _ = fmt.Fprintf(out, "Expires:  %s\n", claims.ExpiresAt.Format("2006-01-02 15:04:05"))
			}

			return nil
		},
	}
}
