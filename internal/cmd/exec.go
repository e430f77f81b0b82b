package cmd

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thatjpcsguy/fleetctl/internal/api"
	"github.com/thatjpcsguy/fleetctl/internal/ssh"
)

// NewExecCmd creates the exec command
func NewExecCmd() *cobra.Command {
	var (
		user     string
		port     int
		keyPath  string
		insecure bool
	)

	cmd := &cobra.Command{
		Use:   "exec <agent-id> -- <command>...",
		Short: "Run a command on an agent over SSH",
		Long: `Connects to the IP the agent last reported and runs a command there,
streaming its output. Host keys are checked against ~/.ssh/known_hosts
unless --insecure is given.

A single command argument is passed to the remote shell as written, so
pipes and redirects work. Several arguments are quoted one by one and
run as a plain argument list:

  fleetctl exec 3 -- 'df -h | tail -n 1'
  fleetctl exec 3 -- echo "a  b"`,
		Args: cobra.MinimumNArgs(2),
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
			if !a.fleet.Refresh(cmd.Context()) {
				return a.failed("load agents")
			}

			agent, ok := a.fleet.Agent(agentID)
			if !ok {
				return fmt.Errorf("agent %d not found", agentID)
			}
			if agent.Status != api.AgentOnline {
				return fmt.Errorf("agent %d (%s) is %s", agent.ID, agent.Name, agent.Status)
			}
			if agent.IP == nil || *agent.IP == "" {
				return fmt.Errorf("agent %d (%s) has not reported an IP address", agent.ID, agent.Name)
			}

			if user == "" {
				user = a.cfg.SSHUser
			}
			if keyPath == "" {
				keyPath = a.cfg.SSHKeyPath
			}

			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Connecting to %s@%s...\n", user, *agent.IP)

			client, err := ssh.NewClient(ssh.Options{
				User:                  user,
				Host:                  *agent.IP,
				Port:                  port,
				KeyPath:               keyPath,
				InsecureIgnoreHostKey: insecure,
			})
			if err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer func() { _ = client.Close() }()

			return client.ExecuteInteractive(remoteCommand(args[1:]), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "SSH user (defaults to SSH_USER)")
	cmd.Flags().IntVar(&port, "port", 22, "SSH port")
	cmd.Flags().StringVar(&keyPath, "key", "", "Private key (defaults to SSH_KEY_PATH)")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "Skip host key verification")

	return cmd
}

// remoteCommand builds the shell line sent to the agent. One argument is a
// shell string; more than one are quoted so each arrives unchanged.
func remoteCommand(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

func shellQuote(arg string) string {
	if shellSafe.MatchString(arg) {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
}
