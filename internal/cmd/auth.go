package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/thatjpcsguy/fleetctl/internal/api"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the fleet backend",
		Long: `Exchanges a username and password for an access token and stores it
in the configured token store. Prompts for anything not given as a flag.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			creds, err := readCredentials(cmd, username, password)
			if err != nil {
				return err
			}

			if !a.session.Login(cmd.Context(), creds) {
				return fmt.Errorf("login failed for %s", creds.Username)
			}

			green := color.New(color.FgGreen).SprintFunc()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Logged in as %s\n", green("✅"), creds.Username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")

	return cmd
}

// NewRegisterCmd creates the register command
func NewRegisterCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the fleet backend",
		Long:  `Creates an account. Registration does not sign you in; run fleetctl login afterwards.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			creds, err := readCredentials(cmd, username, password)
			if err != nil {
				return err
			}

			if !a.session.Register(cmd.Context(), creds) {
				return fmt.Errorf("registration failed for %s", creds.Username)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✅ Registered %s. Run `fleetctl login` to sign in.\n", creds.Username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")

	return cmd
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			a.session.Logout()
			return nil
		},
	}
}

// readCredentials fills in whatever the flags left empty from stdin. The
// password is read without echo when stdin is a terminal.
func readCredentials(cmd *cobra.Command, username, password string) (api.Credentials, error) {
	in := cmd.InOrStdin()
	reader := bufio.NewReader(in)
	out := cmd.ErrOrStderr()

	if username == "" {
		_, _ = fmt.Fprint(out, "Username: ")
		line, err := readLine(reader)
		if err != nil {
			return api.Credentials{}, fmt.Errorf("failed to read username: %w", err)
		}
		username = line
	}
	if username == "" {
		return api.Credentials{}, fmt.Errorf("username is required")
	}

	if password == "" {
		_, _ = fmt.Fprint(out, "Password: ")
		if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			secret, err := term.ReadPassword(int(f.Fd()))
			_, _ = fmt.Fprintln(out)
			if err != nil {
				return api.Credentials{}, fmt.Errorf("failed to read password: %w", err)
			}
			password = string(secret)
		} else {
			line, err := readLine(reader)
			if err != nil {
				return api.Credentials{}, fmt.Errorf("failed to read password: %w", err)
			}
			password = line
		}
	}
	if password == "" {
		return api.Credentials{}, fmt.Errorf("password is required")
	}

	return api.Credentials{Username: username, Password: password}, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
