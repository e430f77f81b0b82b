package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thatjpcsguy/fleetctl/internal/api"
	"github.com/thatjpcsguy/fleetctl/internal/config"
	"github.com/thatjpcsguy/fleetctl/internal/credstore"
	"github.com/thatjpcsguy/fleetctl/internal/fleet"
	"github.com/thatjpcsguy/fleetctl/internal/logging"
	"github.com/thatjpcsguy/fleetctl/internal/session"
)

// ErrNotLoggedIn is returned when a command needs a session and there is
// none. The login hint has already been printed when it is returned.
var ErrNotLoggedIn = errors.New("not logged in")

// app holds the components one command invocation works with
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   credstore.Store
	client  *api.Client
	nav     *navigator
	session *session.Controller
	fleet   *fleet.Coordinator
	mutator *fleet.Mutator
}

// newApp loads the configuration and wires the components together.
// loginSurface is true for commands that are themselves the login flow.
func newApp(cmd *cobra.Command, loginSurface bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	store, err := credstore.Open(cfg.TokenStore, cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}

	nav := &navigator{out: cmd.ErrOrStderr(), loginSurface: loginSurface}

	client, err := api.New(api.Options{
		BaseURL:   cfg.BaseURL(),
		Timeout:   cfg.Timeout(),
		Tokens:    store,
		Navigator: nav,
		Logger:    logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	coordinator := fleet.NewCoordinator(client, logger)

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		client: client,
		nav:    nav,
		session: session.New(session.Options{
			Backend:   client,
			Tokens:    store,
			Navigator: nav,
			OnLogout:  coordinator.Reset,
			Logger:    logger,
		}),
		fleet:   coordinator,
		mutator: fleet.NewMutator(client, coordinator, logger),
	}, nil
}

// Close releases the token store and flushes the logger
func (a *app) Close() {
	_ = a.logger.Sync()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close token store", zap.Error(err))
	}
}

// requireAuth gates commands that need a session
func (a *app) requireAuth() error {
	if a.session.IsAuthenticated() {
		return nil
	}
	a.nav.RedirectToLogin()
	return ErrNotLoggedIn
}

// failed turns a false result from the fleet components into an error.
// A 401 along the way has already purged the store, which Sync picks up.
func (a *app) failed(action string) error {
	a.session.Sync()
	if !a.session.IsAuthenticated() {
		return ErrNotLoggedIn
	}
	return fmt.Errorf("failed to %s", action)
}

// apiError classifies an error returned by a direct client call
func (a *app) apiError(action string, err error) error {
	if api.IsAuthError(err) {
		a.session.Sync()
		return ErrNotLoggedIn
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// navigator prints the login hint instead of switching screens
type navigator struct {
	out          io.Writer
	loginSurface bool

	mu         sync.Mutex
	redirected bool
}

func (n *navigator) OnLoginSurface() bool {
	return n.loginSurface
}

// RedirectToLogin prints the hint once per invocation
func (n *navigator) RedirectToLogin() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.redirected {
		return
	}
	n.redirected = true

	yellow := color.New(color.FgYellow).SprintFunc()
	_, _ = fmt.Fprintln(n.out, yellow("Not logged in. Run `fleetctl login` to sign in."))
}

// Redirected reports whether the hint was printed
func (n *navigator) Redirected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.redirected
}

func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %s", kind, arg)
	}
	return id, nil
}
