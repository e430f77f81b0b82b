package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thatjpcsguy/fleetctl/internal/poller"
)

// NewWatchCmd creates the watch command
func NewWatchCmd() *cobra.Command {
	var (
		interval   time.Duration
		iterations int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh the agent listing on an interval",
		Long: `Prints the agent listing immediately and then every interval until
interrupted. A failed refresh keeps showing the last good listing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireAuth(); err != nil {
				return err
			}

			if interval <= 0 {
				interval = a.cfg.PollInterval()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := &watcher{app: a, cmd: cmd, stop: stop, remaining: iterations}
			if err := poller.Run(ctx, func() { w.tick(ctx) }, interval); err != nil {
				return err
			}
			return w.err()
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Refresh interval (defaults to POLL_INTERVAL_SECONDS)")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "Stop after this many refreshes (0 runs until interrupted)")

	return cmd
}

// watcher is the poll callback state. Ticks run on the poller's goroutine.
type watcher struct {
	app  *app
	cmd  *cobra.Command
	stop context.CancelFunc

	mu        sync.Mutex
	remaining int
	lastErr   error
}

func (w *watcher) tick(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := w.cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "--- %s ---\n", time.Now().Format("15:04:05"))

	if !w.app.fleet.Refresh(ctx) {
		if ctx.Err() != nil {
			return
		}
		w.app.session.Sync()
		if !w.app.session.IsAuthenticated() {
			w.lastErr = ErrNotLoggedIn
			w.stop()
			return
		}
		_, _ = fmt.Fprintln(out, color.YellowString("refresh failed, showing the last listing"))
	}

	renderAgents(out, w.app.fleet.Agents())

	if w.remaining > 0 {
		w.remaining--
		if w.remaining == 0 {
			w.stop()
		}
	}
}

func (w *watcher) err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}
