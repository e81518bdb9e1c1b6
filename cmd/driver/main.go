// Command busdriver is the offline-first driver agent: it records trips on
// a route into a local store and uploads them to the sync backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"busdriver/internal/config"
	"busdriver/internal/logging"

	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("not logged in, run `busdriver login <driver-id>` first")

var rootCmd = &cobra.Command{
	Use:   "busdriver",
	Short: "Record bus trips offline and sync them to the backend",
	Long: `busdriver records trips on a route into a local SQLite store and
uploads completed trips to the sync backend when the network allows.

Configuration comes from the environment (or a .env file):
  DRIVER_DB_PATH, REMOTE_MODE (fake|http), BACKEND_URL, DRIVER_PIN,
  SIMULATE_FAILURES, SYNC_PERIOD, LOG_LEVEL, LOG_FORMAT`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(
		loginCmd,
		logoutCmd,
		whoamiCmd,
		routesCmd,
		refreshCmd,
		startCmd,
		trackCmd,
		endCmd,
		tripsCmd,
		tripCmd,
		syncCmd,
		runCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

// withApp wires the agent, runs fn and tears everything down
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg := config.LoadAgent()

	log, err := logging.New("driver", cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

// withSession is withApp for commands that need a logged in driver
func withSession(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if !a.restore(ctx) {
			return errNotLoggedIn
		}
		return fn(ctx, a)
	})
}
