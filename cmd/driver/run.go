package main

import (
	"context"
	"errors"
	"time"

	"busdriver/internal/models"
	"busdriver/internal/tracking"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	activeTripPoll = 5 * time.Second
	statusEvery    = time.Minute
)

var errLoggedOut = errors.New("driver logged out")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent: sync in the background and track the active trip",
	Long: `Run the agent until SIGINT or SIGTERM.

The daemon restores the login, keeps the periodic trip upload scheduled,
refreshes the catalog once, uploads anything left over and records
simulated locations for whichever trip is active.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, a *app) error {
			driver := a.session.Current()
			a.log.Infof("🚀 Agent running for %s (%s)", driver.Name, driver.ID)

			a.queue.EnsurePeriodic()
			a.queue.FireCatalogOnce()
			a.queue.FireOnce()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return trackActiveTrips(ctx, a) })
			g.Go(func() error { return reportStatus(ctx, a) })
			g.Go(func() error { return watchSession(ctx, a) })

			err := g.Wait()
			a.log.Info("🛑 Agent stopped")
			if errors.Is(err, context.Canceled) || errors.Is(err, errLoggedOut) {
				return nil
			}
			return err
		})
	},
}

// trackActiveTrips records simulated fixes for whichever trip is ACTIVE.
// When the trip ends it waits for the next one.
func trackActiveTrips(ctx context.Context, a *app) error {
	for {
		active, err := a.tripsSvc.ActiveTrip(ctx)
		if err != nil && ctx.Err() == nil {
			a.log.Warnf("⚠️  Could not load active trip: %v", err)
		}

		if active != nil {
			a.log.Infof("📍 Tracking trip %s on %s", active.ID, active.RouteID)
			sum, err := a.tracker.Run(ctx, active.ID, tracking.NewSimulatedSource())
			a.log.Infow("📍 Tracking finished",
				"trip_id", active.ID,
				"received", sum.Received,
				"stored", sum.Stored,
				"dropped", sum.Dropped,
			)
			if err != nil && !errors.Is(err, tracking.ErrTrackingStopped) {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(activeTripPoll):
		}
	}
}

// reportStatus logs the upload backlog and the scheduled work once a minute
func reportStatus(ctx context.Context, a *app) error {
	ticker := time.NewTicker(statusEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		pending, err := a.trips.GetTripsByStatus(ctx, models.TripStatusCompleted)
		if err != nil {
			a.log.Warnf("⚠️  Status check failed: %v", err)
			continue
		}
		a.log.Infow("📊 Agent status", "pending_uploads", len(pending), "scheduled", a.scheduler.Scheduled())
	}
}

// watchSession stops the daemon when the driver logs out. Logout from
// another process is picked up by re-reading the persisted session.
func watchSession(ctx context.Context, a *app) error {
	updates, cancel := a.session.Subscribe()
	defer cancel()

	ticker := time.NewTicker(activeTripPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			ok, err := a.auth.RestoreSession(ctx)
			if err != nil {
				a.log.Warnf("⚠️  Could not re-read session: %v", err)
				continue
			}
			if !ok {
				a.session.Set(nil)
			}

		case d := <-updates:
			if d == nil {
				a.log.Info("👋 Session ended, cancelling sync work")
				a.queue.CancelAll()
				return errLoggedOut
			}
		}
	}
}
