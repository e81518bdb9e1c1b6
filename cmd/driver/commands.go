package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"busdriver/internal/models"
	"busdriver/internal/repository"
	"busdriver/internal/usecase"

	"github.com/spf13/cobra"
)

// How long one-shot commands wait for queued background work before exiting
const (
	catalogWait = 10 * time.Second
	uploadWait  = 15 * time.Second
)

var loginCmd = &cobra.Command{
	Use:   "login <driver-id>",
	Short: "Log in offline with the cached driver id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			driver, err := a.auth.LoginOffline(ctx, args[0])
			if errors.Is(err, usecase.ErrInvalidCredentials) {
				return fmt.Errorf("unknown driver %q", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Logged in as %s (%s)", driver.Name, driver.ID)))

			a.queue.FireCatalogOnce()
			waitCtx, cancel := context.WithTimeout(ctx, catalogWait)
			defer cancel()
			if !a.scheduler.WaitOneTime(waitCtx) {
				fmt.Fprintln(cmd.OutOrStdout(), "Catalog refresh still pending; cached routes will be used.")
			}
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the persisted login",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.auth.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in driver",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			out := cmd.OutOrStdout()
			if !a.restore(ctx) {
				fmt.Fprintln(out, "Not logged in.")
				return nil
			}
			d := a.auth.CurrentDriver()
			printField(out, "Driver", d.ID)
			printField(out, "Name", d.Name)
			printField(out, "Last synced", formatMillis(d.LastSyncedAt))

			active, err := a.tripsSvc.ActiveTrip(ctx)
			if err != nil {
				return err
			}
			if active != nil {
				printField(out, "Active trip", fmt.Sprintf("%s on %s", active.ID, active.RouteID))
			}
			return nil
		})
	},
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List cached routes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			routes, err := a.catalog.Routes(ctx)
			if err != nil {
				return err
			}
			printRoutes(cmd.OutOrStdout(), routes)
			return nil
		})
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the driver profile and routes from the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			a.restore(ctx)
			if _, err := a.catalog.Refresh(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Catalog refreshed."))
			return nil
		})
	},
}

var startCmd = &cobra.Command{
	Use:   "start <route-id>",
	Short: "Start a trip on a route",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, a *app) error {
			trip, err := a.tripsSvc.StartTrip(ctx, args[0], models.NowMillis())
			switch {
			case errors.Is(err, repository.ErrActiveTripExists):
				return errors.New("a trip is already active, end it first with `busdriver end`")
			case errors.Is(err, usecase.ErrRouteNotFound):
				return fmt.Errorf("route %q is not in the catalog, see `busdriver routes`", args[0])
			case err != nil:
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Started trip "+trip.ID))
			fmt.Fprintln(cmd.OutOrStdout(), "Record locations with `busdriver track` or `busdriver run`.")
			return nil
		})
	},
}

var endCmd = &cobra.Command{
	Use:   "end [trip-id]",
	Short: "End a trip (defaults to the active one) and upload it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, a *app) error {
			tripID, err := tripArg(ctx, a, args)
			if err != nil {
				return err
			}

			trip, err := a.tripsSvc.EndTrip(ctx, tripID, models.NowMillis())
			switch {
			case errors.Is(err, repository.ErrTripNotFound):
				return fmt.Errorf("trip %q not found", tripID)
			case errors.Is(err, repository.ErrInvalidTransition), errors.Is(err, repository.ErrTripNotActive):
				return fmt.Errorf("trip %q is not active", tripID)
			case err != nil:
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("Ended trip %s after %s with %d points", trip.ID, formatDuration(trip.Duration()), trip.LocationCount)))

			waitCtx, cancel := context.WithTimeout(ctx, uploadWait)
			defer cancel()
			a.scheduler.WaitOneTime(waitCtx)

			synced, err := a.trips.GetTripByID(ctx, trip.ID)
			if err != nil {
				return err
			}
			if synced.Status == models.TripStatusSynced {
				fmt.Fprintln(out, "Uploaded.")
			} else {
				fmt.Fprintln(out, "Upload pending; it will be retried by `busdriver sync` or `busdriver run`.")
			}
			return nil
		})
	},
}

// tripArg returns args[0], or the active trip's id when no argument was given
func tripArg(ctx context.Context, a *app, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	active, err := a.tripsSvc.ActiveTrip(ctx)
	if err != nil {
		return "", err
	}
	if active == nil {
		return "", usecase.ErrNoActiveTrip
	}
	return active.ID, nil
}

var (
	tripsLimit  int
	tripsStatus string
)

var tripsCmd = &cobra.Command{
	Use:   "trips",
	Short: "List recent trips",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			var (
				trips []models.Trip
				err   error
			)
			if tripsStatus != "" {
				trips, err = a.tripsSvc.TripsByStatus(ctx, tripsStatus, tripsLimit)
			} else {
				trips, err = a.tripsSvc.RecentTrips(ctx, tripsLimit)
			}
			if err != nil {
				return err
			}
			printTrips(cmd.OutOrStdout(), trips)
			return nil
		})
	},
}

var tripCmd = &cobra.Command{
	Use:   "trip <trip-id>",
	Short: "Show a trip with its sample statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			details, err := a.tripsSvc.TripDetails(ctx, args[0])
			if errors.Is(err, repository.ErrTripNotFound) {
				return fmt.Errorf("trip %q not found", args[0])
			}
			if err != nil {
				return err
			}
			printTripDetails(cmd.OutOrStdout(), details)
			return nil
		})
	},
}

var syncTimeout time.Duration

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload completed trips now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			a.restore(ctx)
			a.queue.FireOnce()

			waitCtx, cancel := context.WithTimeout(ctx, syncTimeout)
			defer cancel()
			a.scheduler.WaitOneTime(waitCtx)

			pending, err := a.trips.GetTripsByStatus(ctx, models.TripStatusCompleted)
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("All trips synced."))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d trip(s) still waiting for upload.\n", len(pending))
			return nil
		})
	},
}

func init() {
	tripsCmd.Flags().IntVarP(&tripsLimit, "limit", "n", usecase.DefaultRecentTrips, "number of trips to show")
	tripsCmd.Flags().StringVar(&tripsStatus, "status", "", "only trips in this status (active, completed, synced)")
	syncCmd.Flags().DurationVar(&syncTimeout, "timeout", 30*time.Second, "how long to wait for the upload")
}
