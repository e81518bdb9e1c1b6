package main

import (
	"context"
	"fmt"

	"busdriver/internal/config"
	"busdriver/internal/jobs"
	"busdriver/internal/localdb"
	"busdriver/internal/remote"
	"busdriver/internal/repository"
	"busdriver/internal/session"
	"busdriver/internal/tracking"
	"busdriver/internal/usecase"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// app holds the agent's wired components for the lifetime of one command
type app struct {
	cfg *config.AgentConfig
	log *zap.SugaredLogger
	db  *sqlx.DB

	trips     *repository.TripRepository
	session   *session.Manager
	scheduler *jobs.Scheduler
	queue     *jobs.SyncQueue

	auth     *usecase.AuthService
	catalog  *usecase.CatalogService
	tripsSvc *usecase.TripService
	tracker  *tracking.Tracker
}

func newApp(ctx context.Context, cfg *config.AgentConfig, log *zap.SugaredLogger) (*app, error) {
	db, err := localdb.Open(cfg.DBPath, log)
	if err != nil {
		return nil, err
	}

	drivers := repository.NewDriverRepository(db)
	routes := repository.NewRouteRepository(db)
	sessions := repository.NewSessionStore(db)
	trips := repository.NewTripRepository(db)

	// A failed seed leaves the store empty; login reports it
	if err := localdb.NewSeeder(drivers, routes, log).SeedIfNeeded(ctx); err != nil {
		log.Errorf("❌ Seeding failed: %v", err)
	}

	sm := session.NewManager()

	catalogRemote, tripsRemote, connectivity, err := newRemotes(cfg, sm, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	scheduler := jobs.NewScheduler(jobs.Options{
		BackoffInitial: cfg.SyncBackoffInitial,
		BackoffMax:     cfg.SyncBackoffMax,
		Connectivity:   connectivity,
	}, log)

	catalog := usecase.NewCatalogService(catalogRemote, drivers, routes, sm, log)
	queue := jobs.NewSyncQueue(
		scheduler,
		jobs.NewTripSyncWorker(trips, tripsRemote, log),
		jobs.NewCatalogSyncWorker(catalog, log),
		cfg.SyncPeriod,
	)

	return &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		trips:     trips,
		session:   sm,
		scheduler: scheduler,
		queue:     queue,
		auth:      usecase.NewAuthService(drivers, sessions, sm, log),
		catalog:   catalog,
		tripsSvc:  usecase.NewTripService(trips, routes, sm, queue, log),
		tracker: tracking.NewTracker(trips, tracking.Config{
			MinDelta: cfg.TrackMinDelta,
		}, log),
	}, nil
}

func newRemotes(cfg *config.AgentConfig, sm *session.Manager, log *zap.SugaredLogger) (remote.CatalogRemote, remote.TripsRemote, remote.ConnectivityChecker, error) {
	switch cfg.RemoteMode {
	case config.RemoteFake:
		log.Debugf("Using in-process remotes (simulate failures: %t)", cfg.SimulateFailures)
		return remote.NewFakeCatalog(), remote.NewFakeTrips(cfg.SimulateFailures), remote.AlwaysOnline{}, nil

	case config.RemoteHTTP:
		driverID := func() string {
			if d := sm.Current(); d != nil {
				return d.ID
			}
			return ""
		}
		client := remote.NewHTTPClient(cfg.BackendURL, driverID, cfg.DriverPIN, log)
		log.Debugf("Using backend at %s", cfg.BackendURL)
		return client, client, client, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown REMOTE_MODE %q (want %q or %q)", cfg.RemoteMode, config.RemoteFake, config.RemoteHTTP)
}

// restore reloads the persisted login into the session
func (a *app) restore(ctx context.Context) bool {
	ok, err := a.auth.RestoreSession(ctx)
	if err != nil {
		a.log.Warnf("⚠️  Could not restore session: %v", err)
		return false
	}
	return ok
}

// Close stops background work and closes the database
func (a *app) Close() {
	a.scheduler.Stop()
	if err := a.db.Close(); err != nil {
		a.log.Warnf("⚠️  Closing database: %v", err)
	}
}
