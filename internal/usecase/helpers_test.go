package usecase

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"busdriver/internal/localdb"
	"busdriver/internal/logging"
	"busdriver/internal/repository"
	"busdriver/internal/session"
)

type countingEnqueuer struct{ n atomic.Int32 }

func (c *countingEnqueuer) FireOnce() { c.n.Add(1) }

type fixture struct {
	drivers  *repository.DriverRepository
	routes   *repository.RouteRepository
	trips    *repository.TripRepository
	sessions *repository.SessionStore
	sm       *session.Manager
	sync     *countingEnqueuer
	auth     *AuthService
	tripSvc  *TripService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := localdb.Open(":memory:", logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		drivers:  repository.NewDriverRepository(db),
		routes:   repository.NewRouteRepository(db),
		trips:    repository.NewTripRepository(db),
		sessions: repository.NewSessionStore(db),
		sm:       session.NewManager(),
		sync:     &countingEnqueuer{},
	}
	require.NoError(t, localdb.NewSeeder(f.drivers, f.routes, logging.Nop()).SeedIfNeeded(context.Background()))

	f.auth = NewAuthService(f.drivers, f.sessions, f.sm, logging.Nop())
	f.tripSvc = NewTripService(f.trips, f.routes, f.sm, f.sync, logging.Nop())
	return f
}
