package localdb

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"busdriver/internal/models"
)

// DefaultDriverID is the driver profile seeded on first launch
const DefaultDriverID = "driver-001"

// DefaultDriverName is the display name of the seeded driver
const DefaultDriverName = "Alex Driver"

// DriverStore is the part of the driver repository the seeder needs
type DriverStore interface {
	GetCurrent(ctx context.Context) (*models.Driver, error)
	Upsert(ctx context.Context, d models.Driver) error
}

// RouteStore is the part of the route repository the seeder needs
type RouteStore interface {
	ReplaceAll(ctx context.Context, routes []models.Route) error
}

// Seeder inserts the default driver and route set the first time the agent runs
type Seeder struct {
	drivers DriverStore
	routes  RouteStore
	log     *zap.SugaredLogger
	seeded  atomic.Bool
}

// NewSeeder creates a seeder over the given stores
func NewSeeder(drivers DriverStore, routes RouteStore, log *zap.SugaredLogger) *Seeder {
	return &Seeder{drivers: drivers, routes: routes, log: log}
}

// SeedIfNeeded seeds once per Seeder and only when no driver row exists.
// Later calls return immediately.
func (s *Seeder) SeedIfNeeded(ctx context.Context) error {
	if !s.seeded.CompareAndSwap(false, true) {
		return nil
	}

	existing, err := s.drivers.GetCurrent(ctx)
	if err != nil {
		s.log.Errorf("❌ Seeding failed: %v", err)
		return fmt.Errorf("seed: %w", err)
	}
	if existing != nil {
		s.log.Infof("✓ Seed skipped: driver %s exists", existing.ID)
		return nil
	}

	now := models.NowMillis()
	if err := s.drivers.Upsert(ctx, models.Driver{ID: DefaultDriverID, Name: DefaultDriverName}); err != nil {
		s.log.Errorf("❌ Seeding failed: %v", err)
		return fmt.Errorf("seed driver: %w", err)
	}
	if err := s.routes.ReplaceAll(ctx, models.DefaultRoutes(now)); err != nil {
		s.log.Errorf("❌ Seeding failed: %v", err)
		return fmt.Errorf("seed routes: %w", err)
	}

	s.log.Infof("🌱 Seeded driver %s and %d routes", DefaultDriverID, len(models.DefaultRoutes(now)))
	return nil
}
