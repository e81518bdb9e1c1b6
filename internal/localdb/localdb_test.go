package localdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busdriver/internal/logging"
	"busdriver/internal/models"
	"busdriver/internal/repository"
)

func TestMigrate_CreatesSchema(t *testing.T) {
	db, err := Open(":memory:", logging.Nop())
	require.NoError(t, err)
	defer db.Close()

	var names []string
	require.NoError(t, db.Select(&names, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`))
	assert.Equal(t, []string{"drivers", "routes", "session", "trip_locations", "trips"}, names)

	var version int
	require.NoError(t, db.Get(&version, "PRAGMA user_version"))
	assert.Equal(t, SchemaVersion, version)

	// Running again is harmless
	require.NoError(t, Migrate(db, logging.Nop()))
}

func TestMigrate_RecreatesOnVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.db")

	db, err := Open(path, logging.Nop())
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO drivers (id, name) VALUES ('driver-001', 'Alex')`)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path, logging.Nop())
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM drivers`))
	assert.Zero(t, count)
}

func TestSeedIfNeeded_Idempotent(t *testing.T) {
	ctx := context.Background()
	db, err := Open(":memory:", logging.Nop())
	require.NoError(t, err)
	defer db.Close()

	drivers := repository.NewDriverRepository(db)
	routes := repository.NewRouteRepository(db)

	require.NoError(t, NewSeeder(drivers, routes, logging.Nop()).SeedIfNeeded(ctx))
	// A fresh seeder on a seeded database must not duplicate anything
	require.NoError(t, NewSeeder(drivers, routes, logging.Nop()).SeedIfNeeded(ctx))

	var driverCount, routeCount int
	require.NoError(t, db.Get(&driverCount, `SELECT COUNT(*) FROM drivers`))
	require.NoError(t, db.Get(&routeCount, `SELECT COUNT(*) FROM routes`))
	assert.Equal(t, 1, driverCount)
	assert.Equal(t, 3, routeCount)

	d, err := drivers.GetCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultDriverID, d.ID)
	assert.Equal(t, DefaultDriverName, d.Name)
}

func TestSeedIfNeeded_KeepsExistingDriver(t *testing.T) {
	ctx := context.Background()
	db, err := Open(":memory:", logging.Nop())
	require.NoError(t, err)
	defer db.Close()

	drivers := repository.NewDriverRepository(db)
	routes := repository.NewRouteRepository(db)
	require.NoError(t, drivers.Upsert(ctx, models.Driver{ID: "driver-777", Name: "Kim"}))

	require.NoError(t, NewSeeder(drivers, routes, logging.Nop()).SeedIfNeeded(ctx))

	all, err := routes.GetRoutes(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
