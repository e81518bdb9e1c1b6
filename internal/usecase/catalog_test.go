package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busdriver/internal/logging"
	"busdriver/internal/models"
	"busdriver/internal/remote"
)

type failingCatalog struct{ err error }

func (c failingCatalog) FetchDriver(context.Context, string) (models.DriverProfile, error) {
	return models.DriverProfile{}, c.err
}

func (c failingCatalog) FetchRoutes(context.Context) ([]models.RouteDTO, error) {
	return nil, c.err
}

type otherDriverCatalog struct{ *remote.FakeCatalog }

func (c otherDriverCatalog) FetchDriver(context.Context, string) (models.DriverProfile, error) {
	return models.DriverProfile{ID: "driver-777", Name: "Someone Else"}, nil
}

func TestCatalogRefresh_IgnoresProfileOfAnotherDriver(t *testing.T) {
	f := newFixture(t)
	login(t, f)
	ctx := context.Background()

	fake := remote.NewFakeCatalog()
	fake.DriverDelay, fake.RoutesDelay = 0, 0
	svc := NewCatalogService(otherDriverCatalog{fake}, f.drivers, f.routes, f.sm, logging.Nop())

	ok, err := svc.Refresh(ctx)
	require.NoError(t, err, "routes still refreshed")
	assert.True(t, ok)

	d, err := f.drivers.GetCurrent(ctx)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "driver-001", d.ID)
	assert.Equal(t, "driver-001", f.sm.Current().ID)

	restored, err := f.auth.RestoreSession(ctx)
	require.NoError(t, err)
	assert.True(t, restored)
}

func TestCatalogRefresh_UpdatesDriverAndRoutes(t *testing.T) {
	f := newFixture(t)
	login(t, f)
	ctx := context.Background()

	fake := remote.NewFakeCatalog()
	fake.DriverDelay, fake.RoutesDelay = 0, 0
	fake.Now = func() int64 { return 777 }

	svc := NewCatalogService(fake, f.drivers, f.routes, f.sm, logging.Nop())
	svc.now = func() int64 { return 888 }

	ok, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	d, err := f.drivers.GetCurrent(ctx)
	require.NoError(t, err)
	require.NotNil(t, d.LastSyncedAt)
	assert.Equal(t, int64(888), *d.LastSyncedAt)
	assert.Equal(t, int64(888), *f.sm.Current().LastSyncedAt)

	routes, err := svc.Routes(ctx)
	require.NoError(t, err)
	require.Len(t, routes, 3)
	assert.Equal(t, int64(777), *routes[0].LastUpdatedAt)
}

func TestCatalogRefresh_BothFail(t *testing.T) {
	f := newFixture(t)
	login(t, f)
	boom := errors.New("offline")

	svc := NewCatalogService(failingCatalog{err: boom}, f.drivers, f.routes, f.sm, logging.Nop())
	ok, err := svc.Refresh(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)

	// Seeded routes survive a failed refresh
	routes, err := svc.Routes(context.Background())
	require.NoError(t, err)
	assert.Len(t, routes, 3)
}
