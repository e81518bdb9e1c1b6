package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busdriver/internal/models"
	"busdriver/internal/repository"
)

func login(t *testing.T, f *fixture) {
	t.Helper()
	_, err := f.auth.LoginOffline(context.Background(), "driver-001")
	require.NoError(t, err)
}

func TestStartTrip_RequiresLogin(t *testing.T) {
	f := newFixture(t)

	_, err := f.tripSvc.StartTrip(context.Background(), "route-101", 1000)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestStartTrip_UnknownRoute(t *testing.T) {
	f := newFixture(t)
	login(t, f)

	_, err := f.tripSvc.StartTrip(context.Background(), "route-999", 1000)
	assert.ErrorIs(t, err, ErrRouteNotFound)
}

func TestStartTrip_SecondStartRejected(t *testing.T) {
	f := newFixture(t)
	login(t, f)
	ctx := context.Background()

	trip, err := f.tripSvc.StartTrip(ctx, "route-101", 1000)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusActive, trip.Status)
	assert.Equal(t, "driver-001", trip.DriverID)
	assert.Equal(t, int64(1000), trip.CreatedAt)

	_, err = f.tripSvc.StartTrip(ctx, "route-102", 2000)
	assert.ErrorIs(t, err, repository.ErrActiveTripExists)

	active, err := f.tripSvc.ActiveTrip(ctx)
	require.NoError(t, err)
	assert.Equal(t, trip.ID, active.ID)
}

func TestEndTrip_CompletesAndEnqueuesSync(t *testing.T) {
	f := newFixture(t)
	login(t, f)
	ctx := context.Background()

	trip, err := f.tripSvc.StartTrip(ctx, "route-101", 1000)
	require.NoError(t, err)
	require.NoError(t, f.trips.AddLocations(ctx, trip.ID, []models.TripLocation{
		{Timestamp: 1100, Lat: 1, Lng: 1},
		{Timestamp: 1900, Lat: 2, Lng: 2},
	}))

	ended, err := f.tripSvc.EndTrip(ctx, trip.ID, 2000)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusCompleted, ended.Status)
	assert.Equal(t, 2, ended.LocationCount)
	assert.Equal(t, int32(1), f.sync.n.Load())

	// Ending twice is rejected and schedules nothing
	_, err = f.tripSvc.EndTrip(ctx, trip.ID, 3000)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
	assert.Equal(t, int32(1), f.sync.n.Load())
}

func TestTripDetails_FallsBackToSnapshot(t *testing.T) {
	f := newFixture(t)
	login(t, f)
	ctx := context.Background()

	trip, err := f.tripSvc.StartTrip(ctx, "route-101", 1000)
	require.NoError(t, err)
	require.NoError(t, f.trips.AddLocations(ctx, trip.ID, []models.TripLocation{
		{Timestamp: 1100, Lat: 1, Lng: 1},
		{Timestamp: 1500, Lat: 2, Lng: 2},
	}))

	live, err := f.tripSvc.TripDetails(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, live.LocationCount)
	assert.Equal(t, int64(1500), *live.LastPointAt)

	_, err = f.tripSvc.EndTrip(ctx, trip.ID, 2000)
	require.NoError(t, err)
	require.NoError(t, f.trips.MarkSynced(ctx, trip.ID))

	synced, err := f.tripSvc.TripDetails(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusSynced, synced.Trip.Status)
	assert.Equal(t, 2, synced.LocationCount)
	assert.Equal(t, int64(1100), *synced.FirstPointAt)
	assert.Equal(t, int64(1500), *synced.LastPointAt)

	_, err = f.tripSvc.TripDetails(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrTripNotFound)
}

func TestRecentTrips_DefaultLimit(t *testing.T) {
	f := newFixture(t)
	login(t, f)
	ctx := context.Background()

	for i := 0; i < DefaultRecentTrips+3; i++ {
		ts := int64(1000 * (i + 1))
		trip, err := f.tripSvc.StartTrip(ctx, "route-101", ts)
		require.NoError(t, err)
		_, err = f.tripSvc.EndTrip(ctx, trip.ID, ts+500)
		require.NoError(t, err)
	}

	trips, err := f.tripSvc.RecentTrips(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, trips, DefaultRecentTrips)
	assert.Greater(t, trips[0].CreatedAt, trips[1].CreatedAt)
}

func TestEndTrip_ClockSteppedBackStillUploadable(t *testing.T) {
	f := newFixture(t)
	login(t, f)
	ctx := context.Background()

	trip, err := f.tripSvc.StartTrip(ctx, "route-101", 10000)
	require.NoError(t, err)

	ended, err := f.tripSvc.EndTrip(ctx, trip.ID, 9000)
	require.NoError(t, err)
	require.NotNil(t, ended.EndTime)
	assert.Equal(t, ended.StartTime, *ended.EndTime)

	up := models.NewTripUpload(*ended, nil, 20000)
	assert.GreaterOrEqual(t, up.EndTime, up.StartTime)
}

func TestTripsByStatus(t *testing.T) {
	f := newFixture(t)
	login(t, f)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ts := int64(1000 * (i + 1))
		trip, err := f.tripSvc.StartTrip(ctx, "route-101", ts)
		require.NoError(t, err)
		_, err = f.tripSvc.EndTrip(ctx, trip.ID, ts+500)
		require.NoError(t, err)
	}
	active, err := f.tripSvc.StartTrip(ctx, "route-102", 9000)
	require.NoError(t, err)

	completed, err := f.tripSvc.TripsByStatus(ctx, "completed", 2)
	require.NoError(t, err)
	require.Len(t, completed, 2)
	assert.Equal(t, int64(3000), completed[0].StartTime)
	assert.Equal(t, int64(2000), completed[1].StartTime)

	onlyActive, err := f.tripSvc.TripsByStatus(ctx, " Active ", 0)
	require.NoError(t, err)
	require.Len(t, onlyActive, 1)
	assert.Equal(t, active.ID, onlyActive[0].ID)

	_, err = f.tripSvc.TripsByStatus(ctx, "paused", 0)
	assert.ErrorIs(t, err, ErrUnknownStatus)
}
