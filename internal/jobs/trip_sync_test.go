package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busdriver/internal/localdb"
	"busdriver/internal/logging"
	"busdriver/internal/models"
	"busdriver/internal/remote"
	"busdriver/internal/repository"
)

type scriptedTrips struct {
	fail     map[string]bool
	uploaded []string
}

func (s *scriptedTrips) UploadTrip(_ context.Context, up models.TripUpload) error {
	if s.fail[up.TripID] {
		return errors.New("server said no")
	}
	s.uploaded = append(s.uploaded, up.TripID)
	return nil
}

func newTripRepo(t *testing.T) *repository.TripRepository {
	t.Helper()
	db, err := localdb.Open(":memory:", logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewTripRepository(db)
}

func completedTrip(t *testing.T, repo *repository.TripRepository, id string, start int64, samples int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.CreateActiveTrip(ctx, models.Trip{
		ID: id, DriverID: "driver-001", RouteID: "route-101",
		StartTime: start, CreatedAt: start, UpdatedAt: start,
	}))
	locs := make([]models.TripLocation, samples)
	for i := range locs {
		locs[i] = models.TripLocation{Timestamp: start + int64(samples-i), Lat: 37, Lng: -122}
	}
	require.NoError(t, repo.AddLocations(ctx, id, locs))
	require.NoError(t, repo.CompleteTrip(ctx, id, start+1000))
}

func TestTripSyncWorker_UploadsAndMarksSynced(t *testing.T) {
	ctx := context.Background()
	repo := newTripRepo(t)
	completedTrip(t, repo, "t1", 1000, 3)
	completedTrip(t, repo, "t2", 5000, 2)

	fake := remote.NewFakeTrips(false)
	fake.Delay = 0
	w := NewTripSyncWorker(repo, fake, logging.Nop())

	assert.Equal(t, ResultSuccess, w.DoWork(ctx))

	uploads := fake.Uploaded()
	require.Len(t, uploads, 2)
	assert.Equal(t, "t1", uploads[0].TripID)
	assert.Equal(t, int64(2000), uploads[0].EndTime)
	require.Len(t, uploads[0].Points, 3)
	// Points go out in timestamp order
	assert.Less(t, uploads[0].Points[0].Timestamp, uploads[0].Points[2].Timestamp)

	for _, id := range []string{"t1", "t2"} {
		trip, err := repo.GetTripByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.TripStatusSynced, trip.Status)
		n, err := repo.GetLocationCount(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, n)
	}

	// Nothing left to do
	assert.Equal(t, ResultSuccess, w.DoWork(ctx))
	assert.Len(t, fake.Uploaded(), 2)
}

func TestTripSyncWorker_FailureKeepsTripAndRetries(t *testing.T) {
	ctx := context.Background()
	repo := newTripRepo(t)
	completedTrip(t, repo, "t1", 1000, 2)
	completedTrip(t, repo, "t2", 5000, 2)
	completedTrip(t, repo, "t3", 9000, 2)

	rt := &scriptedTrips{fail: map[string]bool{"t2": true}}
	w := NewTripSyncWorker(repo, rt, logging.Nop())

	assert.Equal(t, ResultRetry, w.DoWork(ctx))
	// The pass stops at the first failure
	assert.Equal(t, []string{"t1"}, rt.uploaded)

	t1, err := repo.GetTripByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusSynced, t1.Status)

	t2, err := repo.GetTripByID(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusCompleted, t2.Status)
	n, err := repo.GetLocationCount(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	delete(rt.fail, "t2")
	assert.Equal(t, ResultSuccess, w.DoWork(ctx))
	assert.Equal(t, []string{"t1", "t2", "t3"}, rt.uploaded)
}

func TestTripSyncWorker_SkipsActiveTrips(t *testing.T) {
	ctx := context.Background()
	repo := newTripRepo(t)
	require.NoError(t, repo.CreateActiveTrip(ctx, models.Trip{ID: "live", DriverID: "driver-001", RouteID: "route-101"}))

	rt := &scriptedTrips{}
	w := NewTripSyncWorker(repo, rt, logging.Nop())

	assert.Equal(t, ResultSuccess, w.DoWork(ctx))
	assert.Empty(t, rt.uploaded)
}

func TestSyncQueue_RetriesUntilUploaded(t *testing.T) {
	repo := newTripRepo(t)
	completedTrip(t, repo, "t1", 1000, 2)

	fake := remote.NewFakeTrips(true)
	fake.Delay = 0
	rolls := []int{0, 0, 99}
	fake.Roll = func(int) int {
		r := rolls[0]
		if len(rolls) > 1 {
			rolls = rolls[1:]
		}
		return r
	}

	s := newTestScheduler(t, Options{})
	q := NewSyncQueue(s, NewTripSyncWorker(repo, fake, logging.Nop()), nil, time.Hour)
	q.FireOnce()

	require.Eventually(t, func() bool { return !s.IsScheduled(TripSyncOneTimeName) }, 2*time.Second, time.Millisecond)

	trip, err := repo.GetTripByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusSynced, trip.Status)
	assert.Len(t, fake.Uploaded(), 1)
}

func TestSyncQueue_PeriodicAndCancel(t *testing.T) {
	s := newTestScheduler(t, Options{})
	noop := WorkerFunc(func(context.Context) Result { return ResultSuccess })
	q := NewSyncQueue(s, noop, noop, time.Hour)

	q.EnsurePeriodic()
	q.EnsurePeriodic()
	assert.True(t, s.IsScheduled(TripSyncPeriodicName))

	assert.Equal(t, 1, q.CancelAll())
	assert.False(t, s.IsScheduled(TripSyncPeriodicName))
}

type stubRefresher struct {
	ok  bool
	err error
}

func (s stubRefresher) Refresh(context.Context) (bool, error) { return s.ok, s.err }

func TestCatalogSyncWorker(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, ResultSuccess, NewCatalogSyncWorker(stubRefresher{ok: true}, logging.Nop()).DoWork(ctx))
	assert.Equal(t, ResultRetry, NewCatalogSyncWorker(stubRefresher{err: errors.New("offline")}, logging.Nop()).DoWork(ctx))
}
