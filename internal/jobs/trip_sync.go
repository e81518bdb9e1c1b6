package jobs

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"busdriver/internal/models"
	"busdriver/internal/remote"
)

const (
	TripSyncTag          = "trip_sync"
	TripSyncOneTimeName  = "trip_sync_one_time"
	TripSyncPeriodicName = "trip_sync_periodic"
)

// TripStore is what the upload pass needs from the trip repository
type TripStore interface {
	GetTripsByStatus(ctx context.Context, status models.TripStatus) ([]models.Trip, error)
	GetLocations(ctx context.Context, tripID string) ([]models.TripLocation, error)
	MarkSynced(ctx context.Context, tripID string) error
}

// TripSyncWorker uploads every COMPLETED trip and marks it SYNCED.
// Passes are serialized so the one-time and periodic work never upload
// the same trip concurrently.
type TripSyncWorker struct {
	trips  TripStore
	remote remote.TripsRemote
	log    *zap.SugaredLogger
	now    func() int64
	mu     sync.Mutex
}

func NewTripSyncWorker(trips TripStore, rt remote.TripsRemote, log *zap.SugaredLogger) *TripSyncWorker {
	return &TripSyncWorker{trips: trips, remote: rt, log: log, now: models.NowMillis}
}

// DoWork stops at the first failed upload and asks for a retry. Trips
// uploaded before the failure stay SYNCED.
func (w *TripSyncWorker) DoWork(ctx context.Context) Result {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.log.Infof("🔄 Trip sync started")

	pending, err := w.trips.GetTripsByStatus(ctx, models.TripStatusCompleted)
	if err != nil {
		w.log.Errorf("❌ Trip sync failed: %v", err)
		return ResultRetry
	}
	if len(pending) == 0 {
		return ResultSuccess
	}

	for _, trip := range pending {
		locations, err := w.trips.GetLocations(ctx, trip.ID)
		if err != nil {
			w.log.Errorf("❌ Trip sync failed loading samples for %s: %v", trip.ID, err)
			return ResultRetry
		}

		upload := models.NewTripUpload(trip, locations, w.now())
		if err := w.remote.UploadTrip(ctx, upload); err != nil {
			w.log.Warnf("⚠️  Upload failed for trip %s, retrying later: %v", trip.ID, err)
			return ResultRetry
		}

		if err := w.trips.MarkSynced(ctx, trip.ID); err != nil {
			w.log.Errorf("❌ Failed to mark trip %s synced: %v", trip.ID, err)
			return ResultRetry
		}
		w.log.Infof("✅ Trip %s synced (%d points)", trip.ID, len(upload.Points))
	}

	return ResultSuccess
}
