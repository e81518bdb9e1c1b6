package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"busdriver/internal/models"
	"busdriver/internal/repository"
)

// ErrTrackingStopped is returned when the trip stopped accepting samples
var ErrTrackingStopped = errors.New("trip no longer accepts samples")

// LocationStore appends samples to a trip
type LocationStore interface {
	AddLocations(ctx context.Context, tripID string, locs []models.TripLocation) error
}

// Config tunes the tracker
type Config struct {
	MinDelta   float64 // meters, see Filter
	MaxSilence time.Duration
}

// Summary describes a finished tracking run
type Summary struct {
	Received int64
	Stored   int64
	Dropped  int64 // lost to storage errors
	Filter   FilterStats
}

// Tracker records fixes for one trip at a time on a single goroutine
type Tracker struct {
	store LocationStore
	cfg   Config
	log   *zap.SugaredLogger
}

func NewTracker(store LocationStore, cfg Config, log *zap.SugaredLogger) *Tracker {
	return &Tracker{store: store, cfg: cfg, log: log}
}

// Run consumes src until ctx is done, the source closes or the trip stops
// being ACTIVE. Every accepted fix is written before the next one is read,
// so nothing captured while the trip was ACTIVE waits in memory. Storage
// errors are logged and the fix dropped; tracking continues.
func (t *Tracker) Run(ctx context.Context, tripID string, src Source) (Summary, error) {
	var sum Summary

	// Cancelling releases the source goroutine on every return path
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fixes, err := src.Fixes(ctx)
	if err != nil {
		return sum, fmt.Errorf("failed to open fix source: %w", err)
	}

	filter := NewFilter(t.cfg.MinDelta, t.cfg.MaxSilence)

	t.log.Infof("📍 Tracking trip %s", tripID)

	stop := func(err error) (Summary, error) {
		sum.Filter = filter.Stats()
		t.log.Infof("⏹️  Stopped tracking trip %s: %d stored, %d filtered", tripID, sum.Stored, sum.Filter.SkippedByAccuracy+sum.Filter.SkippedByDelta)
		return sum, err
	}

	for {
		select {
		case <-ctx.Done():
			return stop(nil)

		case fix, ok := <-fixes:
			if !ok {
				return stop(nil)
			}
			sum.Received++
			if !models.ValidCoordinates(fix.Lat, fix.Lng) {
				t.log.Warnf("⚠️  Dropping fix with invalid coordinates (%.6f, %.6f)", fix.Lat, fix.Lng)
				continue
			}
			if !filter.Accept(fix) {
				continue
			}

			// A fix already read is written even if ctx was cancelled meanwhile
			wctx, wcancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			err := t.store.AddLocations(wctx, tripID, []models.TripLocation{fix.ToLocation(tripID)})
			wcancel()

			switch {
			case err == nil:
				sum.Stored++
			case errors.Is(err, repository.ErrTripNotActive), errors.Is(err, repository.ErrTripNotFound):
				sum.Dropped++
				return stop(fmt.Errorf("%w: %v", ErrTrackingStopped, err))
			default:
				t.log.Errorf("❌ Failed to store sample for trip %s: %v", tripID, err)
				sum.Dropped++
			}
		}
	}
}
