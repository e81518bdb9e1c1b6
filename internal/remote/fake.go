package remote

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"busdriver/internal/models"
)

// ErrSimulatedFailure is returned by FakeTrips when failure simulation rolls a failure
var ErrSimulatedFailure = errors.New("simulated server failure")

// FakeDriverName is returned for every driver id by FakeCatalog
const FakeDriverName = "Alex Driver"

// FakeCatalog is an in-process catalog with simulated latency
type FakeCatalog struct {
	DriverDelay time.Duration
	RoutesDelay time.Duration
	Now         func() int64
}

func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		DriverDelay: 400 * time.Millisecond,
		RoutesDelay: 600 * time.Millisecond,
		Now:         models.NowMillis,
	}
}

func (f *FakeCatalog) FetchDriver(ctx context.Context, driverID string) (models.DriverProfile, error) {
	if err := sleep(ctx, f.DriverDelay); err != nil {
		return models.DriverProfile{}, err
	}
	return models.DriverProfile{ID: driverID, Name: FakeDriverName}, nil
}

func (f *FakeCatalog) FetchRoutes(ctx context.Context) ([]models.RouteDTO, error) {
	if err := sleep(ctx, f.RoutesDelay); err != nil {
		return nil, err
	}

	routes := models.DefaultRoutes(f.Now())
	dtos := make([]models.RouteDTO, len(routes))
	for i, r := range routes {
		dtos[i] = models.RouteDTO{
			ID:         r.ID,
			Name:       r.Name,
			StartPoint: r.StartPoint,
			EndPoint:   r.EndPoint,
			UpdatedAt:  *r.LastUpdatedAt,
		}
	}
	return dtos, nil
}

// FakeTrips accepts uploads after a delay. With SimulateFailures set, one
// upload in four fails.
type FakeTrips struct {
	Delay            time.Duration
	SimulateFailures bool
	// Roll returns a number in [0, n); swap it for a deterministic source in tests
	Roll func(n int) int

	mu       sync.Mutex
	uploaded []models.TripUpload
}

func NewFakeTrips(simulateFailures bool) *FakeTrips {
	return &FakeTrips{
		Delay:            800 * time.Millisecond,
		SimulateFailures: simulateFailures,
		Roll:             rand.IntN,
	}
}

func (f *FakeTrips) UploadTrip(ctx context.Context, upload models.TripUpload) error {
	if err := sleep(ctx, f.Delay); err != nil {
		return err
	}

	if f.SimulateFailures && f.Roll(100) < 25 {
		return ErrSimulatedFailure
	}

	f.mu.Lock()
	f.uploaded = append(f.uploaded, upload)
	f.mu.Unlock()
	return nil
}

// Uploaded returns every accepted upload in arrival order
func (f *FakeTrips) Uploaded() []models.TripUpload {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.TripUpload, len(f.uploaded))
	copy(out, f.uploaded)
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
