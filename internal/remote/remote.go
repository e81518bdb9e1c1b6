// Package remote talks to the catalog and trip upload backends, either the
// in-process fakes or the real HTTP API.
package remote

import (
	"context"

	"busdriver/internal/models"
)

// CatalogRemote serves the driver profile and route catalog
type CatalogRemote interface {
	FetchDriver(ctx context.Context, driverID string) (models.DriverProfile, error)
	FetchRoutes(ctx context.Context) ([]models.RouteDTO, error)
}

// TripsRemote accepts completed trips
type TripsRemote interface {
	UploadTrip(ctx context.Context, upload models.TripUpload) error
}

// ConnectivityChecker reports whether the backend is reachable
type ConnectivityChecker interface {
	Connected(ctx context.Context) bool
}

// AlwaysOnline is used with the fake remotes
type AlwaysOnline struct{}

func (AlwaysOnline) Connected(context.Context) bool { return true }
