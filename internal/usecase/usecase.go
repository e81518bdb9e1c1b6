// Package usecase implements the driver agent's operations on top of the
// local repositories, the session and the remotes.
package usecase

import (
	"context"
	"errors"

	"busdriver/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials (offline)")
	ErrNotLoggedIn        = errors.New("must be logged in to start a trip")
	ErrRouteNotFound      = errors.New("route not found")
	ErrNoActiveTrip       = errors.New("no active trip")
	ErrUnknownStatus      = errors.New("unknown trip status")
	ErrProfileMismatch    = errors.New("remote profile is for a different driver")
)

// DriverStore is the cached driver profile
type DriverStore interface {
	GetCurrent(ctx context.Context) (*models.Driver, error)
	Upsert(ctx context.Context, d models.Driver) error
}

// SessionStore persists the logged in driver id
type SessionStore interface {
	SetDriverID(ctx context.Context, driverID string) error
	ClearDriverID(ctx context.Context) error
	GetDriverID(ctx context.Context) (string, error)
}

// RouteStore is the local route catalog
type RouteStore interface {
	GetRoutes(ctx context.Context) ([]models.Route, error)
	GetRoute(ctx context.Context, id string) (*models.Route, error)
	ReplaceAll(ctx context.Context, routes []models.Route) error
}

// TripStore is the local trip log
type TripStore interface {
	CreateActiveTrip(ctx context.Context, trip models.Trip) error
	CompleteTrip(ctx context.Context, tripID string, endTime int64) error
	GetActiveTrip(ctx context.Context, driverID string) (*models.Trip, error)
	GetTripByID(ctx context.Context, tripID string) (*models.Trip, error)
	GetRecentTrips(ctx context.Context, limit int) ([]models.Trip, error)
	GetTripsByStatus(ctx context.Context, status models.TripStatus) ([]models.Trip, error)
	GetLocationCount(ctx context.Context, tripID string) (int, error)
	GetLocationTimeRange(ctx context.Context, tripID string) (first, last *int64, err error)
}

// SyncEnqueuer schedules a trip upload pass
type SyncEnqueuer interface {
	FireOnce()
}
