package usecase

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"busdriver/internal/models"
	"busdriver/internal/session"
)

// DefaultRecentTrips is the history length when no limit is given
const DefaultRecentTrips = 20

// TripService starts, ends and lists trips for the logged in driver
type TripService struct {
	trips   TripStore
	routes  RouteStore
	session *session.Manager
	sync    SyncEnqueuer
	log     *zap.SugaredLogger
}

func NewTripService(trips TripStore, routes RouteStore, sm *session.Manager, sync SyncEnqueuer, log *zap.SugaredLogger) *TripService {
	return &TripService{trips: trips, routes: routes, session: sm, sync: sync, log: log}
}

// StartTrip creates an ACTIVE trip on routeID starting at now
func (s *TripService) StartTrip(ctx context.Context, routeID string, now int64) (*models.Trip, error) {
	driver := s.session.Current()
	if driver == nil {
		return nil, ErrNotLoggedIn
	}

	route, err := s.routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("start trip: %w", err)
	}
	if route == nil {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, routeID)
	}

	trip := models.Trip{
		ID:        uuid.New().String(),
		DriverID:  driver.ID,
		RouteID:   routeID,
		StartTime: now,
		Status:    models.TripStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.trips.CreateActiveTrip(ctx, trip); err != nil {
		return nil, fmt.Errorf("start trip: %w", err)
	}

	s.log.Infof("🚌 Started trip %s on %s (%s)", trip.ID, route.ID, route.Name)
	return &trip, nil
}

// EndTrip completes the trip and schedules an upload
func (s *TripService) EndTrip(ctx context.Context, tripID string, endTime int64) (*models.Trip, error) {
	if err := s.trips.CompleteTrip(ctx, tripID, endTime); err != nil {
		return nil, fmt.Errorf("end trip: %w", err)
	}

	ended, err := s.trips.GetTripByID(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("end trip: %w", err)
	}
	s.log.Infof("🏁 Ended trip %s with %d samples", ended.ID, ended.LocationCount)

	s.sync.FireOnce()
	return ended, nil
}

// ActiveTrip returns the logged in driver's ACTIVE trip, or nil
func (s *TripService) ActiveTrip(ctx context.Context) (*models.Trip, error) {
	driver := s.session.Current()
	if driver == nil {
		return nil, ErrNotLoggedIn
	}
	return s.trips.GetActiveTrip(ctx, driver.ID)
}

// RecentTrips returns the newest trips; limit <= 0 uses DefaultRecentTrips
func (s *TripService) RecentTrips(ctx context.Context, limit int) ([]models.Trip, error) {
	if limit <= 0 {
		limit = DefaultRecentTrips
	}
	return s.trips.GetRecentTrips(ctx, limit)
}

// TripsByStatus returns the newest trips in a status given by name, case
// insensitive; limit <= 0 uses DefaultRecentTrips
func (s *TripService) TripsByStatus(ctx context.Context, name string, limit int) ([]models.Trip, error) {
	status, ok := models.ParseTripStatus(strings.ToUpper(strings.TrimSpace(name)))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, name)
	}
	if limit <= 0 {
		limit = DefaultRecentTrips
	}

	trips, err := s.trips.GetTripsByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	slices.Reverse(trips)
	if len(trips) > limit {
		trips = trips[:limit]
	}
	return trips, nil
}

// TripDetails reports live sample statistics, or the snapshot taken at
// completion once the samples have been deleted by sync
func (s *TripService) TripDetails(ctx context.Context, tripID string) (*models.TripDetails, error) {
	trip, err := s.trips.GetTripByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	count, err := s.trips.GetLocationCount(ctx, tripID)
	if err != nil {
		return nil, err
	}
	first, last, err := s.trips.GetLocationTimeRange(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if count == 0 && trip.LocationCount > 0 {
		count, first, last = trip.LocationCount, trip.FirstPointAt, trip.LastPointAt
	}

	return &models.TripDetails{
		Trip:          *trip,
		LocationCount: count,
		FirstPointAt:  first,
		LastPointAt:   last,
	}, nil
}
