package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"busdriver/internal/models"
)

const tripColumns = `id, driver_id, route_id, start_time, end_time, status,
	created_at, updated_at, location_count, first_point_at, last_point_at`

// TripRepository stores trips and their GPS samples
type TripRepository struct {
	db  *sqlx.DB
	now func() int64
}

func NewTripRepository(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db, now: models.NowMillis}
}

// CreateActiveTrip inserts an ACTIVE trip. A driver can hold only one.
func (r *TripRepository) CreateActiveTrip(ctx context.Context, trip models.Trip) error {
	trip.Status = models.TripStatusActive
	trip.EndTime = nil
	trip.LocationCount = 0
	trip.FirstPointAt = nil
	trip.LastPointAt = nil

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO trips (`+tripColumns+`)
		VALUES (:id, :driver_id, :route_id, :start_time, :end_time, :status,
			:created_at, :updated_at, :location_count, :first_point_at, :last_point_at)
	`, trip)
	if isUniqueViolation(err) {
		return ErrActiveTripExists
	}
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}
	return nil
}

// CompleteTrip ends an ACTIVE trip and snapshots its sample statistics.
// An end time before the start (clock stepped back) is clamped to the start.
func (r *TripRepository) CompleteTrip(ctx context.Context, tripID string, endTime int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	status, err := statusOf(ctx, tx, tripID)
	if err != nil {
		return err
	}
	if !status.CanTransitionTo(models.TripStatusCompleted) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, status, models.TripStatusCompleted)
	}

	stats, err := statsOf(ctx, tx, tripID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE trips
		SET status = ?, end_time = MAX(?, start_time), updated_at = ?,
		    location_count = ?, first_point_at = ?, last_point_at = ?
		WHERE id = ?
	`, models.TripStatusCompleted, endTime, r.now(), stats.Count, stats.FirstAt, stats.LastAt, tripID)
	if err != nil {
		return fmt.Errorf("failed to complete trip: %w", err)
	}

	return tx.Commit()
}

// UpdateTripStatus moves a trip forward without touching end time or stats.
// Completion must go through CompleteTrip.
func (r *TripRepository) UpdateTripStatus(ctx context.Context, tripID string, next models.TripStatus) error {
	if next == models.TripStatusCompleted {
		return fmt.Errorf("%w: use CompleteTrip to complete a trip", ErrInvalidTransition)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	status, err := statusOf(ctx, tx, tripID)
	if err != nil {
		return err
	}
	if !status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, status, next)
	}

	_, err = tx.ExecContext(ctx, `UPDATE trips SET status = ?, updated_at = ? WHERE id = ?`, next, r.now(), tripID)
	if err != nil {
		return fmt.Errorf("failed to update trip status: %w", err)
	}

	return tx.Commit()
}

// MarkSynced flags a COMPLETED trip as SYNCED and deletes its samples atomically
func (r *TripRepository) MarkSynced(ctx context.Context, tripID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	status, err := statusOf(ctx, tx, tripID)
	if err != nil {
		return err
	}
	if !status.CanTransitionTo(models.TripStatusSynced) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, status, models.TripStatusSynced)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE trips SET status = ?, updated_at = ? WHERE id = ?`,
		models.TripStatusSynced, r.now(), tripID); err != nil {
		return fmt.Errorf("failed to mark trip synced: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM trip_locations WHERE trip_id = ?`, tripID); err != nil {
		return fmt.Errorf("failed to delete samples: %w", err)
	}

	return tx.Commit()
}

// GetActiveTrip returns the driver's ACTIVE trip, or (nil, nil)
func (r *TripRepository) GetActiveTrip(ctx context.Context, driverID string) (*models.Trip, error) {
	var trips []models.Trip
	err := r.db.SelectContext(ctx, &trips, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE driver_id = ? AND status = ?
		ORDER BY start_time DESC
		LIMIT 1
	`, driverID, models.TripStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to get active trip: %w", err)
	}
	if len(trips) == 0 {
		return nil, nil
	}
	return &trips[0], nil
}

// GetTripByID returns ErrTripNotFound for unknown ids
func (r *TripRepository) GetTripByID(ctx context.Context, tripID string) (*models.Trip, error) {
	var trip models.Trip
	err := r.db.GetContext(ctx, &trip, `SELECT `+tripColumns+` FROM trips WHERE id = ?`, tripID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTripNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return &trip, nil
}

// GetTripsByStatus returns trips in status, oldest first
func (r *TripRepository) GetTripsByStatus(ctx context.Context, status models.TripStatus) ([]models.Trip, error) {
	trips := []models.Trip{}
	err := r.db.SelectContext(ctx, &trips, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE status = ?
		ORDER BY start_time ASC
	`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s trips: %w", status, err)
	}
	return trips, nil
}

// GetRecentTrips returns the newest trips first
func (r *TripRepository) GetRecentTrips(ctx context.Context, limit int) ([]models.Trip, error) {
	trips := []models.Trip{}
	err := r.db.SelectContext(ctx, &trips, `
		SELECT `+tripColumns+`
		FROM trips
		ORDER BY created_at DESC, start_time DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent trips: %w", err)
	}
	return trips, nil
}

// AddLocation appends one sample to an ACTIVE trip
func (r *TripRepository) AddLocation(ctx context.Context, loc models.TripLocation) error {
	return r.AddLocations(ctx, loc.TripID, []models.TripLocation{loc})
}

// AddLocations appends samples to an ACTIVE trip in one transaction.
// TripID on each sample is overwritten with tripID.
func (r *TripRepository) AddLocations(ctx context.Context, tripID string, locs []models.TripLocation) error {
	if len(locs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	status, err := statusOf(ctx, tx, tripID)
	if err != nil {
		return err
	}
	if status != models.TripStatusActive {
		return ErrTripNotActive
	}

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO trip_locations (trip_id, timestamp, lat, lng, accuracy, speed, bearing)
		VALUES (:trip_id, :timestamp, :lat, :lng, :accuracy, :speed, :bearing)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()

	for _, loc := range locs {
		loc.TripID = tripID
		if _, err := stmt.ExecContext(ctx, loc); err != nil {
			return fmt.Errorf("failed to insert sample: %w", err)
		}
	}

	return tx.Commit()
}

// GetLocations returns a trip's samples in timestamp order
func (r *TripRepository) GetLocations(ctx context.Context, tripID string) ([]models.TripLocation, error) {
	locs := []models.TripLocation{}
	err := r.db.SelectContext(ctx, &locs, `
		SELECT id, trip_id, timestamp, lat, lng, accuracy, speed, bearing
		FROM trip_locations
		WHERE trip_id = ?
		ORDER BY timestamp ASC, id ASC
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to get samples: %w", err)
	}
	return locs, nil
}

func (r *TripRepository) ClearLocations(ctx context.Context, tripID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM trip_locations WHERE trip_id = ?`, tripID); err != nil {
		return fmt.Errorf("failed to clear samples: %w", err)
	}
	return nil
}

func (r *TripRepository) GetLocationCount(ctx context.Context, tripID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM trip_locations WHERE trip_id = ?`, tripID); err != nil {
		return 0, fmt.Errorf("failed to count samples: %w", err)
	}
	return count, nil
}

// GetLocationTimeRange returns the first and last sample timestamps, nil when empty
func (r *TripRepository) GetLocationTimeRange(ctx context.Context, tripID string) (first, last *int64, err error) {
	stats, err := statsOf(ctx, r.db, tripID)
	if err != nil {
		return nil, nil, err
	}
	return stats.FirstAt, stats.LastAt, nil
}

func statusOf(ctx context.Context, q sqlx.QueryerContext, tripID string) (models.TripStatus, error) {
	var status models.TripStatus
	err := sqlx.GetContext(ctx, q, &status, `SELECT status FROM trips WHERE id = ?`, tripID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrTripNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read trip status: %w", err)
	}
	return status, nil
}

func statsOf(ctx context.Context, q sqlx.QueryerContext, tripID string) (models.TripStats, error) {
	var stats models.TripStats
	err := sqlx.GetContext(ctx, q, &stats, `
		SELECT COUNT(*) AS cnt, MIN(timestamp) AS first_at, MAX(timestamp) AS last_at
		FROM trip_locations
		WHERE trip_id = ?
	`, tripID)
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate samples: %w", err)
	}
	return stats, nil
}
