package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"busdriver/internal/models"

	"github.com/jmoiron/sqlx"
)

// pointChunk bounds the rows per bulk INSERT; Postgres allows 65535 bind parameters
const pointChunk = 1000

// Store is the backend's query layer
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open connection pool
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// GetDriver returns the driver account, or nil when it does not exist
func (s *Store) GetDriver(ctx context.Context, id string) (*models.BackendDriver, error) {
	var d models.BackendDriver
	err := s.db.GetContext(ctx, &d,
		`SELECT id, name, pin_hash, role, created_at, updated_at FROM drivers WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get driver %s: %w", id, err)
	}
	return &d, nil
}

// ListRoutes returns every route ordered by name
func (s *Store) ListRoutes(ctx context.Context) ([]models.RouteDTO, error) {
	routes := []models.RouteDTO{}
	err := s.db.SelectContext(ctx, &routes,
		`SELECT id, name, start_point, end_point, updated_at FROM routes ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	return routes, nil
}

// SaveTripUpload stores an uploaded trip and its points in one transaction.
// A trip_id that was already accepted is left untouched and reported as duplicate.
func (s *Store) SaveTripUpload(ctx context.Context, up models.TripUpload, receivedAt int64) (duplicate bool, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO uploaded_trips (trip_id, driver_id, route_id, start_time, end_time, point_count, received_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (trip_id) DO NOTHING`,
		up.TripID, up.DriverID, up.RouteID, up.StartTime, up.EndTime, len(up.Points), receivedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert trip %s: %w", up.TripID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return true, nil
	}

	for start := 0; start < len(up.Points); start += pointChunk {
		end := min(start+pointChunk, len(up.Points))
		rows := make([]uploadedPoint, 0, end-start)
		for _, p := range up.Points[start:end] {
			rows = append(rows, uploadedPoint{TripID: up.TripID, TripPoint: p})
		}

		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO uploaded_trip_points (trip_id, timestamp, lat, lng, accuracy, speed, bearing)
			 VALUES (:trip_id, :timestamp, :lat, :lng, :accuracy, :speed, :bearing)`,
			rows,
		)
		if err != nil {
			return false, fmt.Errorf("failed to insert points for trip %s: %w", up.TripID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit trip %s: %w", up.TripID, err)
	}
	return false, nil
}

// ListRecentUploads returns the newest accepted trips with their driver's name
func (s *Store) ListRecentUploads(ctx context.Context, limit int) ([]models.UploadedTripSummary, error) {
	trips := []models.UploadedTripSummary{}
	err := s.db.SelectContext(ctx, &trips, `
		SELECT
			t.trip_id,
			t.driver_id,
			COALESCE(d.name, '') AS driver_name,
			t.route_id,
			t.start_time,
			t.end_time,
			t.point_count,
			t.received_at
		FROM uploaded_trips t
		LEFT JOIN drivers d ON d.id = t.driver_id
		ORDER BY t.received_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	return trips, nil
}

type uploadedPoint struct {
	TripID string `db:"trip_id"`
	models.TripPoint
}

// SaveFCMToken registers a device token, moving it to driverID if another driver held it
func (s *Store) SaveFCMToken(ctx context.Context, driverID, token, deviceType string, now int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fcm_tokens (driver_id, token, device_type, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (token) DO UPDATE SET
			 driver_id = excluded.driver_id,
			 device_type = excluded.device_type,
			 updated_at = excluded.updated_at`,
		driverID, token, deviceType, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save FCM token: %w", err)
	}
	return nil
}

// GetFCMTokens returns the driver's tokens, newest first
func (s *Store) GetFCMTokens(ctx context.Context, driverID string) ([]string, error) {
	tokens := []string{}
	err := s.db.SelectContext(ctx, &tokens,
		`SELECT token FROM fcm_tokens WHERE driver_id = $1 ORDER BY updated_at DESC`, driverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get FCM tokens: %w", err)
	}
	return tokens, nil
}

// DeleteFCMTokens removes tokens FCM reported as unregistered
func (s *Store) DeleteFCMTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM fcm_tokens WHERE token IN (?)`, tokens)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to delete FCM tokens: %w", err)
	}
	return nil
}
