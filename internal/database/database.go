// Package database holds the sync backend's Postgres schema and queries.
package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// nowMillis is the Postgres expression used for epoch millisecond defaults
const nowMillis = `(EXTRACT(EPOCH FROM NOW()) * 1000)::BIGINT`

// Connect opens the Postgres pool and checks it with a ping
func Connect(dbURL string, log *zap.SugaredLogger) (*sqlx.DB, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	log.Infow("🔌 Connecting to database", "url_length", len(dbURL))

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Errorw("❌ Database connection failed", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.Errorw("❌ Database ping failed", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)

	log.Info("✅ Database connection successful")
	return db, nil
}

// migrations are applied in order on every start and must stay idempotent
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS drivers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		pin_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'driver' CHECK(role IN ('driver', 'dispatcher')),
		created_at BIGINT NOT NULL DEFAULT ` + nowMillis + `,
		updated_at BIGINT NOT NULL DEFAULT ` + nowMillis + `
	)`,

	`CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_point TEXT,
		end_point TEXT,
		updated_at BIGINT NOT NULL DEFAULT ` + nowMillis + `
	)`,

	// One row per accepted trip; trip_id makes uploads idempotent
	`CREATE TABLE IF NOT EXISTS uploaded_trips (
		trip_id TEXT PRIMARY KEY,
		driver_id TEXT NOT NULL,
		route_id TEXT NOT NULL,
		start_time BIGINT NOT NULL,
		end_time BIGINT NOT NULL,
		point_count INT NOT NULL DEFAULT 0,
		received_at BIGINT NOT NULL DEFAULT ` + nowMillis + `,
		FOREIGN KEY (driver_id) REFERENCES drivers(id) ON DELETE CASCADE,
		CHECK (end_time >= start_time)
	)`,

	`CREATE TABLE IF NOT EXISTS uploaded_trip_points (
		id BIGSERIAL PRIMARY KEY,
		trip_id TEXT NOT NULL,
		timestamp BIGINT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		accuracy DOUBLE PRECISION,
		speed DOUBLE PRECISION,
		bearing DOUBLE PRECISION,
		FOREIGN KEY (trip_id) REFERENCES uploaded_trips(trip_id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS fcm_tokens (
		id SERIAL PRIMARY KEY,
		driver_id TEXT NOT NULL,
		token TEXT NOT NULL UNIQUE,
		device_type TEXT NOT NULL CHECK(device_type IN ('ios', 'android', 'agent')),
		created_at BIGINT NOT NULL DEFAULT ` + nowMillis + `,
		updated_at BIGINT NOT NULL DEFAULT ` + nowMillis + `,
		FOREIGN KEY (driver_id) REFERENCES drivers(id) ON DELETE CASCADE
	)`,

	`CREATE INDEX IF NOT EXISTS idx_routes_name ON routes(name)`,
	`CREATE INDEX IF NOT EXISTS idx_uploaded_trips_driver_id ON uploaded_trips(driver_id)`,
	`CREATE INDEX IF NOT EXISTS idx_uploaded_trips_received_at ON uploaded_trips(received_at)`,
	`CREATE INDEX IF NOT EXISTS idx_uploaded_trip_points_trip_id ON uploaded_trip_points(trip_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_fcm_tokens_driver_id ON fcm_tokens(driver_id)`,
}

// Migrate creates the backend schema
func Migrate(db *sqlx.DB, log *zap.SugaredLogger) error {
	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}

	log.Infow("✓ Database migrations completed", "statements", len(migrations))
	return nil
}
