// Package localdb owns the agent's on-device SQLite database: connection,
// schema and first-run seeding.
package localdb

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite"
)

// SchemaVersion is stored in PRAGMA user_version. A database carrying any
// other non-zero version is dropped and recreated.
const SchemaVersion = 1

const driverName = "sqlite"

func init() {
	// sqlx does not know the modernc driver name; it uses ? placeholders
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// Connect opens the SQLite database at path. Use ":memory:" for tests.
func Connect(path string, log *zap.SugaredLogger) (*sqlx.DB, error) {
	log.Infof("🔌 Opening local database at %s", path)

	db, err := sqlx.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: keeps :memory: databases alive and serializes writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if path != ":memory:" && !strings.Contains(path, "mode=memory") {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	log.Infof("✅ Local database ready")
	return db, nil
}

var tables = []string{"drivers", "routes", "trips", "trip_locations", "session"}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS drivers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		last_synced_at INTEGER
	)`,

	`CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_point TEXT,
		end_point TEXT,
		last_updated_at INTEGER
	)`,

	`CREATE TABLE IF NOT EXISTS trips (
		id TEXT PRIMARY KEY,
		driver_id TEXT NOT NULL,
		route_id TEXT NOT NULL,
		start_time INTEGER NOT NULL,
		end_time INTEGER,
		status TEXT NOT NULL CHECK(status IN ('ACTIVE', 'COMPLETED', 'SYNCED')),
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		location_count INTEGER NOT NULL DEFAULT 0,
		first_point_at INTEGER,
		last_point_at INTEGER
	)`,

	// Samples are append-only while the trip is ACTIVE and removed after sync
	`CREATE TABLE IF NOT EXISTS trip_locations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trip_id TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		accuracy REAL,
		speed REAL,
		bearing REAL
	)`,

	`CREATE TABLE IF NOT EXISTS session (
		session_key TEXT PRIMARY KEY,
		driver_id TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_routes_name ON routes(name)`,
	`CREATE INDEX IF NOT EXISTS idx_trips_driver_id ON trips(driver_id)`,
	`CREATE INDEX IF NOT EXISTS idx_trips_route_id ON trips(route_id)`,
	`CREATE INDEX IF NOT EXISTS idx_trips_status ON trips(status)`,
	`CREATE INDEX IF NOT EXISTS idx_trip_locations_trip_id ON trip_locations(trip_id)`,
	`CREATE INDEX IF NOT EXISTS idx_trip_locations_timestamp ON trip_locations(timestamp)`,

	// At most one ACTIVE trip per driver
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_trips_one_active_per_driver ON trips(driver_id) WHERE status = 'ACTIVE'`,
}

// Migrate brings the schema to SchemaVersion. There are no incremental
// migrations: a version mismatch drops every table and starts over.
func Migrate(db *sqlx.DB, log *zap.SugaredLogger) error {
	var version int
	if err := db.Get(&version, "PRAGMA user_version"); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version != 0 && version != SchemaVersion {
		log.Warnf("⚠️  Schema version %d does not match %d, recreating local database", version, SchemaVersion)
		for _, t := range tables {
			if _, err := db.Exec("DROP TABLE IF EXISTS " + t); err != nil {
				return fmt.Errorf("failed to drop %s: %w", t, err)
			}
		}
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		return fmt.Errorf("failed to write schema version: %w", err)
	}

	log.Debugf("Local schema at version %d", SchemaVersion)
	return nil
}

// Open is Connect followed by Migrate
func Open(path string, log *zap.SugaredLogger) (*sqlx.DB, error) {
	db, err := Connect(path, log)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db, log); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
