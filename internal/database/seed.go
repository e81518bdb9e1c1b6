package database

import (
	"fmt"

	"busdriver/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Seeded account ids
const (
	SeedDriverID     = "driver-001"
	SeedDispatcherID = "dispatcher-001"
)

// SeedAccounts creates the demo driver and dispatcher when the drivers table is empty
func SeedAccounts(db *sqlx.DB, driverPIN, dispatcherPIN string, log *zap.SugaredLogger) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM drivers"); err != nil {
		return err
	}

	if count > 0 {
		log.Info("✓ Drivers already seeded, skipping...")
		return nil
	}

	log.Info("🌱 Seeding driver accounts...")

	accounts := []struct {
		id, name, pin, role string
	}{
		{SeedDriverID, "Alex Driver", driverPIN, "driver"},
		{SeedDispatcherID, "Dana Dispatcher", dispatcherPIN, "dispatcher"},
	}

	for _, a := range accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(a.pin), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash PIN for %s: %w", a.id, err)
		}

		_, err = db.Exec(
			`INSERT INTO drivers (id, name, pin_hash, role) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO NOTHING`,
			a.id, a.name, string(hash), a.role,
		)
		if err != nil {
			return fmt.Errorf("failed to seed %s: %w", a.id, err)
		}
		log.Infow("  ✓ Created account", "id", a.id, "role", a.role)
	}

	log.Info("✓ Successfully seeded driver accounts")
	return nil
}

// SeedRoutes inserts the default route set when the routes table is empty
func SeedRoutes(db *sqlx.DB, now int64, log *zap.SugaredLogger) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM routes"); err != nil {
		return err
	}

	if count > 0 {
		log.Info("✓ Routes already seeded, skipping...")
		return nil
	}

	log.Info("🌱 Seeding routes...")

	for _, r := range models.DefaultRoutes(now) {
		_, err := db.Exec(
			`INSERT INTO routes (id, name, start_point, end_point, updated_at) VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO NOTHING`,
			r.ID, r.Name, r.StartPoint, r.EndPoint, now,
		)
		if err != nil {
			return fmt.Errorf("failed to seed route %s: %w", r.ID, err)
		}
	}

	log.Infow("✓ Successfully seeded routes", "count", len(models.DefaultRoutes(now)))
	return nil
}

// UpsertAccount creates an account or replaces its name, PIN and role
func UpsertAccount(db *sqlx.DB, id, name, pin, role string, now int64) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash PIN for %s: %w", id, err)
	}

	_, err = db.Exec(
		`INSERT INTO drivers (id, name, pin_hash, role, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (id) DO UPDATE SET
			 name = excluded.name,
			 pin_hash = excluded.pin_hash,
			 role = excluded.role,
			 updated_at = excluded.updated_at`,
		id, name, string(hash), role, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert account %s: %w", id, err)
	}
	return nil
}
