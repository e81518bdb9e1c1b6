package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"busdriver/internal/models"
)

// DriverRepository stores the single cached driver profile
type DriverRepository struct {
	db *sqlx.DB
}

func NewDriverRepository(db *sqlx.DB) *DriverRepository {
	return &DriverRepository{db: db}
}

// GetCurrent returns the stored driver, or (nil, nil) when there is none
func (r *DriverRepository) GetCurrent(ctx context.Context) (*models.Driver, error) {
	var d models.Driver
	err := r.db.GetContext(ctx, &d, `SELECT id, name, last_synced_at FROM drivers LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get driver: %w", err)
	}
	return &d, nil
}

// Upsert stores d as the only driver row, replacing any other profile
func (r *DriverRepository) Upsert(ctx context.Context, d models.Driver) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM drivers WHERE id <> ?`, d.ID); err != nil {
		return fmt.Errorf("failed to clear other drivers: %w", err)
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO drivers (id, name, last_synced_at)
		VALUES (:id, :name, :last_synced_at)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			last_synced_at = excluded.last_synced_at
	`, d)
	if err != nil {
		return fmt.Errorf("failed to upsert driver: %w", err)
	}

	return tx.Commit()
}
