package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"busdriver/internal/models"
)

// RouteRepository stores the route catalog
type RouteRepository struct {
	db *sqlx.DB
}

func NewRouteRepository(db *sqlx.DB) *RouteRepository {
	return &RouteRepository{db: db}
}

// GetRoutes returns all routes ordered by name
func (r *RouteRepository) GetRoutes(ctx context.Context) ([]models.Route, error) {
	routes := []models.Route{}
	err := r.db.SelectContext(ctx, &routes, `
		SELECT id, name, start_point, end_point, last_updated_at
		FROM routes
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get routes: %w", err)
	}
	return routes, nil
}

// GetRoute returns one route, or (nil, nil) if the id is unknown
func (r *RouteRepository) GetRoute(ctx context.Context, id string) (*models.Route, error) {
	var routes []models.Route
	err := r.db.SelectContext(ctx, &routes, `
		SELECT id, name, start_point, end_point, last_updated_at
		FROM routes
		WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get route %s: %w", id, err)
	}
	if len(routes) == 0 {
		return nil, nil
	}
	return &routes[0], nil
}

// ReplaceAll swaps the whole catalog for routes in one transaction
func (r *RouteRepository) ReplaceAll(ctx context.Context, routes []models.Route) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM routes`); err != nil {
		return fmt.Errorf("failed to clear routes: %w", err)
	}

	for _, route := range routes {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO routes (id, name, start_point, end_point, last_updated_at)
			VALUES (:id, :name, :start_point, :end_point, :last_updated_at)
		`, route)
		if err != nil {
			return fmt.Errorf("failed to insert route %s: %w", route.ID, err)
		}
	}

	return tx.Commit()
}

// Clear removes every route
func (r *RouteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM routes`); err != nil {
		return fmt.Errorf("failed to clear routes: %w", err)
	}
	return nil
}
