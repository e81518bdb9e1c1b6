package repository

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"busdriver/internal/localdb"
	"busdriver/internal/logging"
	"busdriver/internal/models"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := localdb.Open(":memory:", logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func activeTrip(id, driverID string, start int64) models.Trip {
	return models.Trip{
		ID:        id,
		DriverID:  driverID,
		RouteID:   "route-101",
		StartTime: start,
		CreatedAt: start,
		UpdatedAt: start,
	}
}

func sample(ts int64, lat, lng float64) models.TripLocation {
	return models.TripLocation{Timestamp: ts, Lat: lat, Lng: lng, Accuracy: floatPtr(5)}
}

func floatPtr(v float64) *float64 { return &v }
