// Package tracking records GPS fixes for the active trip: fix sources,
// the accuracy/delta filter and the batching tracker loop.
package tracking

import (
	"context"
	"time"

	"busdriver/internal/models"
)

// Fix is one position report from a source
type Fix struct {
	Time     time.Time
	Lat      float64
	Lng      float64
	Accuracy *float64 // meters
	Speed    *float64 // m/s
	Bearing  *float64 // degrees
}

// ToLocation converts the fix into a stored sample of tripID
func (f Fix) ToLocation(tripID string) models.TripLocation {
	return models.TripLocation{
		TripID:    tripID,
		Timestamp: f.Time.UnixMilli(),
		Lat:       f.Lat,
		Lng:       f.Lng,
		Accuracy:  f.Accuracy,
		Speed:     f.Speed,
		Bearing:   f.Bearing,
	}
}

// Source produces fixes until ctx is done or the source runs dry, then
// closes the channel
type Source interface {
	Fixes(ctx context.Context) (<-chan Fix, error)
}
