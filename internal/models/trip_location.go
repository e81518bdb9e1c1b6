package models

// TripLocation is a single GPS fix recorded while a trip is ACTIVE
type TripLocation struct {
	ID        int64    `json:"id" db:"id"`
	TripID    string   `json:"trip_id" db:"trip_id"`
	Timestamp int64    `json:"timestamp" db:"timestamp"` // Fix time, epoch millis
	Lat       float64  `json:"lat" db:"lat"`
	Lng       float64  `json:"lng" db:"lng"`
	Accuracy  *float64 `json:"accuracy,omitempty" db:"accuracy"` // Horizontal accuracy in meters
	Speed     *float64 `json:"speed,omitempty" db:"speed"`       // Speed in m/s
	Bearing   *float64 `json:"bearing,omitempty" db:"bearing"`   // Direction of travel (0-360 degrees)
}

// ValidCoordinates reports whether lat/lng are within WGS84 bounds
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
