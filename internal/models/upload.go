package models

// TripUpload is the payload sent to the backend for a completed trip
type TripUpload struct {
	TripID    string      `json:"trip_id"`
	DriverID  string      `json:"driver_id"`
	RouteID   string      `json:"route_id"`
	StartTime int64       `json:"start_time"`
	EndTime   int64       `json:"end_time"`
	Points    []TripPoint `json:"points"`
}

// TripPoint is one sample inside a TripUpload
type TripPoint struct {
	Timestamp int64    `json:"timestamp" db:"timestamp"`
	Lat       float64  `json:"lat" db:"lat"`
	Lng       float64  `json:"lng" db:"lng"`
	Accuracy  *float64 `json:"accuracy" db:"accuracy"`
	Speed     *float64 `json:"speed" db:"speed"`
	Bearing   *float64 `json:"bearing" db:"bearing"`
}

// NewTripUpload builds the upload payload for a trip and its samples.
// Points keep the order of locations; an unset end time falls back to now.
func NewTripUpload(trip Trip, locations []TripLocation, now int64) TripUpload {
	endTime := now
	if trip.EndTime != nil {
		endTime = *trip.EndTime
	}

	points := make([]TripPoint, 0, len(locations))
	for _, l := range locations {
		points = append(points, TripPoint{
			Timestamp: l.Timestamp,
			Lat:       l.Lat,
			Lng:       l.Lng,
			Accuracy:  l.Accuracy,
			Speed:     l.Speed,
			Bearing:   l.Bearing,
		})
	}

	return TripUpload{
		TripID:    trip.ID,
		DriverID:  trip.DriverID,
		RouteID:   trip.RouteID,
		StartTime: trip.StartTime,
		EndTime:   endTime,
		Points:    points,
	}
}

// TripSyncedEvent is broadcast to dispatchers when an upload is accepted
type TripSyncedEvent struct {
	TripID     string `json:"trip_id"`
	DriverID   string `json:"driver_id"`
	RouteID    string `json:"route_id"`
	StartTime  int64  `json:"start_time"`
	EndTime    int64  `json:"end_time"`
	PointCount int    `json:"point_count"`
	ReceivedAt int64  `json:"received_at"`
}

// UploadedTripSummary is an accepted upload as listed on the dispatcher feed
type UploadedTripSummary struct {
	TripID     string `json:"trip_id" db:"trip_id"`
	DriverID   string `json:"driver_id" db:"driver_id"`
	DriverName string `json:"driver_name" db:"driver_name"`
	RouteID    string `json:"route_id" db:"route_id"`
	StartTime  int64  `json:"start_time" db:"start_time"`
	EndTime    int64  `json:"end_time" db:"end_time"`
	PointCount int    `json:"point_count" db:"point_count"`
	ReceivedAt int64  `json:"received_at" db:"received_at"`
}
