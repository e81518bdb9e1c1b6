package models

import (
	"time"
)

// TripStatus represents where a trip is in its lifecycle
type TripStatus string

const (
	TripStatusActive    TripStatus = "ACTIVE"    // Recording samples
	TripStatusCompleted TripStatus = "COMPLETED" // Ended, stats snapshotted, waiting for upload
	TripStatusSynced    TripStatus = "SYNCED"    // Uploaded, raw samples removed
)

// ParseTripStatus converts a stored status string into a TripStatus
func ParseTripStatus(s string) (TripStatus, bool) {
	switch TripStatus(s) {
	case TripStatusActive, TripStatusCompleted, TripStatusSynced:
		return TripStatus(s), true
	}
	return "", false
}

// CanTransitionTo reports whether moving from s to next is a forward step.
// ACTIVE -> COMPLETED -> SYNCED, nothing else.
func (s TripStatus) CanTransitionTo(next TripStatus) bool {
	switch s {
	case TripStatusActive:
		return next == TripStatusCompleted
	case TripStatusCompleted:
		return next == TripStatusSynced
	}
	return false
}

// Trip represents a recorded driving session on a route.
// All timestamps are epoch milliseconds.
type Trip struct {
	ID            string     `json:"id" db:"id"`
	DriverID      string     `json:"driver_id" db:"driver_id"`
	RouteID       string     `json:"route_id" db:"route_id"`
	StartTime     int64      `json:"start_time" db:"start_time"`
	EndTime       *int64     `json:"end_time" db:"end_time"`
	Status        TripStatus `json:"status" db:"status"`
	CreatedAt     int64      `json:"created_at" db:"created_at"`
	UpdatedAt     int64      `json:"updated_at" db:"updated_at"`
	LocationCount int        `json:"location_count" db:"location_count"` // Snapshotted at completion
	FirstPointAt  *int64     `json:"first_point_at" db:"first_point_at"`
	LastPointAt   *int64     `json:"last_point_at" db:"last_point_at"`
}

// Duration returns the time between start and end, or zero while the trip is still active
func (t *Trip) Duration() time.Duration {
	if t.EndTime == nil || *t.EndTime < t.StartTime {
		return 0
	}
	return time.Duration(*t.EndTime-t.StartTime) * time.Millisecond
}

// TripStats is the COUNT/MIN/MAX aggregate over a trip's samples
type TripStats struct {
	Count   int    `db:"cnt"`
	FirstAt *int64 `db:"first_at"`
	LastAt  *int64 `db:"last_at"`
}

// TripDetails is a trip plus the sample statistics shown on the details screen
type TripDetails struct {
	Trip          Trip   `json:"trip"`
	LocationCount int    `json:"location_count"`
	FirstPointAt  *int64 `json:"first_point_at"`
	LastPointAt   *int64 `json:"last_point_at"`
}

// NowMillis returns the current wall clock time in epoch milliseconds
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Int64Ptr returns a pointer to v
func Int64Ptr(v int64) *int64 {
	return &v
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
