package tracking

import (
	"math"
	"sync"
	"time"
)

const (
	// DefaultMinDelta is the distance (meters) a fix must move to be kept
	DefaultMinDelta = 1.0

	// DefaultMaxSilence keeps a stationary fix once this much time passed
	// since the last kept one
	DefaultMaxSilence = 5 * time.Second

	// MaxAccuracy rejects fixes with a worse horizontal accuracy (meters)
	MaxAccuracy = 100.0
)

// Filter drops inaccurate fixes and fixes that barely moved
type Filter struct {
	MinDelta   float64
	MaxSilence time.Duration

	mu    sync.Mutex
	last  *Fix
	stats FilterStats
}

// FilterStats counts filter decisions
type FilterStats struct {
	Total             int64
	Kept              int64
	SkippedByAccuracy int64
	SkippedByDelta    int64
}

func NewFilter(minDelta float64, maxSilence time.Duration) *Filter {
	if minDelta < 0 {
		minDelta = DefaultMinDelta
	}
	if maxSilence <= 0 {
		maxSilence = DefaultMaxSilence
	}
	return &Filter{MinDelta: minDelta, MaxSilence: maxSilence}
}

// Accept reports whether f should be stored
func (o *Filter) Accept(f Fix) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stats.Total++

	if f.Accuracy != nil && *f.Accuracy > MaxAccuracy {
		o.stats.SkippedByAccuracy++
		return false
	}

	// First fix of the trip is always kept
	if o.last == nil {
		o.keep(f)
		return true
	}

	distance := haversineDistance(o.last.Lat, o.last.Lng, f.Lat, f.Lng)
	if distance >= o.MinDelta {
		o.keep(f)
		return true
	}

	// Time-based fallback so a parked bus still leaves a trail
	if f.Time.Sub(o.last.Time) > o.MaxSilence {
		o.keep(f)
		return true
	}

	o.stats.SkippedByDelta++
	return false
}

// Stats returns a snapshot of the counters
func (o *Filter) Stats() FilterStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

func (o *Filter) keep(f Fix) {
	o.last = &f
	o.stats.Kept++
}

// haversineDistance calculates the distance between two GPS coordinates in meters
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000.0

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// destination moves from lat/lng by distance meters along bearing degrees
func destination(lat, lng, bearing, distance float64) (float64, float64) {
	const earthRadius = 6371000.0

	lat1 := lat * math.Pi / 180
	lng1 := lng * math.Pi / 180
	brng := bearing * math.Pi / 180
	angular := distance / earthRadius

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(angular) + math.Cos(lat1)*math.Sin(angular)*math.Cos(brng))
	lng2 := lng1 + math.Atan2(math.Sin(brng)*math.Sin(angular)*math.Cos(lat1), math.Cos(angular)-math.Sin(lat1)*math.Sin(lat2))

	return lat2 * 180 / math.Pi, math.Mod(lng2*180/math.Pi+540, 360) - 180
}
