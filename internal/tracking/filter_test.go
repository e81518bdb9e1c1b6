package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixAt(sec int, lat, lng float64, accuracy float64) Fix {
	return Fix{Time: time.Unix(int64(sec), 0), Lat: lat, Lng: lng, Accuracy: &accuracy}
}

func TestFilter_RejectsPoorAccuracy(t *testing.T) {
	f := NewFilter(1, 5*time.Second)

	assert.False(t, f.Accept(fixAt(0, 37, -122, 150)))
	assert.True(t, f.Accept(fixAt(1, 37, -122, 100)))

	s := f.Stats()
	assert.Equal(t, int64(2), s.Total)
	assert.Equal(t, int64(1), s.SkippedByAccuracy)
	assert.Equal(t, int64(1), s.Kept)
}

func TestFilter_DeltaAndTimeFallback(t *testing.T) {
	f := NewFilter(10, 5*time.Second)

	assert.True(t, f.Accept(fixAt(0, 37.0, -122.0, 5)))
	// ~1 m north: too close
	assert.False(t, f.Accept(fixAt(1, 37.00001, -122.0, 5)))
	// ~111 m north: kept
	assert.True(t, f.Accept(fixAt(2, 37.001, -122.0, 5)))
	// Stationary but silent for more than 5s
	assert.True(t, f.Accept(fixAt(8, 37.001, -122.0, 5)))

	assert.Equal(t, int64(1), f.Stats().SkippedByDelta)
}

func TestFilter_FixWithoutAccuracy(t *testing.T) {
	f := NewFilter(0, 0)
	assert.True(t, f.Accept(Fix{Time: time.Unix(0, 0), Lat: 1, Lng: 1}))
}

func TestHaversineDistance(t *testing.T) {
	// One degree of latitude is ~111.2 km
	assert.InDelta(t, 111195, haversineDistance(0, 0, 1, 0), 100)
	assert.Zero(t, haversineDistance(37, -122, 37, -122))
}

func TestDestinationRoundTrip(t *testing.T) {
	lat, lng := destination(37.3352, -121.8931, 45, 1000)
	assert.InDelta(t, 1000, haversineDistance(37.3352, -121.8931, lat, lng), 1)
	assert.Greater(t, lat, 37.3352)
	assert.Greater(t, lng, -121.8931)
}
