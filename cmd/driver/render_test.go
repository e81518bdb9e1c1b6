package main

import (
	"bytes"
	"testing"
	"time"

	"busdriver/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestFormatMillis(t *testing.T) {
	assert.Equal(t, "-", formatMillis(nil))

	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local).UnixMilli()
	assert.Equal(t, "2024-03-09 14:05:07", formatMillis(&ts))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "-", formatDuration(0))
	assert.Equal(t, "1m31s", formatDuration(90*time.Second+600*time.Millisecond))
}

func TestPrintTrips(t *testing.T) {
	var buf bytes.Buffer
	printTrips(&buf, nil)
	assert.Contains(t, buf.String(), "No trips")

	buf.Reset()
	printTrips(&buf, []models.Trip{{ID: "trip-1", RouteID: "route-101", StartTime: 0, EndTime: models.Int64Ptr(60_000), Status: models.TripStatusSynced}})
	assert.Contains(t, buf.String(), "trip-1")
	assert.Contains(t, buf.String(), "1m0s")
	assert.Contains(t, buf.String(), "SYNCED")
}

func TestStops(t *testing.T) {
	assert.Equal(t, "-", stops(models.Route{}))
	assert.Equal(t, "A → B", stops(models.Route{StartPoint: models.StringPtr("A"), EndPoint: models.StringPtr("B")}))
}
