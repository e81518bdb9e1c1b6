package services

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busdriver/internal/logging"
	"busdriver/internal/models"
)

type fakeSender struct {
	got  *messaging.MulticastMessage
	resp *messaging.BatchResponse
	err  error
}

func (f *fakeSender) SendEachForMulticast(_ context.Context, m *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	f.got = m
	return f.resp, f.err
}

var event = models.TripSyncedEvent{
	TripID:     "t1",
	DriverID:   "driver-001",
	RouteID:    "route-101",
	StartTime:  0,
	EndTime:    25 * 60 * 1000,
	PointCount: 42,
}

func TestTripSyncedMessage(t *testing.T) {
	m := tripSyncedMessage([]string{"a", "b"}, event)

	assert.Equal(t, []string{"a", "b"}, m.Tokens)
	assert.Equal(t, "Trip synced", m.Notification.Title)
	assert.Equal(t, "Your 25 min trip on route-101 was uploaded with 42 points.", m.Notification.Body)
	assert.Equal(t, "trip_synced", m.Data["type"])
	assert.Equal(t, "42", m.Data["point_count"])
}

func TestNotifyTripSynced(t *testing.T) {
	sender := &fakeSender{resp: &messaging.BatchResponse{
		SuccessCount: 2,
		Responses:    []*messaging.SendResponse{{Success: true}, {Success: true}},
	}}
	s := &FCMService{client: sender, log: logging.Nop()}

	stale, err := s.NotifyTripSynced(context.Background(), []string{"a", "b"}, event)
	require.NoError(t, err)
	assert.Empty(t, stale)
	require.NotNil(t, sender.got)
	assert.Equal(t, "t1", sender.got.Data["trip_id"])
}

func TestNotifyTripSynced_NoTokens(t *testing.T) {
	sender := &fakeSender{}
	s := &FCMService{client: sender, log: logging.Nop()}

	_, err := s.NotifyTripSynced(context.Background(), nil, event)
	require.NoError(t, err)
	assert.Nil(t, sender.got)
}

func TestNotifyTripSynced_SendError(t *testing.T) {
	s := &FCMService{client: &fakeSender{err: errors.New("quota")}, log: logging.Nop()}

	_, err := s.NotifyTripSynced(context.Background(), []string{"a"}, event)
	assert.Error(t, err)
}
