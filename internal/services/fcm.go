package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"busdriver/internal/models"
)

// multicastSender is the part of messaging.Client the service uses
type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMService handles Firebase Cloud Messaging
type FCMService struct {
	client multicastSender
	log    *zap.SugaredLogger
}

// NewFCMService creates a new FCM service instance from a credentials file
func NewFCMService(ctx context.Context, credentialsFile string, log *zap.SugaredLogger) (*FCMService, error) {
	return newFCMService(ctx, option.WithCredentialsFile(credentialsFile), log)
}

// NewFCMServiceFromBase64 creates a new FCM service instance from base64-encoded credentials
// This is useful for cloud deployments where you can't upload files easily
func NewFCMServiceFromBase64(ctx context.Context, credentialsBase64 string, log *zap.SugaredLogger) (*FCMService, error) {
	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}
	return newFCMService(ctx, option.WithCredentialsJSON(credentialsJSON), log)
}

func newFCMService(ctx context.Context, opt option.ClientOption, log *zap.SugaredLogger) (*FCMService, error) {
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client, log: log}, nil
}

// NotifyTripSynced tells the driver's devices that a trip reached the server.
// It returns the tokens FCM reported as no longer registered.
func (s *FCMService) NotifyTripSynced(ctx context.Context, tokens []string, event models.TripSyncedEvent) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	response, err := s.client.SendEachForMulticast(ctx, tripSyncedMessage(tokens, event))
	if err != nil {
		return nil, fmt.Errorf("error sending multicast message: %w", err)
	}

	var stale []string
	for i, r := range response.Responses {
		if r != nil && r.Error != nil && messaging.IsRegistrationTokenNotRegistered(r.Error) && i < len(tokens) {
			stale = append(stale, tokens[i])
		}
	}

	s.log.Infof("✅ Trip synced push sent: %d success, %d failures", response.SuccessCount, response.FailureCount)
	return stale, nil
}

func tripSyncedMessage(tokens []string, event models.TripSyncedEvent) *messaging.MulticastMessage {
	minutes := time.Duration(event.EndTime-event.StartTime) * time.Millisecond / time.Minute
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: "Trip synced",
			Body:  fmt.Sprintf("Your %d min trip on %s was uploaded with %d points.", minutes, event.RouteID, event.PointCount),
		},
		Data: map[string]string{
			"type":        "trip_synced",
			"trip_id":     event.TripID,
			"route_id":    event.RouteID,
			"point_count": strconv.Itoa(event.PointCount),
		},
		Android: &messaging.AndroidConfig{
			Priority: "normal",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}
}
