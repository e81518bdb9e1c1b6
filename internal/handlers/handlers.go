// Package handlers implements the sync backend's HTTP endpoints.
package handlers

import (
	"context"

	"busdriver/internal/models"
)

// Store is the persistence the handlers need. *database.Store implements it.
type Store interface {
	GetDriver(ctx context.Context, id string) (*models.BackendDriver, error)
	ListRoutes(ctx context.Context) ([]models.RouteDTO, error)
	SaveTripUpload(ctx context.Context, up models.TripUpload, receivedAt int64) (duplicate bool, err error)
	ListRecentUploads(ctx context.Context, limit int) ([]models.UploadedTripSummary, error)
	SaveFCMToken(ctx context.Context, driverID, token, deviceType string, now int64) error
	GetFCMTokens(ctx context.Context, driverID string) ([]string, error)
	DeleteFCMTokens(ctx context.Context, tokens []string) error
}

// Broadcaster pushes live events to connected websocket clients
type Broadcaster interface {
	BroadcastTripSynced(event models.TripSyncedEvent) int
}

// Notifier sends push notifications and returns the tokens FCM no longer accepts
type Notifier interface {
	NotifyTripSynced(ctx context.Context, tokens []string, event models.TripSyncedEvent) (stale []string, err error)
}
