package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"busdriver/internal/middleware"
	"busdriver/internal/models"
	"busdriver/pkg/utils"

	"go.uber.org/zap"
)

// notifyTimeout bounds the background push after an upload
const notifyTimeout = 15 * time.Second

// UploadTrip accepts a completed trip from the driver agent.
// Uploads are idempotent on trip_id: a repeat returns 200 with duplicate set.
func UploadTrip(store Store, hub Broadcaster, notifier Notifier, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetDriverFromContext(r)
		if !ok {
			utils.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var up models.TripUpload
		if err := utils.DecodeJSON(w, r, &up); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if msg := validateUpload(up); msg != "" {
			log.Infow("❌ Rejected trip upload", "trip_id", up.TripID, "reason", msg)
			utils.Error(w, http.StatusBadRequest, msg)
			return
		}

		if up.DriverID != claims.DriverID {
			log.Warnw("⚠️  Trip upload for another driver", "trip_id", up.TripID, "token_driver", claims.DriverID, "trip_driver", up.DriverID)
			utils.Error(w, http.StatusForbidden, "Trip belongs to another driver")
			return
		}

		receivedAt := models.NowMillis()
		duplicate, err := store.SaveTripUpload(r.Context(), up, receivedAt)
		if err != nil {
			log.Errorw("❌ Failed to save trip upload", "trip_id", up.TripID, "error", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to save trip")
			return
		}

		if duplicate {
			log.Infow("🔁 Duplicate trip upload", "trip_id", up.TripID, "driver_id", up.DriverID)
			utils.Success(w, models.UploadResult{TripID: up.TripID, Duplicate: true})
			return
		}

		log.Infow("✅ Trip uploaded", "trip_id", up.TripID, "driver_id", up.DriverID, "points", len(up.Points))

		event := models.TripSyncedEvent{
			TripID:     up.TripID,
			DriverID:   up.DriverID,
			RouteID:    up.RouteID,
			StartTime:  up.StartTime,
			EndTime:    up.EndTime,
			PointCount: len(up.Points),
			ReceivedAt: receivedAt,
		}

		if hub != nil {
			dispatchers := hub.BroadcastTripSynced(event)
			log.Debugf("📡 trip_synced sent to %d dispatcher(s)", dispatchers)
		}

		if notifier != nil {
			ctx := context.WithoutCancel(r.Context())
			go notifyDriver(ctx, store, notifier, event, log)
		}

		utils.JSON(w, http.StatusCreated, models.UploadResult{TripID: up.TripID})
	}
}

// validateUpload returns a message describing the first problem, or ""
func validateUpload(up models.TripUpload) string {
	if strings.TrimSpace(up.TripID) == "" {
		return "trip_id is required"
	}
	if strings.TrimSpace(up.RouteID) == "" {
		return "route_id is required"
	}
	if up.EndTime < up.StartTime {
		return "end_time is before start_time"
	}
	for i, p := range up.Points {
		if !models.ValidCoordinates(p.Lat, p.Lng) {
			return "point " + strconv.Itoa(i) + " has invalid coordinates"
		}
	}
	return ""
}

func notifyDriver(ctx context.Context, store Store, notifier Notifier, event models.TripSyncedEvent, log *zap.SugaredLogger) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	tokens, err := store.GetFCMTokens(ctx, event.DriverID)
	if err != nil {
		log.Warnw("⚠️  Failed to load FCM tokens", "driver_id", event.DriverID, "error", err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	stale, err := notifier.NotifyTripSynced(ctx, tokens, event)
	if err != nil {
		log.Warnw("⚠️  Failed to send FCM notification", "driver_id", event.DriverID, "error", err)
	}
	if len(stale) > 0 {
		if err := store.DeleteFCMTokens(ctx, stale); err != nil {
			log.Warnw("⚠️  Failed to delete stale FCM tokens", "error", err)
			return
		}
		log.Infof("🧹 Removed %d stale FCM token(s) for %s", len(stale), event.DriverID)
	}
}

// RecentUploads lists the latest accepted trips for dispatchers
func RecentUploads(store Store, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 500 {
				utils.Error(w, http.StatusBadRequest, "limit must be between 1 and 500")
				return
			}
			limit = n
		}

		trips, err := store.ListRecentUploads(r.Context(), limit)
		if err != nil {
			log.Errorw("❌ Failed to list uploads", "error", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to load uploads")
			return
		}

		utils.Success(w, trips)
	}
}
