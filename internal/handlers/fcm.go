package handlers

import (
	"net/http"
	"strings"

	"busdriver/internal/middleware"
	"busdriver/internal/models"
	"busdriver/pkg/utils"

	"go.uber.org/zap"
)

// RegisterFCMToken stores a push token for the authenticated driver
func RegisterFCMToken(store Store, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetDriverFromContext(r)
		if !ok {
			utils.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req models.FCMTokenRequest
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req.Token = strings.TrimSpace(req.Token)
		if req.Token == "" {
			utils.Error(w, http.StatusBadRequest, "token is required")
			return
		}

		switch req.DeviceType {
		case "ios", "android", "agent":
		default:
			utils.Error(w, http.StatusBadRequest, "Invalid device_type (must be 'ios', 'android' or 'agent')")
			return
		}

		if err := store.SaveFCMToken(r.Context(), claims.DriverID, req.Token, req.DeviceType, models.NowMillis()); err != nil {
			log.Errorw("❌ Error registering FCM token", "error", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to register FCM token")
			return
		}

		log.Infof("📱 FCM token registered: %s (%s)", claims.DriverID, req.DeviceType)

		utils.Success(w, map[string]interface{}{
			"success": true,
			"message": "FCM token registered successfully",
		})
	}
}
