package handlers

import (
	"net/http"
	"strings"
	"time"

	"busdriver/internal/middleware"
	"busdriver/internal/models"
	"busdriver/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Login exchanges a driver id and PIN for a signed token
func Login(store Store, jwtSecret string, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		driverID := strings.TrimSpace(req.DriverID)
		log.Infof("🔐 Login attempt for: %s", driverID)

		if jwtSecret == "" {
			log.Error("❌ JWT secret not configured")
			utils.JSON(w, http.StatusInternalServerError, models.LoginResponse{OK: false})
			return
		}

		driver, err := store.GetDriver(r.Context(), driverID)
		if err != nil {
			log.Errorw("❌ Failed to load driver", "driver_id", driverID, "error", err)
			utils.JSON(w, http.StatusInternalServerError, models.LoginResponse{OK: false})
			return
		}
		if driver == nil {
			log.Infof("❌ Driver not found: %s", driverID)
			utils.JSON(w, http.StatusUnauthorized, models.LoginResponse{OK: false})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(driver.PinHash), []byte(req.PIN)); err != nil {
			log.Infof("❌ Invalid PIN for: %s", driverID)
			utils.JSON(w, http.StatusUnauthorized, models.LoginResponse{OK: false})
			return
		}

		token, err := middleware.IssueToken(jwtSecret, middleware.DriverClaims{
			DriverID: driver.ID,
			Role:     driver.Role,
		}, time.Now())
		if err != nil {
			log.Errorw("❌ Failed to create token", "error", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to create token")
			return
		}

		log.Infof("✅ Login successful: %s (%s)", driver.ID, driver.Role)

		profile := driver.ToProfile()
		utils.Success(w, models.LoginResponse{OK: true, Token: token, Driver: &profile})
	}
}
