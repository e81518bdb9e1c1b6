package handlers

import (
	"net/http"

	"busdriver/internal/middleware"
	"busdriver/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// GetDriver returns a driver profile. Drivers may only read their own.
func GetDriver(store Store, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetDriverFromContext(r)
		if !ok {
			utils.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		id := chi.URLParam(r, "id")
		if claims.Role != middleware.RoleDispatcher && claims.DriverID != id {
			utils.Error(w, http.StatusForbidden, "Forbidden")
			return
		}

		driver, err := store.GetDriver(r.Context(), id)
		if err != nil {
			log.Errorw("❌ Failed to load driver", "driver_id", id, "error", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to load driver")
			return
		}
		if driver == nil {
			utils.Error(w, http.StatusNotFound, "Driver not found")
			return
		}

		utils.Success(w, driver.ToProfile())
	}
}

// GetRoutes returns the full route catalog
func GetRoutes(store Store, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routes, err := store.ListRoutes(r.Context())
		if err != nil {
			log.Errorw("❌ Failed to list routes", "error", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to load routes")
			return
		}

		utils.Success(w, routes)
	}
}
