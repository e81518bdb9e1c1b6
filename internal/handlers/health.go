package handlers

import (
	"context"
	"net/http"
	"time"

	"busdriver/pkg/utils"
)

// Pinger is satisfied by *sqlx.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// FeedCounter reports how many live feed connections are open
type FeedCounter interface {
	GetClientCount() int
}

// Health reports whether the server and its database are reachable, and
// how many clients are on the live feed
func Health(db Pinger, feed FeedCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		body := map[string]interface{}{"status": "ok"}
		if feed != nil {
			body["live_clients"] = feed.GetClientCount()
		}

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				body["status"] = "degraded"
				body["database"] = "unreachable"
				utils.JSON(w, http.StatusServiceUnavailable, body)
				return
			}
		}
		utils.Success(w, body)
	}
}
