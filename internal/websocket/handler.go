package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"busdriver/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades an authenticated request to a live feed connection.
// Browsers cannot set headers on WebSocket requests, so the token may also
// come in the "token" query parameter.
func HandleWebSocket(hub *Hub, jwtSecret string, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var claims middleware.DriverClaims

		if tokenString := r.URL.Query().Get("token"); tokenString != "" {
			parsed, err := middleware.ParseToken(jwtSecret, tokenString)
			if err != nil {
				log.Infof("❌ Invalid token in query parameter: %v", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			claims = parsed
		} else {
			var ok bool
			claims, ok = middleware.GetDriverFromContext(r)
			if !ok {
				log.Infof("❌ No driver in context for WebSocket connection")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warnf("❌ WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(claims.DriverID, claims.Role, conn, hub, log)
		if !hub.Register(r.Context(), client) {
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}
