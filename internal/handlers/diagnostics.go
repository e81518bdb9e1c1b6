package handlers

import (
	"net/http"
	"strings"

	"busdriver/internal/middleware"
	"busdriver/pkg/utils"

	"go.uber.org/zap"
)

// DiagnosticLog is a log line forwarded by a driver agent
type DiagnosticLog struct {
	Timestamp string                 `json:"timestamp"`
	Context   string                 `json:"context"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data"`
}

// ReceiveDiagnosticLog writes an agent's diagnostic log into the server log
func ReceiveDiagnosticLog(log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var entry DiagnosticLog
		if err := utils.DecodeJSON(w, r, &entry); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		driverID := ""
		if claims, ok := middleware.GetDriverFromContext(r); ok {
			driverID = claims.DriverID
		}

		fields := []interface{}{
			"driver_id", driverID,
			"context", entry.Context,
			"agent_timestamp", entry.Timestamp,
		}
		if len(entry.Data) > 0 {
			fields = append(fields, "data", entry.Data)
		}

		switch strings.ToUpper(entry.Level) {
		case "ERROR":
			log.Errorw("🔴 Agent diagnostic: "+entry.Message, fields...)
		case "WARNING", "WARN":
			log.Warnw("🟡 Agent diagnostic: "+entry.Message, fields...)
		default:
			log.Infow("🔵 Agent diagnostic: "+entry.Message, fields...)
		}

		utils.Success(w, map[string]string{"status": "received"})
	}
}
