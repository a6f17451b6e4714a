package server

import (
	"net/http"
	"time"

	"github.com/restakelabs/risk-oracle/internal/api"
)

var startTime = time.Now()

// handleHealth is a liveness probe
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSystemStatus reports basic process information
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(startTime).Seconds()),
	})
}
