package httpapi

import (
	"net/http"
	"time"
)

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   "pong",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "using_memory"
	if s.db != nil {
		dbStatus = "ok"
		if err := s.db.PingContext(r.Context()); err != nil {
			dbStatus = "error: " + err.Error()
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"health":  "ok",
		"db":      dbStatus,
		"time":    time.Now().Format(time.RFC3339),
	})
}
