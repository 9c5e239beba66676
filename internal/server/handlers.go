// Package server exposes HTTP handlers for health checks alongside the
// WebSocket endpoint served by the Hub.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// RootHandler responds with a plain text banner so load balancers and humans
// can tell the server is up.
func RootHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "GoChat server is running!")
}

type healthResponse struct {
	Status string `json:"status"`
	Stats
}

// HealthHandler reports the hub's session counts as JSON.
func HealthHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(healthResponse{Status: "ok", Stats: hub.Stats()}); err != nil {
			hub.log.Warn("writing health response", "err", err)
		}
	}
}
