// Package server wires HTTP handlers into a ServeMux for the chat
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/rs/cors"
)

// SetupRoutes configures the application routes and wraps them in CORS
// handling restricted to the hub's allowed origins.
func SetupRoutes(hub *Hub, metrics *Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", RootHandler)
	mux.HandleFunc("/health", HealthHandler(hub))
	mux.HandleFunc("/ws", hub.ServeWS)
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}

	return cors.New(cors.Options{
		AllowedOrigins: hub.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	}).Handler(mux)
}
