package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

func RegisterRoutes(r *mux.Router, ah *AdminHandler, secret string) {
	requireSecret := SharedSecretMiddleware(secret)

	r.HandleFunc("/healthz", HandleHealthz).Methods(http.MethodGet)
	r.Handle("/internal/prices", http.HandlerFunc(ah.GetPrices)).Methods(http.MethodPost)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(requireSecret)
	admin.HandleFunc("/cache/invalidate", ah.InvalidateCache).Methods(http.MethodPost)
	admin.HandleFunc("/cache/stats", ah.CacheStats).Methods(http.MethodGet)
	admin.HandleFunc("/health-check", ah.TriggerHealthCheck).Methods(http.MethodPost)
}
