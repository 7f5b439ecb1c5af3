package http

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jobflow-backend/internal/handlers"
	"jobflow-backend/internal/middleware"
)

func NewRouter(
	jobHandler *handlers.JobHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	// Runs after route matching so labels use the route template
	r.Use(middleware.MetricsMiddleware)

	// Protected API routes - Order jobs and file tracking
	ordersAPI := r.PathPrefix("/api/orders/{id:[0-9]+}").Subrouter()
	ordersAPI.Use(authMiddleware.Authenticate)
	RegisterJobRoutes(ordersAPI, jobHandler)

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// RegisterJobRoutes mounts the job endpoints on a router scoped to /api/orders/{id}
func RegisterJobRoutes(r *mux.Router, h *handlers.JobHandler) {
	r.HandleFunc("/jobs", h.NewJob).Methods("POST")
	r.HandleFunc("/files/resume", h.ResumeFile).Methods("POST")
	r.HandleFunc("/files/pause", h.PauseFile).Methods("POST")
	r.HandleFunc("/files/finish", h.FinishFile).Methods("POST")
	r.HandleFunc("/files/cancel", h.CancelFile).Methods("POST")
	r.HandleFunc("/files/transfer", h.TransferFile).Methods("POST")
	r.HandleFunc("/available-files", h.ListAvailableFiles).Methods("GET")
	r.HandleFunc("/progress", h.GetProgress).Methods("GET")
}
