package home

import (
	"github.com/go-chi/chi/v5"
)

// SetupRoutes configures routes for the home feature.
func SetupRoutes(router chi.Router, handlers *Handlers) error {
	router.Get("/", handlers.HomePage)
	router.Get("/doctor/{doctorID}/metrics", handlers.DoctorMetrics)

	return nil
}
