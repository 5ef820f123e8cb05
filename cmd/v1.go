package main

import (
	"github.com/go-chi/chi/v5"

	"github.com/FloatCTF/cdm/middleware"
)

func NewV1Router() *chi.Mux {
	v1 := chi.NewRouter()

	// configure all endpoints
	v1.Get("/healthz", apiConfig.HandlerReadiness)

	// instances layer
	v1.Post("/instances", middleware.JWTMiddleware(apiConfig.HandlerCreateInstance))
	v1.Delete("/instances/{instance_id}", middleware.JWTMiddleware(apiConfig.HandlerDestroyInstance))
	v1.Get("/instances/challenge/{challenge_id}", middleware.JWTMiddleware(apiConfig.HandlerGetActiveInstance))

	// grading layer
	v1.Post("/submissions", middleware.JWTMiddleware(apiConfig.HandlerSubmitFlag))

	// scoreboard is public
	v1.Get("/scoreboard", apiConfig.HandlerGetScoreboard)

	// audit layer, admin only
	v1.Post("/logs/search", middleware.JWTMiddleware(apiConfig.HandlerGetLogs))

	return v1
}
