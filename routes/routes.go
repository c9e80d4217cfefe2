package routes

import (
	"github.com/Dosada05/federation-system/handlers"
	"github.com/Dosada05/federation-system/middleware"
	"github.com/Dosada05/federation-system/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes wires the HTTP surface onto the router.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	registrationHandler *handlers.RegistrationHandler,
	playerHandler *handlers.PlayerHandler,
	adminHandler *handlers.AdminHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	// Public occupancy reads.
	router.Get("/categories/{categoryID}/occupancy", registrationHandler.CategoryOccupancy)
	router.Get("/tournaments/{tournamentID}/occupancy", registrationHandler.TournamentOccupancy)

	// Realtime occupancy feed; token is usually carried in the query string by
	// browser clients, so the socket stays public like the occupancy reads.
	router.Get("/ws/categories/{categoryID}", webSocketHandler.ServeWs)

	// Player-facing registration flow.
	router.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/tournaments/{tournamentID}/categories/{categoryID}/registrations", registrationHandler.Submit)
		r.Delete("/registrations/{registrationID}", registrationHandler.Withdraw)
		r.Get("/registrations/{registrationID}", registrationHandler.Get)
		r.Get("/registrations/{registrationID}/history", registrationHandler.History)
		r.Get("/categories/{categoryID}/partners", playerHandler.SearchPartners)
	})

	// Payment collaborator callbacks.
	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.Authorize(string(models.RolePayment), string(models.RoleAdmin)))

		r.Post("/payments/registrations/{registrationID}", registrationHandler.RecordPayment)
	})

	// Admin surface.
	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.Authorize(string(models.RoleAdmin)))

		r.Get("/categories/{categoryID}/registrations", adminHandler.ListCategoryRegistrations)
		r.Post("/categories/{categoryID}/audit-export", adminHandler.ExportAudit)
	})
}
