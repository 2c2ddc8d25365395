package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/bracketforge/tournament-engine/handlers"
	"github.com/bracketforge/tournament-engine/middleware"
)

func SetupRoutes(
	router *chi.Mux,
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	disputeHandler *handlers.DisputeHandler,
	webSocketHandler *handlers.WebSocketHandler,
	jwtSecret string,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.List)
		r.Get("/{id}", tournamentHandler.Get)
		r.Get("/{id}/bracket", tournamentHandler.GetBracket)
		r.Get("/{id}/standings", tournamentHandler.GetStandings)
		r.Get("/{id}/transitions", tournamentHandler.ListTransitions)
		r.Get("/{id}/disputes", disputeHandler.ListOpen)

		r.Post("/{id}/registrations", tournamentHandler.RegisterParticipant)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", tournamentHandler.Create)
			r.Post("/{id}/publish", tournamentHandler.Publish)
			r.Post("/{id}/open-registration", tournamentHandler.OpenRegistration)
			r.Post("/{id}/close-registration", tournamentHandler.CloseRegistration)
			r.Post("/{id}/start-check-in", tournamentHandler.StartCheckIn)
			r.Post("/{id}/go-live", tournamentHandler.GoLive)
			r.Post("/{id}/archive", tournamentHandler.Archive)
			r.Post("/{id}/cancel", tournamentHandler.Cancel)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{id}", matchHandler.Get)
		r.Post("/{id}/check-in", matchHandler.CheckIn)
		r.Post("/{id}/results", matchHandler.SubmitResult)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/{id}/start", matchHandler.Start)
		})
	})

	router.Route("/disputes", func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/{id}/resolve", disputeHandler.Resolve)
	})

	router.Get("/ws/tournaments/{id}", webSocketHandler.ServeTournament)

	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}
