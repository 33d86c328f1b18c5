package routes

import (
	"github.com/bekzhan-dev/tournament-platform/config"
	"github.com/bekzhan-dev/tournament-platform/handlers"
	"github.com/bekzhan-dev/tournament-platform/middleware"
	"github.com/bekzhan-dev/tournament-platform/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	Tournament  *handlers.TournamentHandler
	Participant *handlers.ParticipantHandler
	Match       *handlers.MatchHandler
	WebSocket   *handlers.WebSocketHandler
}

func InitRoutes(cfg *config.Config, h Handlers, authLimiter *middleware.AttemptStore) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(cfg.JWTSecretKey)
	organizerOnly := middleware.RequireRole(models.RoleOrganizer)

	router.Get("/swagger/*", httpSwagger.WrapHandler)

	router.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(authLimiter))
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
	})

	router.Route("/tournaments", func(r chi.Router) {
		// Public read access.
		r.Get("/", h.Tournament.List)
		r.Get("/{tournamentID}", h.Tournament.Get)
		r.Get("/{tournamentID}/participants", h.Participant.List)
		r.Get("/{tournamentID}/matches", h.Match.ListByTournament)
		r.Get("/{tournamentID}/standings", h.Tournament.ListStandings)

		// Any authenticated user may enter a tournament.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/{tournamentID}/participants", h.Participant.Register)
		})

		// Tournament management, organizers only.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOnly)

			r.Post("/", h.Tournament.Create)
			r.Patch("/{tournamentID}", h.Tournament.Update)
			r.Patch("/{tournamentID}/status", h.Tournament.UpdateStatus)
			r.Delete("/{tournamentID}", h.Tournament.Delete)
			r.Post("/{tournamentID}/logo", h.Tournament.UploadLogo)
			r.Post("/{tournamentID}/seeds/shuffle", h.Participant.ShuffleSeeds)
			r.Put("/{tournamentID}/seeds", h.Participant.SetSeeds)
			r.Post("/{tournamentID}/promote", h.Tournament.PromoteQualifiers)
		})
	})

	router.Route("/participants", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Delete("/{participantID}", h.Participant.Withdraw)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", h.Match.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOnly)
			r.Post("/{matchID}/result", h.Match.SubmitResult)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	return router
}
