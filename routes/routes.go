package routes

import (
	"net/http"

	"github.com/Dosada05/match-arena/handlers"
	"github.com/Dosada05/match-arena/middleware"
	"github.com/Dosada05/match-arena/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	accountHandler *handlers.AccountHandler,
	matchHandler *handlers.MatchHandler,
	evidenceHandler *handlers.EvidenceHandler,
	disputeHandler *handlers.DisputeHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate([]byte(jwtSecret))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	router.Route("/users", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/me", accountHandler.Me)
		r.Get("/me/balance", accountHandler.Balance)
		r.Post("/me/telegram", accountHandler.LinkTelegram)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authorize(models.RoleAdmin))
			r.Post("/{userID}/topup", accountHandler.TopUp)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/", matchHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", matchHandler.Create)
			r.Get("/{matchID}", matchHandler.Get)
			r.Post("/{matchID}/teams", matchHandler.Join)
			r.Post("/{matchID}/teams/{teamID}/pay", matchHandler.PayEntryFee)
			r.Put("/{matchID}/room", matchHandler.SetRoom)
			r.Post("/{matchID}/start", matchHandler.Start)
			r.Post("/{matchID}/cancel", matchHandler.Cancel)

			r.Post("/{matchID}/teams/{teamID}/evidence", evidenceHandler.Submit)
			r.Get("/{matchID}/evidence", evidenceHandler.ListByMatch)

			r.Post("/{matchID}/disputes", disputeHandler.File)
			r.Get("/{matchID}/disputes", disputeHandler.ListByMatch)
		})
	})

	router.Route("/disputes", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.Authorize(models.RoleAdmin, models.RoleArbiter))

		r.Post("/{disputeID}/review", disputeHandler.MarkUnderReview)
		r.Post("/{disputeID}/resolve", disputeHandler.Resolve)
	})

	router.Get("/ws/matches/{matchID}", webSocketHandler.ServeWs)
}
