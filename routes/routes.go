package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Dosada05/tournament-registry/docs" // регистрирует swagger-документ
	"github.com/Dosada05/tournament-registry/handlers"
	"github.com/Dosada05/tournament-registry/middleware"
	"github.com/Dosada05/tournament-registry/models"
)

// Handlers — все HTTP обработчики, которые подключает роутер.
type Handlers struct {
	Health       *handlers.HealthHandler
	Tournament   *handlers.TournamentHandler
	Registration *handlers.RegistrationHandler
	Match        *handlers.MatchHandler
	Team         *handlers.TeamHandler
	Dashboard    *handlers.DashboardHandler
	WebSocket    *handlers.WebSocketHandler
}

type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// SetupRoutes собирает роутер API.
func SetupRoutes(router chi.Router, auth *middleware.Authenticator, h Handlers, opts Options) {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", h.Health.Health)
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// websocket живёт дольше любого таймаута запроса
	router.Get("/ws/tournaments/{id}", h.WebSocket.ServeWs)

	router.Group(func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(chiMiddleware.Timeout(opts.RequestTimeout))
		}

		r.Route("/tournaments", func(r chi.Router) {
			// Публичные маршруты для просмотра турниров
			r.Get("/", h.Tournament.ListHandler)
			r.Get("/{id}", h.Tournament.GetByIDHandler)
			r.Get("/{id}/status", h.Tournament.StatusHandler)
			r.Get("/{id}/matches", h.Tournament.ListTournamentMatchesHandler)
			r.Get("/{id}/calendar.ics", h.Tournament.CalendarHandler)

			r.Group(func(r chi.Router) {
				r.Use(auth.Authenticate)

				r.With(middleware.Authorize(models.RoleOrganizer, models.RoleAdmin)).Post("/", h.Tournament.CreateHandler)
				r.Put("/{id}", h.Tournament.UpdateHandler)
				r.Delete("/{id}", h.Tournament.DeleteHandler)

				r.Post("/{id}/registrations", h.Registration.Register)
				r.Get("/{id}/registrations", h.Registration.ListForTournament)
				r.Post("/{id}/registrations/export", h.Registration.Export)

				r.Post("/{id}/matches", h.Match.Schedule)
			})
		})

		r.Get("/teams/{team}/practices", h.Team.ListPractices)
		r.Get("/teams/{team}/calendar.ics", h.Team.Calendar)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Route("/registrations/{id}", func(r chi.Router) {
				r.Put("/", h.Registration.UpdateDetails)
				r.Delete("/", h.Registration.Delete)
				r.Patch("/status", h.Registration.UpdateStatus)
			})

			r.Route("/matches/{id}", func(r chi.Router) {
				r.Patch("/status", h.Match.UpdateStatus)
				r.Post("/result", h.Match.RecordResult)
			})

			r.Post("/practices", h.Team.SchedulePractice)
			r.Delete("/practices/{id}", h.Team.CancelPractice)

			r.Route("/me", func(r chi.Router) {
				r.Get("/registrations", h.Registration.ListMine)
				r.Get("/stats", h.Dashboard.PlayerStats)
			})

			r.Route("/organizer", func(r chi.Router) {
				r.Use(middleware.Authorize(models.RoleOrganizer, models.RoleAdmin))
				r.Get("/activities", h.Dashboard.Activities)
				r.Get("/stats", h.Dashboard.Stats)
				r.Get("/dashboard", h.Dashboard.Dashboard)
				r.Get("/registrations", h.Registration.ListForOrganizer)
			})
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"the requested resource could not be found"}` + "\n"))
	})
}
