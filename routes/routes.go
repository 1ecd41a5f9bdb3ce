package routes

import (
	"net/http"

	"github.com/Dosada05/matchday-system/handlers"
	"github.com/Dosada05/matchday-system/metrics"
	"github.com/Dosada05/matchday-system/middleware"
	"github.com/Dosada05/matchday-system/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

func SetupRoutes(
	router *chi.Mux,
	authHandler *handlers.AuthHandler,
	teamHandler *handlers.TeamHandler,
	scheduleHandler *handlers.ScheduleHandler,
	tournamentHandler *handlers.TournamentHandler,
	webSocketHandler *handlers.WebSocketHandler,
	m *metrics.Metrics,
	jwtSecret string,
	corsAllowedOrigins []string,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate([]byte(jwtSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"available"}`))
	})
	router.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)

		// Создание новых администраторов доступно только текущим.
		// Первого администратора заводит schedctl admin create.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Authorize(models.RoleAdmin))

			r.Post("/register", authHandler.Register)
		})
	})

	router.Route("/teams", func(r chi.Router) {
		// Публичные маршруты для просмотра команд
		r.Get("/", teamHandler.ListBySubdivision)
		r.Get("/{teamID}", teamHandler.GetTeamByID)

		// Защищенные маршруты только для администраторов
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Authorize(models.RoleAdmin))

			r.Post("/", teamHandler.CreateTeam)
		})
	})

	router.Route("/schedule", func(r chi.Router) {
		// Публичные маршруты для просмотра расписания
		r.Get("/", scheduleHandler.ListFixtures)
		r.Get("/summary", scheduleHandler.GetSummary)

		// Перегенерация - только для администраторов
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Authorize(models.RoleAdmin))

			r.Post("/regenerate", scheduleHandler.Regenerate)
		})
	})

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты для просмотра турниров
		r.Get("/", tournamentHandler.ListTournaments)
		r.Get("/{tournamentID}", tournamentHandler.GetTournamentByID)
		r.Get("/{tournamentID}/bracket", tournamentHandler.ListBracket)

		// Защищенные маршруты только для администраторов
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Authorize(models.RoleAdmin))

			r.Post("/", tournamentHandler.CreateTournament)
			r.Post("/{tournamentID}/entries", tournamentHandler.RegisterEntry)
			r.Post("/{tournamentID}/autofill", tournamentHandler.TriggerAutoFill)
		})
	})

	router.Route("/ws", func(r chi.Router) {
		r.Get("/schedule/{division}/{subdivision}", webSocketHandler.ServeScheduleWs)
		r.Get("/tournaments/{tournamentID}", webSocketHandler.ServeTournamentWs)
	})
}
