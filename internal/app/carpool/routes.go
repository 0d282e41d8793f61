// Package carpool собирает HTTP API сервиса совместных поездок.
package carpool

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/carpool/internal/http/handlers/auth/jwtvalid"
	"github.com/magabrotheeeer/carpool/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/carpool/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/carpool/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/carpool/internal/http/handlers/health"
	"github.com/magabrotheeeer/carpool/internal/http/handlers/reservation/cancel"
	"github.com/magabrotheeeer/carpool/internal/http/handlers/reservation/reserve"
	tripcreate "github.com/magabrotheeeer/carpool/internal/http/handlers/trip/create"
	tripread "github.com/magabrotheeeer/carpool/internal/http/handlers/trip/read"
	tripremove "github.com/magabrotheeeer/carpool/internal/http/handlers/trip/remove"
	"github.com/magabrotheeeer/carpool/internal/http/handlers/trip/search"
	tripupdate "github.com/magabrotheeeer/carpool/internal/http/handlers/trip/update"
	usercreate "github.com/magabrotheeeer/carpool/internal/http/handlers/user/create"
	"github.com/magabrotheeeer/carpool/internal/http/handlers/user/list"
	"github.com/magabrotheeeer/carpool/internal/http/handlers/user/me"
	userread "github.com/magabrotheeeer/carpool/internal/http/handlers/user/read"
	userremove "github.com/magabrotheeeer/carpool/internal/http/handlers/user/remove"
	userupdate "github.com/magabrotheeeer/carpool/internal/http/handlers/user/update"
	"github.com/magabrotheeeer/carpool/internal/http/middlewarectx"
	"github.com/magabrotheeeer/carpool/internal/lib/metrics"
	"github.com/magabrotheeeer/carpool/internal/models"
	authservice "github.com/magabrotheeeer/carpool/internal/services/auth"
	reservationservice "github.com/magabrotheeeer/carpool/internal/services/reservation"
	tripservice "github.com/magabrotheeeer/carpool/internal/services/trip"
	userservice "github.com/magabrotheeeer/carpool/internal/services/user"
)

// Services зависимости обработчиков.
type Services struct {
	Auth         *authservice.AuthService
	Users        *userservice.UserService
	Trips        *tripservice.TripService
	Reservations *reservationservice.ReservationService
	Limiter      *middlewarectx.RateLimiter
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	Health       map[string]health.Pinger
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services) {
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		s.Metrics.Middleware,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(s.Limiter, logger))
			r.Post("/register", register.New(logger, s.Auth).ServeHTTP)
			r.Post("/login", login.New(logger, s.Auth).ServeHTTP)
		})
		r.Get("/jwt-valid", jwtvalid.New(logger, s.Auth).ServeHTTP)
		r.Get("/trips", search.New(logger, s.Trips).ServeHTTP)
		r.Get("/trips/{id}", tripread.New(logger, s.Trips).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))
			r.Post("/logout", logout.New(logger, s.Auth).ServeHTTP)
			r.Get("/me", me.New(logger, s.Users).ServeHTTP)

			r.Post("/trips", tripcreate.New(logger, s.Trips).ServeHTTP)
			r.Put("/trips/{id}", tripupdate.New(logger, s.Trips).ServeHTTP)
			r.Delete("/trips/{id}", tripremove.New(logger, s.Trips).ServeHTTP)

			r.Post("/reservation", reserve.New(logger, s.Reservations).ServeHTTP)
			r.Post("/cancel", cancel.New(logger, s.Reservations).ServeHTTP)

			// Только для администраторов
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(models.RoleAdmin, logger))
				r.Get("/users", list.New(logger, s.Users).ServeHTTP)
				r.Post("/users", usercreate.New(logger, s.Users).ServeHTTP)
				r.Get("/users/{id}", userread.New(logger, s.Users).ServeHTTP)
				r.Put("/users/{id}", userupdate.New(logger, s.Users).ServeHTTP)
				r.Delete("/users/{id}", userremove.New(logger, s.Users).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, s.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
