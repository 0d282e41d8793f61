package carpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/carpool/internal/cache"
	"github.com/magabrotheeeer/carpool/internal/config"
	"github.com/magabrotheeeer/carpool/internal/http/handlers/health"
	"github.com/magabrotheeeer/carpool/internal/http/middlewarectx"
	"github.com/magabrotheeeer/carpool/internal/lib/jwt"
	"github.com/magabrotheeeer/carpool/internal/lib/metrics"
	"github.com/magabrotheeeer/carpool/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/carpool/internal/lib/sl"
	"github.com/magabrotheeeer/carpool/internal/migrations"
	authservice "github.com/magabrotheeeer/carpool/internal/services/auth"
	reservationservice "github.com/magabrotheeeer/carpool/internal/services/reservation"
	tripservice "github.com/magabrotheeeer/carpool/internal/services/trip"
	userservice "github.com/magabrotheeeer/carpool/internal/services/user"
	"github.com/magabrotheeeer/carpool/internal/storage/avatar"
	"github.com/magabrotheeeer/carpool/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App HTTP API вместе с его соединениями.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New подключает хранилища и брокер, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "carpool.New"

	a := &App{logger: logger}

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.db = db

	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = repository.CheckDatabaseReady(ctx, db); err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	avatars, err := avatar.New(ctx, cfg.Avatars)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.ch, err = rabbitmq.SetupChannel(a.conn, rabbitmq.NotificationQueues())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	users := userservice.NewUserService(db, avatars, a.cache, logger)
	services := Services{
		Auth:         authservice.NewAuthService(users, jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL), a.cache, logger),
		Users:        users,
		Trips:        tripservice.NewTripService(db, a.cache, cfg.TripCacheTTL, logger),
		Reservations: reservationservice.NewReservationService(db, db, rabbitmq.NewPublisher(a.ch), a.cache, m, logger),
		Limiter:      middlewarectx.NewRateLimiter(cfg.RateLimit),
		Metrics:      m,
		Gatherer:     registry,
		Health: map[string]health.Pinger{
			"postgres": db,
			"redis":    a.cache,
		},
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, services)

	a.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return a, nil
}

// Run обслуживает запросы до отмены ctx, затем плавно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close database", sl.Err(err))
		}
	}
}
