// Package services реализует бронирование мест в поездках и отмену брони.
// После фиксации транзакции пассажиру публикуется уведомление; сбой публикации
// не откатывает бронирование.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/carpool/internal/cache"
	"github.com/magabrotheeeer/carpool/internal/lib/metrics"
	"github.com/magabrotheeeer/carpool/internal/lib/sl"
	"github.com/magabrotheeeer/carpool/internal/models"
)

// Repository атомарные операции бронирования.
type Repository interface {
	Reserve(ctx context.Context, userID, tripID int64) (*models.Trip, error)
	Cancel(ctx context.Context, userID, tripID int64) (*models.Trip, error)
}

// Users источник адреса для уведомления.
type Users interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// Publisher отправляет события в брокер сообщений.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Cache сбрасывает закешированную поездку после изменения числа мест.
type Cache interface {
	Invalidate(ctx context.Context, key string) error
}

// Recorder принимает исходы операций для метрик.
type Recorder interface {
	ReservationOutcome(outcome string)
	NotificationPublished(kind string, err error)
}

// ReservationService реализует бронирование и отмену.
type ReservationService struct {
	repo      Repository
	users     Users
	publisher Publisher
	cache     Cache
	metrics   Recorder
	log       *slog.Logger
}

// NewReservationService создает новый экземпляр ReservationService.
func NewReservationService(repo Repository, users Users, publisher Publisher, cache Cache, metrics Recorder, log *slog.Logger) *ReservationService {
	return &ReservationService{
		repo:      repo,
		users:     users,
		publisher: publisher,
		cache:     cache,
		metrics:   metrics,
		log:       log,
	}
}

// Reserve бронирует одно место в поездке tripID для пассажира userID.
func (s *ReservationService) Reserve(ctx context.Context, userID, tripID int64) (*models.Trip, error) {
	const op = "reservation.Reserve"
	trip, err := s.repo.Reserve(ctx, userID, tripID)
	if err != nil {
		s.metrics.ReservationOutcome(outcome(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.ReservationOutcome(metrics.OutcomeReserved)
	s.log.Info("trip reserved",
		slog.Int64("trip_id", tripID),
		slog.Int64("user_id", userID),
		slog.Int("available_places", trip.AvailablePlaces),
	)

	s.afterCommit(ctx, models.EventReservationConfirmed, userID, trip)
	return trip, nil
}

// Cancel отменяет бронь пассажира userID в поездке tripID.
func (s *ReservationService) Cancel(ctx context.Context, userID, tripID int64) (*models.Trip, error) {
	const op = "reservation.Cancel"
	trip, err := s.repo.Cancel(ctx, userID, tripID)
	if err != nil {
		s.metrics.ReservationOutcome(outcome(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.ReservationOutcome(metrics.OutcomeCancelled)
	s.log.Info("reservation cancelled", slog.Int64("trip_id", tripID), slog.Int64("user_id", userID))

	s.afterCommit(ctx, models.EventReservationCancelled, userID, trip)
	return trip, nil
}

func (s *ReservationService) afterCommit(ctx context.Context, kind string, userID int64, trip *models.Trip) {
	log := s.log.With(slog.String("kind", kind), slog.Int64("trip_id", trip.ID), slog.Int64("user_id", userID))

	if err := s.cache.Invalidate(ctx, cache.TripKey(trip.ID)); err != nil {
		log.Warn("failed to invalidate trip cache", sl.Err(err))
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		s.metrics.NotificationPublished(kind, err)
		log.Warn("notification skipped: passenger lookup failed", sl.Err(err))
		return
	}

	err = s.publisher.Publish(ctx, kind, models.NewReservationEvent(kind, user.Email, user.FirstName, trip))
	s.metrics.NotificationPublished(kind, err)
	if err != nil {
		log.Warn("failed to publish notification", sl.Err(err))
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, models.ErrTripNotFound), errors.Is(err, models.ErrReservationNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, models.ErrAlreadyReserved):
		return metrics.OutcomeAlreadyBooked
	case errors.Is(err, models.ErrNoAvailability):
		return metrics.OutcomeNoPlaces
	default:
		return metrics.OutcomeError
	}
}
