// Package services содержит каталог поездок: создание, поиск, изменение
// владельцем и удаление, с кешированием отдельных поездок в Redis.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/carpool/internal/cache"
	"github.com/magabrotheeeer/carpool/internal/lib/sl"
	"github.com/magabrotheeeer/carpool/internal/models"
	access "github.com/magabrotheeeer/carpool/internal/services/access"
)

// Параметры пагинации поиска.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Repository хранилище поездок.
type Repository interface {
	CreateTrip(ctx context.Context, trip models.Trip) (*models.Trip, error)
	GetTrip(ctx context.Context, id int64) (*models.Trip, error)
	SearchTrips(ctx context.Context, f models.TripFilter) ([]*models.Trip, error)
	UpdateTrip(ctx context.Context, id int64, patch models.TripPatch) (*models.Trip, error)
	DeleteTrip(ctx context.Context, id int64) error
}

// Cache описывает методы для кэширования данных. Запись версионная:
// SetIfVersion ничего не сохраняет, если после Version ключ был сброшен.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Version(ctx context.Context, key string) (int64, error)
	SetIfVersion(ctx context.Context, key string, value any, version int64, expiration time.Duration) (bool, error)
	Invalidate(ctx context.Context, key string) error
}

// TripService реализует бизнес-логику работы с поездками, включая кеширование.
type TripService struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// NewTripService создает новый экземпляр TripService.
func NewTripService(repo Repository, cache Cache, ttl time.Duration, log *slog.Logger) *TripService {
	return &TripService{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

// Create сохраняет поездку, владельцем которой становится owner.
func (s *TripService) Create(ctx context.Context, owner models.Identity, trip models.Trip) (*models.Trip, error) {
	const op = "trip.Create"
	trip.UserID = owner.UserID
	created, err := s.repo.CreateTrip(ctx, trip)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("trip created", slog.Int64("trip_id", created.ID), slog.Int64("user_id", owner.UserID))
	return created, nil
}

// Get возвращает поездку, сначала пытаясь прочитать её из кеша.
// Версия ключа запоминается до чтения из базы: если поездку успели
// изменить или удалить, прочитанная копия в кеш не попадает.
func (s *TripService) Get(ctx context.Context, id int64) (*models.Trip, error) {
	const op = "trip.Get"
	key := cache.TripKey(id)
	var cached models.Trip
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("failed to read trip from cache", slog.Int64("trip_id", id), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	version, verErr := s.cache.Version(ctx, key)
	if verErr != nil {
		s.log.Warn("failed to read trip cache version", slog.Int64("trip_id", id), sl.Err(verErr))
	}

	trip, err := s.repo.GetTrip(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if verErr == nil {
		s.store(ctx, trip, version)
	}
	return trip, nil
}

// Search ищет поездки по фильтру. Limit вне диапазона [1, MaxLimit]
// заменяется значением по умолчанию или MaxLimit.
func (s *TripService) Search(ctx context.Context, f models.TripFilter) ([]*models.Trip, error) {
	const op = "trip.Search"
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultLimit
	case f.Limit > MaxLimit:
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	trips, err := s.repo.SearchTrips(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return trips, nil
}

// Authorize проверяет, что поездка существует и requester может её менять.
// Для изменения нужен владелец, для удаления достаточно роли администратора.
func (s *TripService) Authorize(ctx context.Context, requester models.Identity, id int64, allowAdmin bool) (*models.Trip, error) {
	const op = "trip.Authorize"
	trip, err := s.repo.GetTrip(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if allowAdmin {
		err = access.RequireOwnerOrAdmin(requester, trip)
	} else {
		err = access.RequireOwnership(requester, trip)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return trip, nil
}

// Update применяет частичное изменение поездки владельцем.
func (s *TripService) Update(ctx context.Context, requester models.Identity, id int64, patch models.TripPatch) (*models.Trip, error) {
	const op = "trip.Update"
	if _, err := s.Authorize(ctx, requester, id, false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	trip, err := s.repo.UpdateTrip(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, id)
	s.log.Info("trip updated", slog.Int64("trip_id", id))
	return trip, nil
}

// Delete удаляет поездку. Разрешено владельцу и администратору.
func (s *TripService) Delete(ctx context.Context, requester models.Identity, id int64) error {
	const op = "trip.Delete"
	if _, err := s.Authorize(ctx, requester, id, true); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.DeleteTrip(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, id)
	s.log.Info("trip deleted", slog.Int64("trip_id", id), slog.Int64("by_user_id", requester.UserID))
	return nil
}

func (s *TripService) store(ctx context.Context, trip *models.Trip, version int64) {
	stored, err := s.cache.SetIfVersion(ctx, cache.TripKey(trip.ID), trip, version, s.ttl)
	if err != nil {
		s.log.Warn("failed to cache trip", slog.Int64("trip_id", trip.ID), sl.Err(err))
		return
	}
	if !stored {
		s.log.Debug("trip changed during read, not cached", slog.Int64("trip_id", trip.ID))
	}
}

func (s *TripService) invalidate(ctx context.Context, id int64) {
	if err := s.cache.Invalidate(ctx, cache.TripKey(id)); err != nil {
		s.log.Warn("failed to invalidate trip cache", slog.Int64("trip_id", id), sl.Err(err))
	}
}
