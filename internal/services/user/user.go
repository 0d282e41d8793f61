// Package services содержит управление пользователями: создание, профиль,
// частичное изменение и удаление с возвратом забронированных мест.
package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/magabrotheeeer/carpool/internal/cache"
	"github.com/magabrotheeeer/carpool/internal/lib/password"
	"github.com/magabrotheeeer/carpool/internal/lib/sl"
	"github.com/magabrotheeeer/carpool/internal/models"
)

// Repository хранилище пользователей.
type Repository interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) ([]int64, error)
	ReservedTripIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Avatars хранилище изображений профиля.
type Avatars interface {
	Upload(ctx context.Context, r io.Reader) (string, error)
	Remove(ctx context.Context, key string) error
}

// Cache сбрасывает закешированные поездки.
type Cache interface {
	Invalidate(ctx context.Context, key string) error
}

// UserService реализует операции над пользователями.
type UserService struct {
	repo    Repository
	avatars Avatars
	cache   Cache
	log     *slog.Logger
}

// NewUserService создает новый экземпляр UserService.
func NewUserService(repo Repository, avatars Avatars, cache Cache, log *slog.Logger) *UserService {
	return &UserService{
		repo:    repo,
		avatars: avatars,
		cache:   cache,
		log:     log,
	}
}

// Create хеширует пароль, сохраняет аватар (если прислан) и создаёт пользователя.
// Пустая роль заменяется на "user". Если пользователя создать не удалось,
// сохранённый аватар удаляется.
func (s *UserService) Create(ctx context.Context, in models.NewUser) (*models.User, error) {
	const op = "user.Create"
	hash, err := password.GetHash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}

	avatar, err := s.upload(ctx, in.Avatar)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.repo.CreateUser(ctx, models.User{
		LastName:     in.LastName,
		FirstName:    in.FirstName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Avatar:       avatar,
	})
	if err != nil {
		s.discard(ctx, avatar)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// Get возвращает пользователя по ID.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUser(ctx, id)
}

// GetByEmail возвращает пользователя по email.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.GetUserByEmail(ctx, email)
}

// List возвращает страницу пользователей.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	return s.repo.ListUsers(ctx, limit, offset)
}

// Profile возвращает пользователя вместе со списком забронированных поездок.
func (s *UserService) Profile(ctx context.Context, id int64) (*models.User, error) {
	const op = "user.Profile"
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ids, err := s.repo.ReservedTripIDs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user.ReservedTripIDs = ids
	return user, nil
}

// Update применяет частичное изменение. Пароль перехешируется, только если
// он передан; аватар заменяется, только если прислан новый файл.
func (s *UserService) Update(ctx context.Context, id int64, in models.UserUpdate) (*models.User, error) {
	const op = "user.Update"
	patch := models.UserPatch{
		LastName:  in.LastName,
		FirstName: in.FirstName,
		Email:     in.Email,
		Role:      in.Role,
	}
	if in.Password != nil {
		hash, err := password.GetHash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		patch.PasswordHash = &hash
	}

	var previous *string
	if in.Avatar != nil {
		current, err := s.repo.GetUser(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		previous = current.Avatar
		if patch.Avatar, err = s.upload(ctx, in.Avatar); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	user, err := s.repo.UpdateUser(ctx, id, patch)
	if err != nil {
		s.discard(ctx, patch.Avatar)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if patch.Avatar != nil {
		s.discard(ctx, previous)
	}
	return user, nil
}

// Delete удаляет пользователя, возвращает места в забронированных им
// поездках и сбрасывает кеш затронутых поездок.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	const op = "user.Delete"
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := s.repo.DeleteUser(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, tripID := range affected {
		if err := s.cache.Invalidate(ctx, cache.TripKey(tripID)); err != nil {
			s.log.Warn("failed to invalidate trip cache", slog.Int64("trip_id", tripID), sl.Err(err))
		}
	}
	s.discard(ctx, user.Avatar)
	s.log.Info("user deleted", slog.Int64("user_id", id), slog.Int("affected_trips", len(affected)))
	return nil
}

func (s *UserService) upload(ctx context.Context, r io.Reader) (*string, error) {
	if r == nil {
		return nil, nil
	}
	key, err := s.avatars.Upload(ctx, r)
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// discard удаляет аватар; ошибка только логируется.
func (s *UserService) discard(ctx context.Context, key *string) {
	if key == nil {
		return
	}
	if err := s.avatars.Remove(ctx, *key); err != nil {
		s.log.Warn("failed to remove avatar", slog.String("avatar", *key), sl.Err(err))
	}
}
