// Package services содержит аутентификацию: регистрацию, вход, проверку
// и отзыв токенов доступа.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/carpool/internal/lib/jwt"
	"github.com/magabrotheeeer/carpool/internal/lib/password"
	"github.com/magabrotheeeer/carpool/internal/lib/sl"
	"github.com/magabrotheeeer/carpool/internal/models"
)

// Users источник пользователей для аутентификации.
type Users interface {
	// Create создаёт пользователя с захешированным паролем.
	Create(ctx context.Context, in models.NewUser) (*models.User, error)
	// GetByEmail возвращает пользователя по email или models.ErrUserNotFound.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Get возвращает пользователя по ID или models.ErrUserNotFound.
	Get(ctx context.Context, id int64) (*models.User, error)
}

// RevocationStore список отозванных токенов.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthService отвечает за регистрацию, вход и проверку JWT.
type AuthService struct {
	users    Users
	jwtMaker jwt.Maker
	revoked  RevocationStore
	log      *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users Users, jwtMaker jwt.Maker, revoked RevocationStore, log *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
		revoked:  revoked,
		log:      log,
	}
}

// Register создает пользователя с ролью "user" и сразу выдаёт ему токен.
func (s *AuthService) Register(ctx context.Context, in models.NewUser) (*models.User, string, error) {
	const op = "auth.Register"
	in.Role = models.RoleUser
	user, err := s.users.Create(ctx, in)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	token, _, err := s.jwtMaker.GenerateToken(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user registered", slog.Int64("user_id", user.ID))
	return user, token, nil
}

// Login проверяет пароль пользователя и выдаёт токен. Неизвестный email и
// неверный пароль неразличимы для клиента: оба дают models.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (string, error) {
	const op = "auth.Login"
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return "", fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	token, _, err := s.jwtMaker.GenerateToken(user.ID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// Verify проверяет подпись и срок токена, отсутствие его в списке отозванных
// и существование пользователя. Роль берётся из хранилища, а не из токена.
func (s *AuthService) Verify(ctx context.Context, token string) (*models.Identity, error) {
	const op = "auth.Verify"
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrInvalidToken, err)
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrInvalidToken, err)
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if revoked {
		return nil, fmt.Errorf("%s: token revoked: %w", op, models.ErrInvalidToken)
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidToken)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.Identity{
		UserID:    user.ID,
		Role:      user.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout отзывает токен до окончания его срока действия.
func (s *AuthService) Logout(ctx context.Context, id models.Identity) error {
	const op = "auth.Logout"
	if err := s.revoked.Revoke(ctx, id.TokenID, time.Until(id.ExpiresAt)); err != nil {
		s.log.Error("failed to revoke token", slog.Int64("user_id", id.UserID), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user logged out", slog.Int64("user_id", id.UserID))
	return nil
}
