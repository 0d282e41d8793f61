package middlewarectx_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/carpool/internal/config"
	"github.com/magabrotheeeer/carpool/internal/http/middlewarectx"
	"github.com/magabrotheeeer/carpool/internal/lib/sl"
	"github.com/magabrotheeeer/carpool/internal/models"
)

type VerifierMock struct {
	mock.Mock
}

func (m *VerifierMock) Verify(ctx context.Context, token string) (*models.Identity, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Identity), args.Error(1)
}

func TestJWTMiddleware(t *testing.T) {
	identity := &models.Identity{UserID: 42, Role: models.RoleUser, TokenID: "jti"}

	tests := []struct {
		name       string
		authHeader string
		setupMock  func(*VerifierMock)
		wantStatus int
		wantCalled bool
	}{
		{
			name:       "нет заголовка Authorization",
			setupMock:  func(_ *VerifierMock) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "неверный префикс",
			authHeader: "Basic sometoken",
			setupMock:  func(_ *VerifierMock) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "пустой токен",
			authHeader: "Bearer ",
			setupMock:  func(_ *VerifierMock) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "токен отклонён",
			authHeader: "Bearer revoked",
			setupMock: func(m *VerifierMock) {
				m.On("Verify", mock.Anything, "revoked").
					Return(nil, fmt.Errorf("auth.Verify: %w", models.ErrInvalidToken)).Once()
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "ошибка хранилища отзыва",
			authHeader: "Bearer token",
			setupMock: func(m *VerifierMock) {
				m.On("Verify", mock.Anything, "token").Return(nil, errors.New("redis down")).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "валидный токен",
			authHeader: "Bearer validtoken",
			setupMock: func(m *VerifierMock) {
				m.On("Verify", mock.Anything, "validtoken").Return(identity, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := new(VerifierMock)
			tt.setupMock(verifier)

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				id, ok := middlewarectx.IdentityFrom(r.Context())
				assert.True(t, ok)
				assert.Equal(t, int64(42), id.UserID)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			middlewarectx.JWTMiddleware(verifier, sl.Discard())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
			verifier.AssertExpectations(t)
		})
	}
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := middlewarectx.RequireRole(models.RoleAdmin, sl.Discard())(next)

	tests := []struct {
		name       string
		identity   *models.Identity
		wantStatus int
	}{
		{"администратор", &models.Identity{UserID: 1, Role: models.RoleAdmin}, http.StatusOK},
		{"обычный пользователь", &models.Identity{UserID: 2, Role: models.RoleUser}, http.StatusForbidden},
		{"нет субъекта", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			if tt.identity != nil {
				req = req.WithContext(middlewarectx.WithIdentity(req.Context(), *tt.identity))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("лимит считается на каждого клиента", func(t *testing.T) {
		limiter := middlewarectx.NewRateLimiter(config.RateLimit{RPS: 0.001, Burst: 2})
		handler := middlewarectx.RateLimitMiddleware(limiter, sl.Discard())(next)

		do := func(addr string) int {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/login", nil)
			req.RemoteAddr = addr
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			return rec.Code
		}

		assert.Equal(t, http.StatusOK, do("10.0.0.1:1111"))
		assert.Equal(t, http.StatusOK, do("10.0.0.1:2222"))
		assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:3333"))
		assert.Equal(t, http.StatusOK, do("10.0.0.2:1111"))
	})

	t.Run("пополнение со временем", func(t *testing.T) {
		limiter := middlewarectx.NewRateLimiter(config.RateLimit{RPS: 10, Burst: 1})
		assert.True(t, limiter.Allow("client"))
		assert.False(t, limiter.Allow("client"))
		assert.Eventually(t, func() bool {
			return limiter.Allow("client")
		}, time.Second, 20*time.Millisecond)
	})
}
