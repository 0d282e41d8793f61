package me

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/carpool/internal/http/middlewarectx"
	"github.com/magabrotheeeer/carpool/internal/lib/sl"
	"github.com/magabrotheeeer/carpool/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Profile(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func TestMeHandler(t *testing.T) {
	t.Run("профиль с бронированиями", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Profile", mock.Anything, int64(4)).
			Return(&models.User{ID: 4, Email: "me@example.com", ReservedTripIDs: []int64{3, 8}}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req = req.WithContext(middlewarectx.WithIdentity(req.Context(), models.Identity{UserID: 4, Role: models.RoleUser}))
		rec := httptest.NewRecorder()
		New(sl.Discard(), svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"reserved_trip_ids":[3,8]`)
		svc.AssertExpectations(t)
	})

	t.Run("без аутентификации", func(t *testing.T) {
		svc := new(MockService)
		rec := httptest.NewRecorder()
		New(sl.Discard(), svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		svc.AssertNotCalled(t, "Profile", mock.Anything, mock.Anything)
	})
}
