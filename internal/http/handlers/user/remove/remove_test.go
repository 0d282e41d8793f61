package remove

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/carpool/internal/lib/sl"
	"github.com/magabrotheeeer/carpool/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func TestRemoveHandler(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		setupMock      func(*MockService)
		expectedStatus int
	}{
		{
			name: "успешное удаление",
			url:  "/users/3",
			setupMock: func(m *MockService) {
				m.On("Delete", mock.Anything, int64(3)).Return(nil).Once()
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name: "пользователь не найден",
			url:  "/users/3",
			setupMock: func(m *MockService) {
				m.On("Delete", mock.Anything, int64(3)).Return(models.ErrUserNotFound).Once()
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "ошибка хранилища",
			url:  "/users/3",
			setupMock: func(m *MockService) {
				m.On("Delete", mock.Anything, int64(3)).Return(errors.New("tx aborted")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "некорректный id",
			url:            "/users/zero",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			router := chi.NewRouter()
			router.Delete("/users/{id}", New(sl.Discard(), svc).ServeHTTP)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, tt.url, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}
