package list

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/carpool/internal/lib/sl"
	"github.com/magabrotheeeer/carpool/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func TestListHandler(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "страница по умолчанию",
			query: "",
			setupMock: func(m *MockService) {
				m.On("List", mock.Anything, 10, 0).Return([]*models.User{{ID: 1, Email: "a@example.com"}}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"email":"a@example.com"`,
		},
		{
			name:  "пустой список",
			query: "?limit=5&offset=100",
			setupMock: func(m *MockService) {
				m.On("List", mock.Anything, 5, 100).Return(nil, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `[]`,
		},
		{
			name:           "некорректный limit",
			query:          "?limit=-3",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"limit"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			rec := httptest.NewRecorder()
			New(sl.Discard(), svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users"+tt.query, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
