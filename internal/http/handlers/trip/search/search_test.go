package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/carpool/internal/lib/sl"
	"github.com/magabrotheeeer/carpool/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Search(ctx context.Context, f models.TripFilter) ([]*models.Trip, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Trip), args.Error(1)
}

func TestParseFilter(t *testing.T) {
	day := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		query      string
		want       models.TripFilter
		wantFields []string
	}{
		{
			name:  "без фильтров",
			query: "",
			want:  models.TripFilter{Limit: 10},
		},
		{
			name:  "короткие имена",
			query: "start=paris&end=Lyon&date=2030-06-01",
			want:  models.TripFilter{StartingPoint: "paris", EndingPoint: "Lyon", Date: &day, Limit: 10},
		},
		{
			name:  "полные имена и пагинация",
			query: "starting_point=Par&ending_point=ly&starting_at=2030-06-01T23:30:00Z&limit=5&offset=10",
			want:  models.TripFilter{StartingPoint: "Par", EndingPoint: "ly", Date: &day, Limit: 5, Offset: 10},
		},
		{
			name:  "время с поясом приводится к дню в UTC",
			query: "date=2030-06-02T01:00:00%2B02:00",
			want:  models.TripFilter{Date: &day, Limit: 10},
		},
		{
			name:       "некорректная дата",
			query:      "date=01-06-2030",
			wantFields: []string{"date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/trips?"+tt.query, nil)
			got, fields := ParseFilter(req)
			if tt.wantFields != nil {
				for _, f := range tt.wantFields {
					assert.Contains(t, fields, f)
				}
				return
			}
			require.Nil(t, fields)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchHandler(t *testing.T) {
	t.Run("результаты поиска", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Search", mock.Anything, mock.MatchedBy(func(f models.TripFilter) bool {
			return f.StartingPoint == "paris"
		})).Return([]*models.Trip{{ID: 1, StartingPoint: "Paris"}}, nil).Once()

		rec := httptest.NewRecorder()
		New(sl.Discard(), svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/trips?start=paris", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"starting_point":"Paris"`)
		svc.AssertExpectations(t)
	})

	t.Run("пустой результат", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Search", mock.Anything, mock.Anything).Return(nil, nil).Once()

		rec := httptest.NewRecorder()
		New(sl.Discard(), svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("некорректные параметры", func(t *testing.T) {
		svc := new(MockService)
		rec := httptest.NewRecorder()
		New(sl.Discard(), svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/trips?date=tomorrow", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		svc.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	})
}
