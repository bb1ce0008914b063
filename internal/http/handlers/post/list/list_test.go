package list

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscription-site/internal/models"
)

// MockService реализует интерфейс list.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) List(ctx context.Context, filter models.PostFilter) ([]*models.Post, int, error) {
	args := m.Called(ctx, filter)
	posts, _ := args.Get(0).([]*models.Post)
	return posts, args.Int(1), args.Error(2)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestListHandler_FilterParsing(t *testing.T) {
	logger := newNoopLogger()
	published := true

	tests := []struct {
		name       string
		url        string
		wantFilter models.PostFilter
	}{
		{
			name:       "без параметров",
			url:        "/posts",
			wantFilter: models.PostFilter{},
		},
		{
			name:       "пагинация и публикация",
			url:        "/posts?skip=20&limit=10&published=true",
			wantFilter: models.PostFilter{Skip: 20, Limit: 10, Published: &published},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			mockService.On("List", mock.Anything, tt.wantFilter).
				Return([]*models.Post{}, 0, nil)
			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestListHandler_ResponseShape(t *testing.T) {
	mockService := new(MockService)
	mockService.On("List", mock.Anything, models.PostFilter{Skip: 10, Limit: 5}).
		Return([]*models.Post{{ID: "p1"}, {ID: "p2"}}, 12, nil)
	handler := New(newNoopLogger(), mockService)

	req := httptest.NewRequest(http.MethodGet, "/posts?skip=10&limit=5", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ListResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Posts, 2)
	assert.Equal(t, 12, resp.Total)
	assert.Equal(t, 3, resp.Page)
	assert.Equal(t, 5, resp.Limit)
}

func TestListHandler_InvalidQuery(t *testing.T) {
	handler := New(newNoopLogger(), new(MockService))

	req := httptest.NewRequest(http.MethodGet, "/posts?limit=abc", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"invalid query parameters"}`, rec.Body.String())
}
