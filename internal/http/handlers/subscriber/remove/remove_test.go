package remove

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	subscriberservice "github.com/magabrotheeeer/subscription-site/internal/services/subscriber"
)

// MockService реализует интерфейс remove.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestRemoveHandler(t *testing.T) {
	logger := newNoopLogger()

	tests := []struct {
		name           string
		url            string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешное удаление",
			url:  "/subscribers/s1",
			setupMock: func(m *MockService) {
				m.On("Delete", mock.Anything, "s1").Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"message":"subscriber deleted"}`,
		},
		{
			name: "подписчик не найден",
			url:  "/subscribers/missing",
			setupMock: func(m *MockService) {
				m.On("Delete", mock.Anything, "missing").Return(subscriberservice.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"detail":"subscriber not found"}`,
		},
		{
			name: "ошибка сервиса",
			url:  "/subscribers/s1",
			setupMock: func(m *MockService) {
				m.On("Delete", mock.Anything, "s1").Return(errors.New("db is down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"detail":"internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			router := chi.NewRouter()
			router.Delete("/subscribers/{id}", New(logger, mockService).ServeHTTP)

			req := httptest.NewRequest(http.MethodDelete, tt.url, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.JSONEq(t, tt.expectedBody, rec.Body.String())
			mockService.AssertExpectations(t)
		})
	}
}
