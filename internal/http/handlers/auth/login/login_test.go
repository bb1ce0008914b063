package login

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscription-site/internal/models"
	"github.com/magabrotheeeer/subscription-site/internal/services/auth"
)

// MockService реализует интерфейс login.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Login(ctx context.Context, username, password string) (string, string, *models.User, error) {
	args := m.Called(ctx, username, password)
	user, _ := args.Get(2).(*models.User)
	return args.String(0), args.String(1), user, args.Error(3)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestLoginHandler(t *testing.T) {
	logger := newNoopLogger()

	tests := []struct {
		name           string
		requestBody    any
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "успешный вход",
			requestBody: models.LoginRequest{Username: "admin", Password: "admin123"},
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "admin", "admin123").
					Return("access-token", "refresh-token", &models.User{
						UID:      "uid-1",
						Username: "admin",
						Role:     "admin",
					}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"token_type":"bearer"`,
		},
		{
			name:           "некорректный JSON",
			requestBody:    "not a json",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"detail":"invalid request body"}`,
		},
		{
			name:           "ошибка валидации",
			requestBody:    models.LoginRequest{Username: "admin"},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"detail":"field Password is a required field"}`,
		},
		{
			name:        "неверные учетные данные",
			requestBody: models.LoginRequest{Username: "admin", Password: "wrong"},
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "admin", "wrong").
					Return("", "", nil, auth.ErrInvalidCredentials)
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"detail":"incorrect username or password"}`,
		},
		{
			name:        "ошибка сервиса",
			requestBody: models.LoginRequest{Username: "admin", Password: "admin123"},
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "admin", "admin123").
					Return("", "", nil, errors.New("db is down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"detail":"internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)
			handler := New(logger, mockService)

			var body bytes.Buffer
			switch v := tt.requestBody.(type) {
			case string:
				body.WriteString(v)
			default:
				assert.NoError(t, json.NewEncoder(&body).Encode(v))
			}

			req := httptest.NewRequest(http.MethodPost, "/auth/login", &body)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestLoginHandler_ResponseShape(t *testing.T) {
	mockService := new(MockService)
	mockService.On("Login", mock.Anything, "admin", "admin123").
		Return("access-token", "refresh-token", &models.User{
			UID:                "uid-1",
			Username:           "admin",
			Role:               "admin",
			AuthorizationLevel: "full",
			PasswordHash:       "secret-hash",
		}, nil)
	handler := New(newNoopLogger(), mockService)

	body, _ := json.Marshal(models.LoginRequest{Username: "admin", Password: "admin123"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "access-token", resp["access_token"])
	assert.Equal(t, "refresh-token", resp["refresh_token"])

	user, ok := resp["user"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "uid-1", user["id"])
	assert.NotContains(t, rec.Body.String(), "secret-hash")
}
